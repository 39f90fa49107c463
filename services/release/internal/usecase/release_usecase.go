package usecase

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"kedoo/pkg/apperrors"
	"kedoo/pkg/identity"
	"kedoo/pkg/logger"
	"kedoo/pkg/validator"
	"kedoo/services/release/internal/entity"
	"kedoo/services/release/internal/repo/persistent"

	"github.com/redis/go-redis/v9"
)

const (
	domain = "release"

	defaultPageSize = 50
	maxPageSize     = 100
)

// Notifier receives lifecycle events after they are committed.
type Notifier interface {
	PublishNotificationTask(task map[string]interface{}) error
}

type ReleaseUseCase interface {
	Create(ctx context.Context, actor identity.Identity, input entity.ReleaseInput, submit bool) (*entity.Release, error)
	Update(ctx context.Context, actor identity.Identity, releaseID string, input entity.ReleaseInput, submit bool) (*entity.Release, error)
	Get(ctx context.Context, actor identity.Identity, releaseID string) (*entity.Release, error)
	ListTracks(ctx context.Context, actor identity.Identity, releaseID string) ([]entity.Track, error)

	SubmitForModeration(ctx context.Context, actor identity.Identity, releaseID string) (*entity.Release, error)
	Withdraw(ctx context.Context, actor identity.Identity, releaseID string) (*entity.Release, error)
	Approve(ctx context.Context, actor identity.Identity, releaseID string) (*entity.Release, error)
	Reject(ctx context.Context, actor identity.Identity, releaseID, reason string) (*entity.Release, error)
	SoftDelete(ctx context.Context, actor identity.Identity, releaseID string) (*entity.Release, error)
	Restore(ctx context.Context, actor identity.Identity, releaseID string) (*entity.Release, error)
	PermanentDelete(ctx context.Context, actor identity.Identity, releaseID string) error

	Filter(ctx context.Context, actor identity.Identity, filter entity.ReleaseFilter, limit, offset int) ([]*entity.Release, error)
	All(ctx context.Context, actor identity.Identity, filter entity.ReleaseFilter) iter.Seq2[*entity.Release, error]
	ModerationQueue(ctx context.Context, actor identity.Identity, limit, offset int) ([]*entity.Release, error)
	Trash(ctx context.Context, actor identity.Identity, limit, offset int) ([]*entity.Release, error)
}

type releaseUseCase struct {
	releaseRepo persistent.ReleaseRepository
	trackRepo   persistent.TrackRepository
	validator   *validator.Validator
	notifier    Notifier
	redisClient *redis.Client
	logger      *logger.Logger
}

// NewReleaseUseCase wires the release engine. notifier and redisClient may be nil.
func NewReleaseUseCase(
	releaseRepo persistent.ReleaseRepository,
	trackRepo persistent.TrackRepository,
	notifier Notifier,
	redisClient *redis.Client,
	logger *logger.Logger,
) ReleaseUseCase {
	return &releaseUseCase{
		releaseRepo: releaseRepo,
		trackRepo:   trackRepo,
		validator:   validator.New(),
		notifier:    notifier,
		redisClient: redisClient,
		logger:      logger,
	}
}

func (uc *releaseUseCase) Create(ctx context.Context, actor identity.Identity, input entity.ReleaseInput, submit bool) (*entity.Release, error) {
	if err := authorize(actor, identity.OpCreate); err != nil {
		return nil, err
	}
	if submit {
		if err := authorize(actor, identity.OpSubmit); err != nil {
			return nil, err
		}
	}

	release, err := uc.buildRelease(input)
	if err != nil {
		return nil, err
	}
	release.OwnerID = actor.UserID
	release.Status = entity.StatusDraft
	if submit {
		release.Status = entity.StatusModeration
	}

	if err := uc.releaseRepo.Create(ctx, release, input.Tracks, submit); err != nil {
		return nil, uc.mapRepoError(err)
	}

	uc.logger.Info("Release %s created by %s with status %s", release.ID, actor.UserID, release.Status)
	if submit {
		uc.publish("submitted", release)
	}
	return release, nil
}

func (uc *releaseUseCase) Update(ctx context.Context, actor identity.Identity, releaseID string, input entity.ReleaseInput, submit bool) (*entity.Release, error) {
	if err := authorize(actor, identity.OpEdit); err != nil {
		return nil, err
	}
	if submit {
		if err := authorize(actor, identity.OpSubmit); err != nil {
			return nil, err
		}
	}

	current, err := uc.loadOwned(ctx, actor, releaseID)
	if err != nil {
		return nil, err
	}

	if current.Status != entity.StatusDraft && current.Status != entity.StatusRejected {
		return nil, apperrors.InvalidStatus(domain, fmt.Sprintf("a release in status %s cannot be edited", current.Status))
	}

	fields, err := uc.buildRelease(input)
	if err != nil {
		return nil, err
	}

	to := entity.StatusDraft
	if submit {
		to = entity.StatusModeration
	}

	// a rejected release leaves the rejected state on any edit
	updated, err := uc.releaseRepo.UpdateWithTracks(ctx, releaseID, persistent.ReleaseEdit{
		From:        current.Status,
		To:          to,
		ClearReason: current.Status == entity.StatusRejected || submit,
		Fields:      fields,
		Tracks:      input.Tracks,
		Strict:      submit,
	})
	if err != nil {
		return nil, uc.mapRepoError(err)
	}

	if submit {
		uc.publish("submitted", updated)
	}
	return updated, nil
}

func (uc *releaseUseCase) Get(ctx context.Context, actor identity.Identity, releaseID string) (*entity.Release, error) {
	if err := authorize(actor, identity.OpView); err != nil {
		return nil, err
	}
	return uc.loadVisible(ctx, actor, releaseID)
}

func (uc *releaseUseCase) ListTracks(ctx context.Context, actor identity.Identity, releaseID string) ([]entity.Track, error) {
	if err := authorize(actor, identity.OpView); err != nil {
		return nil, err
	}
	if _, err := uc.loadVisible(ctx, actor, releaseID); err != nil {
		return nil, err
	}

	tracks, err := uc.trackRepo.ListTracks(ctx, releaseID)
	if err != nil {
		return nil, apperrors.DatabaseError(err, domain)
	}
	return tracks, nil
}

func (uc *releaseUseCase) SubmitForModeration(ctx context.Context, actor identity.Identity, releaseID string) (*entity.Release, error) {
	if err := authorize(actor, identity.OpSubmit); err != nil {
		return nil, err
	}

	current, err := uc.loadOwned(ctx, actor, releaseID)
	if err != nil {
		return nil, err
	}
	if current.Status != entity.StatusDraft && current.Status != entity.StatusRejected {
		return nil, invalidTransition("submit", current.Status)
	}
	if err := checkReady(current); err != nil {
		return nil, err
	}

	updated, err := uc.releaseRepo.Transition(ctx, releaseID, persistent.StatusChange{
		From:        current.Status,
		To:          entity.StatusModeration,
		ClearReason: true,
		Guard:       checkReady,
	})
	if err != nil {
		return nil, uc.mapRepoError(err)
	}

	uc.publish("submitted", updated)
	return updated, nil
}

func (uc *releaseUseCase) Withdraw(ctx context.Context, actor identity.Identity, releaseID string) (*entity.Release, error) {
	if err := authorize(actor, identity.OpWithdraw); err != nil {
		return nil, err
	}

	current, err := uc.loadOwned(ctx, actor, releaseID)
	if err != nil {
		return nil, err
	}
	if current.Status != entity.StatusModeration {
		return nil, invalidTransition("withdraw", current.Status)
	}

	updated, err := uc.releaseRepo.Transition(ctx, releaseID, persistent.StatusChange{
		From: entity.StatusModeration,
		To:   entity.StatusDraft,
	})
	if err != nil {
		return nil, uc.mapRepoError(err)
	}

	uc.publish("withdrawn", updated)
	return updated, nil
}

func (uc *releaseUseCase) Approve(ctx context.Context, actor identity.Identity, releaseID string) (*entity.Release, error) {
	if err := authorize(actor, identity.OpApprove); err != nil {
		return nil, err
	}

	current, err := uc.load(ctx, releaseID)
	if err != nil {
		return nil, err
	}
	if current.Status != entity.StatusModeration {
		return nil, invalidTransition("approve", current.Status)
	}

	updated, err := uc.releaseRepo.Transition(ctx, releaseID, persistent.StatusChange{
		From:        entity.StatusModeration,
		To:          entity.StatusApproved,
		ClearReason: true,
	})
	if err != nil {
		return nil, uc.mapRepoError(err)
	}

	uc.logger.Info("Release %s approved by %s", releaseID, actor.UserID)
	uc.publish("approved", updated)
	return updated, nil
}

func (uc *releaseUseCase) Reject(ctx context.Context, actor identity.Identity, releaseID, reason string) (*entity.Release, error) {
	if err := authorize(actor, identity.OpReject); err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.ValidationError(domain, map[string]string{"reason": "This field is required"})
	}

	current, err := uc.load(ctx, releaseID)
	if err != nil {
		return nil, err
	}
	if current.Status != entity.StatusModeration {
		return nil, invalidTransition("reject", current.Status)
	}

	updated, err := uc.releaseRepo.Transition(ctx, releaseID, persistent.StatusChange{
		From:      entity.StatusModeration,
		To:        entity.StatusRejected,
		SetReason: &reason,
	})
	if err != nil {
		return nil, uc.mapRepoError(err)
	}

	uc.logger.Info("Release %s rejected by %s", releaseID, actor.UserID)
	uc.publish("rejected", updated)
	return updated, nil
}

func (uc *releaseUseCase) SoftDelete(ctx context.Context, actor identity.Identity, releaseID string) (*entity.Release, error) {
	if err := authorize(actor, identity.OpSoftDelete); err != nil {
		return nil, err
	}

	current, err := uc.loadOwned(ctx, actor, releaseID)
	if err != nil {
		return nil, err
	}
	if current.Status == entity.StatusDeleted {
		return nil, invalidTransition("delete", current.Status)
	}

	prior := current.Status
	updated, err := uc.releaseRepo.Transition(ctx, releaseID, persistent.StatusChange{
		From:        prior,
		To:          entity.StatusDeleted,
		PriorStatus: &prior,
	})
	if err != nil {
		return nil, uc.mapRepoError(err)
	}

	uc.publish("deleted", updated)
	return updated, nil
}

func (uc *releaseUseCase) Restore(ctx context.Context, actor identity.Identity, releaseID string) (*entity.Release, error) {
	if err := authorize(actor, identity.OpRestore); err != nil {
		return nil, err
	}

	current, err := uc.loadOwned(ctx, actor, releaseID)
	if err != nil {
		return nil, err
	}
	if current.Status != entity.StatusDeleted {
		return nil, invalidTransition("restore", current.Status)
	}
	if current.PriorStatus == nil || !current.PriorStatus.Valid() || *current.PriorStatus == entity.StatusDeleted {
		uc.logger.Error("Release %s is deleted without a usable prior status", releaseID)
		return nil, apperrors.CorruptState(domain, "deleted release has no recorded prior status")
	}

	updated, err := uc.releaseRepo.Restore(ctx, releaseID, *current.PriorStatus)
	if err != nil {
		return nil, uc.mapRepoError(err)
	}

	uc.publish("restored", updated)
	return updated, nil
}

func (uc *releaseUseCase) PermanentDelete(ctx context.Context, actor identity.Identity, releaseID string) error {
	if err := authorize(actor, identity.OpPermanentDelete); err != nil {
		return err
	}

	current, err := uc.loadOwned(ctx, actor, releaseID)
	if err != nil {
		return err
	}
	if current.Status != entity.StatusDeleted {
		return invalidTransition("permanently delete", current.Status)
	}

	if err := uc.releaseRepo.Delete(ctx, releaseID); err != nil {
		return uc.mapRepoError(err)
	}

	uc.logger.Info("Release %s permanently deleted by %s", releaseID, actor.UserID)
	uc.publish("purged", current)
	return nil
}

func (uc *releaseUseCase) Filter(ctx context.Context, actor identity.Identity, filter entity.ReleaseFilter, limit, offset int) ([]*entity.Release, error) {
	if err := authorize(actor, identity.OpView); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.ValidationError(domain, map[string]string{"status": "Unknown release status"})
	}

	if !actor.IsModerator() {
		filter.OwnerID = actor.UserID
	}
	limit, offset = page(limit, offset)

	releases, err := uc.releaseRepo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, apperrors.DatabaseError(err, domain)
	}
	return releases, nil
}

// All pages through every release matching filter. Each range over the
// returned sequence starts a fresh scan.
func (uc *releaseUseCase) All(ctx context.Context, actor identity.Identity, filter entity.ReleaseFilter) iter.Seq2[*entity.Release, error] {
	return func(yield func(*entity.Release, error) bool) {
		for offset := 0; ; offset += defaultPageSize {
			batch, err := uc.Filter(ctx, actor, filter, defaultPageSize, offset)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, release := range batch {
				if !yield(release, nil) {
					return
				}
			}
			if len(batch) < defaultPageSize {
				return
			}
		}
	}
}

func (uc *releaseUseCase) ModerationQueue(ctx context.Context, actor identity.Identity, limit, offset int) ([]*entity.Release, error) {
	if err := authorize(actor, identity.OpApprove); err != nil {
		return nil, err
	}
	return uc.Filter(ctx, actor, entity.ReleaseFilter{
		Status: entity.StatusModeration,
		Sort:   entity.SortOldest,
	}, limit, offset)
}

func (uc *releaseUseCase) Trash(ctx context.Context, actor identity.Identity, limit, offset int) ([]*entity.Release, error) {
	if err := authorize(actor, identity.OpRestore); err != nil {
		return nil, err
	}
	return uc.Filter(ctx, actor, entity.ReleaseFilter{
		Status: entity.StatusDeleted,
		Sort:   entity.SortRecentlyUpdated,
	}, limit, offset)
}

func (uc *releaseUseCase) buildRelease(input entity.ReleaseInput) (*entity.Release, error) {
	if err := uc.validator.Validate(input); err != nil {
		var vErr *validator.ValidationError
		if errors.As(err, &vErr) {
			return nil, apperrors.ValidationError(domain, vErr.Errors)
		}
		return nil, apperrors.InternalError(err)
	}

	newDate, err := time.Parse(entity.DateLayout, input.NewReleaseDate)
	if err != nil {
		return nil, apperrors.ValidationError(domain, map[string]string{"new_release_date": "Must be a YYYY-MM-DD date"})
	}

	release := &entity.Release{
		Title:          strings.TrimSpace(input.Title),
		Genre:          strings.TrimSpace(input.Genre),
		CoverRef:       strings.TrimSpace(input.CoverRef),
		NewReleaseDate: newDate,
	}
	if upc := strings.TrimSpace(input.UPC); upc != "" {
		release.UPC = &upc
	}
	if input.OldReleaseDate != "" {
		oldDate, err := time.Parse(entity.DateLayout, input.OldReleaseDate)
		if err != nil {
			return nil, apperrors.ValidationError(domain, map[string]string{"old_release_date": "Must be a YYYY-MM-DD date"})
		}
		release.OldReleaseDate = &oldDate
	}
	return release, nil
}

func (uc *releaseUseCase) load(ctx context.Context, releaseID string) (*entity.Release, error) {
	release, err := uc.releaseRepo.GetByID(ctx, releaseID)
	if err != nil {
		return nil, uc.mapRepoError(err)
	}
	return release, nil
}

func (uc *releaseUseCase) loadOwned(ctx context.Context, actor identity.Identity, releaseID string) (*entity.Release, error) {
	release, err := uc.load(ctx, releaseID)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(release.OwnerID) {
		return nil, apperrors.Forbidden(domain, "you can only manage your own releases")
	}
	return release, nil
}

// loadVisible lets moderators read any release and owners their own.
func (uc *releaseUseCase) loadVisible(ctx context.Context, actor identity.Identity, releaseID string) (*entity.Release, error) {
	if actor.IsModerator() {
		return uc.load(ctx, releaseID)
	}
	return uc.loadOwned(ctx, actor, releaseID)
}

func (uc *releaseUseCase) mapRepoError(err error) error {
	var conflict *persistent.StatusConflictError
	switch {
	case errors.Is(err, persistent.ErrReleaseNotFound):
		return apperrors.NotFound(domain, "release not found")
	case errors.Is(err, persistent.ErrNoPriorStatus):
		return apperrors.CorruptState(domain, "deleted release has no recorded prior status")
	case errors.As(err, &conflict):
		return apperrors.InvalidStatus(domain, fmt.Sprintf("release is now %s", conflict.Current))
	}
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	uc.logger.Error("Release persistence failed: %v", err)
	return apperrors.DatabaseError(err, domain)
}

// checkReady is the submission guard: at least one track and every review field filled.
func checkReady(release *entity.Release) error {
	if len(release.Tracks) == 0 {
		return apperrors.NotReady(domain, "release has no tracks")
	}

	missing := make(map[string]string)
	for i, track := range release.Tracks {
		for _, field := range track.Input().MissingFields(true) {
			missing[fmt.Sprintf("tracks[%d].%s", i, field)] = "This field is required"
		}
	}
	if len(missing) > 0 {
		return apperrors.NotReady(domain, "some tracks are incomplete").WithDetails(missing)
	}
	return nil
}

func authorize(actor identity.Identity, op identity.Operation) error {
	if !identity.CanPerform(actor.Role, op) {
		return apperrors.Forbidden(domain, fmt.Sprintf("role %q may not %s", actor.Role, op))
	}
	return nil
}

func invalidTransition(action string, status entity.ReleaseStatus) error {
	return apperrors.InvalidStatus(domain, fmt.Sprintf("cannot %s a release in status %s", action, status))
}

func page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
