package persistent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"kedoo/services/release/internal/entity"
	"kedoo/services/release/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrReleaseNotFound = errors.New("release not found")
	ErrNoPriorStatus   = errors.New("deleted release has no recorded prior status")
)

// StatusConflictError is returned when a compare-and-swap finds the release
// in a status other than the one the caller expected.
type StatusConflictError struct {
	ID      string
	Current entity.ReleaseStatus
}

func (e *StatusConflictError) Error() string {
	return fmt.Sprintf("release %s is %s", e.ID, e.Current)
}

// StatusChange is one compare-and-swap on a release's status.
type StatusChange struct {
	From entity.ReleaseStatus
	To   entity.ReleaseStatus

	// SetReason stores a rejection reason, ClearReason drops it, neither keeps it.
	SetReason   *string
	ClearReason bool

	// PriorStatus is written with the change; nil clears the column.
	PriorStatus *entity.ReleaseStatus

	// Guard runs inside the transaction on the updated release.
	// Returning an error rolls the change back.
	Guard func(*entity.Release) error
}

// ReleaseEdit replaces the metadata and tracks of a release in one step.
type ReleaseEdit struct {
	From        entity.ReleaseStatus
	To          entity.ReleaseStatus
	ClearReason bool
	Fields      *entity.Release
	Tracks      []entity.TrackInput
	Strict      bool
}

type ReleaseRepository interface {
	Create(ctx context.Context, release *entity.Release, tracks []entity.TrackInput, strict bool) error
	GetByID(ctx context.Context, id string) (*entity.Release, error)
	Transition(ctx context.Context, id string, change StatusChange) (*entity.Release, error)
	Restore(ctx context.Context, id string, prior entity.ReleaseStatus) (*entity.Release, error)
	UpdateWithTracks(ctx context.Context, id string, edit ReleaseEdit) (*entity.Release, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter entity.ReleaseFilter, limit, offset int) ([]*entity.Release, error)
}

type releaseRepository struct {
	db     *gorm.DB
	tracks TrackRepository
}

func NewReleaseRepository(db *gorm.DB, tracks TrackRepository) ReleaseRepository {
	return &releaseRepository{db: db, tracks: tracks}
}

var readOnlySnapshot = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

func (r *releaseRepository) Create(ctx context.Context, release *entity.Release, tracks []entity.TrackInput, strict bool) error {
	releaseModel := ToReleaseModel(release)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(releaseModel).Error; err != nil {
			return fmt.Errorf("insert release: %w", err)
		}

		stored, err := r.tracks.ReplaceTracks(ctx, tx, releaseModel.ID, tracks, strict)
		if err != nil {
			return err
		}

		*release = *ToReleaseEntity(releaseModel)
		release.Tracks = stored
		return nil
	})
}

func (r *releaseRepository) GetByID(ctx context.Context, id string) (*entity.Release, error) {
	var release *entity.Release
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		release, err = loadRelease(tx, id)
		return err
	}, readOnlySnapshot)
	if err != nil {
		return nil, err
	}
	return release, nil
}

func (r *releaseRepository) Transition(ctx context.Context, id string, change StatusChange) (*entity.Release, error) {
	updates := map[string]interface{}{
		"status":       string(change.To),
		"prior_status": nil,
		"updated_at":   time.Now().UTC(),
	}
	if change.PriorStatus != nil {
		updates["prior_status"] = string(*change.PriorStatus)
	}
	switch {
	case change.SetReason != nil:
		updates["rejection_reason"] = *change.SetReason
	case change.ClearReason:
		updates["rejection_reason"] = nil
	}

	var release *entity.Release
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.ReleaseModel{}).
			Where("id = ? AND status = ?", id, string(change.From)).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update release %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return casFailure(tx, id)
		}

		var err error
		release, err = loadRelease(tx, id)
		if err != nil {
			return err
		}
		if change.Guard != nil {
			return change.Guard(release)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return release, nil
}

// Restore moves a deleted release back to prior. The prior status is part of
// the match so a concurrent delete-restore-delete cannot be replayed.
func (r *releaseRepository) Restore(ctx context.Context, id string, prior entity.ReleaseStatus) (*entity.Release, error) {
	var release *entity.Release
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.ReleaseModel{}).
			Where("id = ? AND status = ? AND prior_status = ?", id, string(entity.StatusDeleted), string(prior)).
			Updates(map[string]interface{}{
				"status":       string(prior),
				"prior_status": nil,
				"updated_at":   time.Now().UTC(),
			})
		if res.Error != nil {
			return fmt.Errorf("restore release %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			current, err := currentState(tx, id)
			if err != nil {
				return err
			}
			if current.Status == string(entity.StatusDeleted) && current.PriorStatus == nil {
				return ErrNoPriorStatus
			}
			return &StatusConflictError{ID: id, Current: entity.ReleaseStatus(current.Status)}
		}

		var err error
		release, err = loadRelease(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return release, nil
}

func (r *releaseRepository) UpdateWithTracks(ctx context.Context, id string, edit ReleaseEdit) (*entity.Release, error) {
	f := edit.Fields
	updates := map[string]interface{}{
		"title":            f.Title,
		"title_search":     searchKey(f.Title),
		"genre":            f.Genre,
		"cover_ref":        f.CoverRef,
		"upc":              f.UPC,
		"old_release_date": dateValue(f.OldReleaseDate),
		"new_release_date": datatypes.Date(f.NewReleaseDate),
		"status":           string(edit.To),
		"updated_at":       time.Now().UTC(),
	}
	if f.UPC == nil {
		updates["upc"] = nil
	}
	if edit.ClearReason {
		updates["rejection_reason"] = nil
	}

	var release *entity.Release
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.ReleaseModel{}).
			Where("id = ? AND status = ?", id, string(edit.From)).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update release %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return casFailure(tx, id)
		}

		if _, err := r.tracks.ReplaceTracks(ctx, tx, id, edit.Tracks, edit.Strict); err != nil {
			return err
		}

		var err error
		release, err = loadRelease(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return release, nil
}

// Delete permanently removes a release that sits in the trash, together with its tracks.
func (r *releaseRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND status = ?", id, string(entity.StatusDeleted)).Delete(&model.ReleaseModel{})
		if res.Error != nil {
			return fmt.Errorf("delete release %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return casFailure(tx, id)
		}

		// no-op when the foreign key already cascaded
		if err := tx.Where("release_id = ?", id).Delete(&model.TrackModel{}).Error; err != nil {
			return fmt.Errorf("delete tracks of %s: %w", id, err)
		}
		return nil
	})
}

func (r *releaseRepository) List(ctx context.Context, filter entity.ReleaseFilter, limit, offset int) ([]*entity.Release, error) {
	var releaseModels []model.ReleaseModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := applyFilter(withTracks(tx), filter)
		if limit > 0 {
			query = query.Limit(limit).Offset(offset)
		}
		return query.Find(&releaseModels).Error
	}, readOnlySnapshot)
	if err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}

	releases := make([]*entity.Release, len(releaseModels))
	for i := range releaseModels {
		releases[i] = ToReleaseEntity(&releaseModels[i])
	}
	return releases, nil
}

func withTracks(db *gorm.DB) *gorm.DB {
	return db.Preload("Tracks", func(db *gorm.DB) *gorm.DB {
		return db.Order("tracks.position ASC")
	})
}

func applyFilter(query *gorm.DB, f entity.ReleaseFilter) *gorm.DB {
	if f.OwnerID != "" {
		query = query.Where("releases.owner_id = ?", f.OwnerID)
	}
	if f.TitleContains != "" {
		query = query.Where(`releases.title_search LIKE ? ESCAPE '\'`, containsPattern(f.TitleContains))
	}
	if f.ArtistContains != "" {
		query = query.Where(
			`EXISTS (SELECT 1 FROM tracks WHERE tracks.release_id = releases.id AND tracks.performers_search LIKE ? ESCAPE '\')`,
			containsPattern(f.ArtistContains),
		)
	}
	if f.Genre != "" {
		query = query.Where("releases.genre = ?", f.Genre)
	}
	if f.Status != "" {
		query = query.Where("releases.status = ?", string(f.Status))
	}
	if f.HideDeleted {
		query = query.Where("releases.status <> ?", string(entity.StatusDeleted))
	}

	switch f.Sort {
	case entity.SortOldest:
		query = query.Order("releases.created_at ASC").Order("releases.id ASC")
	case entity.SortRecentlyUpdated:
		query = query.Order("releases.updated_at DESC").Order("releases.id DESC")
	default:
		query = query.Order("releases.created_at DESC").Order("releases.id DESC")
	}
	return query
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(searchKey(s)) + "%"
}

func loadRelease(tx *gorm.DB, id string) (*entity.Release, error) {
	var releaseModel model.ReleaseModel
	err := withTracks(tx).Where("id = ?", id).First(&releaseModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReleaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load release %s: %w", id, err)
	}
	return ToReleaseEntity(&releaseModel), nil
}

func currentState(tx *gorm.DB, id string) (*model.ReleaseModel, error) {
	var current model.ReleaseModel
	err := tx.Select("id", "status", "prior_status").Where("id = ?", id).First(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReleaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reload release %s: %w", id, err)
	}
	return &current, nil
}

// casFailure explains why a compare-and-swap matched no row.
func casFailure(tx *gorm.DB, id string) error {
	current, err := currentState(tx, id)
	if err != nil {
		return err
	}
	return &StatusConflictError{ID: id, Current: entity.ReleaseStatus(current.Status)}
}

func dateValue(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return datatypes.Date(*t)
}
