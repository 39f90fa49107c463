package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"kedoo/pkg/apperrors"
	"kedoo/pkg/database/databasetest"
	"kedoo/pkg/identity"
	"kedoo/pkg/logger"
	"kedoo/services/release/internal/entity"
	"kedoo/services/release/internal/model"
	"kedoo/services/release/internal/repo/persistent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner      = identity.Identity{UserID: "owner-1", Role: identity.RoleOwner}
	otherOwner = identity.Identity{UserID: "owner-2", Role: identity.RoleOwner}
	moderator  = identity.Identity{UserID: "mod-1", Role: identity.RoleModerator}
)

type recordingNotifier struct {
	tasks chan map[string]interface{}
}

func (n *recordingNotifier) PublishNotificationTask(task map[string]interface{}) error {
	n.tasks <- task
	return nil
}

func setupUseCase(t *testing.T, notifier Notifier) ReleaseUseCase {
	db := databasetest.OpenMemory(t, &model.ReleaseModel{}, &model.TrackModel{})
	tracks := persistent.NewTrackRepository(db)
	releases := persistent.NewReleaseRepository(db, tracks)
	return NewReleaseUseCase(releases, tracks, notifier, nil, logger.New())
}

func completeTrack(title string) entity.TrackInput {
	return entity.TrackInput{
		Title:        title,
		AudioRef:     "https://cdn.example/audio/" + title + ".wav",
		Performers:   "Kedoo Band",
		MusicAuthor:  "A. Writer",
		LyricsAuthor: "B. Writer",
		Language:     "en",
	}
}

func releaseInput(title string, tracks ...entity.TrackInput) entity.ReleaseInput {
	return entity.ReleaseInput{
		Title:          title,
		Genre:          "rock",
		CoverRef:       "https://cdn.example/covers/x.png",
		NewReleaseDate: "2026-11-20",
		Tracks:         tracks,
	}
}

func assertCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}

// submitted creates a release with one complete track and sends it to moderation.
func submitted(t *testing.T, uc ReleaseUseCase, title string) *entity.Release {
	t.Helper()
	release, err := uc.Create(context.Background(), owner, releaseInput(title, completeTrack("one")), false)
	require.NoError(t, err)
	release, err = uc.SubmitForModeration(context.Background(), owner, release.ID)
	require.NoError(t, err)
	require.Equal(t, entity.StatusModeration, release.Status)
	return release
}

func TestCreate_RequiredFields(t *testing.T) {
	uc := setupUseCase(t, nil)

	_, err := uc.Create(context.Background(), owner, entity.ReleaseInput{Title: "X"}, false)
	assertCode(t, err, apperrors.CodeValidationFailed)

	appErr, _ := apperrors.AsAppError(err)
	details := appErr.Details.(map[string]string)
	assert.Contains(t, details, "genre")
	assert.Contains(t, details, "cover_ref")
	assert.Contains(t, details, "new_release_date")

	input := releaseInput("X")
	input.NewReleaseDate = "20/11/2026"
	_, err = uc.Create(context.Background(), owner, input, false)
	assertCode(t, err, apperrors.CodeValidationFailed)
}

func TestCreate_Draft(t *testing.T) {
	uc := setupUseCase(t, nil)

	input := releaseInput("X")
	input.UPC = " 123456789012 "
	input.OldReleaseDate = "2020-01-02"
	release, err := uc.Create(context.Background(), owner, input, false)
	require.NoError(t, err)

	assert.Equal(t, entity.StatusDraft, release.Status)
	assert.Equal(t, owner.UserID, release.OwnerID)
	assert.Nil(t, release.RejectionReason)
	assert.Nil(t, release.PriorStatus)
	require.NotNil(t, release.UPC)
	assert.Equal(t, "123456789012", *release.UPC)
	require.NotNil(t, release.OldReleaseDate)
	assert.Equal(t, "2020-01-02", release.OldReleaseDate.Format(entity.DateLayout))
	assert.Empty(t, release.Tracks)
}

func TestCreate_ModeratorForbidden(t *testing.T) {
	uc := setupUseCase(t, nil)

	_, err := uc.Create(context.Background(), moderator, releaseInput("X"), false)
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestCreate_WithSubmit(t *testing.T) {
	uc := setupUseCase(t, nil)

	_, err := uc.Create(context.Background(), owner, releaseInput("X"), true)
	assertCode(t, err, apperrors.CodeValidationFailed)

	release, err := uc.Create(context.Background(), owner, releaseInput("X", completeTrack("one")), true)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusModeration, release.Status)
}

func TestSubmit_NeedsTracksThenSucceeds(t *testing.T) {
	uc := setupUseCase(t, nil)
	ctx := context.Background()

	release, err := uc.Create(ctx, owner, releaseInput("X"), false)
	require.NoError(t, err)

	_, err = uc.SubmitForModeration(ctx, owner, release.ID)
	assertCode(t, err, apperrors.CodeNotReady)

	stored, err := uc.Get(ctx, owner, release.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDraft, stored.Status)

	_, err = uc.Update(ctx, owner, release.ID, releaseInput("X", completeTrack("one")), false)
	require.NoError(t, err)

	submittedRelease, err := uc.SubmitForModeration(ctx, owner, release.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusModeration, submittedRelease.Status)
}

func TestSubmit_IncompleteTrack(t *testing.T) {
	uc := setupUseCase(t, nil)
	ctx := context.Background()

	release, err := uc.Create(ctx, owner, releaseInput("X", entity.TrackInput{Title: "demo"}), false)
	require.NoError(t, err)

	_, err = uc.SubmitForModeration(ctx, owner, release.ID)
	assertCode(t, err, apperrors.CodeNotReady)
	appErr, _ := apperrors.AsAppError(err)
	assert.Contains(t, appErr.Details.(map[string]string), "tracks[0].performers")
}

func TestSubmit_Guards(t *testing.T) {
	uc := setupUseCase(t, nil)
	ctx := context.Background()

	release := submitted(t, uc, "X")

	_, err := uc.SubmitForModeration(ctx, owner, release.ID)
	assertCode(t, err, apperrors.CodeInvalidStatus)

	_, err = uc.SubmitForModeration(ctx, otherOwner, release.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = uc.SubmitForModeration(ctx, owner, "missing")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestReject_NeedsReasonThenRejects(t *testing.T) {
	uc := setupUseCase(t, nil)
	ctx := context.Background()

	release := submitted(t, uc, "X")

	_, err := uc.Reject(ctx, moderator, release.ID, "")
	assertCode(t, err, apperrors.CodeValidationFailed)
	_, err = uc.Reject(ctx, moderator, release.ID, "   ")
	assertCode(t, err, apperrors.CodeValidationFailed)

	stored, err := uc.Get(ctx, moderator, release.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusModeration, stored.Status)
	assert.Nil(t, stored.RejectionReason)

	rejected, err := uc.Reject(ctx, moderator, release.ID, "cover is blurry")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "cover is blurry", *rejected.RejectionReason)
}

func TestSoftDelete_ApprovedRestoresToApproved(t *testing.T) {
	uc := setupUseCase(t, nil)
	ctx := context.Background()

	release := submitted(t, uc, "X")
	approved, err := uc.Approve(ctx, moderator, release.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, approved.Status)

	deleted, err := uc.SoftDelete(ctx, owner, release.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDeleted, deleted.Status)
	require.NotNil(t, deleted.PriorStatus)
	assert.Equal(t, entity.StatusApproved, *deleted.PriorStatus)

	restored, err := uc.Restore(ctx, owner, release.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, restored.Status)
	assert.Nil(t, restored.RejectionReason)
	assert.Nil(t, restored.PriorStatus)
}

func TestApprove_OwnerForbidden(t *testing.T) {
	uc := setupUseCase(t, nil)
	ctx := context.Background()

	release := submitted(t, uc, "X")

	_, err := uc.Approve(ctx, owner, release.ID)
	assertCode(t, err, apperrors.CodeForbidden)
	_, err = uc.Reject(ctx, owner, release.ID, "nope")
	assertCode(t, err, apperrors.CodeForbidden)

	stored, err := uc.Get(ctx, owner, release.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusModeration, stored.Status)
}

func TestSoftDeleteRestore_IsInverse(t *testing.T) {
	uc := setupUseCase(t, nil)
	ctx := context.Background()

	release := submitted(t, uc, "X")
	_, err := uc.Reject(ctx, moderator, release.ID, "missing credits")
	require.NoError(t, err)

	before, err := uc.Get(ctx, owner, release.ID)
	require.NoError(t, err)

	_, err = uc.SoftDelete(ctx, owner, release.ID)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	after, err := uc.Restore(ctx, owner, release.ID)
	require.NoError(t, err)

	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	before.UpdatedAt = time.Time{}
	after.UpdatedAt = time.Time{}
	assert.Equal(t, before, after)
}

func TestSoftDelete_FromEveryLiveStatus(t *testing.T) {
	uc := setupUseCase(t, nil)
	ctx := context.Background()

	draft, err := uc.Create(ctx, owner, releaseInput("draft"), false)
	require.NoError(t, err)
	inModeration := submitted(t, uc, "moderation")

	for _, r := range []*entity.Release{draft, inModeration} {
		deleted, err := uc.SoftDelete(ctx, owner, r.ID)
		require.NoError(t, err)
		require.NotNil(t, deleted.PriorStatus)
		assert.Equal(t, r.Status, *deleted.PriorStatus)

		_, err = uc.SoftDelete(ctx, owner, r.ID)
		assertCode(t, err, apperrors.CodeInvalidStatus)

		restored, err := uc.Restore(ctx, owner, r.ID)
		require.NoError(t, err)
		assert.Equal(t, r.Status, restored.Status)
	}
}

func TestRestore_Guards(t *testing.T) {
	uc := setupUseCase(t, nil)
	ctx := context.Background()

	release, err := uc.Create(ctx, owner, releaseInput("X"), false)
	require.NoError(t, err)

	_, err = uc.Restore(ctx, owner, release.ID)
	assertCode(t, err, apperrors.CodeInvalidStatus)

	_, err = uc.SoftDelete(ctx, otherOwner, release.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = uc.SoftDelete(ctx, moderator, release.ID)
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestWithdraw(t *testing.T) {
	uc := setupUseCase(t, nil)
	ctx := context.Background()

	release := submitted(t, uc, "X")
	withdrawn, err := uc.Withdraw(ctx, owner, release.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDraft, withdrawn.Status)

	_, err = uc.Withdraw(ctx, owner, release.ID)
	assertCode(t, err, apperrors.CodeInvalidStatus)

	_, err = uc.Approve(ctx, moderator, release.ID)
	assertCode(t, err, apperrors.CodeInvalidStatus)
}

func TestUpdate_RejectedBackToDraft(t *testing.T) {
	uc := setupUseCase(t, nil)
	ctx := context.Background()

	release := submitted(t, uc, "X")
	_, err := uc.Reject(ctx, moderator, release.ID, "wrong genre")
	require.NoError(t, err)

	input := releaseInput("X (fixed)", completeTrack("a"), completeTrack("b"))
	input.Genre = "pop"
	edited, err := uc.Update(ctx, owner, release.ID, input, false)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDraft, edited.Status)
	assert.Nil(t, edited.RejectionReason)
	assert.Equal(t, "pop", edited.Genre)
	require.Len(t, edited.Tracks, 2)
	assert.Equal(t, 1, edited.Tracks[0].Position)
	assert.Equal(t, 2, edited.Tracks[1].Position)
}

func TestUpdate_RejectedResubmit(t *testing.T) {
	uc := setupUseCase(t, nil)
	ctx := context.Background()

	release := submitted(t, uc, "X")
	_, err := uc.Reject(ctx, moderator, release.ID, "wrong genre")
	require.NoError(t, err)

	_, err = uc.Update(ctx, owner, release.ID, releaseInput("X"), true)
	assertCode(t, err, apperrors.CodeValidationFailed)

	stored, err := uc.Get(ctx, owner, release.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRejected, stored.Status)
	assert.Len(t, stored.Tracks, 1)

	resubmitted, err := uc.Update(ctx, owner, release.ID, releaseInput("X", completeTrack("new")), true)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusModeration, resubmitted.Status)
	assert.Nil(t, resubmitted.RejectionReason)
	require.Len(t, resubmitted.Tracks, 1)
	assert.Equal(t, "new", resubmitted.Tracks[0].Title)
}

func TestUpdate_NotEditable(t *testing.T) {
	uc := setupUseCase(t, nil)
	ctx := context.Background()

	release := submitted(t, uc, "X")
	_, err := uc.Update(ctx, owner, release.ID, releaseInput("Y", completeTrack("a")), false)
	assertCode(t, err, apperrors.CodeInvalidStatus)

	_, err = uc.Approve(ctx, moderator, release.ID)
	require.NoError(t, err)
	_, err = uc.Update(ctx, owner, release.ID, releaseInput("Y", completeTrack("a")), false)
	assertCode(t, err, apperrors.CodeInvalidStatus)
}

func TestPermanentDelete(t *testing.T) {
	uc := setupUseCase(t, nil)
	ctx := context.Background()

	release, err := uc.Create(ctx, owner, releaseInput("X", completeTrack("a"), completeTrack("b")), false)
	require.NoError(t, err)

	err = uc.PermanentDelete(ctx, owner, release.ID)
	assertCode(t, err, apperrors.CodeInvalidStatus)

	_, err = uc.SoftDelete(ctx, owner, release.ID)
	require.NoError(t, err)

	err = uc.PermanentDelete(ctx, otherOwner, release.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	require.NoError(t, uc.PermanentDelete(ctx, owner, release.ID))

	_, err = uc.ListTracks(ctx, owner, release.ID)
	assertCode(t, err, apperrors.CodeNotFound)
	_, err = uc.Restore(ctx, owner, release.ID)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestConcurrentApproveAndWithdraw(t *testing.T) {
	uc := setupUseCase(t, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		release := submitted(t, uc, "race")

		var wg sync.WaitGroup
		var approveErr, withdrawErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, approveErr = uc.Approve(ctx, moderator, release.ID)
		}()
		go func() {
			defer wg.Done()
			_, withdrawErr = uc.Withdraw(ctx, owner, release.ID)
		}()
		wg.Wait()

		require.True(t, (approveErr == nil) != (withdrawErr == nil), "exactly one transition must win")

		final, err := uc.Get(ctx, moderator, release.ID)
		require.NoError(t, err)
		if approveErr == nil {
			assert.Equal(t, entity.StatusApproved, final.Status)
			assertCode(t, withdrawErr, apperrors.CodeInvalidStatus)
		} else {
			assert.Equal(t, entity.StatusDraft, final.Status)
			assertCode(t, approveErr, apperrors.CodeInvalidStatus)
		}
	}
}

func TestVisibility(t *testing.T) {
	uc := setupUseCase(t, nil)
	ctx := context.Background()

	release, err := uc.Create(ctx, owner, releaseInput("X", completeTrack("a")), false)
	require.NoError(t, err)

	_, err = uc.Get(ctx, otherOwner, release.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	got, err := uc.Get(ctx, moderator, release.ID)
	require.NoError(t, err)
	assert.Equal(t, release.ID, got.ID)

	tracks, err := uc.ListTracks(ctx, moderator, release.ID)
	require.NoError(t, err)
	assert.Len(t, tracks, 1)
}

func TestFilter_Scope(t *testing.T) {
	uc := setupUseCase(t, nil)
	ctx := context.Background()

	_, err := uc.Create(ctx, owner, releaseInput("Midnight Drive"), false)
	require.NoError(t, err)
	_, err = uc.Create(ctx, owner, releaseInput("Morning Coffee"), false)
	require.NoError(t, err)
	_, err = uc.Create(ctx, otherOwner, releaseInput("MIDNIGHT snack"), false)
	require.NoError(t, err)

	own, err := uc.Filter(ctx, owner, entity.ReleaseFilter{}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, own, 2)

	// owners cannot widen their scope through the filter
	own, err = uc.Filter(ctx, owner, entity.ReleaseFilter{OwnerID: otherOwner.UserID}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, own, 2)

	all, err := uc.Filter(ctx, moderator, entity.ReleaseFilter{TitleContains: "midnight"}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = uc.Filter(ctx, owner, entity.ReleaseFilter{Status: "archived"}, 0, 0)
	assertCode(t, err, apperrors.CodeValidationFailed)
}

func TestAll_RestartableSequence(t *testing.T) {
	uc := setupUseCase(t, nil)
	ctx := context.Background()

	total := defaultPageSize + 7
	for i := 0; i < total; i++ {
		_, err := uc.Create(ctx, owner, releaseInput("bulk"), false)
		require.NoError(t, err)
	}

	seq := uc.All(ctx, owner, entity.ReleaseFilter{})
	for pass := 0; pass < 2; pass++ {
		seen := make(map[string]bool)
		for release, err := range seq {
			require.NoError(t, err)
			seen[release.ID] = true
		}
		assert.Len(t, seen, total)
	}

	count := 0
	for range seq {
		count++
		if count == 3 {
			break
		}
	}
	assert.Equal(t, 3, count)
}

func TestModerationQueueAndTrash(t *testing.T) {
	uc := setupUseCase(t, nil)
	ctx := context.Background()

	first := submitted(t, uc, "first")
	second := submitted(t, uc, "second")
	draft, err := uc.Create(ctx, owner, releaseInput("draft"), false)
	require.NoError(t, err)

	_, err = uc.ModerationQueue(ctx, owner, 0, 0)
	assertCode(t, err, apperrors.CodeForbidden)

	queue, err := uc.ModerationQueue(ctx, moderator, 0, 0)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, []string{queue[0].ID, queue[1].ID})

	_, err = uc.SoftDelete(ctx, owner, draft.ID)
	require.NoError(t, err)

	trash, err := uc.Trash(ctx, owner, 0, 0)
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.Equal(t, draft.ID, trash[0].ID)

	_, err = uc.Trash(ctx, moderator, 0, 0)
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestNotifications(t *testing.T) {
	notifier := &recordingNotifier{tasks: make(chan map[string]interface{}, 8)}
	uc := setupUseCase(t, notifier)
	ctx := context.Background()

	release := submitted(t, uc, "X")
	_, err := uc.Reject(ctx, moderator, release.ID, "too loud")
	require.NoError(t, err)

	got := make(map[string]map[string]interface{})
	for len(got) < 2 {
		select {
		case task := <-notifier.tasks:
			got[task["type"].(string)] = task
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for notifications, got %v", got)
		}
	}

	assert.Equal(t, release.ID, got["release_submitted"]["release_id"])
	assert.Equal(t, "too loud", got["release_rejected"]["reason"])
	assert.Equal(t, 5, got["release_rejected"]["priority"])
}
