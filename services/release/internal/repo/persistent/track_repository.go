package persistent

import (
	"context"
	"fmt"

	"kedoo/pkg/apperrors"
	"kedoo/services/release/internal/entity"
	"kedoo/services/release/internal/model"

	"gorm.io/gorm"
)

type TrackRepository interface {
	// ReplaceTracks swaps the whole track list of a release inside tx.
	ReplaceTracks(ctx context.Context, tx *gorm.DB, releaseID string, tracks []entity.TrackInput, strict bool) ([]entity.Track, error)
	ListTracks(ctx context.Context, releaseID string) ([]entity.Track, error)
}

type trackRepository struct {
	db *gorm.DB
}

func NewTrackRepository(db *gorm.DB) TrackRepository {
	return &trackRepository{db: db}
}

func (r *trackRepository) ReplaceTracks(ctx context.Context, tx *gorm.DB, releaseID string, tracks []entity.TrackInput, strict bool) ([]entity.Track, error) {
	if fields := entity.TrackFieldErrors(tracks, strict); fields != nil {
		return nil, apperrors.ValidationError("release", fields)
	}

	tx = tx.WithContext(ctx)
	if err := tx.Where("release_id = ?", releaseID).Delete(&model.TrackModel{}).Error; err != nil {
		return nil, fmt.Errorf("delete tracks of %s: %w", releaseID, err)
	}

	result := make([]entity.Track, 0, len(tracks))
	if len(tracks) == 0 {
		return result, nil
	}

	rows := make([]*model.TrackModel, len(tracks))
	for i, in := range tracks {
		rows[i] = ToTrackModel(releaseID, i+1, in)
	}
	if err := tx.Create(&rows).Error; err != nil {
		return nil, fmt.Errorf("insert tracks of %s: %w", releaseID, err)
	}

	for _, row := range rows {
		result = append(result, ToTrackEntity(row))
	}
	return result, nil
}

func (r *trackRepository) ListTracks(ctx context.Context, releaseID string) ([]entity.Track, error) {
	return listTracks(r.db.WithContext(ctx), releaseID)
}

func listTracks(db *gorm.DB, releaseID string) ([]entity.Track, error) {
	var rows []model.TrackModel
	if err := db.Where("release_id = ?", releaseID).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list tracks of %s: %w", releaseID, err)
	}

	tracks := make([]entity.Track, len(rows))
	for i := range rows {
		tracks[i] = ToTrackEntity(&rows[i])
	}
	return tracks, nil
}
