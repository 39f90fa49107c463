package persistent

import (
	"strings"
	"time"

	"kedoo/services/release/internal/entity"
	"kedoo/services/release/internal/model"

	"gorm.io/datatypes"
)

func ToReleaseEntity(m *model.ReleaseModel) *entity.Release {
	if m == nil {
		return nil
	}

	release := &entity.Release{
		ID:              m.ID,
		OwnerID:         m.OwnerID,
		Title:           m.Title,
		Genre:           m.Genre,
		CoverRef:        m.CoverRef,
		UPC:             m.UPC,
		NewReleaseDate:  time.Time(m.NewReleaseDate),
		Status:          entity.ReleaseStatus(m.Status),
		RejectionReason: m.RejectionReason,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
		Tracks:          make([]entity.Track, len(m.Tracks)),
	}

	if m.OldReleaseDate != nil {
		old := time.Time(*m.OldReleaseDate)
		release.OldReleaseDate = &old
	}
	if m.PriorStatus != nil {
		prior := entity.ReleaseStatus(*m.PriorStatus)
		release.PriorStatus = &prior
	}

	for i := range m.Tracks {
		release.Tracks[i] = ToTrackEntity(&m.Tracks[i])
	}

	return release
}

func ToReleaseModel(e *entity.Release) *model.ReleaseModel {
	if e == nil {
		return nil
	}

	release := &model.ReleaseModel{
		ID:              e.ID,
		OwnerID:         e.OwnerID,
		Title:           e.Title,
		TitleSearch:     searchKey(e.Title),
		Genre:           e.Genre,
		CoverRef:        e.CoverRef,
		UPC:             e.UPC,
		NewReleaseDate:  datatypes.Date(e.NewReleaseDate),
		Status:          string(e.Status),
		RejectionReason: e.RejectionReason,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}

	if e.OldReleaseDate != nil {
		old := datatypes.Date(*e.OldReleaseDate)
		release.OldReleaseDate = &old
	}
	if e.PriorStatus != nil {
		prior := string(*e.PriorStatus)
		release.PriorStatus = &prior
	}

	return release
}

func ToTrackEntity(m *model.TrackModel) entity.Track {
	if m == nil {
		return entity.Track{}
	}

	return entity.Track{
		ID:             m.ID,
		ReleaseID:      m.ReleaseID,
		Position:       m.Position,
		Title:          m.Title,
		AudioRef:       m.AudioRef,
		IsExplicit:     m.IsExplicit,
		IsInstrumental: m.IsInstrumental,
		Performers:     m.Performers,
		MusicAuthor:    m.MusicAuthor,
		LyricsAuthor:   m.LyricsAuthor,
		Producers:      m.Producers,
		Language:       m.Language,
		ISRC:           m.ISRC,
		TikTokMoment:   m.TikTokMoment,
		Lyrics:         m.Lyrics,
		CreatedAt:      m.CreatedAt,
	}
}

// ToTrackModel builds the row for input stored at a 1-based position.
func ToTrackModel(releaseID string, position int, in entity.TrackInput) *model.TrackModel {
	return &model.TrackModel{
		ReleaseID:        releaseID,
		Position:         position,
		Title:            strings.TrimSpace(in.Title),
		AudioRef:         in.AudioRef,
		IsExplicit:       in.IsExplicit,
		IsInstrumental:   in.IsInstrumental,
		Performers:       strings.TrimSpace(in.Performers),
		PerformersSearch: searchKey(in.Performers),
		MusicAuthor:      strings.TrimSpace(in.MusicAuthor),
		LyricsAuthor:     strings.TrimSpace(in.LyricsAuthor),
		Producers:        optional(in.Producers),
		Language:         strings.TrimSpace(in.Language),
		ISRC:             optional(in.ISRC),
		TikTokMoment:     optional(in.TikTokMoment),
		Lyrics:           optional(in.Lyrics),
	}
}

// searchKey is the lowercased copy stored next to searchable columns.
// sqlite's LOWER only folds ASCII, so folding happens here for every driver.
func searchKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// optional maps blank strings to NULL.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
