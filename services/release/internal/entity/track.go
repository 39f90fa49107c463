package entity

import (
	"fmt"
	"strings"
	"time"
)

type Track struct {
	ID             string    `json:"id"`
	ReleaseID      string    `json:"release_id"`
	Position       int       `json:"position"`
	Title          string    `json:"title"`
	AudioRef       string    `json:"audio_ref"`
	IsExplicit     bool      `json:"is_explicit"`
	IsInstrumental bool      `json:"is_instrumental"`
	Performers     string    `json:"performers"`
	MusicAuthor    string    `json:"music_author"`
	LyricsAuthor   string    `json:"lyrics_author"`
	Producers      *string   `json:"producers,omitempty"`
	Language       string    `json:"language"`
	ISRC           *string   `json:"isrc,omitempty"`
	TikTokMoment   *string   `json:"tiktok_moment,omitempty"`
	Lyrics         *string   `json:"lyrics,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type TrackInput struct {
	Title          string `json:"title"`
	AudioRef       string `json:"audio_ref"`
	IsExplicit     bool   `json:"is_explicit"`
	IsInstrumental bool   `json:"is_instrumental"`
	Performers     string `json:"performers"`
	MusicAuthor    string `json:"music_author"`
	LyricsAuthor   string `json:"lyrics_author"`
	Producers      string `json:"producers"`
	Language       string `json:"language"`
	ISRC           string `json:"isrc"`
	TikTokMoment   string `json:"tiktok_moment"`
	Lyrics         string `json:"lyrics"`
}

type requiredField struct {
	name  string
	value string
}

// MissingFields lists the blank required fields of t. A draft save only
// needs a title; a submission needs every field moderators review.
func (t TrackInput) MissingFields(strict bool) []string {
	required := []requiredField{{"title", t.Title}}
	if strict {
		required = append(required,
			requiredField{"performers", t.Performers},
			requiredField{"music_author", t.MusicAuthor},
			requiredField{"lyrics_author", t.LyricsAuthor},
			requiredField{"language", t.Language},
		)
	}

	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// TrackFieldErrors validates an ordered track list and returns
// "tracks[i].field" keyed messages, or nil when the list is acceptable.
func TrackFieldErrors(tracks []TrackInput, strict bool) map[string]string {
	errs := make(map[string]string)
	if strict && len(tracks) == 0 {
		errs["tracks"] = "At least one track is required"
	}
	for i, t := range tracks {
		for _, field := range t.MissingFields(strict) {
			errs[fmt.Sprintf("tracks[%d].%s", i, field)] = "This field is required"
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Ready reports whether a persisted track carries everything a submission needs.
func (t Track) Ready() bool {
	return len(t.Input().MissingFields(true)) == 0
}

// Input converts a stored track back into the form used for replacement.
func (t Track) Input() TrackInput {
	return TrackInput{
		Title:          t.Title,
		AudioRef:       t.AudioRef,
		IsExplicit:     t.IsExplicit,
		IsInstrumental: t.IsInstrumental,
		Performers:     t.Performers,
		MusicAuthor:    t.MusicAuthor,
		LyricsAuthor:   t.LyricsAuthor,
		Producers:      deref(t.Producers),
		Language:       t.Language,
		ISRC:           deref(t.ISRC),
		TikTokMoment:   deref(t.TikTokMoment),
		Lyrics:         deref(t.Lyrics),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
