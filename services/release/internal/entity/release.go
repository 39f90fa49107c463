package entity

import "time"

type ReleaseStatus string

const (
	StatusDraft      ReleaseStatus = "draft"
	StatusModeration ReleaseStatus = "moderation"
	StatusApproved   ReleaseStatus = "approved"
	StatusRejected   ReleaseStatus = "rejected"
	StatusDeleted    ReleaseStatus = "deleted"
)

func (s ReleaseStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusModeration, StatusApproved, StatusRejected, StatusDeleted:
		return true
	}
	return false
}

// DateLayout is the wire format of release dates.
const DateLayout = "2006-01-02"

type Release struct {
	ID              string         `json:"id"`
	OwnerID         string         `json:"owner_id"`
	Title           string         `json:"title"`
	Genre           string         `json:"genre"`
	CoverRef        string         `json:"cover_ref"`
	UPC             *string        `json:"upc,omitempty"`
	OldReleaseDate  *time.Time     `json:"old_release_date,omitempty"`
	NewReleaseDate  time.Time      `json:"new_release_date"`
	Status          ReleaseStatus  `json:"status"`
	RejectionReason *string        `json:"rejection_reason,omitempty"`
	PriorStatus     *ReleaseStatus `json:"prior_status,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	Tracks          []Track        `json:"tracks"`
}

// ReleaseInput is the metadata an owner submits on create and edit.
// Tracks are validated separately because the required set depends on
// whether the release is being submitted.
type ReleaseInput struct {
	Title          string       `json:"title" validate:"notblank,max=255"`
	Genre          string       `json:"genre" validate:"notblank,max=100"`
	CoverRef       string       `json:"cover_ref" validate:"notblank,max=500"`
	UPC            string       `json:"upc" validate:"omitempty,max=32"`
	OldReleaseDate string       `json:"old_release_date" validate:"omitempty,datetime=2006-01-02"`
	NewReleaseDate string       `json:"new_release_date" validate:"notblank,datetime=2006-01-02"`
	Tracks         []TrackInput `json:"tracks" validate:"-"`
}

type SortOrder string

const (
	SortNewest          SortOrder = "newest"
	SortOldest          SortOrder = "oldest"
	SortRecentlyUpdated SortOrder = "recently_updated"
)

// ReleaseFilter narrows a release listing. Zero value matches everything in scope.
type ReleaseFilter struct {
	OwnerID        string
	TitleContains  string
	ArtistContains string
	Genre          string
	Status         ReleaseStatus
	HideDeleted    bool
	Sort           SortOrder
}
