package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReleaseModel struct {
	ID              string          `gorm:"type:uuid;primary_key"`
	OwnerID         string          `gorm:"type:uuid;not null;index"`
	Title           string          `gorm:"type:varchar(255);not null"`
	TitleSearch     string          `gorm:"type:varchar(255);not null;default:''"`
	Genre           string          `gorm:"type:varchar(100);not null;index"`
	CoverRef        string          `gorm:"type:varchar(500);not null"`
	UPC             *string         `gorm:"type:varchar(32)"`
	OldReleaseDate  *datatypes.Date
	NewReleaseDate  datatypes.Date  `gorm:"not null"`
	Status          string          `gorm:"type:varchar(20);not null;default:'draft';index"`
	RejectionReason *string         `gorm:"type:text"`
	PriorStatus     *string         `gorm:"type:varchar(20)"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Tracks          []TrackModel `gorm:"foreignKey:ReleaseID;constraint:OnDelete:CASCADE"`
}

func (ReleaseModel) TableName() string {
	return "releases"
}

func (r *ReleaseModel) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

type TrackModel struct {
	ID               string  `gorm:"type:uuid;primary_key"`
	ReleaseID        string  `gorm:"type:uuid;not null;uniqueIndex:idx_tracks_release_position"`
	Position         int     `gorm:"not null;uniqueIndex:idx_tracks_release_position"`
	Title            string  `gorm:"type:varchar(255);not null"`
	AudioRef         string  `gorm:"type:varchar(500)"`
	IsExplicit       bool    `gorm:"not null;default:false"`
	IsInstrumental   bool    `gorm:"not null;default:false"`
	Performers       string  `gorm:"type:varchar(500)"`
	PerformersSearch string  `gorm:"type:varchar(500)"`
	MusicAuthor      string  `gorm:"type:varchar(255)"`
	LyricsAuthor     string  `gorm:"type:varchar(255)"`
	Producers        *string `gorm:"type:varchar(500)"`
	Language         string  `gorm:"type:varchar(50)"`
	ISRC             *string `gorm:"type:varchar(15)"`
	TikTokMoment     *string `gorm:"column:tiktok_moment;type:varchar(20)"`
	Lyrics           *string `gorm:"type:text"`
	CreatedAt        time.Time
}

func (TrackModel) TableName() string {
	return "tracks"
}

func (t *TrackModel) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}
