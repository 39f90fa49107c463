package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TicketModel struct {
	ID            string  `gorm:"type:uuid;primary_key"`
	OwnerID       string  `gorm:"type:uuid;not null;index"`
	Subject       string  `gorm:"type:varchar(255);not null"`
	Message       string  `gorm:"type:text;not null"`
	Status        string  `gorm:"type:varchar(20);not null;default:'open';index"`
	AdminResponse *string `gorm:"type:text"`
	AnsweredBy    *string `gorm:"type:uuid"`
	AnsweredAt    *time.Time
	ClosedAt      *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (TicketModel) TableName() string {
	return "tickets"
}

func (t *TicketModel) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}
