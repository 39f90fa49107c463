package entity

import "time"

type TicketStatus string

const (
	StatusOpen     TicketStatus = "open"
	StatusAnswered TicketStatus = "answered"
	StatusClosed   TicketStatus = "closed"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusAnswered, StatusClosed:
		return true
	}
	return false
}

// Ticket is a support request from a release owner. AdminResponse is set
// once a moderator answers and survives closing.
type Ticket struct {
	ID            string       `json:"id"`
	OwnerID       string       `json:"owner_id"`
	Subject       string       `json:"subject"`
	Message       string       `json:"message"`
	Status        TicketStatus `json:"status"`
	AdminResponse *string      `json:"admin_response,omitempty"`
	AnsweredBy    *string      `json:"answered_by,omitempty"`
	AnsweredAt    *time.Time   `json:"answered_at,omitempty"`
	ClosedAt      *time.Time   `json:"closed_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

type TicketInput struct {
	Subject string `json:"subject" validate:"notblank,max=255"`
	Message string `json:"message" validate:"notblank,max=5000"`
}

type TicketFilter struct {
	OwnerID string
	Status  TicketStatus
}
