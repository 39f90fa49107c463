// Package identity carries the authenticated caller through the usecases and
// decides which operations each role may perform.
package identity

import (
	"github.com/gin-gonic/gin"
)

type Role string

const (
	RoleOwner     Role = "owner"
	RoleModerator Role = "moderator"
)

type Operation string

const (
	OpCreate          Operation = "create"
	OpEdit            Operation = "edit"
	OpSubmit          Operation = "submit"
	OpWithdraw        Operation = "withdraw"
	OpSoftDelete      Operation = "soft_delete"
	OpRestore         Operation = "restore"
	OpPermanentDelete Operation = "permanent_delete"
	OpApprove         Operation = "approve"
	OpReject          Operation = "reject"
	OpView            Operation = "view"

	OpTicketCreate Operation = "ticket_create"
	OpTicketAnswer Operation = "ticket_answer"
	OpTicketClose  Operation = "ticket_close"
)

var capabilities = map[Role]map[Operation]bool{
	RoleOwner: {
		OpCreate:          true,
		OpEdit:            true,
		OpSubmit:          true,
		OpWithdraw:        true,
		OpSoftDelete:      true,
		OpRestore:         true,
		OpPermanentDelete: true,
		OpView:            true,
		OpTicketCreate:    true,
		OpTicketClose:     true,
	},
	RoleModerator: {
		OpApprove:      true,
		OpReject:       true,
		OpView:         true,
		OpTicketAnswer: true,
		OpTicketClose:  true,
	},
}

// CanPerform reports whether role is allowed to attempt op at all.
// Ownership is checked separately by the caller.
func CanPerform(role Role, op Operation) bool {
	return capabilities[role][op]
}

// Identity is the authenticated caller of an operation.
type Identity struct {
	UserID string
	Role   Role
}

func (i Identity) IsModerator() bool {
	return i.Role == RoleModerator
}

// Owns reports whether the caller is the owner recorded on an entity.
func (i Identity) Owns(ownerID string) bool {
	return i.UserID != "" && i.UserID == ownerID
}

func (i Identity) Valid() bool {
	return i.UserID != "" && (i.Role == RoleOwner || i.Role == RoleModerator)
}

// FromGin reads the identity set by middleware.AuthMiddleware.
func FromGin(c *gin.Context) (Identity, bool) {
	id := Identity{
		UserID: c.GetString("user_id"),
		Role:   Role(c.GetString("user_role")),
	}
	return id, id.Valid()
}
