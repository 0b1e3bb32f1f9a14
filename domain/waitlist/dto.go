package waitlist

import (
	"github.com/akeren/clariolane-waitlist/internal/models"
	"github.com/akeren/clariolane-waitlist/pkg/constants"
)

type JoinWaitlistRequest struct {
	Email string `json:"email" binding:"required,waitlist_email,max=320"`
}

// JoinWaitlistResponse is the service-level result. Only Message goes on the wire.
type JoinWaitlistResponse struct {
	Email         string `json:"email"`
	AlreadyJoined bool   `json:"already_joined"`
	Message       string `json:"message"`
	JoinedAt      string `json:"joined_at,omitempty"`
}

// ========================================
// Mappers
// ========================================

func ToJoinWaitlistResponse(outcome InsertOutcome, email string) *JoinWaitlistResponse {
	response := &JoinWaitlistResponse{Email: email}

	switch outcome.Kind {
	case OutcomeAlreadyExists:
		response.AlreadyJoined = true
		response.Message = constants.MessageAlreadyJoined
	default:
		response.Message = constants.MessageJoinedWaitlist
		response.JoinedAt = joinedAt(outcome.Entry)
	}

	return response
}

func joinedAt(entry *models.WaitlistEntry) string {
	if entry == nil || entry.CreatedAt.IsZero() {
		return ""
	}
	return entry.CreatedAt.Format(constants.RFC3339DateTimeFormat)
}
