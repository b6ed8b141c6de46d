package dto

import (
	"time"

	"github.com/spec-kit/ticket-intake/internal/domain"
)

// SubmitTicketRequest payload. Pointers distinguish absent keys from empty values.
type SubmitTicketRequest struct {
	FullName   *string `json:"full_name"`
	Department *string `json:"department"`
	Email      *string `json:"email"`
	Subject    *string `json:"subject"`
	Message    *string `json:"message"`
}

// SubmitTicketResponse is returned once the ticket is stored.
type SubmitTicketResponse struct {
	Status             string `json:"status"`
	TicketID           int64  `json:"ticket_id"`
	NotificationFailed bool   `json:"notification_failed,omitempty"`
}

// TicketResponse represents a stored ticket.
type TicketResponse struct {
	ID         int64     `json:"id"`
	FullName   string    `json:"full_name"`
	Department string    `json:"department"`
	Email      string    `json:"email"`
	Subject    string    `json:"subject"`
	Message    string    `json:"message"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewTicketResponse maps a domain ticket to its wire form.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:         t.ID,
		FullName:   t.FullName,
		Department: t.Department,
		Email:      t.Email,
		Subject:    t.Subject,
		Message:    t.Message,
		Status:     t.Status,
		CreatedAt:  t.CreatedAt,
	}
}
