package domain

import "time"

// TicketStatusReceived is the status every ticket is created with.
const TicketStatusReceived = "Received"

// Ticket is a persisted support request. ID is assigned by the store and never changes.
type Ticket struct {
	ID         int64
	FullName   string
	Department string
	Email      string
	Subject    string
	Message    string
	Status     string
	CreatedAt  time.Time
}

// Submission is an intake request that passed validation.
type Submission struct {
	FullName   string
	Department string
	Email      string
	Subject    string
	Message    string
}

// NewTicket builds the record to persist for an accepted submission.
func NewTicket(sub Submission, now time.Time) *Ticket {
	return &Ticket{
		FullName:   sub.FullName,
		Department: sub.Department,
		Email:      sub.Email,
		Subject:    sub.Subject,
		Message:    sub.Message,
		Status:     TicketStatusReceived,
		CreatedAt:  now.UTC(),
	}
}
