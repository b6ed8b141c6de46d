package service

import (
	"context"
	"errors"
	"sync"

	"github.com/spec-kit/ticket-intake/internal/domain"
)

type memoryTicketRepo struct {
	mu      sync.Mutex
	tickets []domain.Ticket
	nextID  int64
	err     error
}

func (r *memoryTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.nextID++
	ticket.ID = r.nextID
	r.tickets = append(r.tickets, *ticket)
	return nil
}

func (r *memoryTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tickets {
		if r.tickets[i].ID == id {
			t := r.tickets[i]
			return &t, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *memoryTicketRepo) ListAll(context.Context) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Ticket, 0, len(r.tickets))
	for i := len(r.tickets) - 1; i >= 0; i-- {
		out = append(out, r.tickets[i])
	}
	return out, nil
}

func (r *memoryTicketRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tickets)
}

type sentMail struct {
	subject string
	body    string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{subject: subject, body: body})
	return nil
}

func strPtr(s string) *string { return &s }
