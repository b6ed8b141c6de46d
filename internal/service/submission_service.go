package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-intake/internal/domain"
	"github.com/spec-kit/ticket-intake/internal/events"
	"github.com/spec-kit/ticket-intake/internal/observability"
	"github.com/spec-kit/ticket-intake/internal/repository"
	apperrors "github.com/spec-kit/ticket-intake/pkg/util"
)

var errNoNotifier = errors.New("notifier not configured")

// TicketNotifier announces a persisted ticket to the support mailbox.
type TicketNotifier interface {
	NotifyTicketSubmitted(ctx context.Context, ticket *domain.Ticket) error
}

// SubmissionService runs the intake pipeline: validate, persist, notify.
type SubmissionService struct {
	validator     *IntakeValidator
	tickets       repository.TicketRepository
	notifier      TicketNotifier
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	storeTimeout  time.Duration
	notifyTimeout time.Duration
	now           func() time.Time
}

// SubmissionDependencies bundles collaborators for the submission service.
type SubmissionDependencies struct {
	Validator     *IntakeValidator
	TicketRepo    repository.TicketRepository
	Notifier      TicketNotifier
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	StoreTimeout  time.Duration
	NotifyTimeout time.Duration
	Clock         func() time.Time
}

// SubmissionResult is returned once the ticket is durable.
type SubmissionResult struct {
	Ticket             *domain.Ticket
	NotificationFailed bool
}

// NewSubmissionService constructs the service.
func NewSubmissionService(deps SubmissionDependencies) *SubmissionService {
	s := &SubmissionService{
		validator:     deps.Validator,
		tickets:       deps.TicketRepo,
		notifier:      deps.Notifier,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		storeTimeout:  deps.StoreTimeout,
		notifyTimeout: deps.NotifyTimeout,
		now:           deps.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Submit validates the input, persists the ticket and notifies the support
// mailbox. A notification failure is logged and flagged on the result; it
// never turns a persisted ticket into an error.
func (s *SubmissionService) Submit(ctx context.Context, in SubmissionInput) (*SubmissionResult, error) {
	sub, err := s.validator.Validate(in)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeUnauthorizedDomain) {
			s.metrics.RecordSubmission(observability.OutcomeRejectedForbidden)
			s.logger.Info("submission rejected", zap.Error(err))
		} else {
			s.metrics.RecordSubmission(observability.OutcomeRejectedMalformed)
		}
		return nil, err
	}

	// Once persistence starts the submission runs to completion regardless of the caller.
	ctx = context.WithoutCancel(ctx)

	ticket := domain.NewTicket(sub, s.now())
	if err := s.persist(ctx, ticket); err != nil {
		s.metrics.RecordSubmission(observability.OutcomePersistFailed)
		s.logger.Error("ticket persistence failed", zap.String("email", sub.Email), zap.Error(err))
		return nil, err
	}

	result := &SubmissionResult{Ticket: ticket}
	if err := s.notify(ctx, ticket); err != nil {
		result.NotificationFailed = true
		s.metrics.RecordSubmission(observability.OutcomeNotifyFailed)
		s.logger.Error("ticket notification failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
	} else {
		s.metrics.RecordSubmission(observability.OutcomeCompleted)
		s.logger.Info("ticket submitted", zap.Int64("ticket_id", ticket.ID))
	}

	s.publishSubmitted(ctx, result)
	return result, nil
}

// ListTickets returns all tickets, newest first.
func (s *SubmissionService) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	ctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.tickets.ListAll(ctx)
}

// GetTicket looks up a ticket by identifier.
func (s *SubmissionService) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	ctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.tickets.GetByID(ctx, id)
}

func (s *SubmissionService) persist(ctx context.Context, ticket *domain.Ticket) error {
	ctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.tickets.Create(ctx, ticket); err != nil {
		if apperrors.HasCode(err, apperrors.CodePersistence) {
			return err
		}
		return apperrors.NewPersistenceError(err)
	}
	return nil
}

func (s *SubmissionService) notify(ctx context.Context, ticket *domain.Ticket) error {
	if s.notifier == nil {
		return apperrors.NewTransportError(errNoNotifier)
	}
	ctx, cancel := withTimeout(ctx, s.notifyTimeout)
	defer cancel()
	return s.notifier.NotifyTicketSubmitted(ctx, ticket)
}

func (s *SubmissionService) publishSubmitted(ctx context.Context, result *SubmissionResult) {
	if s.dispatcher == nil {
		return
	}
	ticket := result.Ticket
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketSubmitted,
		TicketID:  ticket.ID,
		Timestamp: s.now().UTC(),
		Payload: events.TicketSubmittedPayload{
			Subject:            ticket.Subject,
			Department:         ticket.Department,
			Email:              ticket.Email,
			NotificationFailed: result.NotificationFailed,
		},
	})
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
