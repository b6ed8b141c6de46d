package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-intake/internal/domain"
	apperrors "github.com/spec-kit/ticket-intake/pkg/util"
)

// Mailer transmits one message to the support mailbox.
type Mailer interface {
	Send(ctx context.Context, subject, body string) error
}

// NotificationService formats ticket notifications and hands them to the mailer.
type NotificationService struct {
	mailer Mailer
	logger *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(mailer Mailer, logger *zap.Logger) *NotificationService {
	return &NotificationService{mailer: mailer, logger: logger}
}

// NotifyTicketSubmitted mails the support mailbox about a persisted ticket.
// Failures come back as TransportError.
func (n *NotificationService) NotifyTicketSubmitted(ctx context.Context, ticket *domain.Ticket) error {
	subject := TicketSubject(ticket)
	if err := n.mailer.Send(ctx, subject, TicketBody(ticket)); err != nil {
		return apperrors.NewTransportError(err)
	}
	n.logger.Debug("ticket notification sent", zap.Int64("ticket_id", ticket.ID), zap.String("subject", subject))
	return nil
}

// TicketSubject renders "[Ticket #<id>] <subject>".
func TicketSubject(ticket *domain.Ticket) string {
	return fmt.Sprintf("[Ticket #%d] %s", ticket.ID, ticket.Subject)
}

// TicketBody renders the notification body. Department is left out when not collected.
func TicketBody(ticket *domain.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticket #%d\n\n", ticket.ID)
	fmt.Fprintf(&b, "Service Type: %s\n", ticket.Subject)
	fmt.Fprintf(&b, "Name: %s\n", ticket.FullName)
	if ticket.Department != "" {
		fmt.Fprintf(&b, "Department: %s\n", ticket.Department)
	}
	fmt.Fprintf(&b, "Email: %s\n\n", ticket.Email)
	fmt.Fprintf(&b, "Message:\n%s\n", ticket.Message)
	return b.String()
}
