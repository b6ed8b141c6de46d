package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/ticket-intake/internal/domain"
	apperrors "github.com/spec-kit/ticket-intake/pkg/util"
)

// TicketRepository encapsulates ticket persistence. Tickets are append-only.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	ListAll(ctx context.Context) ([]domain.Ticket, error)
}

// Querier is the subset of pgxpool.Pool used by the repository.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type ticketRepository struct {
	db Querier
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db Querier) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `id, full_name, department, email, subject, message, status, created_at`

// Create inserts the ticket in a single statement and fills in ID and CreatedAt.
func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if r.db == nil {
		return apperrors.NewPersistenceError(errors.New("database not configured"))
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusReceived
	}
	const query = `
        INSERT INTO tickets (full_name, department, email, subject, message, status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,COALESCE($7, NOW()))
        RETURNING id, created_at`
	var createdAt any
	if !ticket.CreatedAt.IsZero() {
		createdAt = ticket.CreatedAt
	}
	if err := r.db.QueryRow(ctx, query,
		ticket.FullName,
		ticket.Department,
		ticket.Email,
		ticket.Subject,
		ticket.Message,
		ticket.Status,
		createdAt,
	).Scan(&ticket.ID, &ticket.CreatedAt); err != nil {
		return apperrors.NewPersistenceError(describePgError(err))
	}
	ticket.CreatedAt = ticket.CreatedAt.UTC()
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	if r.db == nil {
		return nil, apperrors.NewPersistenceError(errors.New("database not configured"))
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := scanTicket(r.db.QueryRow(ctx, query, id), &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.NewPersistenceError(err)
	}
	return &ticket, nil
}

// ListAll returns every ticket, newest identifier first.
func (r *ticketRepository) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	if r.db == nil {
		return nil, apperrors.NewPersistenceError(errors.New("database not configured"))
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets ORDER BY id DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, apperrors.NewPersistenceError(err)
		}
		result = append(result, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return result, nil
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	if err := row.Scan(
		&ticket.ID,
		&ticket.FullName,
		&ticket.Department,
		&ticket.Email,
		&ticket.Subject,
		&ticket.Message,
		&ticket.Status,
		&ticket.CreatedAt,
	); err != nil {
		return err
	}
	ticket.CreatedAt = ticket.CreatedAt.UTC()
	return nil
}

// describePgError keeps the constraint name on integrity violations so logs show what was rejected.
func describePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName != "" {
		return &constraintError{constraint: pgErr.ConstraintName, err: err}
	}
	return err
}

type constraintError struct {
	constraint string
	err        error
}

func (e *constraintError) Error() string {
	return "constraint " + e.constraint + " violated: " + e.err.Error()
}

func (e *constraintError) Unwrap() error { return e.err }
