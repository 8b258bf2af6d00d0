package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Raghu1611/freshmart-sub000/internal/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CheckoutSession is a row in checkout_sessions. CartSnapshot holds the
// frozen cart as JSON; it never changes after the session is created.
type CheckoutSession struct {
	ID             uuid.UUID
	IdempotencyKey string
	UserID         string
	Status         domain.CheckoutStatus
	PaymentMethod  domain.PaymentMethod
	PaymentID      sql.NullString
	Address        string
	CartSnapshot   []byte
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OutboxEvent is a row in outbox_events, written in the same transaction
// that completes a checkout session.
type OutboxEvent struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

const EventTypeCheckoutCompleted = "checkout.completed"

type Store interface {
	CreateCheckoutSession(ctx context.Context, session *CheckoutSession) error
	GetCheckoutSession(ctx context.Context, id uuid.UUID) (*CheckoutSession, error)
	GetCheckoutSessionByIdempotencyKey(ctx context.Context, key string) (*CheckoutSession, error)
	UpdateCheckoutSessionStatus(ctx context.Context, id uuid.UUID, status domain.CheckoutStatus) error
	SetPayment(ctx context.Context, id uuid.UUID, status domain.CheckoutStatus, paymentID string) error
	CompleteCheckoutSession(ctx context.Context, id uuid.UUID, payload []byte, status domain.CheckoutStatus) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, eventID uuid.UUID) error
	GetStuckSessions(ctx context.Context) ([]*CheckoutSession, error)
}

type Repository struct {
	db *sql.DB
}

var _ Store = (*Repository)(nil)

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const sessionColumns = `id, idempotency_key, user_id, status, payment_method, payment_id, address, cart_snapshot, created_at, updated_at`

func (r *Repository) CreateCheckoutSession(ctx context.Context, session *CheckoutSession) error {
	query := `INSERT INTO checkout_sessions (id, idempotency_key, user_id, status, payment_method, payment_id, address, cart_snapshot, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.IdempotencyKey,
		session.UserID,
		session.Status,
		session.PaymentMethod,
		session.PaymentID,
		session.Address,
		session.CartSnapshot)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("insert checkout session: %w", err)
	}
	return nil
}

func (r *Repository) GetCheckoutSession(ctx context.Context, id uuid.UUID) (*CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE id = $1`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query checkout session: %w", err)
	}
	return session, nil
}

func (r *Repository) GetCheckoutSessionByIdempotencyKey(ctx context.Context, key string) (*CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE idempotency_key = $1`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIdempotencyKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query checkout session by idempotency key: %w", err)
	}
	return session, nil
}

func (r *Repository) UpdateCheckoutSessionStatus(ctx context.Context, id uuid.UUID, status domain.CheckoutStatus) error {
	query := `UPDATE checkout_sessions SET status = $2, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update checkout status: %w", err)
	}
	return requireSessionAffected(res)
}

func (r *Repository) SetPayment(ctx context.Context, id uuid.UUID, status domain.CheckoutStatus, paymentID string) error {
	query := `UPDATE checkout_sessions SET status = $2, payment_id = $3, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, paymentID)
	if err != nil {
		return fmt.Errorf("set payment on checkout session: %w", err)
	}
	return requireSessionAffected(res)
}

// CompleteCheckoutSession moves the session to its final status and
// writes the outbox event in the same transaction, so the event exists
// if and only if the checkout completed.
func (r *Repository) CompleteCheckoutSession(ctx context.Context, id uuid.UUID, payload []byte, status domain.CheckoutStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin complete checkout tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE checkout_sessions SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status)
	if err != nil {
		return fmt.Errorf("update checkout status: %w", err)
	}
	if err := requireSessionAffected(res); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_events (id, aggregate_id, event_type, payload, created_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		uuid.New(), id.String(), EventTypeCheckoutCompleted, payload)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit complete checkout tx: %w", err)
	}
	return nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at, processed_at
	          FROM outbox_events WHERE processed_at IS NULL
	          ORDER BY created_at LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var event OutboxEvent
		if err := rows.Scan(
			&event.ID,
			&event.AggregateID,
			&event.EventType,
			&event.Payload,
			&event.CreatedAt,
			&event.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, eventID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET processed_at = NOW() WHERE id = $1 AND processed_at IS NULL`,
		eventID)
	if err != nil {
		return fmt.Errorf("mark event as processed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrEventNotFound
	}
	return nil
}

// GetStuckSessions returns sessions that reached PAYMENT_COMPLETED but
// never got an outbox event, for example because the process died
// between the payment update and the completion transaction. The poller
// replays the completion for them.
func (r *Repository) GetStuckSessions(ctx context.Context) ([]*CheckoutSession, error) {
	query := `SELECT ` + sessionColumns + `
	          FROM checkout_sessions cs
	          WHERE cs.status = $1
	            AND cs.updated_at < NOW() - INTERVAL '30 seconds'
	            AND NOT EXISTS (
	                SELECT 1 FROM outbox_events oe WHERE oe.aggregate_id = cs.id::text
	            )`

	rows, err := r.db.QueryContext(ctx, query, domain.CheckoutStatusPaymentCompleted)
	if err != nil {
		return nil, fmt.Errorf("query stuck sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*CheckoutSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stuck session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*CheckoutSession, error) {
	var session CheckoutSession
	err := row.Scan(
		&session.ID,
		&session.IdempotencyKey,
		&session.UserID,
		&session.Status,
		&session.PaymentMethod,
		&session.PaymentID,
		&session.Address,
		&session.CartSnapshot,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func requireSessionAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}
