package payments

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kfujiwara/orderdesk/internal/domain"
	"github.com/kfujiwara/orderdesk/internal/refs"
	"github.com/kfujiwara/orderdesk/internal/store"
)

type PaymentRepository struct {
	db   *sql.DB
	refs *refs.Validator
}

func NewPaymentRepository(db *sql.DB, validator *refs.Validator) *PaymentRepository {
	return &PaymentRepository{db: db, refs: validator}
}

const paymentColumns = `id, order_id, payment_amount, payment_status, transaction_id, payment_date, created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }) (*domain.PaymentInfo, error) {
	p := &domain.PaymentInfo{}
	err := row.Scan(&p.ID, &p.OrderID, &p.PaymentAmount, &p.PaymentStatus,
		&p.TransactionID, &p.PaymentDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

type CreatePaymentInput struct {
	OrderID       string
	PaymentAmount int64
}

// Create adds a payment record for an order that does not have one yet.
// An order holds at most one payment record.
func (r *PaymentRepository) Create(ctx context.Context, in CreatePaymentInput) (*domain.PaymentInfo, error) {
	if err := r.refs.EnsureOrder(ctx, in.OrderID); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var existing int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM payment_info WHERE order_id = $1
		`, in.OrderID).Scan(&existing)
		if err != nil {
			return fmt.Errorf("check existing payment: %w", err)
		}
		if existing > 0 {
			return &domain.UniquenessConflictError{Entity: "payment", Code: in.OrderID, Scope: "order"}
		}

		now := time.Now().UTC()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO payment_info (id, order_id, payment_amount, payment_status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
		`, id, in.OrderID, in.PaymentAmount, domain.PaymentStatusUnpaid, now)
		if err != nil {
			return fmt.Errorf("insert payment info: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.PaymentInfo, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, `
		SELECT `+paymentColumns+` FROM payment_info WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	return p, nil
}

type ListFilter struct {
	OrderID string
	Status  domain.PaymentStatus
}

func (r *PaymentRepository) List(ctx context.Context, filter ListFilter) ([]domain.PaymentInfo, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_info`
	var args []any
	if filter.OrderID != "" {
		args = append(args, filter.OrderID)
		query += " WHERE order_id = $" + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		if len(args) == 1 {
			query += " WHERE"
		} else {
			query += " AND"
		}
		query += " payment_status = $" + strconv.Itoa(len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	payments := []domain.PaymentInfo{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// UpdateStatus applies one edge of the payment status graph. Entering
// AUTHORIZED or PAID stamps payment_date and, when supplied, persists the
// transaction id. REFUNDED is never a legal target here; the refund
// operation owns that edge.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, target domain.PaymentStatus, transactionID *string) (*domain.PaymentInfo, error) {
	if !target.Valid() {
		return nil, &domain.InvalidTransitionError{Entity: "payment", ID: id, From: "", To: string(target)}
	}

	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var current domain.PaymentStatus
		err := tx.QueryRowContext(ctx, `
			SELECT payment_status FROM payment_info WHERE id = $1 FOR UPDATE
		`, id).Scan(&current)
		if err == sql.ErrNoRows {
			return &domain.NotFoundError{Entity: "payment", ID: id}
		}
		if err != nil {
			return fmt.Errorf("lock payment: %w", err)
		}

		if current.Terminal() {
			return &domain.TerminalStateError{Entity: "payment", ID: id, Status: string(current)}
		}
		if !current.CanTransitionTo(target) {
			return &domain.InvalidTransitionError{Entity: "payment", ID: id, From: string(current), To: string(target)}
		}

		now := time.Now().UTC()
		if target == domain.PaymentStatusAuthorized || target == domain.PaymentStatusPaid {
			_, err = tx.ExecContext(ctx, `
				UPDATE payment_info SET payment_status = $1, payment_date = $2,
					transaction_id = COALESCE($3, transaction_id), updated_at = $2
				WHERE id = $4
			`, target, now, transactionID, id)
		} else {
			_, err = tx.ExecContext(ctx, `
				UPDATE payment_info SET payment_status = $1, updated_at = $2 WHERE id = $3
			`, target, now, id)
		}
		if err != nil {
			return fmt.Errorf("update payment status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// Refund moves a payment from PAID to REFUNDED. Any other current status is
// rejected; REFUNDED is final.
func (r *PaymentRepository) Refund(ctx context.Context, id string) (*domain.PaymentInfo, error) {
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var current domain.PaymentStatus
		err := tx.QueryRowContext(ctx, `
			SELECT payment_status FROM payment_info WHERE id = $1 FOR UPDATE
		`, id).Scan(&current)
		if err == sql.ErrNoRows {
			return &domain.NotFoundError{Entity: "payment", ID: id}
		}
		if err != nil {
			return fmt.Errorf("lock payment: %w", err)
		}

		if current != domain.PaymentStatusPaid {
			return &domain.InvalidStateForRefundError{PaymentID: id, Status: current}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE payment_info SET payment_status = $1, updated_at = $2 WHERE id = $3
		`, domain.PaymentStatusRefunded, time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("refund payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// Delete removes a payment record that is still UNPAID.
func (r *PaymentRepository) Delete(ctx context.Context, id string) error {
	return store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var current domain.PaymentStatus
		err := tx.QueryRowContext(ctx, `
			SELECT payment_status FROM payment_info WHERE id = $1 FOR UPDATE
		`, id).Scan(&current)
		if err == sql.ErrNoRows {
			return &domain.NotFoundError{Entity: "payment", ID: id}
		}
		if err != nil {
			return fmt.Errorf("lock payment: %w", err)
		}
		if current != domain.PaymentStatusUnpaid {
			return &domain.DependencyConflictError{
				Entity: "payment",
				ID:     id,
				Reason: fmt.Sprintf("status is %s; only UNPAID payments can be deleted", current),
			}
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM payment_info WHERE id = $1", id); err != nil {
			return fmt.Errorf("delete payment: %w", err)
		}
		return nil
	})
}
