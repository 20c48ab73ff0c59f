package payments

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kfujiwara/orderdesk/internal/domain"
	"github.com/kfujiwara/orderdesk/internal/store"
)

type MethodRepository struct {
	db *sql.DB
}

func NewMethodRepository(db *sql.DB) *MethodRepository {
	return &MethodRepository{db: db}
}

// codeTaken reports whether another payment method already uses code.
// excludeID skips the row being renamed so a no-op rename does not
// self-conflict.
func (r *MethodRepository) codeTaken(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, code, excludeID string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM payment_methods WHERE code = $1 AND id <> $2
	`, code, excludeID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check payment method code: %w", err)
	}
	return count > 0, nil
}

func (r *MethodRepository) Create(ctx context.Context, code, name string) (*domain.PaymentMethod, error) {
	id := uuid.New().String()
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		taken, err := r.codeTaken(ctx, tx, code, id)
		if err != nil {
			return err
		}
		if taken {
			return &domain.UniquenessConflictError{Entity: "payment method", Code: code}
		}

		now := time.Now().UTC()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO payment_methods (id, code, name, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
		`, id, code, name, now)
		if err != nil {
			return fmt.Errorf("insert payment method: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *MethodRepository) GetByID(ctx context.Context, id string) (*domain.PaymentMethod, error) {
	m := &domain.PaymentMethod{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, code, name, created_at, updated_at FROM payment_methods WHERE id = $1
	`, id).Scan(&m.ID, &m.Code, &m.Name, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load payment method: %w", err)
	}
	return m, nil
}

func (r *MethodRepository) GetByCode(ctx context.Context, code string) (*domain.PaymentMethod, error) {
	m := &domain.PaymentMethod{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, code, name, created_at, updated_at FROM payment_methods WHERE code = $1
	`, code).Scan(&m.ID, &m.Code, &m.Name, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load payment method: %w", err)
	}
	return m, nil
}

func (r *MethodRepository) List(ctx context.Context) ([]domain.PaymentMethod, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, code, name, created_at, updated_at FROM payment_methods ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	defer func() { _ = rows.Close() }()

	methods := []domain.PaymentMethod{}
	for rows.Next() {
		var m domain.PaymentMethod
		if err := rows.Scan(&m.ID, &m.Code, &m.Name, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

func (r *MethodRepository) Update(ctx context.Context, id string, code, name *string) (*domain.PaymentMethod, error) {
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `
			SELECT 1 FROM payment_methods WHERE id = $1 FOR UPDATE
		`, id).Scan(&exists)
		if err == sql.ErrNoRows {
			return &domain.NotFoundError{Entity: "payment method", ID: id}
		}
		if err != nil {
			return fmt.Errorf("lock payment method: %w", err)
		}

		if code != nil {
			taken, err := r.codeTaken(ctx, tx, *code, id)
			if err != nil {
				return err
			}
			if taken {
				return &domain.UniquenessConflictError{Entity: "payment method", Code: *code}
			}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE payment_methods SET
				code = COALESCE($1, code),
				name = COALESCE($2, name),
				updated_at = $3
			WHERE id = $4
		`, code, name, time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("update payment method: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a payment method with no linked orders.
func (r *MethodRepository) Delete(ctx context.Context, id string) error {
	return store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `
			SELECT 1 FROM payment_methods WHERE id = $1 FOR UPDATE
		`, id).Scan(&exists)
		if err == sql.ErrNoRows {
			return &domain.NotFoundError{Entity: "payment method", ID: id}
		}
		if err != nil {
			return fmt.Errorf("lock payment method: %w", err)
		}

		var linked int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM orders WHERE payment_method_id = $1
		`, id).Scan(&linked)
		if err != nil {
			return fmt.Errorf("count linked orders: %w", err)
		}
		if linked > 0 {
			return &domain.DependencyConflictError{Entity: "payment method", ID: id, Reason: "orders reference this payment method"}
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM payment_methods WHERE id = $1", id); err != nil {
			return fmt.Errorf("delete payment method: %w", err)
		}
		return nil
	})
}
