package delivery

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kfujiwara/orderdesk/internal/domain"
	"github.com/kfujiwara/orderdesk/internal/store"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *Repository) methodCodeTaken(ctx context.Context, q rowQueryer, code, excludeID string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM delivery_methods WHERE code = $1 AND id <> $2
	`, code, excludeID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check delivery method code: %w", err)
	}
	return count > 0, nil
}

// slotCodeTaken checks slot code uniqueness within one parent method only;
// the same code under a different method is fine.
func (r *Repository) slotCodeTaken(ctx context.Context, q rowQueryer, methodID, code, excludeID string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM delivery_slots
		WHERE delivery_method_id = $1 AND code = $2 AND id <> $3
	`, methodID, code, excludeID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check delivery slot code: %w", err)
	}
	return count > 0, nil
}

func (r *Repository) CreateMethod(ctx context.Context, code, name string) (*domain.DeliveryMethod, error) {
	id := uuid.New().String()
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		taken, err := r.methodCodeTaken(ctx, tx, code, id)
		if err != nil {
			return err
		}
		if taken {
			return &domain.UniquenessConflictError{Entity: "delivery method", Code: code}
		}

		now := time.Now().UTC()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO delivery_methods (id, code, name, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
		`, id, code, name, now)
		if err != nil {
			return fmt.Errorf("insert delivery method: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetMethodByID(ctx, id)
}

func (r *Repository) GetMethodByID(ctx context.Context, id string) (*domain.DeliveryMethod, error) {
	m := &domain.DeliveryMethod{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, code, name, created_at, updated_at FROM delivery_methods WHERE id = $1
	`, id).Scan(&m.ID, &m.Code, &m.Name, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load delivery method: %w", err)
	}
	return m, nil
}

func (r *Repository) GetMethodByCode(ctx context.Context, code string) (*domain.DeliveryMethod, error) {
	m := &domain.DeliveryMethod{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, code, name, created_at, updated_at FROM delivery_methods WHERE code = $1
	`, code).Scan(&m.ID, &m.Code, &m.Name, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load delivery method: %w", err)
	}
	return m, nil
}

func (r *Repository) ListMethods(ctx context.Context) ([]domain.DeliveryMethod, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, code, name, created_at, updated_at FROM delivery_methods ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("list delivery methods: %w", err)
	}
	defer func() { _ = rows.Close() }()

	methods := []domain.DeliveryMethod{}
	for rows.Next() {
		var m domain.DeliveryMethod
		if err := rows.Scan(&m.ID, &m.Code, &m.Name, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

func (r *Repository) UpdateMethod(ctx context.Context, id string, code, name *string) (*domain.DeliveryMethod, error) {
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `
			SELECT 1 FROM delivery_methods WHERE id = $1 FOR UPDATE
		`, id).Scan(&exists)
		if err == sql.ErrNoRows {
			return &domain.NotFoundError{Entity: "delivery method", ID: id}
		}
		if err != nil {
			return fmt.Errorf("lock delivery method: %w", err)
		}

		if code != nil {
			taken, err := r.methodCodeTaken(ctx, tx, *code, id)
			if err != nil {
				return err
			}
			if taken {
				return &domain.UniquenessConflictError{Entity: "delivery method", Code: *code}
			}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE delivery_methods SET
				code = COALESCE($1, code),
				name = COALESCE($2, name),
				updated_at = $3
			WHERE id = $4
		`, code, name, time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("update delivery method: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetMethodByID(ctx, id)
}

// DeleteMethod removes a delivery method with no linked orders and no slots.
func (r *Repository) DeleteMethod(ctx context.Context, id string) error {
	return store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `
			SELECT 1 FROM delivery_methods WHERE id = $1 FOR UPDATE
		`, id).Scan(&exists)
		if err == sql.ErrNoRows {
			return &domain.NotFoundError{Entity: "delivery method", ID: id}
		}
		if err != nil {
			return fmt.Errorf("lock delivery method: %w", err)
		}

		var linkedOrders int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM orders WHERE delivery_method_id = $1
		`, id).Scan(&linkedOrders); err != nil {
			return fmt.Errorf("count linked orders: %w", err)
		}
		if linkedOrders > 0 {
			return &domain.DependencyConflictError{Entity: "delivery method", ID: id, Reason: "orders reference this delivery method"}
		}

		var linkedSlots int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM delivery_slots WHERE delivery_method_id = $1
		`, id).Scan(&linkedSlots); err != nil {
			return fmt.Errorf("count linked slots: %w", err)
		}
		if linkedSlots > 0 {
			return &domain.DependencyConflictError{Entity: "delivery method", ID: id, Reason: "delivery slots belong to this method"}
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM delivery_methods WHERE id = $1", id); err != nil {
			return fmt.Errorf("delete delivery method: %w", err)
		}
		return nil
	})
}

func (r *Repository) CreateSlot(ctx context.Context, methodID, code, name string) (*domain.DeliverySlot, error) {
	id := uuid.New().String()
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `
			SELECT 1 FROM delivery_methods WHERE id = $1
		`, methodID).Scan(&exists)
		if err == sql.ErrNoRows {
			return &domain.NotFoundError{Entity: "delivery method", ID: methodID}
		}
		if err != nil {
			return fmt.Errorf("check delivery method: %w", err)
		}

		taken, err := r.slotCodeTaken(ctx, tx, methodID, code, id)
		if err != nil {
			return err
		}
		if taken {
			return &domain.UniquenessConflictError{Entity: "delivery slot", Code: code, Scope: "delivery method " + methodID}
		}

		now := time.Now().UTC()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO delivery_slots (id, delivery_method_id, code, name, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
		`, id, methodID, code, name, now)
		if err != nil {
			return fmt.Errorf("insert delivery slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetSlotByID(ctx, id)
}

func (r *Repository) GetSlotByID(ctx context.Context, id string) (*domain.DeliverySlot, error) {
	s := &domain.DeliverySlot{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, delivery_method_id, code, name, created_at, updated_at
		FROM delivery_slots WHERE id = $1
	`, id).Scan(&s.ID, &s.DeliveryMethodID, &s.Code, &s.Name, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load delivery slot: %w", err)
	}
	return s, nil
}

func (r *Repository) ListSlots(ctx context.Context, methodID string) ([]domain.DeliverySlot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, delivery_method_id, code, name, created_at, updated_at
		FROM delivery_slots WHERE delivery_method_id = $1 ORDER BY code
	`, methodID)
	if err != nil {
		return nil, fmt.Errorf("list delivery slots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	slots := []domain.DeliverySlot{}
	for rows.Next() {
		var s domain.DeliverySlot
		if err := rows.Scan(&s.ID, &s.DeliveryMethodID, &s.Code, &s.Name, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

type UpdateSlotInput struct {
	DeliveryMethodID *string
	Code             *string
	Name             *string
}

// UpdateSlot renames or reparents a slot. The uniqueness scope is always
// the target method: the new parent when reparenting, the current one
// otherwise. The slot's own row is excluded so a no-op rename passes.
func (r *Repository) UpdateSlot(ctx context.Context, id string, in UpdateSlotInput) (*domain.DeliverySlot, error) {
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var currentMethodID, currentCode string
		err := tx.QueryRowContext(ctx, `
			SELECT delivery_method_id, code FROM delivery_slots WHERE id = $1 FOR UPDATE
		`, id).Scan(&currentMethodID, &currentCode)
		if err == sql.ErrNoRows {
			return &domain.NotFoundError{Entity: "delivery slot", ID: id}
		}
		if err != nil {
			return fmt.Errorf("lock delivery slot: %w", err)
		}

		targetMethodID := currentMethodID
		if in.DeliveryMethodID != nil {
			targetMethodID = *in.DeliveryMethodID
			var exists int
			err := tx.QueryRowContext(ctx, `
				SELECT 1 FROM delivery_methods WHERE id = $1
			`, targetMethodID).Scan(&exists)
			if err == sql.ErrNoRows {
				return &domain.NotFoundError{Entity: "delivery method", ID: targetMethodID}
			}
			if err != nil {
				return fmt.Errorf("check delivery method: %w", err)
			}
		}

		targetCode := currentCode
		if in.Code != nil {
			targetCode = *in.Code
		}

		taken, err := r.slotCodeTaken(ctx, tx, targetMethodID, targetCode, id)
		if err != nil {
			return err
		}
		if taken {
			return &domain.UniquenessConflictError{Entity: "delivery slot", Code: targetCode, Scope: "delivery method " + targetMethodID}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE delivery_slots SET
				delivery_method_id = $1,
				code = $2,
				name = COALESCE($3, name),
				updated_at = $4
			WHERE id = $5
		`, targetMethodID, targetCode, in.Name, time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("update delivery slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetSlotByID(ctx, id)
}

// DeleteSlot removes a slot with no linked orders and no linked shipments.
func (r *Repository) DeleteSlot(ctx context.Context, id string) error {
	return store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `
			SELECT 1 FROM delivery_slots WHERE id = $1 FOR UPDATE
		`, id).Scan(&exists)
		if err == sql.ErrNoRows {
			return &domain.NotFoundError{Entity: "delivery slot", ID: id}
		}
		if err != nil {
			return fmt.Errorf("lock delivery slot: %w", err)
		}

		var linkedOrders int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM orders WHERE delivery_slot_id = $1
		`, id).Scan(&linkedOrders); err != nil {
			return fmt.Errorf("count linked orders: %w", err)
		}
		if linkedOrders > 0 {
			return &domain.DependencyConflictError{Entity: "delivery slot", ID: id, Reason: "orders reference this delivery slot"}
		}

		var linkedShipments int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM shipments WHERE delivery_slot_id = $1
		`, id).Scan(&linkedShipments); err != nil {
			return fmt.Errorf("count linked shipments: %w", err)
		}
		if linkedShipments > 0 {
			return &domain.DependencyConflictError{Entity: "delivery slot", ID: id, Reason: "shipments reference this delivery slot"}
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM delivery_slots WHERE id = $1", id); err != nil {
			return fmt.Errorf("delete delivery slot: %w", err)
		}
		return nil
	})
}
