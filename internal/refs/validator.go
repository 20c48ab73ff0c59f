package refs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kfujiwara/orderdesk/internal/domain"
)

// Validator confirms that a referenced entity exists before it is attached
// to an aggregate. All checks are read-only.
type Validator struct {
	db *sql.DB
}

func NewValidator(db *sql.DB) *Validator {
	return &Validator{db: db}
}

func (v *Validator) exists(ctx context.Context, q queryer, entity, table, id string) error {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = $1", id).Scan(&one)
	if err == sql.ErrNoRows {
		return &domain.NotFoundError{Entity: entity, ID: id}
	}
	if err != nil {
		return fmt.Errorf("check %s %s: %w", entity, id, err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (v *Validator) EnsureUser(ctx context.Context, id string) error {
	return v.exists(ctx, v.db, "user", "users", id)
}

func (v *Validator) EnsureSite(ctx context.Context, id string) error {
	return v.exists(ctx, v.db, "site", "sites", id)
}

func (v *Validator) EnsureShop(ctx context.Context, id string) error {
	return v.exists(ctx, v.db, "shop", "shops", id)
}

func (v *Validator) EnsurePaymentMethod(ctx context.Context, id string) error {
	return v.exists(ctx, v.db, "payment method", "payment_methods", id)
}

func (v *Validator) EnsureDeliveryMethod(ctx context.Context, id string) error {
	return v.exists(ctx, v.db, "delivery method", "delivery_methods", id)
}

func (v *Validator) EnsureDeliverySlot(ctx context.Context, id string) error {
	return v.exists(ctx, v.db, "delivery slot", "delivery_slots", id)
}

func (v *Validator) EnsureShippingAddress(ctx context.Context, id string) error {
	return v.exists(ctx, v.db, "shipping address", "shipping_addresses", id)
}

func (v *Validator) EnsureOrder(ctx context.Context, id string) error {
	return v.exists(ctx, v.db, "order", "orders", id)
}

// EnsureProductTx resolves a product inside an open transaction so order
// item snapshots see the same rows the insert will.
func (v *Validator) EnsureProductTx(ctx context.Context, tx *sql.Tx, id string) (*domain.Product, error) {
	p := &domain.Product{}
	err := tx.QueryRowContext(ctx, `
		SELECT id, category_id, code, name, price
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.CategoryID, &p.Code, &p.Name, &p.Price)
	if err == sql.ErrNoRows {
		return nil, &domain.NotFoundError{Entity: "product", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("load product %s: %w", id, err)
	}
	return p, nil
}
