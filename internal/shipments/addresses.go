package shipments

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kfujiwara/orderdesk/internal/domain"
	"github.com/kfujiwara/orderdesk/internal/store"
)

type AddressRepository struct {
	db *sql.DB
}

func NewAddressRepository(db *sql.DB) *AddressRepository {
	return &AddressRepository{db: db}
}

type AddressInput struct {
	Name        string
	PostalCode  string
	Prefecture  string
	AddressLine string
}

func (r *AddressRepository) Create(ctx context.Context, in AddressInput) (*domain.ShippingAddress, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shipping_addresses (id, name, postal_code, prefecture, address_line, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, id, in.Name, in.PostalCode, in.Prefecture, in.AddressLine, now)
	if err != nil {
		return nil, fmt.Errorf("insert shipping address: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *AddressRepository) GetByID(ctx context.Context, id string) (*domain.ShippingAddress, error) {
	a := &domain.ShippingAddress{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, postal_code, prefecture, address_line, created_at, updated_at
		FROM shipping_addresses WHERE id = $1
	`, id).Scan(&a.ID, &a.Name, &a.PostalCode, &a.Prefecture, &a.AddressLine, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load shipping address: %w", err)
	}
	return a, nil
}

func (r *AddressRepository) List(ctx context.Context) ([]domain.ShippingAddress, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, postal_code, prefecture, address_line, created_at, updated_at
		FROM shipping_addresses ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list shipping addresses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	addresses := []domain.ShippingAddress{}
	for rows.Next() {
		var a domain.ShippingAddress
		if err := rows.Scan(&a.ID, &a.Name, &a.PostalCode, &a.Prefecture, &a.AddressLine, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		addresses = append(addresses, a)
	}
	return addresses, rows.Err()
}

type UpdateAddressInput struct {
	Name        *string
	PostalCode  *string
	Prefecture  *string
	AddressLine *string
}

func (r *AddressRepository) Update(ctx context.Context, id string, in UpdateAddressInput) (*domain.ShippingAddress, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE shipping_addresses SET
			name = COALESCE($1, name),
			postal_code = COALESCE($2, postal_code),
			prefecture = COALESCE($3, prefecture),
			address_line = COALESCE($4, address_line),
			updated_at = $5
		WHERE id = $6
	`, in.Name, in.PostalCode, in.Prefecture, in.AddressLine, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("update shipping address: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, &domain.NotFoundError{Entity: "shipping address", ID: id}
	}
	return r.GetByID(ctx, id)
}

// Delete removes an address no shipment references.
func (r *AddressRepository) Delete(ctx context.Context, id string) error {
	return store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `
			SELECT 1 FROM shipping_addresses WHERE id = $1 FOR UPDATE
		`, id).Scan(&exists)
		if err == sql.ErrNoRows {
			return &domain.NotFoundError{Entity: "shipping address", ID: id}
		}
		if err != nil {
			return fmt.Errorf("lock shipping address: %w", err)
		}

		var linked int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM shipments WHERE shipping_address_id = $1
		`, id).Scan(&linked)
		if err != nil {
			return fmt.Errorf("count linked shipments: %w", err)
		}
		if linked > 0 {
			return &domain.DependencyConflictError{Entity: "shipping address", ID: id, Reason: "shipments reference this address"}
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM shipping_addresses WHERE id = $1", id); err != nil {
			return fmt.Errorf("delete shipping address: %w", err)
		}
		return nil
	})
}
