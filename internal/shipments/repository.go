package shipments

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/kfujiwara/orderdesk/internal/domain"
	"github.com/kfujiwara/orderdesk/internal/store"
)

type ShipmentRepository struct {
	db *sql.DB
}

func NewShipmentRepository(db *sql.DB) *ShipmentRepository {
	return &ShipmentRepository{db: db}
}

const shipmentColumns = `id, order_id, site_id, shop_id, shipping_address_id, delivery_slot_id,
	tracking_number, shipping_status, shipped_at, created_at, updated_at`

func scanShipment(row interface{ Scan(...any) error }) (*domain.Shipment, error) {
	s := &domain.Shipment{}
	err := row.Scan(&s.ID, &s.OrderID, &s.SiteID, &s.ShopID, &s.ShippingAddressID,
		&s.DeliverySlotID, &s.TrackingNumber, &s.ShippingStatus, &s.ShippedAt,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *ShipmentRepository) GetByID(ctx context.Context, id string) (*domain.Shipment, error) {
	s, err := scanShipment(r.db.QueryRowContext(ctx, `
		SELECT `+shipmentColumns+` FROM shipments WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load shipment: %w", err)
	}
	return s, nil
}

type ListFilter struct {
	OrderID string
	Status  domain.ShippingStatus
}

func (r *ShipmentRepository) List(ctx context.Context, filter ListFilter) ([]domain.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments`
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
		query += " shipping_status = $" + strconv.Itoa(len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	shipments := []domain.Shipment{}
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		shipments = append(shipments, *s)
	}
	return shipments, rows.Err()
}

// UpdateStatus applies one edge of the shipping status graph. Entering
// IN_TRANSIT with a tracking number persists it and stamps shipped_at;
// without one, both fields are left untouched.
func (r *ShipmentRepository) UpdateStatus(ctx context.Context, id string, target domain.ShippingStatus, trackingNumber *string) (*domain.Shipment, error) {
	if !target.Valid() {
		return nil, &domain.InvalidTransitionError{Entity: "shipment", ID: id, From: "", To: string(target)}
	}

	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var current domain.ShippingStatus
		err := tx.QueryRowContext(ctx, `
			SELECT shipping_status FROM shipments WHERE id = $1 FOR UPDATE
		`, id).Scan(&current)
		if err == sql.ErrNoRows {
			return &domain.NotFoundError{Entity: "shipment", ID: id}
		}
		if err != nil {
			return fmt.Errorf("lock shipment: %w", err)
		}

		if current.Terminal() {
			return &domain.TerminalStateError{Entity: "shipment", ID: id, Status: string(current)}
		}
		if !current.CanTransitionTo(target) {
			return &domain.InvalidTransitionError{Entity: "shipment", ID: id, From: string(current), To: string(target)}
		}

		now := time.Now().UTC()
		if target == domain.ShippingStatusInTransit && trackingNumber != nil {
			_, err = tx.ExecContext(ctx, `
				UPDATE shipments SET shipping_status = $1, tracking_number = $2, shipped_at = $3, updated_at = $3
				WHERE id = $4
			`, target, *trackingNumber, now, id)
		} else {
			_, err = tx.ExecContext(ctx, `
				UPDATE shipments SET shipping_status = $1, updated_at = $2 WHERE id = $3
			`, target, now, id)
		}
		if err != nil {
			return fmt.Errorf("update shipment status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// Delete removes a shipment still in PREPARING.
func (r *ShipmentRepository) Delete(ctx context.Context, id string) error {
	return store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var current domain.ShippingStatus
		err := tx.QueryRowContext(ctx, `
			SELECT shipping_status FROM shipments WHERE id = $1 FOR UPDATE
		`, id).Scan(&current)
		if err == sql.ErrNoRows {
			return &domain.NotFoundError{Entity: "shipment", ID: id}
		}
		if err != nil {
			return fmt.Errorf("lock shipment: %w", err)
		}
		if current != domain.ShippingStatusPreparing {
			return &domain.DependencyConflictError{
				Entity: "shipment",
				ID:     id,
				Reason: fmt.Sprintf("status is %s; only PREPARING shipments can be deleted", current),
			}
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM shipments WHERE id = $1", id); err != nil {
			return fmt.Errorf("delete shipment: %w", err)
		}
		return nil
	})
}
