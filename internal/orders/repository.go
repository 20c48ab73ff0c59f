package orders

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/kfujiwara/orderdesk/internal/domain"
	"github.com/kfujiwara/orderdesk/internal/refs"
	"github.com/kfujiwara/orderdesk/internal/store"
)

type OrderRepository struct {
	db   *sql.DB
	refs *refs.Validator
}

func NewOrderRepository(db *sql.DB, validator *refs.Validator) *OrderRepository {
	return &OrderRepository{db: db, refs: validator}
}

type AddressInput struct {
	Name        string
	PostalCode  string
	Prefecture  string
	AddressLine string
}

type ItemInput struct {
	ProductID string
	Quantity  int
	UnitPrice int64
	Memo      *string
}

type CreateOrderInput struct {
	UserID             string
	SiteID             string
	ShopID             string
	PaymentMethodID    *string
	DeliveryMethodID   *string
	DeliverySlotID     *string
	TotalAmount        int64
	ShippingFee        int64
	DiscountAmount     int64
	BillingAmount      int64
	DesiredArrivalDate *time.Time
	Memo               *string
	Address            AddressInput
	Items              []ItemInput
}

// Create materializes a new order, its item snapshots, the initial UNPAID
// payment record and the initial PREPARING shipment in one transaction.
// Reference checks run first so a bad reference never opens a transaction.
func (r *OrderRepository) Create(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if err := r.refs.EnsureUser(ctx, in.UserID); err != nil {
		return nil, err
	}
	if err := r.refs.EnsureSite(ctx, in.SiteID); err != nil {
		return nil, err
	}
	if err := r.refs.EnsureShop(ctx, in.ShopID); err != nil {
		return nil, err
	}
	if in.PaymentMethodID != nil {
		if err := r.refs.EnsurePaymentMethod(ctx, *in.PaymentMethodID); err != nil {
			return nil, err
		}
	}
	if in.DeliveryMethodID != nil {
		if err := r.refs.EnsureDeliveryMethod(ctx, *in.DeliveryMethodID); err != nil {
			return nil, err
		}
	}
	if in.DeliverySlotID != nil {
		if err := r.refs.EnsureDeliverySlot(ctx, *in.DeliverySlotID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	orderID := uuid.New().String()

	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		addressID := uuid.New().String()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO shipping_addresses (id, name, postal_code, prefecture, address_line, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
		`, addressID, in.Address.Name, in.Address.PostalCode, in.Address.Prefecture, in.Address.AddressLine, now)
		if err != nil {
			return fmt.Errorf("insert shipping address: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO orders (id, order_number, user_id, site_id, shop_id, payment_method_id,
				delivery_method_id, delivery_slot_id, total_amount, shipping_fee, discount_amount,
				billing_amount, status, order_date, desired_arrival_date, memo, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $17)
		`, orderID, domain.OrderNumber(now), in.UserID, in.SiteID, in.ShopID, in.PaymentMethodID,
			in.DeliveryMethodID, in.DeliverySlotID, in.TotalAmount, in.ShippingFee, in.DiscountAmount,
			in.BillingAmount, domain.OrderStatusPending, now, in.DesiredArrivalDate, in.Memo, now)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, item := range in.Items {
			product, err := r.refs.EnsureProductTx(ctx, tx, item.ProductID)
			if err != nil {
				return err
			}
			// Snapshot name and code at insertion time; later product
			// renames must not rewrite historical items.
			_, err = tx.ExecContext(ctx, `
				INSERT INTO order_items (id, order_id, product_id, category_id, product_code,
					product_name, quantity, unit_price, memo)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`, uuid.New().String(), orderID, product.ID, product.CategoryID, product.Code,
				product.Name, item.Quantity, item.UnitPrice, item.Memo)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO payment_info (id, order_id, payment_amount, payment_status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
		`, uuid.New().String(), orderID, in.BillingAmount, domain.PaymentStatusUnpaid, now)
		if err != nil {
			return fmt.Errorf("insert payment info: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO shipments (id, order_id, site_id, shop_id, shipping_address_id,
				delivery_slot_id, shipping_status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		`, uuid.New().String(), orderID, in.SiteID, in.ShopID, addressID,
			in.DeliverySlotID, domain.ShippingStatusPreparing, now)
		if err != nil {
			return fmt.Errorf("insert shipment: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, orderID)
}

const orderColumns = `id, order_number, user_id, site_id, shop_id, payment_method_id,
	delivery_method_id, delivery_slot_id, total_amount, shipping_fee, discount_amount,
	billing_amount, status, order_date, desired_arrival_date, memo, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(&order.ID, &order.OrderNumber, &order.UserID, &order.SiteID, &order.ShopID,
		&order.PaymentMethodID, &order.DeliveryMethodID, &order.DeliverySlotID,
		&order.TotalAmount, &order.ShippingFee, &order.DiscountAmount, &order.BillingAmount,
		&order.Status, &order.OrderDate, &order.DesiredArrivalDate, &order.Memo,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, category_id, product_code, product_name, quantity, unit_price, memo
		FROM order_items
		WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	order.Items = []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.CategoryID,
			&item.ProductCode, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.Memo); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	payment := &domain.PaymentInfo{}
	err = r.db.QueryRowContext(ctx, `
		SELECT id, order_id, payment_amount, payment_status, transaction_id, payment_date, created_at, updated_at
		FROM payment_info
		WHERE order_id = $1
	`, id).Scan(&payment.ID, &payment.OrderID, &payment.PaymentAmount, &payment.PaymentStatus,
		&payment.TransactionID, &payment.PaymentDate, &payment.CreatedAt, &payment.UpdatedAt)
	if err == nil {
		order.Payment = payment
	} else if err != sql.ErrNoRows {
		return nil, fmt.Errorf("load payment info: %w", err)
	}

	shipmentRows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, site_id, shop_id, shipping_address_id, delivery_slot_id,
			tracking_number, shipping_status, shipped_at, created_at, updated_at
		FROM shipments
		WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("load shipments: %w", err)
	}
	defer func() { _ = shipmentRows.Close() }()

	for shipmentRows.Next() {
		var s domain.Shipment
		if err := shipmentRows.Scan(&s.ID, &s.OrderID, &s.SiteID, &s.ShopID, &s.ShippingAddressID,
			&s.DeliverySlotID, &s.TrackingNumber, &s.ShippingStatus, &s.ShippedAt,
			&s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		order.Shipments = append(order.Shipments, s)
	}
	if err := shipmentRows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

type ListFilter struct {
	Status domain.OrderStatus
	UserID string
	ShopID string
}

func (r *OrderRepository) List(ctx context.Context, filter ListFilter) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var conditions []string
	var args []any

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, "user_id = $"+strconv.Itoa(len(args)))
	}
	if filter.ShopID != "" {
		args = append(args, filter.ShopID)
		conditions = append(conditions, "shop_id = $"+strconv.Itoa(len(args)))
	}
	for i, c := range conditions {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY order_date DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		order.Items = []domain.OrderItem{}
		orderMap[order.ID] = order
		orderIDs = append(orderIDs, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, category_id, product_code, product_name, quantity, unit_price, memo
		FROM order_items
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var item domain.OrderItem
		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.CategoryID,
			&item.ProductCode, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.Memo); err != nil {
			return nil, err
		}
		order := orderMap[item.OrderID]
		order.Items = append(order.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

// UpdateStatus applies one edge of the order status graph. The current row
// is re-read under the transaction's row lock; terminal states reject the
// request before the target is considered, and the status-log append commits
// with the status write or not at all.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, target domain.OrderStatus) (*domain.Order, *domain.OrderStatusChangedEvent, error) {
	if !target.Valid() {
		return nil, nil, &domain.InvalidTransitionError{Entity: "order", ID: id, From: "", To: string(target)}
	}

	var event *domain.OrderStatusChangedEvent
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var current domain.OrderStatus
		var orderNumber string
		var userID *string
		err := tx.QueryRowContext(ctx, `
			SELECT status, order_number, user_id
			FROM orders
			WHERE id = $1
			FOR UPDATE
		`, id).Scan(&current, &orderNumber, &userID)
		if err == sql.ErrNoRows {
			return &domain.NotFoundError{Entity: "order", ID: id}
		}
		if err != nil {
			return fmt.Errorf("lock order: %w", err)
		}

		if current.Terminal() {
			return &domain.TerminalStateError{Entity: "order", ID: id, Status: string(current)}
		}
		if !current.CanTransitionTo(target) {
			return &domain.InvalidTransitionError{Entity: "order", ID: id, From: string(current), To: string(target)}
		}

		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx, `
			UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3
		`, target, now, id); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_status_logs (id, order_id, status, changed_at)
			VALUES ($1, $2, $3, $4)
		`, uuid.New().String(), id, target, now); err != nil {
			return fmt.Errorf("append status log: %w", err)
		}

		event = &domain.OrderStatusChangedEvent{
			OrderID:     id,
			OrderNumber: orderNumber,
			UserID:      userID,
			OldStatus:   current,
			NewStatus:   target,
			ChangedAt:   now,
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	order, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return order, event, nil
}

type UpdateOrderInput struct {
	DesiredArrivalDate *time.Time
	Memo               *string
	ShippingFee        *int64
	DiscountAmount     *int64
}

// Update edits non-status fields. Terminal orders reject edits under the
// same re-read guard as status transitions.
func (r *OrderRepository) Update(ctx context.Context, id string, in UpdateOrderInput) (*domain.Order, error) {
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var current domain.OrderStatus
		err := tx.QueryRowContext(ctx, `
			SELECT status FROM orders WHERE id = $1 FOR UPDATE
		`, id).Scan(&current)
		if err == sql.ErrNoRows {
			return &domain.NotFoundError{Entity: "order", ID: id}
		}
		if err != nil {
			return fmt.Errorf("lock order: %w", err)
		}
		if current.Terminal() {
			return &domain.TerminalStateError{Entity: "order", ID: id, Status: string(current)}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE orders SET
				desired_arrival_date = COALESCE($1, desired_arrival_date),
				memo = COALESCE($2, memo),
				shipping_fee = COALESCE($3, shipping_fee),
				discount_amount = COALESCE($4, discount_amount),
				updated_at = $5
			WHERE id = $6
		`, in.DesiredArrivalDate, in.Memo, in.ShippingFee, in.DiscountAmount, time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// Delete removes a PENDING order and its owned children. Any other status
// is a conflict; the delete is never attempted.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	return store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var current domain.OrderStatus
		err := tx.QueryRowContext(ctx, `
			SELECT status FROM orders WHERE id = $1 FOR UPDATE
		`, id).Scan(&current)
		if err == sql.ErrNoRows {
			return &domain.NotFoundError{Entity: "order", ID: id}
		}
		if err != nil {
			return fmt.Errorf("lock order: %w", err)
		}
		if current != domain.OrderStatusPending {
			return &domain.DependencyConflictError{
				Entity: "order",
				ID:     id,
				Reason: fmt.Sprintf("status is %s; only PENDING orders can be deleted", current),
			}
		}

		for _, stmt := range []string{
			"DELETE FROM order_items WHERE order_id = $1",
			"DELETE FROM payment_info WHERE order_id = $1",
			"DELETE FROM shipments WHERE order_id = $1",
			"DELETE FROM order_status_logs WHERE order_id = $1",
			"DELETE FROM orders WHERE id = $1",
		} {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return fmt.Errorf("delete order: %w", err)
			}
		}
		return nil
	})
}

func (r *OrderRepository) StatusLog(ctx context.Context, orderID string) ([]domain.OrderStatusLog, error) {
	if err := r.refs.EnsureOrder(ctx, orderID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, status, changed_at
		FROM order_status_logs
		WHERE order_id = $1
		ORDER BY changed_at ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load status log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	logs := []domain.OrderStatusLog{}
	for rows.Next() {
		var l domain.OrderStatusLog
		if err := rows.Scan(&l.ID, &l.OrderID, &l.Status, &l.ChangedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
