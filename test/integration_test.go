//go:build integration

package test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kfujiwara/orderdesk/internal/delivery"
	"github.com/kfujiwara/orderdesk/internal/domain"
	"github.com/kfujiwara/orderdesk/internal/messaging"
	"github.com/kfujiwara/orderdesk/internal/orders"
	"github.com/kfujiwara/orderdesk/internal/payments"
	"github.com/kfujiwara/orderdesk/internal/refs"
	"github.com/kfujiwara/orderdesk/internal/shipments"
)

type env struct {
	db           *sql.DB
	orderRepo    *orders.OrderRepository
	paymentRepo  *payments.PaymentRepository
	methodRepo   *payments.MethodRepository
	shipmentRepo *shipments.ShipmentRepository
	addressRepo  *shipments.AddressRepository
	deliveryRepo *delivery.Repository
	orderHandler *orders.Handler
	mux          *http.ServeMux
}

func setupEnv(ctx context.Context, t *testing.T) (*env, func()) {
	t.Helper()

	pg := SetupPostgres(ctx, t)
	db := OpenDB(t, pg.ConnStr)

	validator := refs.NewValidator(db)
	logger := slog.Default()

	e := &env{
		db:           db,
		orderRepo:    orders.NewOrderRepository(db, validator),
		paymentRepo:  payments.NewPaymentRepository(db, validator),
		methodRepo:   payments.NewMethodRepository(db),
		shipmentRepo: shipments.NewShipmentRepository(db),
		addressRepo:  shipments.NewAddressRepository(db),
		deliveryRepo: delivery.NewRepository(db),
	}
	e.orderHandler = orders.NewHandler(e.orderRepo, nil, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", e.orderHandler.HandleCreate)
	mux.HandleFunc("GET /orders/{id}", e.orderHandler.HandleGet)
	mux.HandleFunc("PATCH /orders/{id}/status", e.orderHandler.HandleUpdateStatus)
	mux.HandleFunc("DELETE /orders/{id}", e.orderHandler.HandleDelete)
	mux.HandleFunc("GET /orders/{id}/status-log", e.orderHandler.HandleStatusLog)
	e.mux = mux

	cleanup := func() {
		_ = db.Close()
		pg.Cleanup()
	}
	return e, cleanup
}

const createOrderBody = `{
	"user_id": "USER-001",
	"site_id": "SITE-001",
	"shop_id": "SHOP-001",
	"payment_method_id": "PAYM-001",
	"delivery_method_id": "DELM-001",
	"delivery_slot_id": "SLOT-001",
	"total_amount": 2000,
	"shipping_fee": 0,
	"discount_amount": 0,
	"billing_amount": 2000,
	"shipping_address": {
		"name": "Taro Yamada",
		"postal_code": "100-0001",
		"prefecture": "Tokyo",
		"address_line": "1-1-1 Chiyoda"
	},
	"items": [{"product_id": "PROD-001", "quantity": 2, "unit_price": 1000}]
}`

func createOrder(t *testing.T, mux *http.ServeMux) domain.Order {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(createOrderBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var order domain.Order
	if err := json.NewDecoder(rec.Body).Decode(&order); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return order
}

func patchStatus(t *testing.T, mux *http.ServeMux, orderID string, status domain.OrderStatus) *httptest.ResponseRecorder {
	t.Helper()

	body := fmt.Sprintf(`{"status": %q}`, status)
	req := httptest.NewRequest(http.MethodPatch, "/orders/"+orderID+"/status", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestOrderCreationFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	e, cleanup := setupEnv(ctx, t)
	defer cleanup()

	order := createOrder(t, e.mux)

	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected status PENDING, got %s", order.Status)
	}
	if !strings.HasPrefix(order.OrderNumber, "ORD") || len(order.OrderNumber) != 15 {
		t.Fatalf("unexpected order number %q", order.OrderNumber)
	}
	if len(order.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(order.Items))
	}
	item := order.Items[0]
	if item.ProductName != "Green Tea Set" || item.ProductCode != "FOOD-0001" {
		t.Fatalf("item snapshot not taken: %+v", item)
	}
	if item.Quantity != 2 || item.UnitPrice != 1000 {
		t.Fatalf("unexpected item values: %+v", item)
	}

	if order.Payment == nil {
		t.Fatal("expected a payment record")
	}
	if order.Payment.PaymentStatus != domain.PaymentStatusUnpaid {
		t.Fatalf("expected payment status UNPAID, got %s", order.Payment.PaymentStatus)
	}
	if order.Payment.PaymentAmount != 2000 {
		t.Fatalf("expected payment amount 2000, got %d", order.Payment.PaymentAmount)
	}

	if len(order.Shipments) != 1 {
		t.Fatalf("expected 1 shipment, got %d", len(order.Shipments))
	}
	if order.Shipments[0].ShippingStatus != domain.ShippingStatusPreparing {
		t.Fatalf("expected shipment status PREPARING, got %s", order.Shipments[0].ShippingStatus)
	}

	fetched, err := e.orderRepo.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to fetch order: %v", err)
	}
	if fetched == nil {
		t.Fatal("order not found in database")
	}
}

func TestOrderItemSnapshotSurvivesRename(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	e, cleanup := setupEnv(ctx, t)
	defer cleanup()

	order := createOrder(t, e.mux)

	if _, err := e.db.ExecContext(ctx, "UPDATE products SET name = 'Renamed' WHERE id = 'PROD-001'"); err != nil {
		t.Fatalf("failed to rename product: %v", err)
	}

	fetched, err := e.orderRepo.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to fetch order: %v", err)
	}
	if fetched.Items[0].ProductName != "Green Tea Set" {
		t.Fatalf("snapshot rewritten by rename: %q", fetched.Items[0].ProductName)
	}
}

func TestOrderCreationAtomicity(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	e, cleanup := setupEnv(ctx, t)
	defer cleanup()

	body := strings.Replace(createOrderBody, "PROD-001", "PROD-MISSING", 1)
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d: %s", http.StatusNotFound, rec.Code, rec.Body.String())
	}

	for _, table := range []string{"orders", "order_items", "payment_info", "shipments", "shipping_addresses"} {
		var count int
		if err := e.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			t.Fatalf("failed to count %s: %v", table, err)
		}
		if count != 0 {
			t.Fatalf("expected 0 rows in %s after failed creation, got %d", table, count)
		}
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	e, cleanup := setupEnv(ctx, t)
	defer cleanup()

	order := createOrder(t, e.mux)

	// PENDING's outbound edges are CONFIRMED and CANCELED only.
	rec := patchStatus(t, e.mux, order.ID, domain.OrderStatusShipped)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected PENDING -> SHIPPED to be rejected with 400, got %d", rec.Code)
	}

	rec = patchStatus(t, e.mux, order.ID, domain.OrderStatusConfirmed)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected PENDING -> CONFIRMED to succeed, got %d: %s", rec.Code, rec.Body.String())
	}

	logs, err := e.orderRepo.StatusLog(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to load status log: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected exactly 1 log row after one transition, got %d", len(logs))
	}
	if logs[0].Status != domain.OrderStatusConfirmed {
		t.Fatalf("expected last log row CONFIRMED, got %s", logs[0].Status)
	}

	rec = patchStatus(t, e.mux, order.ID, domain.OrderStatusShipped)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected CONFIRMED -> SHIPPED to succeed, got %d", rec.Code)
	}
	rec = patchStatus(t, e.mux, order.ID, domain.OrderStatusCompleted)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected SHIPPED -> COMPLETED to succeed, got %d", rec.Code)
	}

	logs, err = e.orderRepo.StatusLog(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to load status log: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 log rows after three transitions, got %d", len(logs))
	}
	if logs[2].Status != domain.OrderStatusCompleted {
		t.Fatalf("expected last log row COMPLETED, got %s", logs[2].Status)
	}

	// COMPLETED is terminal: every further update is rejected and the
	// stored status stays put.
	for _, target := range []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusCanceled, domain.OrderStatusCompleted} {
		rec = patchStatus(t, e.mux, order.ID, target)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected update on COMPLETED order to be rejected, got %d for %s", rec.Code, target)
		}
	}

	fetched, err := e.orderRepo.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to fetch order: %v", err)
	}
	if fetched.Status != domain.OrderStatusCompleted {
		t.Fatalf("stored status changed after rejected updates: %s", fetched.Status)
	}

	logs, _ = e.orderRepo.StatusLog(ctx, order.ID)
	if len(logs) != 3 {
		t.Fatalf("rejected updates must not append log rows, got %d", len(logs))
	}
}

func TestTerminalOrderRejectsFieldUpdate(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	e, cleanup := setupEnv(ctx, t)
	defer cleanup()

	order := createOrder(t, e.mux)
	patchStatus(t, e.mux, order.ID, domain.OrderStatusCanceled)

	memo := "late edit"
	_, err := e.orderRepo.Update(ctx, order.ID, orders.UpdateOrderInput{Memo: &memo})

	var terminal *domain.TerminalStateError
	if !errors.As(err, &terminal) {
		t.Fatalf("expected TerminalStateError, got %v", err)
	}
}

func TestOrderDeletionGuard(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	e, cleanup := setupEnv(ctx, t)
	defer cleanup()

	order := createOrder(t, e.mux)
	patchStatus(t, e.mux, order.ID, domain.OrderStatusConfirmed)

	// CONFIRMED is not deletable even though nothing else references the
	// order; only PENDING qualifies.
	req := httptest.NewRequest(http.MethodDelete, "/orders/"+order.ID, nil)
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected delete of CONFIRMED order to be rejected with 409, got %d", rec.Code)
	}

	pending := createOrder(t, e.mux)
	req = httptest.NewRequest(http.MethodDelete, "/orders/"+pending.ID, nil)
	rec = httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected delete of PENDING order to succeed, got %d: %s", rec.Code, rec.Body.String())
	}

	fetched, err := e.orderRepo.GetByID(ctx, pending.ID)
	if err != nil {
		t.Fatalf("failed to fetch order: %v", err)
	}
	if fetched != nil {
		t.Fatal("deleted order still present")
	}
}

func TestPaymentLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	e, cleanup := setupEnv(ctx, t)
	defer cleanup()

	order := createOrder(t, e.mux)
	paymentID := order.Payment.ID

	// Refund before PAID is rejected.
	_, err := e.paymentRepo.Refund(ctx, paymentID)
	var refundErr *domain.InvalidStateForRefundError
	if !errors.As(err, &refundErr) {
		t.Fatalf("expected InvalidStateForRefundError for UNPAID payment, got %v", err)
	}

	txID := "TXN-0001"
	payment, err := e.paymentRepo.UpdateStatus(ctx, paymentID, domain.PaymentStatusAuthorized, &txID)
	if err != nil {
		t.Fatalf("UNPAID -> AUTHORIZED failed: %v", err)
	}
	if payment.PaymentDate == nil {
		t.Fatal("expected payment_date stamped on AUTHORIZED")
	}
	if payment.TransactionID == nil || *payment.TransactionID != txID {
		t.Fatalf("expected transaction id persisted, got %v", payment.TransactionID)
	}

	_, err = e.paymentRepo.Refund(ctx, paymentID)
	if !errors.As(err, &refundErr) {
		t.Fatalf("expected InvalidStateForRefundError for AUTHORIZED payment, got %v", err)
	}

	if _, err := e.paymentRepo.UpdateStatus(ctx, paymentID, domain.PaymentStatusPaid, nil); err != nil {
		t.Fatalf("AUTHORIZED -> PAID failed: %v", err)
	}

	// The generic path never reaches REFUNDED.
	_, err = e.paymentRepo.UpdateStatus(ctx, paymentID, domain.PaymentStatusRefunded, nil)
	var transitionErr *domain.InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected InvalidTransitionError for PAID -> REFUNDED via status update, got %v", err)
	}

	payment, err = e.paymentRepo.Refund(ctx, paymentID)
	if err != nil {
		t.Fatalf("refund of PAID payment failed: %v", err)
	}
	if payment.PaymentStatus != domain.PaymentStatusRefunded {
		t.Fatalf("expected REFUNDED, got %s", payment.PaymentStatus)
	}

	// REFUNDED is frozen.
	for _, target := range []domain.PaymentStatus{domain.PaymentStatusUnpaid, domain.PaymentStatusPaid} {
		_, err = e.paymentRepo.UpdateStatus(ctx, paymentID, target, nil)
		var terminal *domain.TerminalStateError
		if !errors.As(err, &terminal) {
			t.Fatalf("expected TerminalStateError for REFUNDED -> %s, got %v", target, err)
		}
	}

	err = e.paymentRepo.Delete(ctx, paymentID)
	var conflict *domain.DependencyConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected DependencyConflictError deleting a REFUNDED payment, got %v", err)
	}
}

func TestOnePaymentPerOrder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	e, cleanup := setupEnv(ctx, t)
	defer cleanup()

	order := createOrder(t, e.mux)

	_, err := e.paymentRepo.Create(ctx, payments.CreatePaymentInput{OrderID: order.ID, PaymentAmount: 100})
	var conflict *domain.UniquenessConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected UniquenessConflictError for a second payment, got %v", err)
	}
}

func TestShipmentLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	e, cleanup := setupEnv(ctx, t)
	defer cleanup()

	order := createOrder(t, e.mux)
	shipmentID := order.Shipments[0].ID

	// PREPARING cannot jump straight to DELIVERED.
	_, err := e.shipmentRepo.UpdateStatus(ctx, shipmentID, domain.ShippingStatusDelivered, nil)
	var transitionErr *domain.InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}

	tracking := "TRK-12345"
	shipment, err := e.shipmentRepo.UpdateStatus(ctx, shipmentID, domain.ShippingStatusInTransit, &tracking)
	if err != nil {
		t.Fatalf("PREPARING -> IN_TRANSIT failed: %v", err)
	}
	if shipment.TrackingNumber == nil || *shipment.TrackingNumber != tracking {
		t.Fatalf("expected tracking number persisted, got %v", shipment.TrackingNumber)
	}
	if shipment.ShippedAt == nil {
		t.Fatal("expected shipped_at stamped on IN_TRANSIT with tracking number")
	}

	shipment, err = e.shipmentRepo.UpdateStatus(ctx, shipmentID, domain.ShippingStatusDelivered, nil)
	if err != nil {
		t.Fatalf("IN_TRANSIT -> DELIVERED failed: %v", err)
	}

	_, err = e.shipmentRepo.UpdateStatus(ctx, shipmentID, domain.ShippingStatusPreparing, nil)
	var terminal *domain.TerminalStateError
	if !errors.As(err, &terminal) {
		t.Fatalf("expected TerminalStateError on DELIVERED shipment, got %v", err)
	}

	err = e.shipmentRepo.Delete(ctx, shipmentID)
	var conflict *domain.DependencyConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected DependencyConflictError deleting a DELIVERED shipment, got %v", err)
	}
}

func TestShipmentWithoutTrackingKeepsFieldsUntouched(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	e, cleanup := setupEnv(ctx, t)
	defer cleanup()

	order := createOrder(t, e.mux)

	shipment, err := e.shipmentRepo.UpdateStatus(ctx, order.Shipments[0].ID, domain.ShippingStatusInTransit, nil)
	if err != nil {
		t.Fatalf("PREPARING -> IN_TRANSIT failed: %v", err)
	}
	if shipment.TrackingNumber != nil || shipment.ShippedAt != nil {
		t.Fatalf("expected tracking fields untouched, got %+v", shipment)
	}
}

func TestDeliverySlotScopedUniqueness(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	e, cleanup := setupEnv(ctx, t)
	defer cleanup()

	// "AM" exists under both seeded methods already, so the same code
	// under a third method must also be fine.
	method, err := e.deliveryRepo.CreateMethod(ctx, "PICKUP", "Store Pickup")
	if err != nil {
		t.Fatalf("failed to create method: %v", err)
	}
	slot, err := e.deliveryRepo.CreateSlot(ctx, method.ID, "AM", "Morning")
	if err != nil {
		t.Fatalf("same code under a different method must be allowed: %v", err)
	}

	_, err = e.deliveryRepo.CreateSlot(ctx, method.ID, "AM", "Morning again")
	var conflict *domain.UniquenessConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected UniquenessConflictError for duplicate code in same method, got %v", err)
	}

	// A no-op rename must not self-conflict.
	code := "AM"
	if _, err := e.deliveryRepo.UpdateSlot(ctx, slot.ID, delivery.UpdateSlotInput{Code: &code}); err != nil {
		t.Fatalf("no-op rename must pass: %v", err)
	}

	// Reparenting checks the target method's scope.
	var seededMethodID string
	if err := e.db.QueryRowContext(ctx, "SELECT id FROM delivery_methods WHERE code = 'STANDARD'").Scan(&seededMethodID); err != nil {
		t.Fatalf("failed to load seeded method: %v", err)
	}
	_, err = e.deliveryRepo.UpdateSlot(ctx, slot.ID, delivery.UpdateSlotInput{DeliveryMethodID: &seededMethodID})
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict when reparenting into a method that has code AM, got %v", err)
	}
}

func TestDeletionGuards(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	e, cleanup := setupEnv(ctx, t)
	defer cleanup()

	order := createOrder(t, e.mux)

	var conflict *domain.DependencyConflictError

	// Seeded method STANDARD has slots and is referenced by the order.
	var methodID string
	if err := e.db.QueryRowContext(ctx, "SELECT id FROM delivery_methods WHERE code = 'STANDARD'").Scan(&methodID); err != nil {
		t.Fatalf("failed to load method: %v", err)
	}
	if err := e.deliveryRepo.DeleteMethod(ctx, methodID); !errors.As(err, &conflict) {
		t.Fatalf("expected conflict deleting a referenced delivery method, got %v", err)
	}

	var slotID string
	if err := e.db.QueryRowContext(ctx, "SELECT delivery_slot_id FROM orders WHERE id = $1", order.ID).Scan(&slotID); err != nil {
		t.Fatalf("failed to load slot id: %v", err)
	}
	if err := e.deliveryRepo.DeleteSlot(ctx, slotID); !errors.As(err, &conflict) {
		t.Fatalf("expected conflict deleting a referenced delivery slot, got %v", err)
	}

	if err := e.methodRepo.Delete(ctx, *order.PaymentMethodID); !errors.As(err, &conflict) {
		t.Fatalf("expected conflict deleting a referenced payment method, got %v", err)
	}

	if err := e.addressRepo.Delete(ctx, order.Shipments[0].ShippingAddressID); !errors.As(err, &conflict) {
		t.Fatalf("expected conflict deleting a referenced shipping address, got %v", err)
	}

	// Unreferenced rows delete cleanly.
	freshMethod, err := e.deliveryRepo.CreateMethod(ctx, "DRONE", "Drone Delivery")
	if err != nil {
		t.Fatalf("failed to create method: %v", err)
	}
	if err := e.deliveryRepo.DeleteMethod(ctx, freshMethod.ID); err != nil {
		t.Fatalf("expected delete of unreferenced method to succeed: %v", err)
	}

	freshAddress, err := e.addressRepo.Create(ctx, shipments.AddressInput{
		Name: "Temp", PostalCode: "000-0000", Prefecture: "Tokyo", AddressLine: "nowhere",
	})
	if err != nil {
		t.Fatalf("failed to create address: %v", err)
	}
	if err := e.addressRepo.Delete(ctx, freshAddress.ID); err != nil {
		t.Fatalf("expected delete of unreferenced address to succeed: %v", err)
	}
}

func TestMethodCodeUniqueness(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	e, cleanup := setupEnv(ctx, t)
	defer cleanup()

	var conflict *domain.UniquenessConflictError

	if _, err := e.deliveryRepo.CreateMethod(ctx, "STANDARD", "Duplicate"); !errors.As(err, &conflict) {
		t.Fatalf("expected conflict creating delivery method with seeded code, got %v", err)
	}
	if _, err := e.methodRepo.Create(ctx, "CARD", "Duplicate"); !errors.As(err, &conflict) {
		t.Fatalf("expected conflict creating payment method with seeded code, got %v", err)
	}

	// Renaming a method to its own code must not self-conflict.
	method, err := e.methodRepo.GetByCode(ctx, "CARD")
	if err != nil || method == nil {
		t.Fatalf("failed to load seeded payment method: %v", err)
	}
	code := "CARD"
	if _, err := e.methodRepo.Update(ctx, method.ID, &code, nil); err != nil {
		t.Fatalf("no-op rename must pass: %v", err)
	}
}

func TestStatusChangedEventFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()
	brokers, cleanupKafka := SetupKafka(ctx, t)
	defer cleanupKafka()

	db := OpenDB(t, pg.ConnStr)
	defer func() { _ = db.Close() }()

	validator := refs.NewValidator(db)
	producer := messaging.NewProducer(brokers)
	defer func() { _ = producer.Close() }()

	repo := orders.NewOrderRepository(db, validator)
	handler := orders.NewHandler(repo, producer, slog.Default())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", handler.HandleCreate)
	mux.HandleFunc("PATCH /orders/{id}/status", handler.HandleUpdateStatus)

	order := createOrder(t, mux)
	rec := patchStatus(t, mux, order.ID, domain.OrderStatusConfirmed)
	if rec.Code != http.StatusOK {
		t.Fatalf("status update failed: %d %s", rec.Code, rec.Body.String())
	}

	consumer := messaging.NewConsumer(brokers, messaging.TopicOrderStatusChanged, "test-group",
		messaging.WithStartOffset(-2))
	defer func() { _ = consumer.Close() }()

	received := make(chan domain.OrderStatusChangedEvent, 1)
	consumeCtx, stopConsume := context.WithTimeout(ctx, 90*time.Second)
	defer stopConsume()

	go func() {
		_ = consumer.Consume(consumeCtx, func(_ context.Context, payload []byte) error {
			var event domain.OrderStatusChangedEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				return err
			}
			select {
			case received <- event:
			default:
			}
			stopConsume()
			return nil
		})
	}()

	select {
	case event := <-received:
		if event.OrderID != order.ID {
			t.Fatalf("unexpected order id in event: %s", event.OrderID)
		}
		if event.OldStatus != domain.OrderStatusPending || event.NewStatus != domain.OrderStatusConfirmed {
			t.Fatalf("unexpected statuses in event: %s -> %s", event.OldStatus, event.NewStatus)
		}
	case <-consumeCtx.Done():
		t.Fatal("timed out waiting for status changed event")
	}
}
