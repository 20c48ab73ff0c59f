package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kfujiwara/orderdesk/internal/domain"
)

func statusEvent(t *testing.T, newStatus domain.OrderStatus) []byte {
	t.Helper()
	userID := "user-1"
	data, err := json.Marshal(domain.OrderStatusChangedEvent{
		OrderID:     "order-1",
		OrderNumber: "ORD240115123456",
		UserID:      &userID,
		OldStatus:   domain.OrderStatusPending,
		NewStatus:   newStatus,
		ChangedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	return data
}

func TestHandleConfirmedSendsEmail(t *testing.T) {
	var received map[string]string
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode webhook body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer webhook.Close()

	h := NewNotificationHandler(webhook.URL, webhook.Client(), slog.Default())

	if err := h.Handle(context.Background(), statusEvent(t, domain.OrderStatusConfirmed)); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	if received == nil {
		t.Fatal("expected webhook to be called")
	}
	if received["to"] != "user-1@example.com" {
		t.Fatalf("unexpected recipient: %s", received["to"])
	}
	if received["subject"] != "Order Confirmed: ORD240115123456" {
		t.Fatalf("unexpected subject: %s", received["subject"])
	}
}

func TestHandleCompletedIsSilent(t *testing.T) {
	called := false
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer webhook.Close()

	h := NewNotificationHandler(webhook.URL, webhook.Client(), slog.Default())

	if err := h.Handle(context.Background(), statusEvent(t, domain.OrderStatusCompleted)); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if called {
		t.Fatal("COMPLETED must not trigger a customer email")
	}
}

func TestHandleWebhookFailure(t *testing.T) {
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer webhook.Close()

	h := NewNotificationHandler(webhook.URL, webhook.Client(), slog.Default())

	if err := h.Handle(context.Background(), statusEvent(t, domain.OrderStatusShipped)); err == nil {
		t.Fatal("expected an error when the webhook fails")
	}
}

func TestHandleBadPayload(t *testing.T) {
	h := NewNotificationHandler("http://unused", http.DefaultClient, slog.Default())
	if err := h.Handle(context.Background(), []byte("{not json")); err == nil {
		t.Fatal("expected an error for a malformed payload")
	}
}
