package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kfujiwara/orderdesk/internal/domain"
)

// NotificationHandler turns order status events into customer emails posted
// to an external webhook.
type NotificationHandler struct {
	emailWebhookURL string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewNotificationHandler(emailWebhookURL string, client *http.Client, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		emailWebhookURL: emailWebhookURL,
		httpClient:      client,
		logger:          logger,
	}
}

func (h *NotificationHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderStatusChangedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal status changed event: %w", err)
	}

	h.logger.Info("processing status changed event",
		"order_id", event.OrderID, "old_status", event.OldStatus, "new_status", event.NewStatus)

	subject, text := notificationContent(event)
	if subject == "" {
		// Intermediate statuses do not notify the customer.
		return nil
	}

	to := "customer@example.com"
	if event.UserID != nil {
		to = *event.UserID + "@example.com"
	}

	if err := h.sendEmail(ctx, map[string]string{
		"to":      to,
		"subject": subject,
		"body":    text,
	}); err != nil {
		h.logger.Error("failed to send notification", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send notification: %w", err)
	}

	h.logger.Info("notification sent", "order_id", event.OrderID, "status", event.NewStatus)
	return nil
}

func notificationContent(event domain.OrderStatusChangedEvent) (subject, body string) {
	switch event.NewStatus {
	case domain.OrderStatusConfirmed:
		return "Order Confirmed: " + event.OrderNumber,
			fmt.Sprintf("Your order %s has been confirmed.", event.OrderNumber)
	case domain.OrderStatusShipped:
		return "Order Shipped: " + event.OrderNumber,
			fmt.Sprintf("Your order %s is on its way.", event.OrderNumber)
	case domain.OrderStatusCanceled:
		return "Order Canceled: " + event.OrderNumber,
			fmt.Sprintf("Your order %s has been canceled.", event.OrderNumber)
	default:
		return "", ""
	}
}

func (h *NotificationHandler) sendEmail(ctx context.Context, body map[string]string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailWebhookURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email webhook returned status %d", resp.StatusCode)
	}

	return nil
}
