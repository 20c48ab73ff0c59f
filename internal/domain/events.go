package domain

import "time"

type OrderCreatedEvent struct {
	OrderID       string      `json:"order_id"`
	OrderNumber   string      `json:"order_number"`
	UserID        *string     `json:"user_id,omitempty"`
	Items         []OrderItem `json:"items"`
	BillingAmount int64       `json:"billing_amount"`
	Timestamp     time.Time   `json:"timestamp"`
}

type OrderStatusChangedEvent struct {
	OrderID     string      `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	UserID      *string     `json:"user_id,omitempty"`
	OldStatus   OrderStatus `json:"old_status"`
	NewStatus   OrderStatus `json:"new_status"`
	ChangedAt   time.Time   `json:"changed_at"`
}
