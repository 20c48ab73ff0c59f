package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCanceled  OrderStatus = "CANCELED"
)

// orderTransitions is the adjacency table for the order lifecycle.
// COMPLETED and CANCELED have no outbound edges.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCanceled},
	OrderStatusConfirmed: {OrderStatusShipped, OrderStatusCanceled},
	OrderStatusShipped:   {OrderStatusCompleted},
	OrderStatusCompleted: {},
	OrderStatusCanceled:  {},
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	next, ok := orderTransitions[s]
	return ok && len(next) == 0
}

func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

type OrderItem struct {
	ID          string  `json:"id"`
	OrderID     string  `json:"order_id"`
	ProductID   string  `json:"product_id"`
	CategoryID  string  `json:"category_id"`
	ProductCode string  `json:"product_code"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   int64   `json:"unit_price"`
	Memo        *string `json:"memo,omitempty"`
}

type Order struct {
	ID                 string      `json:"id"`
	OrderNumber        string      `json:"order_number"`
	UserID             *string     `json:"user_id,omitempty"`
	SiteID             *string     `json:"site_id,omitempty"`
	ShopID             *string     `json:"shop_id,omitempty"`
	PaymentMethodID    *string     `json:"payment_method_id,omitempty"`
	DeliveryMethodID   *string     `json:"delivery_method_id,omitempty"`
	DeliverySlotID     *string     `json:"delivery_slot_id,omitempty"`
	TotalAmount        int64       `json:"total_amount"`
	ShippingFee        int64       `json:"shipping_fee"`
	DiscountAmount     int64       `json:"discount_amount"`
	BillingAmount      int64       `json:"billing_amount"`
	Status             OrderStatus `json:"status"`
	OrderDate          time.Time   `json:"order_date"`
	DesiredArrivalDate *time.Time  `json:"desired_arrival_date,omitempty"`
	Memo               *string     `json:"memo,omitempty"`
	Items              []OrderItem `json:"items"`
	Payment            *PaymentInfo `json:"payment,omitempty"`
	Shipments          []Shipment  `json:"shipments,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

type OrderStatusLog struct {
	ID        string      `json:"id"`
	OrderID   string      `json:"order_id"`
	Status    OrderStatus `json:"status"`
	ChangedAt time.Time   `json:"changed_at"`
}

// OrderNumber derives a human-readable order identifier from the given
// instant: "ORD" + yymmdd + the last six digits of the epoch-millis value.
// Collisions within the same millis-modulo window are possible; the store
// deliberately carries no uniqueness constraint on this column.
func OrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD%02d%02d%02d%06d",
		now.Year()%100, int(now.Month()), now.Day(),
		now.UnixMilli()%1_000_000)
}
