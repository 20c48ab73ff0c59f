package domain

import "time"

type ShippingStatus string

const (
	ShippingStatusPreparing ShippingStatus = "PREPARING"
	ShippingStatusInTransit ShippingStatus = "IN_TRANSIT"
	ShippingStatusDelivered ShippingStatus = "DELIVERED"
	ShippingStatusReturned  ShippingStatus = "RETURNED"
)

var shippingTransitions = map[ShippingStatus][]ShippingStatus{
	ShippingStatusPreparing: {ShippingStatusInTransit},
	ShippingStatusInTransit: {ShippingStatusDelivered, ShippingStatusReturned},
	ShippingStatusDelivered: {},
	ShippingStatusReturned:  {},
}

func (s ShippingStatus) Valid() bool {
	_, ok := shippingTransitions[s]
	return ok
}

func (s ShippingStatus) Terminal() bool {
	next, ok := shippingTransitions[s]
	return ok && len(next) == 0
}

func (s ShippingStatus) CanTransitionTo(target ShippingStatus) bool {
	for _, next := range shippingTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

type Shipment struct {
	ID                string         `json:"id"`
	OrderID           string         `json:"order_id"`
	SiteID            *string        `json:"site_id,omitempty"`
	ShopID            *string        `json:"shop_id,omitempty"`
	ShippingAddressID string         `json:"shipping_address_id"`
	DeliverySlotID    *string        `json:"delivery_slot_id,omitempty"`
	TrackingNumber    *string        `json:"tracking_number,omitempty"`
	ShippingStatus    ShippingStatus `json:"shipping_status"`
	ShippedAt         *time.Time     `json:"shipped_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

type ShippingAddress struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	PostalCode  string    `json:"postal_code"`
	Prefecture  string    `json:"prefecture"`
	AddressLine string    `json:"address_line"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
