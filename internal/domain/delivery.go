package domain

import "time"

type DeliveryMethod struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeliverySlot codes are unique within their parent method, not globally.
type DeliverySlot struct {
	ID               string    `json:"id"`
	DeliveryMethodID string    `json:"delivery_method_id"`
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
