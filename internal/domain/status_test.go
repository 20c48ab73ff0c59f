package domain

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusCanceled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusPending, OrderStatusCompleted, false},
		{OrderStatusConfirmed, OrderStatusShipped, true},
		{OrderStatusConfirmed, OrderStatusCanceled, true},
		{OrderStatusConfirmed, OrderStatusCompleted, false},
		{OrderStatusShipped, OrderStatusCompleted, true},
		{OrderStatusShipped, OrderStatusCanceled, false},
		{OrderStatusCompleted, OrderStatusCanceled, false},
		{OrderStatusCanceled, OrderStatusPending, false},
	}

	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.allowed {
			t.Errorf("%s -> %s: expected allowed=%v, got %v", c.from, c.to, c.allowed, got)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusCompleted, OrderStatusCanceled} {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped} {
		if s.Terminal() {
			t.Errorf("expected %s not to be terminal", s)
		}
	}
	if OrderStatus("bogus").Valid() {
		t.Error("expected unknown status to be invalid")
	}
}

func TestPaymentStatusTransitions(t *testing.T) {
	cases := []struct {
		from    PaymentStatus
		to      PaymentStatus
		allowed bool
	}{
		{PaymentStatusUnpaid, PaymentStatusAuthorized, true},
		{PaymentStatusUnpaid, PaymentStatusPaid, true},
		{PaymentStatusUnpaid, PaymentStatusRefunded, false},
		{PaymentStatusAuthorized, PaymentStatusPaid, true},
		{PaymentStatusAuthorized, PaymentStatusUnpaid, false},
		{PaymentStatusPaid, PaymentStatusRefunded, false},
		{PaymentStatusRefunded, PaymentStatusUnpaid, false},
	}

	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.allowed {
			t.Errorf("%s -> %s: expected allowed=%v, got %v", c.from, c.to, c.allowed, got)
		}
	}

	if !PaymentStatusRefunded.Terminal() {
		t.Error("expected REFUNDED to be terminal")
	}
	if PaymentStatusPaid.Terminal() {
		t.Error("PAID still has the refund path; Terminal must be false")
	}
}

func TestShippingStatusTransitions(t *testing.T) {
	cases := []struct {
		from    ShippingStatus
		to      ShippingStatus
		allowed bool
	}{
		{ShippingStatusPreparing, ShippingStatusInTransit, true},
		{ShippingStatusPreparing, ShippingStatusDelivered, false},
		{ShippingStatusInTransit, ShippingStatusDelivered, true},
		{ShippingStatusInTransit, ShippingStatusReturned, true},
		{ShippingStatusDelivered, ShippingStatusReturned, false},
		{ShippingStatusReturned, ShippingStatusPreparing, false},
	}

	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.allowed {
			t.Errorf("%s -> %s: expected allowed=%v, got %v", c.from, c.to, c.allowed, got)
		}
	}

	if !ShippingStatusDelivered.Terminal() {
		t.Error("expected DELIVERED to be terminal")
	}
	if !ShippingStatusReturned.Terminal() {
		t.Error("expected RETURNED to be terminal")
	}
}
