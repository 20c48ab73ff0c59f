package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kfujiwara/orderdesk/internal/domain"
)

func TestWriteDomainErrorStatusCodes(t *testing.T) {
	logger := slog.Default()

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", &domain.NotFoundError{Entity: "order", ID: "o-1"}, http.StatusNotFound},
		{"uniqueness conflict", &domain.UniquenessConflictError{Entity: "shop", Code: "S01"}, http.StatusConflict},
		{"dependency conflict", &domain.DependencyConflictError{Entity: "delivery method", ID: "d-1", Reason: "orders exist"}, http.StatusConflict},
		{"terminal state", &domain.TerminalStateError{Entity: "order", ID: "o-1", Status: "COMPLETED"}, http.StatusBadRequest},
		{"invalid transition", &domain.InvalidTransitionError{Entity: "order", ID: "o-1", From: "PENDING", To: "SHIPPED"}, http.StatusBadRequest},
		{"refund state", &domain.InvalidStateForRefundError{PaymentID: "p-1", Status: domain.PaymentStatusAuthorized}, http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("load order: %w", &domain.NotFoundError{Entity: "order", ID: "o-2"}), http.StatusNotFound},
		{"unknown error", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteDomainError(rec, logger, c.err)

			if rec.Code != c.status {
				t.Fatalf("expected status %d, got %d", c.status, rec.Code)
			}

			var body ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Error == "" {
				t.Fatal("expected an error message")
			}
		})
	}
}

func TestWriteDomainErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteDomainError(rec, slog.Default(), errors.New("pq: deadlock detected"))

	if strings.Contains(rec.Body.String(), "deadlock") {
		t.Fatal("store error detail must not leak into the response")
	}
}
