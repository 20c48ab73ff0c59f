package orders

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/kfujiwara/orderdesk/internal/domain"
	"github.com/kfujiwara/orderdesk/internal/httpx"
	"github.com/kfujiwara/orderdesk/internal/messaging"
)

type Handler struct {
	repo     *OrderRepository
	producer *messaging.Producer
	logger   *slog.Logger
}

// NewHandler wires the order endpoints. producer may be nil; events are then
// skipped.
func NewHandler(repo *OrderRepository, producer *messaging.Producer, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, producer: producer, logger: logger}
}

type createOrderItemRequest struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice int64   `json:"unit_price"`
	Memo      *string `json:"memo,omitempty"`
}

type createOrderRequest struct {
	UserID             string                   `json:"user_id"`
	SiteID             string                   `json:"site_id"`
	ShopID             string                   `json:"shop_id"`
	PaymentMethodID    *string                  `json:"payment_method_id,omitempty"`
	DeliveryMethodID   *string                  `json:"delivery_method_id,omitempty"`
	DeliverySlotID     *string                  `json:"delivery_slot_id,omitempty"`
	TotalAmount        int64                    `json:"total_amount"`
	ShippingFee        int64                    `json:"shipping_fee"`
	DiscountAmount     int64                    `json:"discount_amount"`
	BillingAmount      int64                    `json:"billing_amount"`
	DesiredArrivalDate *time.Time               `json:"desired_arrival_date,omitempty"`
	Memo               *string                  `json:"memo,omitempty"`
	ShippingAddress    addressRequest           `json:"shipping_address"`
	Items              []createOrderItemRequest `json:"items"`
}

type addressRequest struct {
	Name        string `json:"name"`
	PostalCode  string `json:"postal_code"`
	Prefecture  string `json:"prefecture"`
	AddressLine string `json:"address_line"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.UserID == "" || req.SiteID == "" || req.ShopID == "" {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "user_id, site_id, and shop_id are required")
		return
	}
	if len(req.Items) == 0 {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "at least one item is required")
		return
	}
	for _, item := range req.Items {
		if item.ProductID == "" || item.Quantity <= 0 {
			httpx.WriteError(w, h.logger, http.StatusBadRequest, "each item needs a product_id and a positive quantity")
			return
		}
	}

	in := CreateOrderInput{
		UserID:             req.UserID,
		SiteID:             req.SiteID,
		ShopID:             req.ShopID,
		PaymentMethodID:    req.PaymentMethodID,
		DeliveryMethodID:   req.DeliveryMethodID,
		DeliverySlotID:     req.DeliverySlotID,
		TotalAmount:        req.TotalAmount,
		ShippingFee:        req.ShippingFee,
		DiscountAmount:     req.DiscountAmount,
		BillingAmount:      req.BillingAmount,
		DesiredArrivalDate: req.DesiredArrivalDate,
		Memo:               req.Memo,
		Address: AddressInput{
			Name:        req.ShippingAddress.Name,
			PostalCode:  req.ShippingAddress.PostalCode,
			Prefecture:  req.ShippingAddress.Prefecture,
			AddressLine: req.ShippingAddress.AddressLine,
		},
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, ItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Memo:      item.Memo,
		})
	}

	order, err := h.repo.Create(r.Context(), in)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	if h.producer != nil {
		event := domain.OrderCreatedEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			UserID:        order.UserID,
			Items:         order.Items,
			BillingAmount: order.BillingAmount,
			Timestamp:     order.CreatedAt,
		}
		if err := h.producer.Publish(r.Context(), messaging.TopicOrderCreated, order.ID, event); err != nil {
			h.logger.Error("failed to publish order created event", "error", err, "order_id", order.ID)
		}
	}

	h.logger.Info("order created", "order_id", order.ID, "order_number", order.OrderNumber)
	httpx.WriteJSON(w, h.logger, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	if order == nil {
		httpx.WriteError(w, h.logger, http.StatusNotFound, "order not found")
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Status: domain.OrderStatus(r.URL.Query().Get("status")),
		UserID: r.URL.Query().Get("user_id"),
		ShopID: r.URL.Query().Get("shop_id"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "unknown status filter")
		return
	}

	orders, err := h.repo.List(r.Context(), filter)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, orders)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	order, event, err := h.repo.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	if h.producer != nil && event != nil {
		if err := h.producer.Publish(r.Context(), messaging.TopicOrderStatusChanged, order.ID, event); err != nil {
			h.logger.Error("failed to publish status changed event", "error", err, "order_id", order.ID)
		}
	}

	h.logger.Info("order status updated", "order_id", order.ID, "status", order.Status)
	httpx.WriteJSON(w, h.logger, http.StatusOK, order)
}

type updateOrderRequest struct {
	DesiredArrivalDate *time.Time `json:"desired_arrival_date,omitempty"`
	Memo               *string    `json:"memo,omitempty"`
	ShippingFee        *int64     `json:"shipping_fee,omitempty"`
	DiscountAmount     *int64     `json:"discount_amount,omitempty"`
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.repo.Update(r.Context(), id, UpdateOrderInput{
		DesiredArrivalDate: req.DesiredArrivalDate,
		Memo:               req.Memo,
		ShippingFee:        req.ShippingFee,
		DiscountAmount:     req.DiscountAmount,
	})
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.repo.Delete(r.Context(), id); err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	h.logger.Info("order deleted", "order_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleStatusLog(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	logs, err := h.repo.StatusLog(r.Context(), id)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, logs)
}
