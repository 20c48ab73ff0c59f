package payments

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kfujiwara/orderdesk/internal/domain"
	"github.com/kfujiwara/orderdesk/internal/httpx"
)

type Handler struct {
	payments *PaymentRepository
	methods  *MethodRepository
	logger   *slog.Logger
}

func NewHandler(payments *PaymentRepository, methods *MethodRepository, logger *slog.Logger) *Handler {
	return &Handler{payments: payments, methods: methods, logger: logger}
}

type createPaymentRequest struct {
	OrderID       string `json:"order_id"`
	PaymentAmount int64  `json:"payment_amount"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID == "" {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "order_id is required")
		return
	}

	payment, err := h.payments.Create(r.Context(), CreatePaymentInput{
		OrderID:       req.OrderID,
		PaymentAmount: req.PaymentAmount,
	})
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("payment created", "payment_id", payment.ID, "order_id", payment.OrderID)
	httpx.WriteJSON(w, h.logger, http.StatusCreated, payment)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	payment, err := h.payments.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	if payment == nil {
		httpx.WriteError(w, h.logger, http.StatusNotFound, "payment not found")
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, payment)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		OrderID: r.URL.Query().Get("order_id"),
		Status:  domain.PaymentStatus(r.URL.Query().Get("status")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "unknown status filter")
		return
	}

	payments, err := h.payments.List(r.Context(), filter)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, payments)
}

type updatePaymentStatusRequest struct {
	Status        domain.PaymentStatus `json:"status"`
	TransactionID *string              `json:"transaction_id,omitempty"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updatePaymentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	payment, err := h.payments.UpdateStatus(r.Context(), id, req.Status, req.TransactionID)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("payment status updated", "payment_id", payment.ID, "status", payment.PaymentStatus)
	httpx.WriteJSON(w, h.logger, http.StatusOK, payment)
}

func (h *Handler) HandleRefund(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	payment, err := h.payments.Refund(r.Context(), id)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("payment refunded", "payment_id", payment.ID)
	httpx.WriteJSON(w, h.logger, http.StatusOK, payment)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.payments.Delete(r.Context(), id); err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	h.logger.Info("payment deleted", "payment_id", id)
	w.WriteHeader(http.StatusNoContent)
}

type methodRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (h *Handler) HandleCreateMethod(w http.ResponseWriter, r *http.Request) {
	var req methodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" || req.Name == "" {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "code and name are required")
		return
	}

	method, err := h.methods.Create(r.Context(), req.Code, req.Name)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("payment method created", "method_id", method.ID, "code", method.Code)
	httpx.WriteJSON(w, h.logger, http.StatusCreated, method)
}

func (h *Handler) HandleGetMethod(w http.ResponseWriter, r *http.Request) {
	method, err := h.methods.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	if method == nil {
		httpx.WriteError(w, h.logger, http.StatusNotFound, "payment method not found")
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, method)
}

func (h *Handler) HandleGetMethodByCode(w http.ResponseWriter, r *http.Request) {
	method, err := h.methods.GetByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	if method == nil {
		httpx.WriteError(w, h.logger, http.StatusNotFound, "payment method not found")
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, method)
}

func (h *Handler) HandleListMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.methods.List(r.Context())
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, methods)
}

type updateMethodRequest struct {
	Code *string `json:"code,omitempty"`
	Name *string `json:"name,omitempty"`
}

func (h *Handler) HandleUpdateMethod(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	method, err := h.methods.Update(r.Context(), id, req.Code, req.Name)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, method)
}

func (h *Handler) HandleDeleteMethod(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.methods.Delete(r.Context(), id); err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	h.logger.Info("payment method deleted", "method_id", id)
	w.WriteHeader(http.StatusNoContent)
}
