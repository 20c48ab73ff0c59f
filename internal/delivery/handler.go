package delivery

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kfujiwara/orderdesk/internal/httpx"
)

type Handler struct {
	repo   *Repository
	logger *slog.Logger
}

func NewHandler(repo *Repository, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
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

	method, err := h.repo.CreateMethod(r.Context(), req.Code, req.Name)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("delivery method created", "method_id", method.ID, "code", method.Code)
	httpx.WriteJSON(w, h.logger, http.StatusCreated, method)
}

func (h *Handler) HandleGetMethod(w http.ResponseWriter, r *http.Request) {
	method, err := h.repo.GetMethodByID(r.Context(), r.PathValue("id"))
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	if method == nil {
		httpx.WriteError(w, h.logger, http.StatusNotFound, "delivery method not found")
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, method)
}

func (h *Handler) HandleGetMethodByCode(w http.ResponseWriter, r *http.Request) {
	method, err := h.repo.GetMethodByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	if method == nil {
		httpx.WriteError(w, h.logger, http.StatusNotFound, "delivery method not found")
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, method)
}

func (h *Handler) HandleListMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.repo.ListMethods(r.Context())
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

	method, err := h.repo.UpdateMethod(r.Context(), id, req.Code, req.Name)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, method)
}

func (h *Handler) HandleDeleteMethod(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.repo.DeleteMethod(r.Context(), id); err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	h.logger.Info("delivery method deleted", "method_id", id)
	w.WriteHeader(http.StatusNoContent)
}

type slotRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (h *Handler) HandleCreateSlot(w http.ResponseWriter, r *http.Request) {
	methodID := r.PathValue("id")

	var req slotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" || req.Name == "" {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "code and name are required")
		return
	}

	slot, err := h.repo.CreateSlot(r.Context(), methodID, req.Code, req.Name)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("delivery slot created", "slot_id", slot.ID, "method_id", methodID, "code", slot.Code)
	httpx.WriteJSON(w, h.logger, http.StatusCreated, slot)
}

func (h *Handler) HandleListSlots(w http.ResponseWriter, r *http.Request) {
	methodID := r.PathValue("id")

	method, err := h.repo.GetMethodByID(r.Context(), methodID)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	if method == nil {
		httpx.WriteError(w, h.logger, http.StatusNotFound, "delivery method not found")
		return
	}

	slots, err := h.repo.ListSlots(r.Context(), methodID)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, slots)
}

func (h *Handler) HandleGetSlot(w http.ResponseWriter, r *http.Request) {
	slot, err := h.repo.GetSlotByID(r.Context(), r.PathValue("id"))
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	if slot == nil {
		httpx.WriteError(w, h.logger, http.StatusNotFound, "delivery slot not found")
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, slot)
}

type updateSlotRequest struct {
	DeliveryMethodID *string `json:"delivery_method_id,omitempty"`
	Code             *string `json:"code,omitempty"`
	Name             *string `json:"name,omitempty"`
}

func (h *Handler) HandleUpdateSlot(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	slot, err := h.repo.UpdateSlot(r.Context(), id, UpdateSlotInput{
		DeliveryMethodID: req.DeliveryMethodID,
		Code:             req.Code,
		Name:             req.Name,
	})
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, slot)
}

func (h *Handler) HandleDeleteSlot(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.repo.DeleteSlot(r.Context(), id); err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	h.logger.Info("delivery slot deleted", "slot_id", id)
	w.WriteHeader(http.StatusNoContent)
}
