package shipments

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kfujiwara/orderdesk/internal/domain"
	"github.com/kfujiwara/orderdesk/internal/httpx"
)

type Handler struct {
	shipments *ShipmentRepository
	addresses *AddressRepository
	logger    *slog.Logger
}

func NewHandler(shipments *ShipmentRepository, addresses *AddressRepository, logger *slog.Logger) *Handler {
	return &Handler{shipments: shipments, addresses: addresses, logger: logger}
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	shipment, err := h.shipments.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	if shipment == nil {
		httpx.WriteError(w, h.logger, http.StatusNotFound, "shipment not found")
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, shipment)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		OrderID: r.URL.Query().Get("order_id"),
		Status:  domain.ShippingStatus(r.URL.Query().Get("status")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "unknown status filter")
		return
	}

	shipments, err := h.shipments.List(r.Context(), filter)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, shipments)
}

type updateShipmentStatusRequest struct {
	Status         domain.ShippingStatus `json:"status"`
	TrackingNumber *string               `json:"tracking_number,omitempty"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateShipmentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	shipment, err := h.shipments.UpdateStatus(r.Context(), id, req.Status, req.TrackingNumber)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("shipment status updated", "shipment_id", shipment.ID, "status", shipment.ShippingStatus)
	httpx.WriteJSON(w, h.logger, http.StatusOK, shipment)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.shipments.Delete(r.Context(), id); err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	h.logger.Info("shipment deleted", "shipment_id", id)
	w.WriteHeader(http.StatusNoContent)
}

type addressRequest struct {
	Name        string `json:"name"`
	PostalCode  string `json:"postal_code"`
	Prefecture  string `json:"prefecture"`
	AddressLine string `json:"address_line"`
}

func (h *Handler) HandleCreateAddress(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.PostalCode == "" || req.AddressLine == "" {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "name, postal_code, and address_line are required")
		return
	}

	address, err := h.addresses.Create(r.Context(), AddressInput{
		Name:        req.Name,
		PostalCode:  req.PostalCode,
		Prefecture:  req.Prefecture,
		AddressLine: req.AddressLine,
	})
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("shipping address created", "address_id", address.ID)
	httpx.WriteJSON(w, h.logger, http.StatusCreated, address)
}

func (h *Handler) HandleGetAddress(w http.ResponseWriter, r *http.Request) {
	address, err := h.addresses.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	if address == nil {
		httpx.WriteError(w, h.logger, http.StatusNotFound, "shipping address not found")
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, address)
}

func (h *Handler) HandleListAddresses(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.addresses.List(r.Context())
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, addresses)
}

type updateAddressRequest struct {
	Name        *string `json:"name,omitempty"`
	PostalCode  *string `json:"postal_code,omitempty"`
	Prefecture  *string `json:"prefecture,omitempty"`
	AddressLine *string `json:"address_line,omitempty"`
}

func (h *Handler) HandleUpdateAddress(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	address, err := h.addresses.Update(r.Context(), id, UpdateAddressInput{
		Name:        req.Name,
		PostalCode:  req.PostalCode,
		Prefecture:  req.Prefecture,
		AddressLine: req.AddressLine,
	})
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, address)
}

func (h *Handler) HandleDeleteAddress(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.addresses.Delete(r.Context(), id); err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	h.logger.Info("shipping address deleted", "address_id", id)
	w.WriteHeader(http.StatusNoContent)
}
