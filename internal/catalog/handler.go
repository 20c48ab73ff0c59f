package catalog

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

type shopRequest struct {
	SiteID *string `json:"site_id,omitempty"`
	Code   string  `json:"code"`
	Name   string  `json:"name"`
}

func (h *Handler) HandleCreateShop(w http.ResponseWriter, r *http.Request) {
	var req shopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" || req.Name == "" {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "code and name are required")
		return
	}

	shop, err := h.repo.CreateShop(r.Context(), req.SiteID, req.Code, req.Name)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("shop created", "shop_id", shop.ID, "code", shop.Code)
	httpx.WriteJSON(w, h.logger, http.StatusCreated, shop)
}

func (h *Handler) HandleGetShop(w http.ResponseWriter, r *http.Request) {
	shop, err := h.repo.GetShopByID(r.Context(), r.PathValue("id"))
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	if shop == nil {
		httpx.WriteError(w, h.logger, http.StatusNotFound, "shop not found")
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, shop)
}

func (h *Handler) HandleGetShopByCode(w http.ResponseWriter, r *http.Request) {
	shop, err := h.repo.GetShopByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	if shop == nil {
		httpx.WriteError(w, h.logger, http.StatusNotFound, "shop not found")
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, shop)
}

func (h *Handler) HandleListShops(w http.ResponseWriter, r *http.Request) {
	shops, err := h.repo.ListShops(r.Context())
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, shops)
}

type updateShopRequest struct {
	Code *string `json:"code,omitempty"`
	Name *string `json:"name,omitempty"`
}

func (h *Handler) HandleUpdateShop(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateShopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	shop, err := h.repo.UpdateShop(r.Context(), id, req.Code, req.Name)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, shop)
}

func (h *Handler) HandleDeleteShop(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.repo.DeleteShop(r.Context(), id); err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	h.logger.Info("shop deleted", "shop_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.ListProducts(r.Context())
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, products)
}

func (h *Handler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.repo.GetProductByID(r.Context(), r.PathValue("id"))
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	if product == nil {
		httpx.WriteError(w, h.logger, http.StatusNotFound, "product not found")
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, product)
}

func (h *Handler) HandleGetSite(w http.ResponseWriter, r *http.Request) {
	site, err := h.repo.GetSiteByID(r.Context(), r.PathValue("id"))
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	if site == nil {
		httpx.WriteError(w, h.logger, http.StatusNotFound, "site not found")
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, site)
}

func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.repo.GetUserByID(r.Context(), r.PathValue("id"))
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	if user == nil {
		httpx.WriteError(w, h.logger, http.StatusNotFound, "user not found")
		return
	}
	httpx.WriteJSON(w, h.logger, http.StatusOK, user)
}
