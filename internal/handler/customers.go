package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/quotedesk-system/internal/model"
)

type customerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

type customerResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

func toCustomerResponse(c *model.Customer) customerResponse {
	return customerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt,
	}
}

// ListCustomers возвращает список клиентов.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.service.ListCustomers(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	resp := make([]customerResponse, 0, len(customers))
	for i := range customers {
		resp = append(resp, toCustomerResponse(&customers[i]))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// CreateCustomer создаёт нового клиента.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	customer, err := h.service.CreateCustomer(r.Context(), &model.Customer{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Notes:   req.Notes,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toCustomerResponse(customer))
}

// GetCustomer возвращает клиента по идентификатору.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "customerID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	customer, err := h.service.GetCustomer(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toCustomerResponse(customer))
}

// UpdateCustomer изменяет карточку клиента.
func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "customerID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	customer, err := h.service.UpdateCustomer(r.Context(), &model.Customer{
		ID:      id,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Notes:   req.Notes,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toCustomerResponse(customer))
}

// DeleteCustomer удаляет клиента вместе с его предложениями и заказами.
// Клиент с платёжной историей удалению не подлежит.
func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "customerID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteCustomer(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type packageRequest struct {
	Name         string                  `json:"name"`
	PriceOneoff  decimal.Decimal         `json:"price_oneoff"`
	PriceMonthly *decimal.Decimal        `json:"price_monthly,omitempty"`
	TermMonths   int                     `json:"term_months"`
	Features     []string                `json:"features"`
	Visible      bool                    `json:"visible"`
	Guardrails   model.PricingGuardrails `json:"guardrails"`
}

type packageResponse struct {
	ID           int64                   `json:"id"`
	Name         string                  `json:"name"`
	PriceOneoff  decimal.Decimal         `json:"price_oneoff"`
	PriceMonthly *decimal.Decimal        `json:"price_monthly,omitempty"`
	TermMonths   int                     `json:"term_months"`
	Features     []string                `json:"features"`
	Visible      bool                    `json:"visible"`
	Guardrails   model.PricingGuardrails `json:"guardrails"`
	CreatedAt    time.Time               `json:"created_at"`
}

func toPackageResponse(p *model.Package) packageResponse {
	return packageResponse{
		ID:           p.ID,
		Name:         p.Name,
		PriceOneoff:  p.PriceOneoff,
		PriceMonthly: p.PriceMonthly,
		TermMonths:   p.TermMonths,
		Features:     p.Features,
		Visible:      p.Visible,
		Guardrails:   p.Guardrails,
		CreatedAt:    p.CreatedAt,
	}
}

func (req *packageRequest) toModel(id int64) *model.Package {
	return &model.Package{
		ID:           id,
		Name:         req.Name,
		PriceOneoff:  req.PriceOneoff,
		PriceMonthly: req.PriceMonthly,
		TermMonths:   req.TermMonths,
		Features:     req.Features,
		Visible:      req.Visible,
		Guardrails:   req.Guardrails,
	}
}

// ListPackages возвращает список тарифных пакетов. Параметр visible=true
// ограничивает выдачу видимыми пакетами.
func (h *Handler) ListPackages(w http.ResponseWriter, r *http.Request) {
	visibleOnly := r.URL.Query().Get("visible") == "true"

	packages, err := h.service.ListPackages(r.Context(), visibleOnly)
	if err != nil {
		h.respondError(w, err)
		return
	}

	resp := make([]packageResponse, 0, len(packages))
	for i := range packages {
		resp = append(resp, toPackageResponse(&packages[i]))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// CreatePackage создаёт тарифный пакет.
func (h *Handler) CreatePackage(w http.ResponseWriter, r *http.Request) {
	var req packageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	pkg, err := h.service.CreatePackage(r.Context(), req.toModel(0))
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toPackageResponse(pkg))
}

// GetPackage возвращает тарифный пакет по идентификатору.
func (h *Handler) GetPackage(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "packageID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	pkg, err := h.service.GetPackage(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toPackageResponse(pkg))
}

// UpdatePackage изменяет тарифный пакет. Существующие предложения хранят
// снимок цены и правок пакета не замечают.
func (h *Handler) UpdatePackage(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "packageID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req packageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	pkg, err := h.service.UpdatePackage(r.Context(), req.toModel(id))
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toPackageResponse(pkg))
}

// DeletePackage удаляет тарифный пакет.
func (h *Handler) DeletePackage(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "packageID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.DeletePackage(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
