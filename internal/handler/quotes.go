package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/quotedesk-system/internal/model"
)

type lineItemPayload struct {
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type lineItemResponse struct {
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

type quoteRequest struct {
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Notes           string           `json:"notes"`
	Items           []lineItemPayload `json:"items"`
	PackageID       *int64           `json:"package_id,omitempty"`
	CustomPrice     *decimal.Decimal `json:"custom_price,omitempty"`
	DiscountPercent decimal.Decimal  `json:"discount_percent"`
	CustomDeposit   *decimal.Decimal `json:"custom_deposit,omitempty"`
}

type quoteResponse struct {
	ID              int64              `json:"id"`
	CustomerID      int64              `json:"customer_id"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	Notes           string             `json:"notes"`
	Items           []lineItemResponse `json:"items"`
	PackageID       *int64             `json:"package_id,omitempty"`
	CustomPrice     *decimal.Decimal   `json:"custom_price,omitempty"`
	DiscountPercent decimal.Decimal    `json:"discount_percent"`
	CustomDeposit   *decimal.Decimal   `json:"custom_deposit,omitempty"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	Deposit         decimal.Decimal    `json:"deposit"`
	Balance         decimal.Decimal    `json:"balance"`
	Status          model.QuoteStatus  `json:"status"`
	OrderID         *int64             `json:"order_id,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func toQuoteResponse(q *model.Quote) quoteResponse {
	items := make([]lineItemResponse, 0, len(q.Items))
	for _, li := range q.Items {
		items = append(items, lineItemResponse{
			Name:      li.Name,
			Qty:       li.Qty,
			UnitPrice: li.UnitPrice,
			Total:     li.Total(),
		})
	}

	return quoteResponse{
		ID:              q.ID,
		CustomerID:      q.CustomerID,
		Title:           q.Title,
		Description:     q.Description,
		Notes:           q.Notes,
		Items:           items,
		PackageID:       q.PackageID,
		CustomPrice:     q.CustomPrice,
		DiscountPercent: q.DiscountPercent,
		CustomDeposit:   q.CustomDeposit,
		Subtotal:        q.Subtotal,
		Deposit:         q.Deposit,
		Balance:         q.Balance,
		Status:          q.Status,
		OrderID:         q.OrderID,
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
}

func (req *quoteRequest) toModel(id, customerID int64) *model.Quote {
	items := make([]model.LineItem, 0, len(req.Items))
	for _, li := range req.Items {
		items = append(items, model.LineItem{
			Name:      li.Name,
			Qty:       li.Qty,
			UnitPrice: li.UnitPrice,
		})
	}

	return &model.Quote{
		ID:              id,
		CustomerID:      customerID,
		Title:           req.Title,
		Description:     req.Description,
		Notes:           req.Notes,
		Items:           items,
		PackageID:       req.PackageID,
		CustomPrice:     req.CustomPrice,
		DiscountPercent: req.DiscountPercent,
		CustomDeposit:   req.CustomDeposit,
	}
}

// ListQuotes возвращает предложения клиента.
func (h *Handler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	customerID, ok := urlID(r, "customerID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	quotes, err := h.service.ListQuotesByCustomer(r.Context(), customerID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	resp := make([]quoteResponse, 0, len(quotes))
	for i := range quotes {
		resp = append(resp, toQuoteResponse(&quotes[i]))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// CreateQuote создаёт новое предложение для клиента.
func (h *Handler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	customerID, ok := urlID(r, "customerID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	quote, err := h.service.CreateQuote(r.Context(), req.toModel(0, customerID))
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toQuoteResponse(quote))
}

// GetQuote возвращает предложение клиента.
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	customerID, ok := urlID(r, "customerID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	quoteID, ok := urlID(r, "quoteID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	quote, err := h.service.GetQuote(r.Context(), customerID, quoteID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toQuoteResponse(quote))
}

// UpdateQuote изменяет предложение и пересчитывает производные суммы.
func (h *Handler) UpdateQuote(w http.ResponseWriter, r *http.Request) {
	customerID, ok := urlID(r, "customerID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	quoteID, ok := urlID(r, "quoteID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	quote, err := h.service.UpdateQuote(r.Context(), req.toModel(quoteID, customerID))
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toQuoteResponse(quote))
}

// DeleteQuote удаляет предложение клиента.
func (h *Handler) DeleteQuote(w http.ResponseWriter, r *http.Request) {
	customerID, ok := urlID(r, "customerID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	quoteID, ok := urlID(r, "quoteID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteQuote(r.Context(), customerID, quoteID); err != nil {
		h.respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AcceptQuote переводит предложение в статус accepted.
func (h *Handler) AcceptQuote(w http.ResponseWriter, r *http.Request) {
	h.transitionQuote(w, r, h.service.AcceptQuote)
}

// RejectQuote переводит предложение в статус rejected.
func (h *Handler) RejectQuote(w http.ResponseWriter, r *http.Request) {
	h.transitionQuote(w, r, h.service.RejectQuote)
}

// RequestAmendment переводит предложение в статус amend_requested.
func (h *Handler) RequestAmendment(w http.ResponseWriter, r *http.Request) {
	h.transitionQuote(w, r, h.service.RequestAmendment)
}

func (h *Handler) transitionQuote(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, quoteID int64) (*model.Quote, error)) {
	quoteID, ok := urlID(r, "quoteID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	quote, err := fn(r.Context(), quoteID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toQuoteResponse(quote))
}
