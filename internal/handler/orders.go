package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/quotedesk-system/internal/model"
)

type orderResponse struct {
	ID                int64              `json:"id"`
	SourceQuoteID     int64              `json:"source_quote_id"`
	CustomerID        int64              `json:"customer_id"`
	Title             string             `json:"title"`
	Items             []lineItemResponse `json:"items"`
	Deposit           decimal.Decimal    `json:"deposit"`
	Balance           decimal.Decimal    `json:"balance"`
	Status            model.OrderStatus  `json:"status"`
	Tasks             []model.Task       `json:"tasks"`
	DepositInvoiced   bool               `json:"deposit_invoiced"`
	DepositInvoicedAt *time.Time         `json:"deposit_invoiced_at,omitempty"`
	BalanceInvoiced   bool               `json:"balance_invoiced"`
	BalanceInvoicedAt *time.Time         `json:"balance_invoiced_at,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
}

func toOrderResponse(o *model.Order) orderResponse {
	items := make([]lineItemResponse, 0, len(o.Items))
	for _, li := range o.Items {
		items = append(items, lineItemResponse{
			Name:      li.Name,
			Qty:       li.Qty,
			UnitPrice: li.UnitPrice,
			Total:     li.Total(),
		})
	}

	tasks := o.Tasks
	if tasks == nil {
		tasks = []model.Task{}
	}

	return orderResponse{
		ID:                o.ID,
		SourceQuoteID:     o.SourceQuoteID,
		CustomerID:        o.CustomerID,
		Title:             o.Title,
		Items:             items,
		Deposit:           o.Deposit,
		Balance:           o.Balance,
		Status:            o.Status,
		Tasks:             tasks,
		DepositInvoiced:   o.DepositInvoiced,
		DepositInvoicedAt: o.DepositInvoicedAt,
		BalanceInvoiced:   o.BalanceInvoiced,
		BalanceInvoicedAt: o.BalanceInvoicedAt,
		CreatedAt:         o.CreatedAt,
	}
}

// CreateOrderFromQuote создаёт заказ из принятого предложения.
// Повторный вызов возвращает уже существующий заказ.
func (h *Handler) CreateOrderFromQuote(w http.ResponseWriter, r *http.Request) {
	quoteID, ok := urlID(r, "quoteID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.CreateOrderFromQuote(r.Context(), quoteID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// GetOrder возвращает заказ по идентификатору.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(r, "orderID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

type orderUpdateRequest struct {
	Title  string            `json:"title"`
	Status model.OrderStatus `json:"status"`
}

// UpdateOrder изменяет название и статус заказа. Финансовый снимок
// при этом не пересчитывается.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(r, "orderID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req orderUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.UpdateOrder(r.Context(), orderID, req.Title, req.Status)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

type taskRequest struct {
	Text  string `json:"text,omitempty"`
	Index *int   `json:"index,omitempty"`
}

// PostTask добавляет пункт чек-листа, либо переключает существующий по индексу.
func (h *Handler) PostTask(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(r, "orderID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var (
		order *model.Order
		err   error
	)
	switch {
	case req.Index != nil:
		order, err = h.service.ToggleTask(r.Context(), orderID, *req.Index)
	case req.Text != "":
		order, err = h.service.AddTask(r.Context(), orderID, req.Text)
	default:
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

type diaryRequest struct {
	Note string `json:"note"`
}

type diaryEntryResponse struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// PostDiaryEntry добавляет запись в журнал заказа.
func (h *Handler) PostDiaryEntry(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(r, "orderID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req diaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.Note == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	entry, err := h.service.AddDiaryEntry(r.Context(), orderID, req.Note)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, diaryEntryResponse{
		ID:        entry.ID,
		OrderID:   entry.OrderID,
		Note:      entry.Note,
		CreatedAt: entry.CreatedAt,
	})
}

// GetDiary возвращает журнал заказа в хронологическом порядке.
func (h *Handler) GetDiary(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(r, "orderID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	entries, err := h.service.GetDiaryByOrder(r.Context(), orderID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	resp := make([]diaryEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, diaryEntryResponse{
			ID:        e.ID,
			OrderID:   e.OrderID,
			Note:      e.Note,
			CreatedAt: e.CreatedAt,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// SendInvoice отправляет счёт по траншу и помечает заказ выставленным.
func (h *Handler) SendInvoice(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(r, "orderID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	kind, ok := invoiceKind(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.SendInvoice(r.Context(), orderID, kind)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// PreviewInvoice возвращает PDF-представление счёта без отправки.
func (h *Handler) PreviewInvoice(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(r, "orderID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	kind, ok := invoiceKind(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	pdf, err := h.service.PreviewInvoice(r.Context(), orderID, kind)
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		h.logger.Error("write pdf error", zap.Error(err))
	}
}

type paymentRequest struct {
	Type      model.PaymentType   `json:"type"`
	Amount    decimal.Decimal     `json:"amount"`
	Method    model.PaymentMethod `json:"method"`
	Reference string              `json:"reference"`
}

type paymentResponse struct {
	ID        int64               `json:"id"`
	OrderID   int64               `json:"order_id"`
	Type      model.PaymentType   `json:"type"`
	Amount    decimal.Decimal     `json:"amount"`
	Method    model.PaymentMethod `json:"method"`
	Reference string              `json:"reference"`
	CreatedAt time.Time           `json:"created_at"`
}

func toPaymentResponse(p *model.Payment) paymentResponse {
	return paymentResponse{
		ID:        p.ID,
		OrderID:   p.OrderID,
		Type:      p.Type,
		Amount:    p.Amount,
		Method:    p.Method,
		Reference: p.Reference,
		CreatedAt: p.CreatedAt,
	}
}

type paymentSummaryResponse struct {
	Paid        decimal.Decimal   `json:"paid"`
	Outstanding decimal.Decimal   `json:"outstanding"`
	Payments    []paymentResponse `json:"payments"`
}

// RecordPayment фиксирует платёж по заказу.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(r, "orderID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	payment, err := h.service.RecordPayment(r.Context(), orderID, req.Type, req.Amount, req.Method, req.Reference)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toPaymentResponse(payment))
}

// GetPaymentSummary возвращает журнал платежей заказа с агрегатами.
func (h *Handler) GetPaymentSummary(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(r, "orderID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	summary, err := h.service.GetPaymentSummary(r.Context(), orderID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	payments := make([]paymentResponse, 0, len(summary.Payments))
	for i := range summary.Payments {
		payments = append(payments, toPaymentResponse(&summary.Payments[i]))
	}

	h.writeJSON(w, http.StatusOK, paymentSummaryResponse{
		Paid:        summary.Paid,
		Outstanding: summary.Outstanding,
		Payments:    payments,
	})
}

type checkoutRequest struct {
	Kind model.InvoiceKind `json:"kind"`
}

type checkoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// CreateCheckoutSession создаёт платёжную сессию по траншу заказа.
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlID(r, "orderID")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if !req.Kind.IsValid() {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	session, err := h.service.CreateCheckoutSession(r.Context(), orderID, req.Kind)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, checkoutResponse{
		SessionID: session.ID,
		URL:       session.URL,
	})
}
