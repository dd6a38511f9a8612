// Package handler содержит HTTP-обработчики API сервиса quotedesk.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/quotedesk-system/internal/gateway"
	"github.com/mmeshcher/quotedesk-system/internal/middleware"
	"github.com/mmeshcher/quotedesk-system/internal/model"
	"github.com/mmeshcher/quotedesk-system/internal/pricing"
	"github.com/mmeshcher/quotedesk-system/internal/repository"
	"github.com/mmeshcher/quotedesk-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, login, password string) (int64, error)
	AuthenticateUser(ctx context.Context, login, password string) (int64, error)

	CreateCustomer(ctx context.Context, c *model.Customer) (*model.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*model.Customer, error)
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	UpdateCustomer(ctx context.Context, c *model.Customer) (*model.Customer, error)
	DeleteCustomer(ctx context.Context, id int64) error

	CreatePackage(ctx context.Context, p *model.Package) (*model.Package, error)
	GetPackage(ctx context.Context, id int64) (*model.Package, error)
	ListPackages(ctx context.Context, visibleOnly bool) ([]model.Package, error)
	UpdatePackage(ctx context.Context, p *model.Package) (*model.Package, error)
	DeletePackage(ctx context.Context, id int64) error

	CreateQuote(ctx context.Context, q *model.Quote) (*model.Quote, error)
	GetQuote(ctx context.Context, customerID, quoteID int64) (*model.Quote, error)
	ListQuotesByCustomer(ctx context.Context, customerID int64) ([]model.Quote, error)
	UpdateQuote(ctx context.Context, q *model.Quote) (*model.Quote, error)
	DeleteQuote(ctx context.Context, customerID, quoteID int64) error
	AcceptQuote(ctx context.Context, quoteID int64) (*model.Quote, error)
	RejectQuote(ctx context.Context, quoteID int64) (*model.Quote, error)
	RequestAmendment(ctx context.Context, quoteID int64) (*model.Quote, error)

	CreateOrderFromQuote(ctx context.Context, quoteID int64) (*model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	UpdateOrder(ctx context.Context, id int64, title string, status model.OrderStatus) (*model.Order, error)
	AddTask(ctx context.Context, orderID int64, text string) (*model.Order, error)
	ToggleTask(ctx context.Context, orderID int64, index int) (*model.Order, error)
	AddDiaryEntry(ctx context.Context, orderID int64, note string) (*model.DiaryEntry, error)
	GetDiaryByOrder(ctx context.Context, orderID int64) ([]model.DiaryEntry, error)

	SendInvoice(ctx context.Context, orderID int64, kind model.InvoiceKind) (*model.Order, error)
	PreviewInvoice(ctx context.Context, orderID int64, kind model.InvoiceKind) ([]byte, error)

	RecordPayment(ctx context.Context, orderID int64, pType model.PaymentType, amount decimal.Decimal, method model.PaymentMethod, reference string) (*model.Payment, error)
	GetPaymentSummary(ctx context.Context, orderID int64) (*model.PaymentSummary, error)
	CreateCheckoutSession(ctx context.Context, orderID int64, kind model.InvoiceKind) (*gateway.Session, error)
}

// Handler реализует HTTP-обработчики API сервиса quotedesk.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

// urlID извлекает числовой идентификатор из параметра маршрута.
func urlID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// invoiceKind извлекает вид счёта из параметра маршрута.
func invoiceKind(r *http.Request) (model.InvoiceKind, bool) {
	kind := model.InvoiceKind(chi.URLParam(r, "kind"))
	return kind, kind.IsValid()
}

// writeJSON сериализует ответ в JSON.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

// respondError переводит доменную ошибку в HTTP-статус.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrCustomerNotFound),
		errors.Is(err, repository.ErrPackageNotFound),
		errors.Is(err, repository.ErrQuoteNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, service.ErrTaskNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, repository.ErrQuoteNotAccepted),
		errors.Is(err, repository.ErrDuplicateOrder),
		errors.Is(err, repository.ErrCustomerHasPayments):
		http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidPaymentType),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrInvalidGuardrails),
		errors.Is(err, pricing.ErrInvalidDiscount):
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
	case errors.Is(err, service.ErrDispatchFailed):
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
	default:
		h.logger.Error("internal error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию новой учётной записи администратора.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию администратора и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}
