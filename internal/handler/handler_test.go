package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/quotedesk-system/internal/gateway"
	"github.com/mmeshcher/quotedesk-system/internal/middleware"
	"github.com/mmeshcher/quotedesk-system/internal/model"
	"github.com/mmeshcher/quotedesk-system/internal/repository"
	"github.com/mmeshcher/quotedesk-system/internal/service"
)

type stubService struct {
	registerUserID int64
	registerErr    error

	authUserID int64
	authErr    error

	customerResp  *model.Customer
	customersResp []model.Customer
	customerErr   error

	packageResp  *model.Package
	packagesResp []model.Package
	packageErr   error

	quoteResp  *model.Quote
	quotesResp []model.Quote
	quoteErr   error

	orderResp *model.Order
	orderErr  error

	diaryEntryResp *model.DiaryEntry
	diaryResp      []model.DiaryEntry
	diaryErr       error

	invoicePDF []byte
	invoiceErr error

	paymentResp *model.Payment
	summaryResp *model.PaymentSummary
	paymentErr  error

	sessionResp *gateway.Session
	sessionErr  error
}

func (s *stubService) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	return s.registerUserID, s.registerErr
}

func (s *stubService) AuthenticateUser(ctx context.Context, login, password string) (int64, error) {
	return s.authUserID, s.authErr
}

func (s *stubService) CreateCustomer(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	return s.customerResp, s.customerErr
}

func (s *stubService) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	return s.customerResp, s.customerErr
}

func (s *stubService) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	return s.customersResp, s.customerErr
}

func (s *stubService) UpdateCustomer(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	return s.customerResp, s.customerErr
}

func (s *stubService) DeleteCustomer(ctx context.Context, id int64) error {
	return s.customerErr
}

func (s *stubService) CreatePackage(ctx context.Context, p *model.Package) (*model.Package, error) {
	return s.packageResp, s.packageErr
}

func (s *stubService) GetPackage(ctx context.Context, id int64) (*model.Package, error) {
	return s.packageResp, s.packageErr
}

func (s *stubService) ListPackages(ctx context.Context, visibleOnly bool) ([]model.Package, error) {
	return s.packagesResp, s.packageErr
}

func (s *stubService) UpdatePackage(ctx context.Context, p *model.Package) (*model.Package, error) {
	return s.packageResp, s.packageErr
}

func (s *stubService) DeletePackage(ctx context.Context, id int64) error {
	return s.packageErr
}

func (s *stubService) CreateQuote(ctx context.Context, q *model.Quote) (*model.Quote, error) {
	return s.quoteResp, s.quoteErr
}

func (s *stubService) GetQuote(ctx context.Context, customerID, quoteID int64) (*model.Quote, error) {
	return s.quoteResp, s.quoteErr
}

func (s *stubService) ListQuotesByCustomer(ctx context.Context, customerID int64) ([]model.Quote, error) {
	return s.quotesResp, s.quoteErr
}

func (s *stubService) UpdateQuote(ctx context.Context, q *model.Quote) (*model.Quote, error) {
	return s.quoteResp, s.quoteErr
}

func (s *stubService) DeleteQuote(ctx context.Context, customerID, quoteID int64) error {
	return s.quoteErr
}

func (s *stubService) AcceptQuote(ctx context.Context, quoteID int64) (*model.Quote, error) {
	return s.quoteResp, s.quoteErr
}

func (s *stubService) RejectQuote(ctx context.Context, quoteID int64) (*model.Quote, error) {
	return s.quoteResp, s.quoteErr
}

func (s *stubService) RequestAmendment(ctx context.Context, quoteID int64) (*model.Quote, error) {
	return s.quoteResp, s.quoteErr
}

func (s *stubService) CreateOrderFromQuote(ctx context.Context, quoteID int64) (*model.Order, error) {
	return s.orderResp, s.orderErr
}

func (s *stubService) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	return s.orderResp, s.orderErr
}

func (s *stubService) UpdateOrder(ctx context.Context, id int64, title string, status model.OrderStatus) (*model.Order, error) {
	return s.orderResp, s.orderErr
}

func (s *stubService) AddTask(ctx context.Context, orderID int64, text string) (*model.Order, error) {
	return s.orderResp, s.orderErr
}

func (s *stubService) ToggleTask(ctx context.Context, orderID int64, index int) (*model.Order, error) {
	return s.orderResp, s.orderErr
}

func (s *stubService) AddDiaryEntry(ctx context.Context, orderID int64, note string) (*model.DiaryEntry, error) {
	return s.diaryEntryResp, s.diaryErr
}

func (s *stubService) GetDiaryByOrder(ctx context.Context, orderID int64) ([]model.DiaryEntry, error) {
	return s.diaryResp, s.diaryErr
}

func (s *stubService) SendInvoice(ctx context.Context, orderID int64, kind model.InvoiceKind) (*model.Order, error) {
	return s.orderResp, s.invoiceErr
}

func (s *stubService) PreviewInvoice(ctx context.Context, orderID int64, kind model.InvoiceKind) ([]byte, error) {
	return s.invoicePDF, s.invoiceErr
}

func (s *stubService) RecordPayment(ctx context.Context, orderID int64, pType model.PaymentType, amount decimal.Decimal, method model.PaymentMethod, reference string) (*model.Payment, error) {
	return s.paymentResp, s.paymentErr
}

func (s *stubService) GetPaymentSummary(ctx context.Context, orderID int64) (*model.PaymentSummary, error) {
	return s.summaryResp, s.paymentErr
}

func (s *stubService) CreateCheckoutSession(ctx context.Context, orderID int64, kind model.InvoiceKind) (*gateway.Session, error) {
	return s.sessionResp, s.sessionErr
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware("test-secret")

	return NewHandler(svc, logger, auth)
}

// doAuthed выполняет запрос через роутер с установленной auth-cookie.
func doAuthed(t *testing.T, h *Handler, method, target string, body []byte) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)

	cookieRec := httptest.NewRecorder()
	h.authMiddleware.SetAuthCookie(cookieRec, 1)
	req.AddCookie(cookieRec.Result().Cookies()[0])

	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)

	return rec.Result()
}

func TestRegister_Success(t *testing.T) {
	svc := &stubService{
		registerUserID: 42,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{
		Login:    "admin",
		Password: "pass",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
}

func TestRegister_Conflict(t *testing.T) {
	svc := &stubService{
		registerErr: repository.ErrUserExists,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{
		Login:    "admin",
		Password: "pass",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusConflict)
	}
}

func TestLogin_UnauthorizedOnBadCredentials(t *testing.T) {
	svc := &stubService{
		authErr: service.ErrInvalidCredentials,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{
		Login:    "admin",
		Password: "wrong",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestProtectedRoute_WithoutCookie(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/customers", nil)
	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestGetQuote_JSONWithTotals(t *testing.T) {
	svc := &stubService{
		quoteResp: &model.Quote{
			ID:         10,
			CustomerID: 1,
			Title:      "Website",
			Items: []model.LineItem{
				{Name: "Design", Qty: 1, UnitPrice: decimal.NewFromInt(500)},
				{Name: "Build", Qty: 2, UnitPrice: decimal.NewFromInt(200)},
			},
			Subtotal: decimal.NewFromInt(900),
			Deposit:  decimal.NewFromInt(450),
			Balance:  decimal.NewFromInt(450),
			Status:   model.QuoteStatusPending,
		},
	}
	h := newTestHandler(t, svc)

	res := doAuthed(t, h, http.MethodGet, "/api/customers/1/quotes/10", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}

	var resp quoteResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Subtotal.Equal(decimal.NewFromInt(900)) {
		t.Fatalf("subtotal = %s, want 900", resp.Subtotal)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(resp.Items))
	}
	if !resp.Items[1].Total.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("items[1].total = %s, want 400", resp.Items[1].Total)
	}
}

func TestGetQuote_NotFound(t *testing.T) {
	svc := &stubService{
		quoteErr: repository.ErrQuoteNotFound,
	}
	h := newTestHandler(t, svc)

	res := doAuthed(t, h, http.MethodGet, "/api/customers/1/quotes/99", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestAcceptQuote_ConflictOnTerminalStatus(t *testing.T) {
	svc := &stubService{
		quoteErr: service.ErrInvalidTransition,
	}
	h := newTestHandler(t, svc)

	res := doAuthed(t, h, http.MethodPost, "/api/quotes/10/accept", nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusConflict)
	}
}

func TestCreateOrderFromQuote_ConflictOnPending(t *testing.T) {
	svc := &stubService{
		orderErr: repository.ErrQuoteNotAccepted,
	}
	h := newTestHandler(t, svc)

	res := doAuthed(t, h, http.MethodPost, "/api/orders/from-quote/10", nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusConflict)
	}
}

func TestCreateOrderFromQuote_Created(t *testing.T) {
	svc := &stubService{
		orderResp: &model.Order{
			ID:            5,
			SourceQuoteID: 10,
			CustomerID:    1,
			Title:         "Website",
			Deposit:       decimal.NewFromInt(450),
			Balance:       decimal.NewFromInt(450),
			Status:        model.OrderStatusActive,
		},
	}
	h := newTestHandler(t, svc)

	res := doAuthed(t, h, http.MethodPost, "/api/orders/from-quote/10", nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}

	var resp orderResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SourceQuoteID != 10 {
		t.Fatalf("source_quote_id = %d, want 10", resp.SourceQuoteID)
	}
}

func TestSendInvoice_BadGatewayOnDispatchFailure(t *testing.T) {
	svc := &stubService{
		invoiceErr: service.ErrDispatchFailed,
	}
	h := newTestHandler(t, svc)

	res := doAuthed(t, h, http.MethodPost, "/api/orders/5/invoice/deposit", nil)
	if res.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadGateway)
	}
}

func TestSendInvoice_BadKind(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	res := doAuthed(t, h, http.MethodPost, "/api/orders/5/invoice/partial", nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestPreviewInvoice_PDFResponse(t *testing.T) {
	svc := &stubService{
		invoicePDF: []byte("%PDF-1.4"),
	}
	h := newTestHandler(t, svc)

	res := doAuthed(t, h, http.MethodGet, "/api/orders/5/invoice/balance", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content-type = %q, want application/pdf", ct)
	}
}

func TestRecordPayment_UnprocessableOnBadAmount(t *testing.T) {
	svc := &stubService{
		paymentErr: service.ErrInvalidAmount,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(paymentRequest{
		Type:   model.PaymentTypeDeposit,
		Amount: decimal.NewFromInt(-5),
		Method: model.PaymentMethodCard,
	})

	res := doAuthed(t, h, http.MethodPost, "/api/orders/5/payments", body)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestGetPaymentSummary_JSONResponse(t *testing.T) {
	svc := &stubService{
		summaryResp: &model.PaymentSummary{
			Paid:        decimal.NewFromInt(450),
			Outstanding: decimal.NewFromInt(450),
			Payments: []model.Payment{
				{ID: 1, OrderID: 5, Type: model.PaymentTypeDeposit, Amount: decimal.NewFromInt(450), Method: model.PaymentMethodBankTransfer, Reference: "ref-1"},
			},
		},
	}
	h := newTestHandler(t, svc)

	res := doAuthed(t, h, http.MethodGet, "/api/orders/5/payments", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp paymentSummaryResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Paid.Equal(decimal.NewFromInt(450)) {
		t.Fatalf("paid = %s, want 450", resp.Paid)
	}
	if len(resp.Payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(resp.Payments))
	}
}

func TestPostTask_NotFoundOnBadIndex(t *testing.T) {
	svc := &stubService{
		orderErr: service.ErrTaskNotFound,
	}
	h := newTestHandler(t, svc)

	idx := 7
	body, _ := json.Marshal(taskRequest{Index: &idx})

	res := doAuthed(t, h, http.MethodPost, "/api/orders/5/tasks", body)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestPostTask_EmptyBody(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	res := doAuthed(t, h, http.MethodPost, "/api/orders/5/tasks", []byte(`{}`))
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestDeleteCustomer_ConflictOnPaymentHistory(t *testing.T) {
	svc := &stubService{
		customerErr: repository.ErrCustomerHasPayments,
	}
	h := newTestHandler(t, svc)

	res := doAuthed(t, h, http.MethodDelete, "/api/customers/1", nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusConflict)
	}
}

func TestCreateCheckoutSession_Created(t *testing.T) {
	svc := &stubService{
		sessionResp: &gateway.Session{
			ID:  "sess_123",
			URL: "https://pay.example.com/sess_123",
		},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(checkoutRequest{Kind: model.InvoiceKindDeposit})

	res := doAuthed(t, h, http.MethodPost, "/api/orders/5/checkout", body)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}

	var resp checkoutResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID != "sess_123" {
		t.Fatalf("session_id = %q, want sess_123", resp.SessionID)
	}
}
