// Package service реализует движок жизненного цикла «предложение → заказ →
// счёт → платёж» сервиса quotedesk.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/quotedesk-system/internal/gateway"
	"github.com/mmeshcher/quotedesk-system/internal/model"
	"github.com/mmeshcher/quotedesk-system/internal/notifier"
)

// ErrInvalidTransition возвращается при недопустимой смене статуса.
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidAmount возвращается, если сумма платежа не положительна
	// или позиция предложения содержит недопустимые числа.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidPaymentType возвращается при неизвестном типе платежа.
	ErrInvalidPaymentType = errors.New("invalid payment type")
	// ErrInvalidPaymentMethod возвращается при неизвестном способе оплаты.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	// ErrInvalidGuardrails возвращается при недопустимых ограничениях тарифного пакета.
	ErrInvalidGuardrails = errors.New("invalid pricing guardrails")
	// ErrDispatchFailed возвращается, если сервис рассылки счетов не принял счёт.
	// Флаги заказа при этом остаются неизменными.
	ErrDispatchFailed = errors.New("invoice dispatch failed")
	// ErrTaskNotFound возвращается при обращении к несуществующему пункту чек-листа.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Repository описывает контракт доступа к данным, используемый движком.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)

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
	GetQuote(ctx context.Context, id int64) (*model.Quote, error)
	GetQuoteByCustomer(ctx context.Context, customerID, quoteID int64) (*model.Quote, error)
	ListQuotesByCustomer(ctx context.Context, customerID int64) ([]model.Quote, error)
	UpdateQuote(ctx context.Context, q *model.Quote) (*model.Quote, error)
	UpdateQuoteStatus(ctx context.Context, id int64, status model.QuoteStatus) (*model.Quote, error)
	DeleteQuote(ctx context.Context, customerID, quoteID int64) error

	CreateOrderFromQuote(ctx context.Context, quoteID int64) (*model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	UpdateOrder(ctx context.Context, id int64, title string, status model.OrderStatus) (*model.Order, error)
	UpdateOrderTasks(ctx context.Context, id int64, tasks []model.Task) (*model.Order, error)
	MarkInvoiced(ctx context.Context, id int64, kind model.InvoiceKind, at time.Time) error
	AddDiaryEntry(ctx context.Context, orderID int64, note string) (*model.DiaryEntry, error)
	GetDiaryByOrder(ctx context.Context, orderID int64) ([]model.DiaryEntry, error)

	CreatePayment(ctx context.Context, p *model.Payment) (*model.Payment, error)
	GetPaymentsByOrder(ctx context.Context, orderID int64) ([]model.Payment, error)
	GetPaidTotal(ctx context.Context, orderID int64) (decimal.Decimal, error)
}

// Notifier описывает контракт сервиса рассылки счетов.
type Notifier interface {
	SendInvoice(ctx context.Context, inv notifier.InvoiceRequest) error
	RenderInvoice(ctx context.Context, inv notifier.InvoiceRequest) ([]byte, error)
}

// Gateway описывает контракт платёжного шлюза.
type Gateway interface {
	CreateSession(ctx context.Context, sr gateway.SessionRequest) (*gateway.Session, error)
}

// Service содержит бизнес-логику движка жизненного цикла.
type Service struct {
	repo     Repository
	notifier Notifier
	gateway  Gateway
}

// NewService создаёт новый сервис с указанным репозиторием и клиентами внешних систем.
func NewService(repo Repository, n Notifier, g Gateway) *Service {
	return &Service{
		repo:     repo,
		notifier: n,
		gateway:  g,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует новую учётную запись администратора.
func (s *Service) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	hashed := hashPassword(login, password)
	id, err := s.repo.CreateUser(ctx, login, hashed)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// AuthenticateUser проверяет логин и пароль и возвращает идентификатор учётной записи.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (int64, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		return 0, err
	}

	hashed := hashPassword(login, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return 0, ErrInvalidCredentials
	}

	return u.ID, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// CreateCustomer создаёт нового клиента.
func (s *Service) CreateCustomer(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	return s.repo.CreateCustomer(ctx, c)
}

// GetCustomer возвращает клиента по идентификатору.
func (s *Service) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

// ListCustomers возвращает всех клиентов.
func (s *Service) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

// UpdateCustomer обновляет данные клиента.
func (s *Service) UpdateCustomer(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	return s.repo.UpdateCustomer(ctx, c)
}

// DeleteCustomer удаляет клиента. Удаление блокируется, если по заказам
// клиента есть платежи.
func (s *Service) DeleteCustomer(ctx context.Context, id int64) error {
	return s.repo.DeleteCustomer(ctx, id)
}

// CreatePackage создаёт тарифный пакет после проверки его ограничений.
func (s *Service) CreatePackage(ctx context.Context, p *model.Package) (*model.Package, error) {
	if err := validateGuardrails(&p.Guardrails); err != nil {
		return nil, err
	}
	return s.repo.CreatePackage(ctx, p)
}

// GetPackage возвращает тарифный пакет по идентификатору.
func (s *Service) GetPackage(ctx context.Context, id int64) (*model.Package, error) {
	return s.repo.GetPackage(ctx, id)
}

// ListPackages возвращает тарифные пакеты.
func (s *Service) ListPackages(ctx context.Context, visibleOnly bool) ([]model.Package, error) {
	return s.repo.ListPackages(ctx, visibleOnly)
}

// UpdatePackage обновляет тарифный пакет после проверки его ограничений.
func (s *Service) UpdatePackage(ctx context.Context, p *model.Package) (*model.Package, error) {
	if err := validateGuardrails(&p.Guardrails); err != nil {
		return nil, err
	}
	return s.repo.UpdatePackage(ctx, p)
}

// DeletePackage удаляет тарифный пакет.
func (s *Service) DeletePackage(ctx context.Context, id int64) error {
	return s.repo.DeletePackage(ctx, id)
}

var hundred = decimal.NewFromInt(100)

// validateGuardrails проверяет диапазоны ограничений тарифного пакета.
// Пустой способ оплаты заменяется банковским переводом.
func validateGuardrails(g *model.PricingGuardrails) error {
	if g.RequireDepositMonths < 0 || g.MinTermMonths < 0 {
		return ErrInvalidGuardrails
	}
	if g.EarlyExitFeePct.IsNegative() || g.EarlyExitFeePct.GreaterThan(hundred) {
		return ErrInvalidGuardrails
	}
	if g.LateFeePct.IsNegative() || g.LateFeePct.GreaterThan(hundred) {
		return ErrInvalidGuardrails
	}

	if g.DefaultPaymentMethod == "" {
		g.DefaultPaymentMethod = model.PaymentMethodBankTransfer
	}
	if !g.DefaultPaymentMethod.IsValid() {
		return ErrInvalidPaymentMethod
	}

	return nil
}
