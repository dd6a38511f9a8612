// Package model содержит доменные сущности сервиса quotedesk.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User представляет учётную запись администратора.
type User struct {
	ID           int64
	Login        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Customer представляет клиента, для которого готовятся предложения.
type Customer struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Address   string
	Notes     string
	CreatedAt time.Time
}

// PaymentMethod описывает способ оплаты.
type PaymentMethod string

const (
	PaymentMethodDirectDebit  PaymentMethod = "direct_debit"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// IsValid сообщает, относится ли значение к известным способам оплаты.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodDirectDebit, PaymentMethodCard, PaymentMethodBankTransfer:
		return true
	}
	return false
}

// PricingGuardrails описывает ограничения тарифного пакета для помесячных планов.
type PricingGuardrails struct {
	RequireDepositMonths int             `json:"require_deposit_months"`
	MinTermMonths        int             `json:"min_term_months"`
	EarlyExitFeePct      decimal.Decimal `json:"early_exit_fee_pct"`
	OwnershipUntilPaid   bool            `json:"ownership_until_paid"`
	LateFeePct           decimal.Decimal `json:"late_fee_pct"`
	DefaultPaymentMethod PaymentMethod   `json:"default_payment_method"`
	TCsVersion           string          `json:"tcs_version"`
}

// Package представляет именованный тарифный шаблон, на который может ссылаться предложение.
type Package struct {
	ID           int64
	Name         string
	PriceOneoff  decimal.Decimal
	PriceMonthly *decimal.Decimal
	TermMonths   int
	Features     []string
	Visible      bool
	Guardrails   PricingGuardrails
	CreatedAt    time.Time
}

// QuoteStatus описывает статус предложения.
type QuoteStatus string

const (
	QuoteStatusPending        QuoteStatus = "pending"
	QuoteStatusAccepted       QuoteStatus = "accepted"
	QuoteStatusRejected       QuoteStatus = "rejected"
	QuoteStatusAmendRequested QuoteStatus = "amend_requested"
)

// IsValid сообщает, относится ли значение к известным статусам предложения.
func (s QuoteStatus) IsValid() bool {
	switch s {
	case QuoteStatusPending, QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusAmendRequested:
		return true
	}
	return false
}

// LineItem описывает одну позицию предложения.
type LineItem struct {
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Total возвращает стоимость позиции: qty × unit_price.
func (li LineItem) Total() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Qty)))
}

// Quote представляет ценовое предложение для клиента.
// Subtotal, Deposit и Balance — производные значения, пересчитываемые
// при каждом изменении позиций или переопределений.
type Quote struct {
	ID              int64
	CustomerID      int64
	Title           string
	Description     string
	Notes           string
	Items           []LineItem
	PackageID       *int64
	CustomPrice     *decimal.Decimal
	DiscountPercent decimal.Decimal
	// CustomDeposit хранит явно заданный депозит; nil означает депозит по умолчанию (50%).
	CustomDeposit *decimal.Decimal
	Subtotal      decimal.Decimal
	Deposit       decimal.Decimal
	Balance       decimal.Decimal
	Status        QuoteStatus
	OrderID       *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusActive    OrderStatus = "active"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsValid сообщает, относится ли значение к известным статусам заказа.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusActive, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Task описывает пункт чек-листа заказа.
type Task struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// DiaryEntry описывает запись в журнале заказа. Журнал только пополняется.
type DiaryEntry struct {
	ID        int64
	OrderID   int64
	Note      string
	CreatedAt time.Time
}

// Order представляет принятую в работу заявку. Финансовые поля — снимок
// предложения на момент создания заказа и не зависят от его последующих правок.
type Order struct {
	ID                int64
	SourceQuoteID     int64
	CustomerID        int64
	Title             string
	Items             []LineItem
	Deposit           decimal.Decimal
	Balance           decimal.Decimal
	Status            OrderStatus
	Tasks             []Task
	DepositInvoiced   bool
	DepositInvoicedAt *time.Time
	BalanceInvoiced   bool
	BalanceInvoicedAt *time.Time
	CreatedAt         time.Time
}

// InvoiceKind описывает транш, по которому выставляется счёт.
type InvoiceKind string

const (
	InvoiceKindDeposit InvoiceKind = "deposit"
	InvoiceKindBalance InvoiceKind = "balance"
)

// IsValid сообщает, относится ли значение к известным видам счёта.
func (k InvoiceKind) IsValid() bool {
	return k == InvoiceKindDeposit || k == InvoiceKindBalance
}

// PaymentType описывает транш, к которому относится платёж.
type PaymentType string

const (
	PaymentTypeDeposit PaymentType = "deposit"
	PaymentTypeBalance PaymentType = "balance"
)

// IsValid сообщает, относится ли значение к известным типам платежа.
func (t PaymentType) IsValid() bool {
	return t == PaymentTypeDeposit || t == PaymentTypeBalance
}

// Payment описывает факт получения денег по заказу. Записи не изменяются и не удаляются.
type Payment struct {
	ID        int64
	OrderID   int64
	Type      PaymentType
	Amount    decimal.Decimal
	Method    PaymentMethod
	Reference string
	CreatedAt time.Time
}

// PaymentSummary содержит агрегаты по платежам заказа, всегда
// пересчитываемые по журналу платежей.
type PaymentSummary struct {
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Payments    []Payment       `json:"payments"`
}
