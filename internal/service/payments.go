package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/quotedesk-system/internal/model"
)

// RecordPayment добавляет платёж в журнал заказа. Вся валидация выполняется
// до какой-либо записи: при ошибке журнал не изменяется.
func (s *Service) RecordPayment(ctx context.Context, orderID int64, pType model.PaymentType, amount decimal.Decimal, method model.PaymentMethod, reference string) (*model.Payment, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !pType.IsValid() {
		return nil, ErrInvalidPaymentType
	}
	if !method.IsValid() {
		return nil, ErrInvalidPaymentMethod
	}

	if reference == "" {
		reference = uuid.NewString()
	}

	return s.repo.CreatePayment(ctx, &model.Payment{
		OrderID:   orderID,
		Type:      pType,
		Amount:    amount,
		Method:    method,
		Reference: reference,
	})
}

// GetPaymentSummary возвращает агрегаты по платежам заказа. Суммы всегда
// пересчитываются по журналу платежей; outstanding не опускается ниже нуля.
func (s *Service) GetPaymentSummary(ctx context.Context, orderID int64) (*model.PaymentSummary, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	payments, err := s.repo.GetPaymentsByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	paid, err := s.repo.GetPaidTotal(ctx, orderID)
	if err != nil {
		return nil, err
	}

	outstanding := o.Deposit.Add(o.Balance).Sub(paid)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}

	return &model.PaymentSummary{
		Paid:        paid,
		Outstanding: outstanding,
		Payments:    payments,
	}, nil
}
