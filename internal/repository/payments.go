package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/quotedesk-system/internal/model"
)

// CreatePayment добавляет запись о полученном платеже. Журнал платежей
// только пополняется: записи не изменяются и не удаляются.
func (r *PostgresRepository) CreatePayment(ctx context.Context, p *model.Payment) (*model.Payment, error) {
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO payments (order_id, type, amount, method, reference)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, created_at`,
			p.OrderID, string(p.Type), p.Amount, string(p.Method), p.Reference,
		).Scan(&p.ID, &p.CreatedAt)
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	return p, nil
}

// GetPaymentsByOrder возвращает платежи по заказу в хронологическом порядке.
func (r *PostgresRepository) GetPaymentsByOrder(ctx context.Context, orderID int64) ([]model.Payment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, type, amount, method, reference, created_at
		 FROM payments
		 WHERE order_id = $1
		 ORDER BY created_at`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("select payments: %w", err)
	}
	defer rows.Close()

	var res []model.Payment
	for rows.Next() {
		var (
			p      model.Payment
			pType  string
			method string
		)
		if err := rows.Scan(&p.ID, &p.OrderID, &pType, &p.Amount, &method, &p.Reference, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.Type = model.PaymentType(pType)
		p.Method = model.PaymentMethod(method)
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetPaidTotal возвращает сумму всех платежей по заказу,
// пересчитанную по журналу, а не хранимую отдельно.
func (r *PostgresRepository) GetPaidTotal(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	var paid decimal.Decimal
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE order_id = $1`,
		orderID,
	).Scan(&paid)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum payments: %w", err)
	}

	return paid, nil
}
