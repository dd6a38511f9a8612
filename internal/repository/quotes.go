package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/quotedesk-system/internal/model"
)

const quoteColumns = `id, customer_id, title, description, notes, items, package_id,
	custom_price, discount_percent, custom_deposit, subtotal, deposit, balance,
	status, order_id, created_at, updated_at`

func scanQuote(row pgx.Row) (*model.Quote, error) {
	var (
		q             model.Quote
		itemsJSON     []byte
		customPrice   decimal.NullDecimal
		customDeposit decimal.NullDecimal
		status        string
	)

	err := row.Scan(
		&q.ID, &q.CustomerID, &q.Title, &q.Description, &q.Notes, &itemsJSON, &q.PackageID,
		&customPrice, &q.DiscountPercent, &customDeposit, &q.Subtotal, &q.Deposit, &q.Balance,
		&status, &q.OrderID, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	q.CustomPrice = decimalPtr(customPrice)
	q.CustomDeposit = decimalPtr(customDeposit)
	q.Status = model.QuoteStatus(status)

	if err := json.Unmarshal(itemsJSON, &q.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}

	return &q, nil
}

// CreateQuote создаёт предложение для клиента в статусе pending.
func (r *PostgresRepository) CreateQuote(ctx context.Context, q *model.Quote) (*model.Quote, error) {
	itemsJSON, err := json.Marshal(q.Items)
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO quotes
		     (customer_id, title, description, notes, items, package_id, custom_price,
		      discount_percent, custom_deposit, subtotal, deposit, balance, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id, created_at, updated_at`,
		q.CustomerID, q.Title, q.Description, q.Notes, itemsJSON, q.PackageID,
		nullDecimal(q.CustomPrice), q.DiscountPercent, nullDecimal(q.CustomDeposit),
		q.Subtotal, q.Deposit, q.Balance, string(model.QuoteStatusPending),
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create quote: %w", err)
	}

	q.Status = model.QuoteStatusPending
	return q, nil
}

// GetQuote возвращает предложение по идентификатору.
func (r *PostgresRepository) GetQuote(ctx context.Context, id int64) (*model.Quote, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+quoteColumns+` FROM quotes WHERE id = $1`,
		id,
	)

	q, err := scanQuote(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuoteNotFound
		}
		return nil, fmt.Errorf("get quote: %w", err)
	}

	return q, nil
}

// GetQuoteByCustomer возвращает предложение, принадлежащее указанному клиенту.
func (r *PostgresRepository) GetQuoteByCustomer(ctx context.Context, customerID, quoteID int64) (*model.Quote, error) {
	q, err := r.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if q.CustomerID != customerID {
		return nil, ErrQuoteNotFound
	}
	return q, nil
}

// ListQuotesByCustomer возвращает предложения клиента в порядке создания.
func (r *PostgresRepository) ListQuotesByCustomer(ctx context.Context, customerID int64) ([]model.Quote, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+quoteColumns+`
		 FROM quotes
		 WHERE customer_id = $1
		 ORDER BY created_at DESC`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select quotes: %w", err)
	}
	defer rows.Close()

	var res []model.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		res = append(res, *q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateQuote обновляет содержимое предложения. Поле order_id этим путём
// не изменяется: оно устанавливается единожды при создании заказа.
func (r *PostgresRepository) UpdateQuote(ctx context.Context, q *model.Quote) (*model.Quote, error) {
	itemsJSON, err := json.Marshal(q.Items)
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}

	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE quotes
		 SET title = $2, description = $3, notes = $4, items = $5, package_id = $6,
		     custom_price = $7, discount_percent = $8, custom_deposit = $9,
		     subtotal = $10, deposit = $11, balance = $12, status = $13, updated_at = now()
		 WHERE id = $1`,
		q.ID, q.Title, q.Description, q.Notes, itemsJSON, q.PackageID,
		nullDecimal(q.CustomPrice), q.DiscountPercent, nullDecimal(q.CustomDeposit),
		q.Subtotal, q.Deposit, q.Balance, string(q.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("update quote: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, ErrQuoteNotFound
	}

	return r.GetQuote(ctx, q.ID)
}

// UpdateQuoteStatus переводит предложение в указанный статус.
func (r *PostgresRepository) UpdateQuoteStatus(ctx context.Context, id int64, status model.QuoteStatus) (*model.Quote, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE quotes SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("update quote status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, ErrQuoteNotFound
	}

	return r.GetQuote(ctx, id)
}

// DeleteQuote удаляет предложение клиента.
func (r *PostgresRepository) DeleteQuote(ctx context.Context, customerID, quoteID int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM quotes WHERE id = $1 AND customer_id = $2`,
		quoteID, customerID,
	)
	if err != nil {
		return fmt.Errorf("delete quote: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrQuoteNotFound
	}
	return nil
}
