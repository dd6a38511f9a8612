package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/quotedesk-system/internal/model"
)

const orderColumns = `id, source_quote_id, customer_id, title, items, deposit, balance, status,
	tasks, deposit_invoiced, deposit_invoiced_at, balance_invoiced, balance_invoiced_at, created_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o         model.Order
		itemsJSON []byte
		tasksJSON []byte
		status    string
	)

	err := row.Scan(
		&o.ID, &o.SourceQuoteID, &o.CustomerID, &o.Title, &itemsJSON, &o.Deposit, &o.Balance, &status,
		&tasksJSON, &o.DepositInvoiced, &o.DepositInvoicedAt, &o.BalanceInvoiced, &o.BalanceInvoicedAt,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Status = model.OrderStatus(status)

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if err := json.Unmarshal(tasksJSON, &o.Tasks); err != nil {
		return nil, fmt.Errorf("unmarshal tasks: %w", err)
	}

	return &o, nil
}

// CreateOrderFromQuote создаёт заказ из принятого предложения.
// Операция идемпотентна: повторный вызов возвращает уже созданный заказ.
// Вставка заказа и установка quote.order_id выполняются в одной транзакции,
// а уникальный индекс по source_quote_id страхует от гонки двух
// конкурентных вызовов, одновременно увидевших order_id IS NULL.
func (r *PostgresRepository) CreateOrderFromQuote(ctx context.Context, quoteID int64) (*model.Order, error) {
	var orderID int64

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var (
			status          string
			existingOrderID *int64
		)
		err = tx.QueryRow(ctx,
			`SELECT status, order_id FROM quotes WHERE id = $1 FOR UPDATE`,
			quoteID,
		).Scan(&status, &existingOrderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrQuoteNotFound
			}
			return fmt.Errorf("select quote: %w", err)
		}

		if existingOrderID != nil {
			orderID = *existingOrderID
			return tx.Commit(ctx)
		}

		if model.QuoteStatus(status) != model.QuoteStatusAccepted {
			return ErrQuoteNotAccepted
		}

		// Снимок финансовых полей предложения на момент создания заказа.
		err = tx.QueryRow(ctx,
			`INSERT INTO orders (source_quote_id, customer_id, title, items, deposit, balance, status)
			 SELECT q.id, q.customer_id, q.title, q.items, q.deposit, q.balance, $2
			 FROM quotes q WHERE q.id = $1
			 ON CONFLICT (source_quote_id) DO NOTHING
			 RETURNING id`,
			quoteID, string(model.OrderStatusActive),
		).Scan(&orderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Конкурентная транзакция успела создать заказ раньше нас.
				err = tx.QueryRow(ctx,
					`SELECT id FROM orders WHERE source_quote_id = $1`,
					quoteID,
				).Scan(&orderID)
				if err != nil {
					return fmt.Errorf("select existing order: %w", err)
				}
			} else if isUniqueViolation(err) {
				return fmt.Errorf("%w: quote %d", ErrDuplicateOrder, quoteID)
			} else {
				return fmt.Errorf("insert order: %w", err)
			}
		}

		_, err = tx.Exec(ctx,
			`UPDATE quotes SET order_id = $2, updated_at = now() WHERE id = $1`,
			quoteID, orderID,
		)
		if err != nil {
			return fmt.Errorf("link quote to order: %w", err)
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}

	return r.GetOrder(ctx, orderID)
}

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`,
		id,
	)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return o, nil
}

// UpdateOrder обновляет заголовок и статус заказа. Финансовый снимок не изменяется.
func (r *PostgresRepository) UpdateOrder(ctx context.Context, id int64, title string, status model.OrderStatus) (*model.Order, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET title = $2, status = $3 WHERE id = $1`,
		id, title, string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, ErrOrderNotFound
	}

	return r.GetOrder(ctx, id)
}

// UpdateOrderTasks сохраняет чек-лист заказа целиком.
func (r *PostgresRepository) UpdateOrderTasks(ctx context.Context, id int64, tasks []model.Task) (*model.Order, error) {
	tasksJSON, err := json.Marshal(tasks)
	if err != nil {
		return nil, fmt.Errorf("marshal tasks: %w", err)
	}

	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET tasks = $2 WHERE id = $1`,
		id, tasksJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("update order tasks: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, ErrOrderNotFound
	}

	return r.GetOrder(ctx, id)
}

// MarkInvoiced отмечает, что по заказу отправлен счёт указанного вида.
// Флаг информационный: повторная отправка счёта не блокируется.
func (r *PostgresRepository) MarkInvoiced(ctx context.Context, id int64, kind model.InvoiceKind, at time.Time) error {
	query := `UPDATE orders SET deposit_invoiced = TRUE, deposit_invoiced_at = $2 WHERE id = $1`
	if kind == model.InvoiceKindBalance {
		query = `UPDATE orders SET balance_invoiced = TRUE, balance_invoiced_at = $2 WHERE id = $1`
	}

	cmdTag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("mark invoiced: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// AddDiaryEntry добавляет запись в журнал заказа. Журнал только пополняется.
func (r *PostgresRepository) AddDiaryEntry(ctx context.Context, orderID int64, note string) (*model.DiaryEntry, error) {
	entry := model.DiaryEntry{OrderID: orderID, Note: note}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO order_diary (order_id, note) VALUES ($1, $2) RETURNING id, created_at`,
		orderID, note,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("insert diary entry: %w", err)
	}

	return &entry, nil
}

// GetDiaryByOrder возвращает журнал заказа в хронологическом порядке.
func (r *PostgresRepository) GetDiaryByOrder(ctx context.Context, orderID int64) ([]model.DiaryEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, note, created_at
		 FROM order_diary
		 WHERE order_id = $1
		 ORDER BY created_at`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("select diary: %w", err)
	}
	defer rows.Close()

	var res []model.DiaryEntry
	for rows.Next() {
		var e model.DiaryEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan diary entry: %w", err)
		}
		res = append(res, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
