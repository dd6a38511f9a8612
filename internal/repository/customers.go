package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/quotedesk-system/internal/model"
)

// CreateCustomer создаёт нового клиента.
func (r *PostgresRepository) CreateCustomer(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO customers (name, email, phone, address, notes)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		c.Name, c.Email, c.Phone, c.Address, c.Notes,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return c, nil
}

// GetCustomer возвращает клиента по идентификатору.
func (r *PostgresRepository) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, email, phone, address, notes, created_at
		 FROM customers WHERE id = $1`,
		id,
	)

	var c model.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}

	return &c, nil
}

// ListCustomers возвращает всех клиентов в порядке создания.
func (r *PostgresRepository) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, phone, address, notes, created_at
		 FROM customers
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select customers: %w", err)
	}
	defer rows.Close()

	var res []model.Customer
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateCustomer обновляет контактные данные клиента. Последняя запись побеждает.
func (r *PostgresRepository) UpdateCustomer(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE customers
		 SET name = $2, email = $3, phone = $4, address = $5, notes = $6
		 WHERE id = $1`,
		c.ID, c.Name, c.Email, c.Phone, c.Address, c.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, ErrCustomerNotFound
	}
	return r.GetCustomer(ctx, c.ID)
}

// DeleteCustomer удаляет клиента вместе с его предложениями и заказами.
// Удаление блокируется, если по какому-либо заказу клиента уже есть платежи:
// финансовая история не должна исчезать вместе с карточкой клиента.
func (r *PostgresRepository) DeleteCustomer(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var hasPayments bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM payments p
		     JOIN orders o ON o.id = p.order_id
		     WHERE o.customer_id = $1
		 )`,
		id,
	).Scan(&hasPayments)
	if err != nil {
		return fmt.Errorf("check payments: %w", err)
	}
	if hasPayments {
		return ErrCustomerHasPayments
	}

	cmdTag, err := tx.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}
