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

const packageColumns = `id, name, price_oneoff, price_monthly, term_months, features, visible,
	require_deposit_months, min_term_months, early_exit_fee_pct, ownership_until_paid,
	late_fee_pct, default_payment_method, tcs_version, created_at`

func scanPackage(row pgx.Row) (*model.Package, error) {
	var (
		p            model.Package
		priceMonthly decimal.NullDecimal
		featuresJSON []byte
	)

	err := row.Scan(
		&p.ID, &p.Name, &p.PriceOneoff, &priceMonthly, &p.TermMonths, &featuresJSON, &p.Visible,
		&p.Guardrails.RequireDepositMonths, &p.Guardrails.MinTermMonths, &p.Guardrails.EarlyExitFeePct,
		&p.Guardrails.OwnershipUntilPaid, &p.Guardrails.LateFeePct,
		&p.Guardrails.DefaultPaymentMethod, &p.Guardrails.TCsVersion, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.PriceMonthly = decimalPtr(priceMonthly)

	if err := json.Unmarshal(featuresJSON, &p.Features); err != nil {
		return nil, fmt.Errorf("unmarshal features: %w", err)
	}

	return &p, nil
}

// CreatePackage создаёт тарифный пакет.
func (r *PostgresRepository) CreatePackage(ctx context.Context, p *model.Package) (*model.Package, error) {
	featuresJSON, err := json.Marshal(p.Features)
	if err != nil {
		return nil, fmt.Errorf("marshal features: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO packages
		     (name, price_oneoff, price_monthly, term_months, features, visible,
		      require_deposit_months, min_term_months, early_exit_fee_pct,
		      ownership_until_paid, late_fee_pct, default_payment_method, tcs_version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id, created_at`,
		p.Name, p.PriceOneoff, nullDecimal(p.PriceMonthly), p.TermMonths, featuresJSON, p.Visible,
		p.Guardrails.RequireDepositMonths, p.Guardrails.MinTermMonths, p.Guardrails.EarlyExitFeePct,
		p.Guardrails.OwnershipUntilPaid, p.Guardrails.LateFeePct,
		string(p.Guardrails.DefaultPaymentMethod), p.Guardrails.TCsVersion,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create package: %w", err)
	}

	return p, nil
}

// GetPackage возвращает тарифный пакет по идентификатору.
func (r *PostgresRepository) GetPackage(ctx context.Context, id int64) (*model.Package, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+packageColumns+` FROM packages WHERE id = $1`,
		id,
	)

	p, err := scanPackage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPackageNotFound
		}
		return nil, fmt.Errorf("get package: %w", err)
	}

	return p, nil
}

// ListPackages возвращает тарифные пакеты; при visibleOnly скрытые пакеты отфильтровываются.
func (r *PostgresRepository) ListPackages(ctx context.Context, visibleOnly bool) ([]model.Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages ORDER BY price_oneoff`
	if visibleOnly {
		query = `SELECT ` + packageColumns + ` FROM packages WHERE visible ORDER BY price_oneoff`
	}

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select packages: %w", err)
	}
	defer rows.Close()

	var res []model.Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan package: %w", err)
		}
		res = append(res, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdatePackage обновляет тарифный пакет. Исторические предложения при этом
// не пересчитываются: они хранят скопированные при создании значения.
func (r *PostgresRepository) UpdatePackage(ctx context.Context, p *model.Package) (*model.Package, error) {
	featuresJSON, err := json.Marshal(p.Features)
	if err != nil {
		return nil, fmt.Errorf("marshal features: %w", err)
	}

	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE packages
		 SET name = $2, price_oneoff = $3, price_monthly = $4, term_months = $5,
		     features = $6, visible = $7, require_deposit_months = $8, min_term_months = $9,
		     early_exit_fee_pct = $10, ownership_until_paid = $11, late_fee_pct = $12,
		     default_payment_method = $13, tcs_version = $14
		 WHERE id = $1`,
		p.ID, p.Name, p.PriceOneoff, nullDecimal(p.PriceMonthly), p.TermMonths,
		featuresJSON, p.Visible, p.Guardrails.RequireDepositMonths, p.Guardrails.MinTermMonths,
		p.Guardrails.EarlyExitFeePct, p.Guardrails.OwnershipUntilPaid, p.Guardrails.LateFeePct,
		string(p.Guardrails.DefaultPaymentMethod), p.Guardrails.TCsVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("update package: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, ErrPackageNotFound
	}

	return r.GetPackage(ctx, p.ID)
}

// DeletePackage удаляет тарифный пакет.
func (r *PostgresRepository) DeletePackage(ctx context.Context, id int64) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM packages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete package: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrPackageNotFound
	}
	return nil
}
