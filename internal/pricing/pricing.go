// Package pricing содержит чистые функции расчёта стоимости предложений.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/quotedesk-system/internal/model"
)

// ErrInvalidDiscount возвращается, если скидка выходит за пределы [0, 100].
var ErrInvalidDiscount = errors.New("discount percent out of range")

var hundred = decimal.NewFromInt(100)

// ItemsTotal возвращает сумму стоимостей всех позиций.
func ItemsTotal(items []model.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.Total())
	}
	return total
}

// ResolvePrice вычисляет итоговую цену предложения.
// Если задана custom_price, она заменяет сумму позиций; скидка применяется
// к выбранной базе в обоих случаях.
func ResolvePrice(items []model.LineItem, customPrice *decimal.Decimal, discountPercent decimal.Decimal) (decimal.Decimal, error) {
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		return decimal.Zero, ErrInvalidDiscount
	}

	base := ItemsTotal(items)
	if customPrice != nil {
		base = *customPrice
	}

	factor := hundred.Sub(discountPercent).Div(hundred)
	return base.Mul(factor).Round(2), nil
}

// ComputeTotals пересчитывает производные поля предложения: subtotal,
// deposit и balance. Явно заданный депозит сохраняется как есть; иначе
// депозит равен половине итоговой цены.
func ComputeTotals(q *model.Quote) error {
	subtotal, err := ResolvePrice(q.Items, q.CustomPrice, q.DiscountPercent)
	if err != nil {
		return err
	}

	q.Subtotal = subtotal

	if q.CustomDeposit != nil {
		q.Deposit = q.CustomDeposit.Round(2)
	} else {
		q.Deposit = subtotal.Div(decimal.NewFromInt(2)).Round(2)
	}

	q.Balance = q.Subtotal.Sub(q.Deposit)
	return nil
}

// EarlyExitFee возвращает плату за досрочное расторжение помесячного плана:
// процент от стоимости оставшихся месяцев контракта.
func EarlyExitFee(monthly decimal.Decimal, remainingMonths int, feePct decimal.Decimal) decimal.Decimal {
	if remainingMonths <= 0 {
		return decimal.Zero
	}
	remaining := monthly.Mul(decimal.NewFromInt(int64(remainingMonths)))
	return remaining.Mul(feePct.Div(hundred)).Round(2)
}

// LateFee возвращает надбавку за просроченный помесячный платёж.
func LateFee(amount, feePct decimal.Decimal) decimal.Decimal {
	return amount.Mul(feePct.Div(hundred)).Round(2)
}

// UpfrontDeposit возвращает сумму помесячных платежей, собираемую авансом
// до начала работ согласно ограничениям пакета.
func UpfrontDeposit(monthly decimal.Decimal, depositMonths int) decimal.Decimal {
	if depositMonths <= 0 {
		return decimal.Zero
	}
	return monthly.Mul(decimal.NewFromInt(int64(depositMonths))).Round(2)
}
