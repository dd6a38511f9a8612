package service

import (
	"context"

	"github.com/mmeshcher/quotedesk-system/internal/model"
	"github.com/mmeshcher/quotedesk-system/internal/pricing"
)

// prepareQuote проверяет позиции, подставляет снимок цены пакета и
// пересчитывает производные поля. Вызывается при каждом создании и
// изменении предложения, чтобы итоги никогда не оставались устаревшими.
func (s *Service) prepareQuote(ctx context.Context, q *model.Quote) error {
	for _, li := range q.Items {
		if li.Qty <= 0 || li.UnitPrice.IsNegative() {
			return ErrInvalidAmount
		}
	}

	if q.CustomDeposit != nil && q.CustomDeposit.IsNegative() {
		return ErrInvalidAmount
	}

	// Предложение по пакету копирует его цену в момент создания или правки.
	// Последующие изменения пакета не затрагивают исторические предложения.
	if q.PackageID != nil && q.CustomPrice == nil {
		pkg, err := s.repo.GetPackage(ctx, *q.PackageID)
		if err != nil {
			return err
		}
		price := pkg.PriceOneoff
		q.CustomPrice = &price
	}

	return pricing.ComputeTotals(q)
}

// CreateQuote создаёт предложение для клиента в статусе pending.
func (s *Service) CreateQuote(ctx context.Context, q *model.Quote) (*model.Quote, error) {
	if _, err := s.repo.GetCustomer(ctx, q.CustomerID); err != nil {
		return nil, err
	}

	if err := s.prepareQuote(ctx, q); err != nil {
		return nil, err
	}

	return s.repo.CreateQuote(ctx, q)
}

// GetQuote возвращает предложение клиента.
func (s *Service) GetQuote(ctx context.Context, customerID, quoteID int64) (*model.Quote, error) {
	return s.repo.GetQuoteByCustomer(ctx, customerID, quoteID)
}

// ListQuotesByCustomer возвращает предложения клиента.
func (s *Service) ListQuotesByCustomer(ctx context.Context, customerID int64) ([]model.Quote, error) {
	if _, err := s.repo.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	return s.repo.ListQuotesByCustomer(ctx, customerID)
}

// UpdateQuote обновляет содержимое предложения. Статусные переходы этим
// путём не выполняются — правка полей разрешена в любом статусе, а
// повторная подача после запроса правок возвращает предложение в pending.
func (s *Service) UpdateQuote(ctx context.Context, q *model.Quote) (*model.Quote, error) {
	existing, err := s.repo.GetQuoteByCustomer(ctx, q.CustomerID, q.ID)
	if err != nil {
		return nil, err
	}

	if err := s.prepareQuote(ctx, q); err != nil {
		return nil, err
	}

	q.Status = existing.Status
	if existing.Status == model.QuoteStatusAmendRequested {
		q.Status = model.QuoteStatusPending
	}

	return s.repo.UpdateQuote(ctx, q)
}

// DeleteQuote удаляет предложение клиента.
func (s *Service) DeleteQuote(ctx context.Context, customerID, quoteID int64) error {
	return s.repo.DeleteQuote(ctx, customerID, quoteID)
}

// AcceptQuote переводит предложение в статус accepted.
// Повторное принятие уже принятого предложения — не ошибка, а no-op:
// так переживаются повторы сетевых запросов.
func (s *Service) AcceptQuote(ctx context.Context, quoteID int64) (*model.Quote, error) {
	q, err := s.repo.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	switch q.Status {
	case model.QuoteStatusAccepted:
		return q, nil
	case model.QuoteStatusRejected:
		return nil, ErrInvalidTransition
	}

	return s.repo.UpdateQuoteStatus(ctx, quoteID, model.QuoteStatusAccepted)
}

// RejectQuote переводит предложение в статус rejected. Принятое предложение
// отклонить нельзя: созданный по нему заказ и ссылка на него неприкосновенны.
func (s *Service) RejectQuote(ctx context.Context, quoteID int64) (*model.Quote, error) {
	q, err := s.repo.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	switch q.Status {
	case model.QuoteStatusRejected:
		return q, nil
	case model.QuoteStatusAccepted:
		return nil, ErrInvalidTransition
	}

	return s.repo.UpdateQuoteStatus(ctx, quoteID, model.QuoteStatusRejected)
}

// RequestAmendment переводит предложение из pending в amend_requested.
func (s *Service) RequestAmendment(ctx context.Context, quoteID int64) (*model.Quote, error) {
	q, err := s.repo.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	switch q.Status {
	case model.QuoteStatusAmendRequested:
		return q, nil
	case model.QuoteStatusPending:
		return s.repo.UpdateQuoteStatus(ctx, quoteID, model.QuoteStatusAmendRequested)
	}

	return nil, ErrInvalidTransition
}
