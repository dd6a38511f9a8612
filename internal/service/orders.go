package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mmeshcher/quotedesk-system/internal/gateway"
	"github.com/mmeshcher/quotedesk-system/internal/model"
	"github.com/mmeshcher/quotedesk-system/internal/notifier"
)

// CreateOrderFromQuote создаёт заказ из принятого предложения. Повторный
// вызов для того же предложения возвращает уже созданный заказ — дубликаты
// при двойной отправке формы невозможны.
func (s *Service) CreateOrderFromQuote(ctx context.Context, quoteID int64) (*model.Order, error) {
	return s.repo.CreateOrderFromQuote(ctx, quoteID)
}

// GetOrder возвращает заказ по идентификатору.
func (s *Service) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// UpdateOrder обновляет заголовок и статус заказа.
func (s *Service) UpdateOrder(ctx context.Context, id int64, title string, status model.OrderStatus) (*model.Order, error) {
	if !status.IsValid() {
		return nil, ErrInvalidTransition
	}
	return s.repo.UpdateOrder(ctx, id, title, status)
}

// AddTask добавляет пункт в чек-лист заказа.
func (s *Service) AddTask(ctx context.Context, orderID int64, text string) (*model.Order, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	tasks := append(o.Tasks, model.Task{Text: text})
	return s.repo.UpdateOrderTasks(ctx, orderID, tasks)
}

// ToggleTask переключает отметку выполнения пункта чек-листа по индексу.
func (s *Service) ToggleTask(ctx context.Context, orderID int64, index int) (*model.Order, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(o.Tasks) {
		return nil, ErrTaskNotFound
	}

	o.Tasks[index].Done = !o.Tasks[index].Done
	return s.repo.UpdateOrderTasks(ctx, orderID, o.Tasks)
}

// AddDiaryEntry добавляет запись в журнал заказа.
func (s *Service) AddDiaryEntry(ctx context.Context, orderID int64, note string) (*model.DiaryEntry, error) {
	return s.repo.AddDiaryEntry(ctx, orderID, note)
}

// GetDiaryByOrder возвращает журнал заказа.
func (s *Service) GetDiaryByOrder(ctx context.Context, orderID int64) ([]model.DiaryEntry, error) {
	if _, err := s.repo.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.repo.GetDiaryByOrder(ctx, orderID)
}

// invoiceRequest собирает данные счёта по заказу и виду транша.
func (s *Service) invoiceRequest(ctx context.Context, orderID int64, kind model.InvoiceKind) (notifier.InvoiceRequest, *model.Order, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return notifier.InvoiceRequest{}, nil, err
	}

	c, err := s.repo.GetCustomer(ctx, o.CustomerID)
	if err != nil {
		return notifier.InvoiceRequest{}, nil, err
	}

	amount := o.Deposit
	if kind == model.InvoiceKindBalance {
		amount = o.Balance
	}

	return notifier.InvoiceRequest{
		OrderID:       o.ID,
		Kind:          string(kind),
		CustomerName:  c.Name,
		CustomerEmail: c.Email,
		Title:         o.Title,
		Amount:        amount,
		Items:         o.Items,
	}, o, nil
}

// SendInvoice отправляет счёт по указанному траншу через сервис рассылки
// и отмечает факт отправки на заказе. Повторная отправка не блокируется:
// флаг информационный, а не одноразовый замок. При сбое рассылки флаг
// остаётся неизменным.
func (s *Service) SendInvoice(ctx context.Context, orderID int64, kind model.InvoiceKind) (*model.Order, error) {
	inv, _, err := s.invoiceRequest(ctx, orderID, kind)
	if err != nil {
		return nil, err
	}

	if err := s.notifier.SendInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDispatchFailed, err)
	}

	if err := s.repo.MarkInvoiced(ctx, orderID, kind, time.Now()); err != nil {
		return nil, err
	}

	return s.repo.GetOrder(ctx, orderID)
}

// PreviewInvoice возвращает PDF-счёт по траншу без отправки письма.
func (s *Service) PreviewInvoice(ctx context.Context, orderID int64, kind model.InvoiceKind) ([]byte, error) {
	inv, _, err := s.invoiceRequest(ctx, orderID, kind)
	if err != nil {
		return nil, err
	}

	pdf, err := s.notifier.RenderInvoice(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDispatchFailed, err)
	}

	return pdf, nil
}

// CreateCheckoutSession создаёт платёжную сессию шлюза для оплаты транша заказа.
func (s *Service) CreateCheckoutSession(ctx context.Context, orderID int64, kind model.InvoiceKind) (*gateway.Session, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	c, err := s.repo.GetCustomer(ctx, o.CustomerID)
	if err != nil {
		return nil, err
	}

	amount := o.Deposit
	if kind == model.InvoiceKindBalance {
		amount = o.Balance
	}

	return s.gateway.CreateSession(ctx, gateway.SessionRequest{
		OrderID:       o.ID,
		Kind:          string(kind),
		Amount:        amount,
		Currency:      "GBP",
		CustomerEmail: c.Email,
	})
}
