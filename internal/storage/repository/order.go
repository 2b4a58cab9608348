package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/edlatam/lms-platform/internal/models"
)

const orderColumns = `id, order_number, user_id, course_id, amount_cents, currency,
			      status, paid_at, cancelled_at, refunded_at, created_at, updated_at`

// CreateOrder создаёт заказ со статусом pending. Номер заказа выдаёт
// база из последовательности. Возвращает ID и присвоенный номер.
func (s *Storage) CreateOrder(ctx context.Context, order models.Order) (string, string, error) {
	const op = "storage.CreateOrder"
	select {
	case <-ctx.Done():
		return "", "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID, orderNumber string
	query := `INSERT INTO payments.orders (user_id, course_id, amount_cents, currency)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id, order_number`
	if err := s.DB.QueryRowContext(ctx, query,
		order.UserID, order.CourseID, order.AmountCents, order.Currency).Scan(&newID, &orderNumber); err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, orderNumber, nil
}

// GetOrder возвращает заказ по идентификатору.
func (s *Storage) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	const op = "storage.GetOrder"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + orderColumns + `
			  FROM payments.orders
			  WHERE id = $1`
	o := models.Order{}
	var paidAt, cancelledAt, refundedAt sql.NullTime
	if err := s.DB.QueryRowContext(ctx, query, orderID).Scan(&o.ID, &o.OrderNumber, &o.UserID,
		&o.CourseID, &o.AmountCents, &o.Currency, &o.Status,
		&paidAt, &cancelledAt, &refundedAt, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if paidAt.Valid {
		o.PaidAt = &paidAt.Time
	}
	if cancelledAt.Valid {
		o.CancelledAt = &cancelledAt.Time
	}
	if refundedAt.Valid {
		o.RefundedAt = &refundedAt.Time
	}
	return &o, nil
}

// ListUserOrders возвращает заказы пользователя со свежими впереди.
func (s *Storage) ListUserOrders(ctx context.Context, userID string, limit, offset int) ([]*models.Order, error) {
	const op = "storage.ListUserOrders"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + orderColumns + `
			  FROM payments.orders
			  WHERE user_id = $1
			  ORDER BY created_at DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Order
	for rows.Next() {
		o := models.Order{}
		var paidAt, cancelledAt, refundedAt sql.NullTime
		if err = rows.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.CourseID, &o.AmountCents,
			&o.Currency, &o.Status, &paidAt, &cancelledAt, &refundedAt,
			&o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if paidAt.Valid {
			o.PaidAt = &paidAt.Time
		}
		if cancelledAt.Valid {
			o.CancelledAt = &cancelledAt.Time
		}
		if refundedAt.Valid {
			o.RefundedAt = &refundedAt.Time
		}
		result = append(result, &o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MarkOrderPaid переводит заказ из pending в paid. Возвращает количество
// изменённых строк, ноль при недопустимом переходе или чужом заказе.
func (s *Storage) MarkOrderPaid(ctx context.Context, orderID, userID string) (int, error) {
	const op = "storage.MarkOrderPaid"
	return s.transitionOrder(ctx, op, `
			  UPDATE payments.orders
			  SET status = 'paid', paid_at = now()
			  WHERE id = $1 AND user_id = $2 AND status = 'pending'`,
		orderID, userID)
}

// MarkOrderCancelled переводит заказ из pending в cancelled.
func (s *Storage) MarkOrderCancelled(ctx context.Context, orderID, userID string) (int, error) {
	const op = "storage.MarkOrderCancelled"
	return s.transitionOrder(ctx, op, `
			  UPDATE payments.orders
			  SET status = 'cancelled', cancelled_at = now()
			  WHERE id = $1 AND user_id = $2 AND status = 'pending'`,
		orderID, userID)
}

// MarkOrderRefunded переводит оплаченный заказ в refunded.
func (s *Storage) MarkOrderRefunded(ctx context.Context, orderID string) (int, error) {
	const op = "storage.MarkOrderRefunded"
	return s.transitionOrder(ctx, op, `
			  UPDATE payments.orders
			  SET status = 'refunded', refunded_at = now()
			  WHERE id = $1 AND status = 'paid'`,
		orderID)
}

// OrderPaidExists проверяет наличие оплаченного заказа пользователя
// на курс. Используется при решении о повторной покупке.
func (s *Storage) OrderPaidExists(ctx context.Context, userID, courseID string) (bool, error) {
	const op = "storage.OrderPaidExists"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
			      SELECT 1 FROM payments.orders
			      WHERE user_id = $1 AND course_id = $2 AND status = 'paid'
			  )`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, userID, courseID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

func (s *Storage) transitionOrder(ctx context.Context, op, query string, args ...any) (int, error) {
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	result, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// CreateInvoice выставляет счёт за период подписки. Повторный счёт за
// тот же период нарушает уникальность пары и возвращает ErrAlreadyExists.
func (s *Storage) CreateInvoice(ctx context.Context, invoice models.Invoice) (string, error) {
	const op = "storage.CreateInvoice"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID string
	query := `INSERT INTO payments.invoices (subscription_id, user_id, amount_cents, currency, period_start, period_end)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	if err := s.DB.QueryRowContext(ctx, query,
		invoice.SubscriptionID, invoice.UserID, invoice.AmountCents, invoice.Currency,
		invoice.PeriodStart, invoice.PeriodEnd).Scan(&newID); err != nil {
		if uniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetInvoice возвращает счёт по идентификатору.
func (s *Storage) GetInvoice(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	const op = "storage.GetInvoice"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	inv := models.Invoice{}
	var paidAt sql.NullTime
	query := `SELECT id, subscription_id, user_id, amount_cents, currency,
			      period_start, period_end, status, issued_at, paid_at
			  FROM payments.invoices
			  WHERE id = $1`
	if err := s.DB.QueryRowContext(ctx, query, invoiceID).Scan(&inv.ID, &inv.SubscriptionID,
		&inv.UserID, &inv.AmountCents, &inv.Currency, &inv.PeriodStart, &inv.PeriodEnd,
		&inv.Status, &inv.IssuedAt, &paidAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if paidAt.Valid {
		inv.PaidAt = &paidAt.Time
	}
	return &inv, nil
}

// ListOpenInvoicesIssuedBefore возвращает открытые счета, выставленные
// раньше порога. Планировщик биллинга гасит их по истечении льготного
// срока оплаты.
func (s *Storage) ListOpenInvoicesIssuedBefore(ctx context.Context, issuedBefore time.Time) ([]*models.Invoice, error) {
	const op = "storage.ListOpenInvoicesIssuedBefore"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, subscription_id, user_id, amount_cents, currency,
			      period_start, period_end, status, issued_at, paid_at
			  FROM payments.invoices
			  WHERE status = 'open' AND issued_at < $1
			  ORDER BY issued_at`
	rows, err := s.DB.QueryContext(ctx, query, issuedBefore)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Invoice
	for rows.Next() {
		inv := models.Invoice{}
		var paidAt sql.NullTime
		if err = rows.Scan(&inv.ID, &inv.SubscriptionID, &inv.UserID, &inv.AmountCents,
			&inv.Currency, &inv.PeriodStart, &inv.PeriodEnd, &inv.Status,
			&inv.IssuedAt, &paidAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if paidAt.Valid {
			inv.PaidAt = &paidAt.Time
		}
		result = append(result, &inv)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MarkInvoicePaid переводит открытый счёт в paid.
func (s *Storage) MarkInvoicePaid(ctx context.Context, invoiceID string) (int, error) {
	const op = "storage.MarkInvoicePaid"
	return s.transitionOrder(ctx, op, `
			  UPDATE payments.invoices
			  SET status = 'paid', paid_at = now()
			  WHERE id = $1 AND status = 'open'`,
		invoiceID)
}

// MarkInvoiceVoid аннулирует открытый счёт.
func (s *Storage) MarkInvoiceVoid(ctx context.Context, invoiceID string) (int, error) {
	const op = "storage.MarkInvoiceVoid"
	return s.transitionOrder(ctx, op, `
			  UPDATE payments.invoices
			  SET status = 'void'
			  WHERE id = $1 AND status = 'open'`,
		invoiceID)
}

// VoidOpenInvoices аннулирует все открытые счета подписки. Вызывается
// при закрытии подписки, долг по которой больше не взыскивается.
func (s *Storage) VoidOpenInvoices(ctx context.Context, subscriptionID string) (int, error) {
	const op = "storage.VoidOpenInvoices"
	return s.transitionOrder(ctx, op, `
			  UPDATE payments.invoices
			  SET status = 'void'
			  WHERE subscription_id = $1 AND status = 'open'`,
		subscriptionID)
}
