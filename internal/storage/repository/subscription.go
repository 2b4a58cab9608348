package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/edlatam/lms-platform/internal/models"
)

const subscriptionColumns = `id, user_id, plan_id, status, trial_ends_at,
			      current_period_start, current_period_end, cancel_at_period_end,
			      canceled_at, created_at, updated_at`

// ListActivePlans возвращает каталог планов, открытых для оформления,
// от дешёвых к дорогим.
func (s *Storage) ListActivePlans(ctx context.Context) ([]*models.Plan, error) {
	const op = "storage.ListActivePlans"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, code, name, price_cents, currency, interval_months, trial_days,
			      is_active, created_at, updated_at
			  FROM subscriptions.plans
			  WHERE is_active
			  ORDER BY price_cents`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Plan
	for rows.Next() {
		p := models.Plan{}
		if err = rows.Scan(&p.ID, &p.Code, &p.Name, &p.PriceCents, &p.Currency,
			&p.IntervalMonths, &p.TrialDays, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetPlanByCode возвращает план по машинному имени.
func (s *Storage) GetPlanByCode(ctx context.Context, code string) (*models.Plan, error) {
	const op = "storage.GetPlanByCode"
	return s.getPlan(ctx, op, `
			  SELECT id, code, name, price_cents, currency, interval_months, trial_days,
			      is_active, created_at, updated_at
			  FROM subscriptions.plans
			  WHERE code = $1`, code)
}

// GetPlan возвращает план по идентификатору.
func (s *Storage) GetPlan(ctx context.Context, planID string) (*models.Plan, error) {
	const op = "storage.GetPlan"
	return s.getPlan(ctx, op, `
			  SELECT id, code, name, price_cents, currency, interval_months, trial_days,
			      is_active, created_at, updated_at
			  FROM subscriptions.plans
			  WHERE id = $1`, planID)
}

func (s *Storage) getPlan(ctx context.Context, op, query string, arg any) (*models.Plan, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	p := models.Plan{}
	if err := s.DB.QueryRowContext(ctx, query, arg).Scan(&p.ID, &p.Code, &p.Name,
		&p.PriceCents, &p.Currency, &p.IntervalMonths, &p.TrialDays, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}

// CreateSubscription оформляет подписку и возвращает её ID. Частичный
// уникальный индекс допускает одну открытую подписку на пользователя,
// попытка оформить вторую возвращает ErrAlreadyExists.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) (string, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID string
	query := `INSERT INTO subscriptions.subscriptions
			      (user_id, plan_id, status, trial_ends_at, current_period_start, current_period_end)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	if err := s.DB.QueryRowContext(ctx, query,
		sub.UserID, sub.PlanID, sub.Status, sub.TrialEndsAt,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd).Scan(&newID); err != nil {
		if uniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetSubscription возвращает подписку по идентификатору.
func (s *Storage) GetSubscription(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions.subscriptions
			  WHERE id = $1`
	return scanSubscriptionRow(s.DB.QueryRowContext(ctx, query, subscriptionID), op)
}

// GetOpenSubscriptionByUser возвращает открытую подписку пользователя.
// Если открытой подписки нет, возвращает ErrNotFound.
func (s *Storage) GetOpenSubscriptionByUser(ctx context.Context, userID string) (*models.Subscription, error) {
	const op = "storage.GetOpenSubscriptionByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions.subscriptions
			  WHERE user_id = $1 AND status IN ('trialing', 'active', 'past_due')`
	return scanSubscriptionRow(s.DB.QueryRowContext(ctx, query, userID), op)
}

func scanSubscriptionRow(row *sql.Row, op string) (*models.Subscription, error) {
	sub := models.Subscription{}
	var trialEndsAt, canceledAt sql.NullTime
	if err := row.Scan(&sub.ID, &sub.UserID, &sub.PlanID, &sub.Status, &trialEndsAt,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CancelAtPeriodEnd,
		&canceledAt, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if trialEndsAt.Valid {
		sub.TrialEndsAt = &trialEndsAt.Time
	}
	if canceledAt.Valid {
		sub.CanceledAt = &canceledAt.Time
	}
	return &sub, nil
}

// RequestCancelAtPeriodEnd помечает открытую подписку к отмене в конце
// оплаченного периода. Повторный запрос возвращает ноль строк.
func (s *Storage) RequestCancelAtPeriodEnd(ctx context.Context, subscriptionID, userID string) (int, error) {
	const op = "storage.RequestCancelAtPeriodEnd"
	return s.transitionSubscription(ctx, op, `
			  UPDATE subscriptions.subscriptions
			  SET cancel_at_period_end = TRUE, canceled_at = now()
			  WHERE id = $1 AND user_id = $2
			      AND status IN ('trialing', 'active', 'past_due')
			      AND NOT cancel_at_period_end`,
		subscriptionID, userID)
}

// CancelSubscriptionNow немедленно закрывает открытую подписку.
// Доступ завершается сразу, остаток периода не возвращается.
func (s *Storage) CancelSubscriptionNow(ctx context.Context, subscriptionID, userID string) (int, error) {
	const op = "storage.CancelSubscriptionNow"
	return s.transitionSubscription(ctx, op, `
			  UPDATE subscriptions.subscriptions
			  SET status = 'canceled', canceled_at = now(), current_period_end = now()
			  WHERE id = $1 AND user_id = $2
			      AND status IN ('trialing', 'active', 'past_due')`,
		subscriptionID, userID)
}

// FinishCancelledPeriod закрывает подписку, помеченную к отмене,
// когда оплаченный период истёк.
func (s *Storage) FinishCancelledPeriod(ctx context.Context, subscriptionID string) (int, error) {
	const op = "storage.FinishCancelledPeriod"
	return s.transitionSubscription(ctx, op, `
			  UPDATE subscriptions.subscriptions
			  SET status = 'canceled'
			  WHERE id = $1 AND cancel_at_period_end
			      AND status IN ('trialing', 'active', 'past_due')
			      AND current_period_end <= now()`,
		subscriptionID)
}

// ActivateFromTrial переводит подписку из trialing в active и открывает
// первый оплачиваемый период.
func (s *Storage) ActivateFromTrial(ctx context.Context, subscriptionID string, periodStart, periodEnd time.Time) (int, error) {
	const op = "storage.ActivateFromTrial"
	return s.transitionSubscription(ctx, op, `
			  UPDATE subscriptions.subscriptions
			  SET status = 'active', current_period_start = $2, current_period_end = $3
			  WHERE id = $1 AND status = 'trialing'`,
		subscriptionID, periodStart, periodEnd)
}

// AdvancePeriod продлевает активную подписку на следующий период.
func (s *Storage) AdvancePeriod(ctx context.Context, subscriptionID string, periodStart, periodEnd time.Time) (int, error) {
	const op = "storage.AdvancePeriod"
	return s.transitionSubscription(ctx, op, `
			  UPDATE subscriptions.subscriptions
			  SET current_period_start = $2, current_period_end = $3
			  WHERE id = $1 AND status = 'active'`,
		subscriptionID, periodStart, periodEnd)
}

// MarkSubscriptionPastDue помечает активную подписку просроченной,
// когда счёт за период не оплачен в льготный срок.
func (s *Storage) MarkSubscriptionPastDue(ctx context.Context, subscriptionID string) (int, error) {
	const op = "storage.MarkSubscriptionPastDue"
	return s.transitionSubscription(ctx, op, `
			  UPDATE subscriptions.subscriptions
			  SET status = 'past_due'
			  WHERE id = $1 AND status = 'active'`,
		subscriptionID)
}

// ReactivatePastDue возвращает просроченную подписку в active после
// оплаты счёта.
func (s *Storage) ReactivatePastDue(ctx context.Context, subscriptionID string) (int, error) {
	const op = "storage.ReactivatePastDue"
	return s.transitionSubscription(ctx, op, `
			  UPDATE subscriptions.subscriptions
			  SET status = 'active'
			  WHERE id = $1 AND status = 'past_due'`,
		subscriptionID)
}

// ExpireSubscription закрывает просроченную подписку, период которой
// истёк без оплаты.
func (s *Storage) ExpireSubscription(ctx context.Context, subscriptionID string) (int, error) {
	const op = "storage.ExpireSubscription"
	return s.transitionSubscription(ctx, op, `
			  UPDATE subscriptions.subscriptions
			  SET status = 'expired'
			  WHERE id = $1 AND status = 'past_due' AND current_period_end <= now()`,
		subscriptionID)
}

func (s *Storage) transitionSubscription(ctx context.Context, op, query string, args ...any) (int, error) {
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

// FindTrialsEndingBefore возвращает пробные подписки, срок которых
// истёк к порогу. Планировщик активирует их и выставляет первый счёт.
func (s *Storage) FindTrialsEndingBefore(ctx context.Context, cutoff time.Time) ([]*models.Subscription, error) {
	const op = "storage.FindTrialsEndingBefore"
	return s.listSubscriptions(ctx, op, `
			  SELECT `+subscriptionColumns+`
			  FROM subscriptions.subscriptions
			  WHERE status = 'trialing' AND trial_ends_at <= $1
			  ORDER BY trial_ends_at`, cutoff)
}

// FindRenewalsDueBefore возвращает активные подписки без запроса отмены,
// период которых истёк к порогу и которые пора продлевать.
func (s *Storage) FindRenewalsDueBefore(ctx context.Context, cutoff time.Time) ([]*models.Subscription, error) {
	const op = "storage.FindRenewalsDueBefore"
	return s.listSubscriptions(ctx, op, `
			  SELECT `+subscriptionColumns+`
			  FROM subscriptions.subscriptions
			  WHERE status = 'active' AND NOT cancel_at_period_end
			      AND current_period_end <= $1
			  ORDER BY current_period_end`, cutoff)
}

// FindCancellationsDueBefore возвращает подписки, помеченные к отмене,
// период которых истёк к порогу.
func (s *Storage) FindCancellationsDueBefore(ctx context.Context, cutoff time.Time) ([]*models.Subscription, error) {
	const op = "storage.FindCancellationsDueBefore"
	return s.listSubscriptions(ctx, op, `
			  SELECT `+subscriptionColumns+`
			  FROM subscriptions.subscriptions
			  WHERE cancel_at_period_end
			      AND status IN ('trialing', 'active', 'past_due')
			      AND current_period_end <= $1
			  ORDER BY current_period_end`, cutoff)
}

// FindPastDueEndedBefore возвращает просроченные подписки, период
// которых истёк к порогу. Планировщик закрывает их как expired.
func (s *Storage) FindPastDueEndedBefore(ctx context.Context, cutoff time.Time) ([]*models.Subscription, error) {
	const op = "storage.FindPastDueEndedBefore"
	return s.listSubscriptions(ctx, op, `
			  SELECT `+subscriptionColumns+`
			  FROM subscriptions.subscriptions
			  WHERE status = 'past_due' AND current_period_end <= $1
			  ORDER BY current_period_end`, cutoff)
}

// FindSubscriptionsEndingBetween возвращает открытые подписки, период
// которых завершается в заданном окне. Используется для напоминаний
// о продлении.
func (s *Storage) FindSubscriptionsEndingBetween(ctx context.Context, from, to time.Time) ([]*models.Subscription, error) {
	const op = "storage.FindSubscriptionsEndingBetween"
	return s.listSubscriptions(ctx, op, `
			  SELECT `+subscriptionColumns+`
			  FROM subscriptions.subscriptions
			  WHERE status IN ('trialing', 'active')
			      AND current_period_end >= $1 AND current_period_end < $2
			  ORDER BY current_period_end`, from, to)
}

func (s *Storage) listSubscriptions(ctx context.Context, op, query string, args ...any) ([]*models.Subscription, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		sub := models.Subscription{}
		var trialEndsAt, canceledAt sql.NullTime
		if err = rows.Scan(&sub.ID, &sub.UserID, &sub.PlanID, &sub.Status, &trialEndsAt,
			&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CancelAtPeriodEnd,
			&canceledAt, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if trialEndsAt.Valid {
			sub.TrialEndsAt = &trialEndsAt.Time
		}
		if canceledAt.Valid {
			sub.CanceledAt = &canceledAt.Time
		}
		result = append(result, &sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
