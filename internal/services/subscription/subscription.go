// Package services содержит бизнес-логику подписок: каталог планов,
// оформление с опциональным пробным периодом, отмена и оплата счетов.
// Продление периодов и закрытие просроченных подписок выполняет
// планировщик биллинга.
package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/edlatam/lms-platform/internal/lib/period"
	"github.com/edlatam/lms-platform/internal/lib/sl"
	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// SubscriptionRepository описывает методы для работы с подписками
// в хранилище.
type SubscriptionRepository interface {
	// ListActivePlans возвращает каталог планов, открытых для оформления.
	ListActivePlans(ctx context.Context) ([]*models.Plan, error)
	// GetPlanByCode возвращает план по машинному имени.
	GetPlanByCode(ctx context.Context, code string) (*models.Plan, error)
	// GetPlan возвращает план по идентификатору.
	GetPlan(ctx context.Context, planID string) (*models.Plan, error)
	// CreateSubscription оформляет подписку и возвращает её ID.
	CreateSubscription(ctx context.Context, sub models.Subscription) (string, error)
	// GetSubscription возвращает подписку по идентификатору.
	GetSubscription(ctx context.Context, subscriptionID string) (*models.Subscription, error)
	// GetOpenSubscriptionByUser возвращает открытую подписку пользователя.
	GetOpenSubscriptionByUser(ctx context.Context, userID string) (*models.Subscription, error)
	// RequestCancelAtPeriodEnd помечает открытую подписку к отмене в конце периода.
	RequestCancelAtPeriodEnd(ctx context.Context, subscriptionID, userID string) (int, error)
	// CancelSubscriptionNow немедленно закрывает открытую подписку.
	CancelSubscriptionNow(ctx context.Context, subscriptionID, userID string) (int, error)
	// VoidOpenInvoices аннулирует все открытые счета подписки.
	VoidOpenInvoices(ctx context.Context, subscriptionID string) (int, error)
	// CreateInvoice выставляет счёт за период подписки.
	CreateInvoice(ctx context.Context, invoice models.Invoice) (string, error)
	// GetInvoice возвращает счёт по идентификатору.
	GetInvoice(ctx context.Context, invoiceID string) (*models.Invoice, error)
	// MarkInvoicePaid переводит открытый счёт в paid.
	MarkInvoicePaid(ctx context.Context, invoiceID string) (int, error)
	// ReactivatePastDue возвращает просроченную подписку в active.
	ReactivatePastDue(ctx context.Context, subscriptionID string) (int, error)
}

// Events описывает публикацию доменных событий и уведомлений.
type Events interface {
	Record(event models.Event)
	Notify(msg models.NotificationMessage)
}

// SubscriptionService реализует бизнес-логику подписок.
type SubscriptionService struct {
	repo   SubscriptionRepository
	events Events
	log    *slog.Logger
}

// NewSubscriptionService создает новый экземпляр SubscriptionService.
func NewSubscriptionService(repo SubscriptionRepository, events Events, log *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		repo:   repo,
		events: events,
		log:    log,
	}
}

// ListPlans возвращает планы, доступные для оформления.
func (s *SubscriptionService) ListPlans(ctx context.Context) ([]*models.Plan, error) {
	return s.repo.ListActivePlans(ctx)
}

// Subscribe оформляет подписку на план. План с пробными днями стартует
// в trialing до конца пробного периода, без них подписка сразу активна
// и за первый период выставляется счёт. Вторая открытая подписка
// отклоняется уникальным индексом хранилища.
func (s *SubscriptionService) Subscribe(ctx context.Context, userID string, req models.DummySubscribe) (*models.Subscription, error) {
	plan, err := s.repo.GetPlanByCode(ctx, req.PlanCode)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, repository.ErrNotFound
	}

	now := time.Now().UTC()
	sub := models.Subscription{
		UserID:             userID,
		PlanID:             plan.ID,
		Status:             models.SubscriptionStatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   period.AddMonths(now, plan.IntervalMonths),
	}
	if plan.TrialDays > 0 {
		trialEnd := now.AddDate(0, 0, plan.TrialDays)
		sub.Status = models.SubscriptionStatusTrialing
		sub.TrialEndsAt = &trialEnd
		sub.CurrentPeriodEnd = trialEnd
	}

	id, err := s.repo.CreateSubscription(ctx, sub)
	if err != nil {
		return nil, err
	}
	s.log.Info("created subscription", slog.String("id", id),
		slog.String("plan_code", plan.Code), slog.String("status", sub.Status))

	if sub.Status == models.SubscriptionStatusActive {
		s.issueFirstInvoice(ctx, id, userID, plan, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
	}
	s.recordSubscriptionEvent(models.EventSubscriptionStart, id, userID,
		map[string]string{"plan_code": plan.Code, "status": sub.Status})

	return s.repo.GetSubscription(ctx, id)
}

// GetMine возвращает открытую подписку пользователя вместе с планом.
func (s *SubscriptionService) GetMine(ctx context.Context, userID string) (*models.Subscription, *models.Plan, error) {
	sub, err := s.repo.GetOpenSubscriptionByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	plan, err := s.repo.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, nil, err
	}
	return sub, plan, nil
}

// Cancel отменяет подписку владельца. По умолчанию подписка доживает
// до конца оплаченного периода, немедленная отмена закрывает доступ
// сразу и аннулирует открытые счета.
func (s *SubscriptionService) Cancel(ctx context.Context, userID, subscriptionID string, req models.DummyCancelSubscription) error {
	var count int
	var err error
	if req.Immediate {
		count, err = s.repo.CancelSubscriptionNow(ctx, subscriptionID, userID)
	} else {
		count, err = s.repo.RequestCancelAtPeriodEnd(ctx, subscriptionID, userID)
	}
	if err != nil {
		return err
	}
	if count == 0 {
		return s.transitionError(ctx, subscriptionID, userID)
	}

	s.log.Info("subscription cancellation accepted",
		slog.String("id", subscriptionID), slog.Bool("immediate", req.Immediate))

	if req.Immediate {
		s.voidOpenInvoices(ctx, subscriptionID)
		s.recordSubscriptionEvent(models.EventSubscriptionEnd, subscriptionID, userID,
			map[string]string{"reason": "cancel_immediate"})
	}
	return nil
}

// PayInvoice фиксирует оплату открытого счёта и возвращает просроченную
// подписку в active. Вызывается платёжным шлюзом после списания.
func (s *SubscriptionService) PayInvoice(ctx context.Context, userID, invoiceID string) error {
	invoice, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if invoice.UserID != userID {
		return repository.ErrNotFound
	}

	count, err := s.repo.MarkInvoicePaid(ctx, invoiceID)
	if err != nil {
		return err
	}
	if count == 0 {
		return repository.ErrInvalidTransition
	}
	s.log.Info("invoice paid", slog.String("id", invoiceID),
		slog.String("subscription_id", invoice.SubscriptionID))

	count, err = s.repo.ReactivatePastDue(ctx, invoice.SubscriptionID)
	if err != nil {
		s.log.Error("failed to reactivate past due subscription",
			slog.String("subscription_id", invoice.SubscriptionID), sl.Err(err))
		return nil
	}
	if count > 0 {
		s.log.Info("subscription reactivated",
			slog.String("subscription_id", invoice.SubscriptionID))
	}
	return nil
}

// issueFirstInvoice выставляет счёт за первый период подписки без триала.
// Сбой выставления не отменяет оформление, счёт довыставит планировщик.
func (s *SubscriptionService) issueFirstInvoice(ctx context.Context,
	subscriptionID, userID string, plan *models.Plan, periodStart, periodEnd time.Time) {
	_, err := s.repo.CreateInvoice(ctx, models.Invoice{
		SubscriptionID: subscriptionID,
		UserID:         userID,
		AmountCents:    plan.PriceCents,
		Currency:       plan.Currency,
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
	})
	if err != nil {
		s.log.Error("failed to issue first invoice",
			slog.String("subscription_id", subscriptionID), sl.Err(err))
		return
	}
	s.log.Info("first invoice issued", slog.String("subscription_id", subscriptionID),
		slog.Int("amount_cents", plan.PriceCents))
}

func (s *SubscriptionService) voidOpenInvoices(ctx context.Context, subscriptionID string) {
	count, err := s.repo.VoidOpenInvoices(ctx, subscriptionID)
	if err != nil {
		s.log.Error("failed to void open invoices",
			slog.String("subscription_id", subscriptionID), sl.Err(err))
		return
	}
	if count > 0 {
		s.log.Info("voided open invoices",
			slog.String("subscription_id", subscriptionID), "count", count)
	}
}

func (s *SubscriptionService) transitionError(ctx context.Context, subscriptionID, userID string) error {
	sub, err := s.repo.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub.UserID != userID {
		return repository.ErrNotFound
	}
	return repository.ErrInvalidTransition
}

func (s *SubscriptionService) recordSubscriptionEvent(eventType, subscriptionID, userID string, attrs map[string]string) {
	entity := "subscription"
	payload, err := json.Marshal(attrs)
	if err != nil {
		s.log.Warn("failed to marshal event payload", slog.Any("err", err))
		payload = nil
	}
	s.events.Record(models.Event{
		EventType:  eventType,
		UserID:     &userID,
		EntityType: &entity,
		EntityID:   &subscriptionID,
		Payload:    payload,
	})
}
