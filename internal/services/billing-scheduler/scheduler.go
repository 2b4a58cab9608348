// Package services реализует планировщик биллинга. Он активирует
// закончившиеся триалы, продлевает периоды и выставляет счета, закрывает
// отменённые и просроченные подписки, гасит доступ к курсам с истёкшим
// сроком и рассылает напоминания. Все переходы выполняются охраняемыми
// UPDATE, повторный прогон цикла не меняет уже переведённые записи.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/edlatam/lms-platform/internal/lib/period"
	"github.com/edlatam/lms-platform/internal/lib/sl"
	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// BillingRepository описывает методы хранилища, которыми пользуется
// планировщик биллинга.
type BillingRepository interface {
	// FindTrialsEndingBefore возвращает пробные подписки, срок которых истёк к порогу.
	FindTrialsEndingBefore(ctx context.Context, cutoff time.Time) ([]*models.Subscription, error)
	// ActivateFromTrial переводит подписку из trialing в active и открывает первый период.
	ActivateFromTrial(ctx context.Context, subscriptionID string, periodStart, periodEnd time.Time) (int, error)
	// FindRenewalsDueBefore возвращает активные подписки, период которых пора продлевать.
	FindRenewalsDueBefore(ctx context.Context, cutoff time.Time) ([]*models.Subscription, error)
	// AdvancePeriod продлевает активную подписку на следующий период.
	AdvancePeriod(ctx context.Context, subscriptionID string, periodStart, periodEnd time.Time) (int, error)
	// FindCancellationsDueBefore возвращает подписки, помеченные к отмене, с истёкшим периодом.
	FindCancellationsDueBefore(ctx context.Context, cutoff time.Time) ([]*models.Subscription, error)
	// FinishCancelledPeriod закрывает подписку, помеченную к отмене.
	FinishCancelledPeriod(ctx context.Context, subscriptionID string) (int, error)
	// FindPastDueEndedBefore возвращает просроченные подписки с истёкшим периодом.
	FindPastDueEndedBefore(ctx context.Context, cutoff time.Time) ([]*models.Subscription, error)
	// ExpireSubscription закрывает просроченную подписку как expired.
	ExpireSubscription(ctx context.Context, subscriptionID string) (int, error)
	// MarkSubscriptionPastDue помечает активную подписку просроченной.
	MarkSubscriptionPastDue(ctx context.Context, subscriptionID string) (int, error)
	// GetPlan возвращает тарифный план по идентификатору.
	GetPlan(ctx context.Context, planID string) (*models.Plan, error)
	// CreateInvoice выставляет счёт за период подписки.
	CreateInvoice(ctx context.Context, invoice models.Invoice) (string, error)
	// ListOpenInvoicesIssuedBefore возвращает открытые счета, выставленные раньше порога.
	ListOpenInvoicesIssuedBefore(ctx context.Context, issuedBefore time.Time) ([]*models.Invoice, error)
	// VoidOpenInvoices аннулирует все открытые счета подписки.
	VoidOpenInvoices(ctx context.Context, subscriptionID string) (int, error)
	// ExpireEnrollments закрывает активные записи с истёкшим сроком доступа.
	ExpireEnrollments(ctx context.Context) (int, error)
	// FindSubscriptionsEndingBetween возвращает открытые подписки, период которых кончается в окне.
	FindSubscriptionsEndingBetween(ctx context.Context, from, to time.Time) ([]*models.Subscription, error)
	// FindOverdueDataRightsRequests возвращает незавершённые запросы субъектов данных с истёкшим сроком.
	FindOverdueDataRightsRequests(ctx context.Context, asOf time.Time) ([]*models.DataRightsRequest, error)
	// GetUserByID возвращает пользователя по идентификатору.
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
}

// Events описывает публикацию доменных событий и уведомлений.
type Events interface {
	Record(event models.Event)
	Notify(msg models.NotificationMessage)
}

// BillingSchedulerService выполняет фоновые переходы биллинга.
type BillingSchedulerService struct {
	repo         BillingRepository
	events       Events
	invoiceGrace time.Duration
	noticeDays   int
	log          *slog.Logger
}

// NewBillingSchedulerService создает новый экземпляр BillingSchedulerService.
func NewBillingSchedulerService(repo BillingRepository, events Events,
	invoiceGrace time.Duration, noticeDays int, log *slog.Logger) *BillingSchedulerService {
	return &BillingSchedulerService{
		repo:         repo,
		events:       events,
		invoiceGrace: invoiceGrace,
		noticeDays:   noticeDays,
		log:          log,
	}
}

// ProcessBillingCycle гоняет полный цикл биллинга с заданным интервалом.
// Порядок стадий фиксирован: триалы активируются раньше продлений,
// закрытия подписок идут после выставления счетов.
func (s *BillingSchedulerService) ProcessBillingCycle(ctx context.Context, interval time.Duration) {
	s.runBillingCycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		s.runBillingCycle(ctx)
	}
}

func (s *BillingSchedulerService) runBillingCycle(ctx context.Context) {
	s.log.Info("starting billing cycle")
	now := time.Now().UTC()
	s.runTrialActivations(ctx, now)
	s.runRenewals(ctx, now)
	s.runCancellations(ctx, now)
	s.runOverdueInvoices(ctx, now)
	s.runExpirations(ctx, now)
	s.runEnrollmentExpiry(ctx)
}

func (s *BillingSchedulerService) runTrialActivations(ctx context.Context, now time.Time) {
	subs, err := s.repo.FindTrialsEndingBefore(ctx, now)
	if err != nil {
		s.log.Error("failed to find ending trials", sl.Err(err))
		return
	}
	if len(subs) == 0 {
		s.log.Info("no ending trials found")
		return
	}
	s.log.Info("found ending trials", "count", len(subs))
	for _, sub := range subs {
		plan, err := s.repo.GetPlan(ctx, sub.PlanID)
		if err != nil {
			s.log.Error("failed to load plan",
				slog.String("subscription_id", sub.ID), sl.Err(err))
			continue
		}
		periodStart := sub.CurrentPeriodEnd
		periodEnd := period.AddMonths(periodStart, plan.IntervalMonths)
		count, err := s.repo.ActivateFromTrial(ctx, sub.ID, periodStart, periodEnd)
		if err != nil {
			s.log.Error("failed to activate trial",
				slog.String("subscription_id", sub.ID), sl.Err(err))
			continue
		}
		if count == 0 {
			continue
		}
		s.log.Info("trial activated", slog.String("subscription_id", sub.ID))
		s.issueInvoice(ctx, sub, plan, periodStart, periodEnd)
	}
}

func (s *BillingSchedulerService) runRenewals(ctx context.Context, now time.Time) {
	subs, err := s.repo.FindRenewalsDueBefore(ctx, now)
	if err != nil {
		s.log.Error("failed to find due renewals", sl.Err(err))
		return
	}
	if len(subs) == 0 {
		s.log.Info("no due renewals found")
		return
	}
	s.log.Info("found due renewals", "count", len(subs))
	for _, sub := range subs {
		plan, err := s.repo.GetPlan(ctx, sub.PlanID)
		if err != nil {
			s.log.Error("failed to load plan",
				slog.String("subscription_id", sub.ID), sl.Err(err))
			continue
		}
		periodStart := sub.CurrentPeriodEnd
		periodEnd := period.AddMonths(periodStart, plan.IntervalMonths)
		count, err := s.repo.AdvancePeriod(ctx, sub.ID, periodStart, periodEnd)
		if err != nil {
			s.log.Error("failed to advance period",
				slog.String("subscription_id", sub.ID), sl.Err(err))
			continue
		}
		if count == 0 {
			continue
		}
		s.log.Info("subscription renewed", slog.String("subscription_id", sub.ID))
		s.issueInvoice(ctx, sub, plan, periodStart, periodEnd)
	}
}

// issueInvoice выставляет счёт за период. Уникальность пары
// (подписка, начало периода) делает повторное выставление безвредным.
func (s *BillingSchedulerService) issueInvoice(ctx context.Context,
	sub *models.Subscription, plan *models.Plan, periodStart, periodEnd time.Time) {
	_, err := s.repo.CreateInvoice(ctx, models.Invoice{
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		AmountCents:    plan.PriceCents,
		Currency:       plan.Currency,
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
	})
	if errors.Is(err, repository.ErrAlreadyExists) {
		s.log.Info("invoice for period already issued",
			slog.String("subscription_id", sub.ID))
		return
	}
	if err != nil {
		s.log.Error("failed to issue invoice",
			slog.String("subscription_id", sub.ID), sl.Err(err))
		return
	}
	s.log.Info("invoice issued", slog.String("subscription_id", sub.ID),
		slog.Int("amount_cents", plan.PriceCents))
}

func (s *BillingSchedulerService) runCancellations(ctx context.Context, now time.Time) {
	subs, err := s.repo.FindCancellationsDueBefore(ctx, now)
	if err != nil {
		s.log.Error("failed to find due cancellations", sl.Err(err))
		return
	}
	if len(subs) == 0 {
		s.log.Info("no due cancellations found")
		return
	}
	s.log.Info("found due cancellations", "count", len(subs))
	for _, sub := range subs {
		count, err := s.repo.FinishCancelledPeriod(ctx, sub.ID)
		if err != nil {
			s.log.Error("failed to finish cancelled subscription",
				slog.String("subscription_id", sub.ID), sl.Err(err))
			continue
		}
		if count == 0 {
			continue
		}
		s.log.Info("subscription cancelled at period end",
			slog.String("subscription_id", sub.ID))
		s.voidOpenInvoices(ctx, sub.ID)
		s.recordSubscriptionEnded(sub, "cancel_period_end")
	}
}

func (s *BillingSchedulerService) runOverdueInvoices(ctx context.Context, now time.Time) {
	invoices, err := s.repo.ListOpenInvoicesIssuedBefore(ctx, now.Add(-s.invoiceGrace))
	if err != nil {
		s.log.Error("failed to find overdue invoices", sl.Err(err))
		return
	}
	if len(invoices) == 0 {
		s.log.Info("no overdue invoices found")
		return
	}
	s.log.Info("found overdue invoices", "count", len(invoices))
	for _, inv := range invoices {
		count, err := s.repo.MarkSubscriptionPastDue(ctx, inv.SubscriptionID)
		if err != nil {
			s.log.Error("failed to mark subscription past due",
				slog.String("subscription_id", inv.SubscriptionID), sl.Err(err))
			continue
		}
		if count == 0 {
			continue
		}
		s.log.Info("subscription marked past due",
			slog.String("subscription_id", inv.SubscriptionID))
		s.notifyOverdue(ctx, inv)
	}
}

func (s *BillingSchedulerService) notifyOverdue(ctx context.Context, inv *models.Invoice) {
	user, err := s.repo.GetUserByID(ctx, inv.UserID)
	if err != nil {
		s.log.Error("failed to load user",
			slog.String("user_id", inv.UserID), sl.Err(err))
		return
	}
	amount := strconv.FormatFloat(float64(inv.AmountCents)/100, 'f', 2, 64)
	s.events.Notify(models.NotificationMessage{
		UserID: inv.UserID,
		Email:  user.Email,
		Topic:  models.TopicPaymentOverdue,
		Title:  "Tienes un pago pendiente",
		Body: fmt.Sprintf("Tu factura de %s %s sigue sin pagar. Regulariza el pago para conservar el acceso a tu suscripción.",
			amount, inv.Currency),
	})
}

func (s *BillingSchedulerService) runExpirations(ctx context.Context, now time.Time) {
	subs, err := s.repo.FindPastDueEndedBefore(ctx, now)
	if err != nil {
		s.log.Error("failed to find expired subscriptions", sl.Err(err))
		return
	}
	if len(subs) == 0 {
		s.log.Info("no expired subscriptions found")
		return
	}
	s.log.Info("found expired subscriptions", "count", len(subs))
	for _, sub := range subs {
		count, err := s.repo.ExpireSubscription(ctx, sub.ID)
		if err != nil {
			s.log.Error("failed to expire subscription",
				slog.String("subscription_id", sub.ID), sl.Err(err))
			continue
		}
		if count == 0 {
			continue
		}
		s.log.Info("subscription expired", slog.String("subscription_id", sub.ID))
		s.voidOpenInvoices(ctx, sub.ID)
		s.recordSubscriptionEnded(sub, "past_due_expired")
	}
}

func (s *BillingSchedulerService) runEnrollmentExpiry(ctx context.Context) {
	count, err := s.repo.ExpireEnrollments(ctx)
	if err != nil {
		s.log.Error("failed to expire enrollments", sl.Err(err))
		return
	}
	if count == 0 {
		s.log.Info("no enrollments to expire")
		return
	}
	s.log.Info("expired enrollments", "count", count)
}

// SendRenewalNotices раз в сутки предупреждает о приближающемся продлении
// или конце пробного периода.
func (s *BillingSchedulerService) SendRenewalNotices(ctx context.Context) {
	s.runSendRenewalNotices(ctx)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		s.runSendRenewalNotices(ctx)
	}
}

func (s *BillingSchedulerService) runSendRenewalNotices(ctx context.Context) {
	s.log.Info("starting service to find upcoming renewals")
	now := time.Now().UTC()
	to := now.Add(time.Duration(s.noticeDays) * 24 * time.Hour)
	subs, err := s.repo.FindSubscriptionsEndingBetween(ctx, now, to)
	if err != nil {
		s.log.Error("failed to find upcoming renewals", sl.Err(err))
		return
	}
	if len(subs) == 0 {
		s.log.Info("no upcoming renewals found")
		return
	}
	s.log.Info("found upcoming renewals", "count", len(subs))
	for _, sub := range subs {
		user, err := s.repo.GetUserByID(ctx, sub.UserID)
		if err != nil {
			s.log.Error("failed to load user",
				slog.String("user_id", sub.UserID), sl.Err(err))
			continue
		}
		when := sub.CurrentPeriodEnd.Format("02/01/2006")
		topic := models.TopicRenewalUpcoming
		title := "Tu suscripción se renueva pronto"
		body := fmt.Sprintf("Tu suscripción se renovará el %s. Verifica tu método de pago para no perder el acceso.", when)
		if sub.Status == models.SubscriptionStatusTrialing {
			topic = models.TopicTrialEnding
			title = "Tu periodo de prueba está por terminar"
			body = fmt.Sprintf("Tu periodo de prueba termina el %s. Después emitiremos la primera factura de tu plan.", when)
		}
		s.events.Notify(models.NotificationMessage{
			UserID: sub.UserID,
			Email:  user.Email,
			Topic:  topic,
			Title:  title,
			Body:   body,
		})
	}
}

// RemindOverdueDataRights раз в сутки напоминает о запросах субъектов
// данных, срок ответа по которым истёк.
func (s *BillingSchedulerService) RemindOverdueDataRights(ctx context.Context) {
	s.runRemindOverdueDataRights(ctx)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		s.runRemindOverdueDataRights(ctx)
	}
}

func (s *BillingSchedulerService) runRemindOverdueDataRights(ctx context.Context) {
	s.log.Info("starting service to find overdue data rights requests")
	requests, err := s.repo.FindOverdueDataRightsRequests(ctx, time.Now().UTC())
	if err != nil {
		s.log.Error("failed to find overdue data rights requests", sl.Err(err))
		return
	}
	if len(requests) == 0 {
		s.log.Info("no overdue data rights requests found")
		return
	}
	s.log.Info("found overdue data rights requests", "count", len(requests))
	for _, req := range requests {
		user, err := s.repo.GetUserByID(ctx, req.UserID)
		if err != nil {
			s.log.Error("failed to load user",
				slog.String("user_id", req.UserID), sl.Err(err))
			continue
		}
		s.events.Notify(models.NotificationMessage{
			UserID: req.UserID,
			Email:  user.Email,
			Topic:  models.TopicDataRightsDue,
			Title:  "Seguimos procesando tu solicitud",
			Body: fmt.Sprintf("Tu solicitud de datos del %s sigue en proceso. Lamentamos la demora, te responderemos a la brevedad.",
				req.ReceivedAt.Format("02/01/2006")),
		})
	}
}

func (s *BillingSchedulerService) voidOpenInvoices(ctx context.Context, subscriptionID string) {
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

func (s *BillingSchedulerService) recordSubscriptionEnded(sub *models.Subscription, reason string) {
	entity := "subscription"
	payload, err := json.Marshal(map[string]string{"reason": reason})
	if err != nil {
		payload = nil
	}
	s.events.Record(models.Event{
		EventType:  models.EventSubscriptionEnd,
		UserID:     &sub.UserID,
		EntityType: &entity,
		EntityID:   &sub.ID,
		Payload:    payload,
	})
}
