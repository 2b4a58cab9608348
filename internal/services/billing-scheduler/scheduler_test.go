package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/edlatam/lms-platform/internal/lib/period"
	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

type BillingRepoMock struct {
	mock.Mock
}

func (m *BillingRepoMock) FindTrialsEndingBefore(ctx context.Context, cutoff time.Time) ([]*models.Subscription, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

func (m *BillingRepoMock) ActivateFromTrial(ctx context.Context, subscriptionID string, periodStart, periodEnd time.Time) (int, error) {
	args := m.Called(ctx, subscriptionID, periodStart, periodEnd)
	return args.Int(0), args.Error(1)
}

func (m *BillingRepoMock) FindRenewalsDueBefore(ctx context.Context, cutoff time.Time) ([]*models.Subscription, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

func (m *BillingRepoMock) AdvancePeriod(ctx context.Context, subscriptionID string, periodStart, periodEnd time.Time) (int, error) {
	args := m.Called(ctx, subscriptionID, periodStart, periodEnd)
	return args.Int(0), args.Error(1)
}

func (m *BillingRepoMock) FindCancellationsDueBefore(ctx context.Context, cutoff time.Time) ([]*models.Subscription, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

func (m *BillingRepoMock) FinishCancelledPeriod(ctx context.Context, subscriptionID string) (int, error) {
	args := m.Called(ctx, subscriptionID)
	return args.Int(0), args.Error(1)
}

func (m *BillingRepoMock) FindPastDueEndedBefore(ctx context.Context, cutoff time.Time) ([]*models.Subscription, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

func (m *BillingRepoMock) ExpireSubscription(ctx context.Context, subscriptionID string) (int, error) {
	args := m.Called(ctx, subscriptionID)
	return args.Int(0), args.Error(1)
}

func (m *BillingRepoMock) MarkSubscriptionPastDue(ctx context.Context, subscriptionID string) (int, error) {
	args := m.Called(ctx, subscriptionID)
	return args.Int(0), args.Error(1)
}

func (m *BillingRepoMock) GetPlan(ctx context.Context, planID string) (*models.Plan, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plan), args.Error(1)
}

func (m *BillingRepoMock) CreateInvoice(ctx context.Context, invoice models.Invoice) (string, error) {
	args := m.Called(ctx, invoice)
	return args.String(0), args.Error(1)
}

func (m *BillingRepoMock) ListOpenInvoicesIssuedBefore(ctx context.Context, issuedBefore time.Time) ([]*models.Invoice, error) {
	args := m.Called(ctx, issuedBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Invoice), args.Error(1)
}

func (m *BillingRepoMock) VoidOpenInvoices(ctx context.Context, subscriptionID string) (int, error) {
	args := m.Called(ctx, subscriptionID)
	return args.Int(0), args.Error(1)
}

func (m *BillingRepoMock) ExpireEnrollments(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *BillingRepoMock) FindSubscriptionsEndingBetween(ctx context.Context, from, to time.Time) ([]*models.Subscription, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

func (m *BillingRepoMock) FindOverdueDataRightsRequests(ctx context.Context, asOf time.Time) ([]*models.DataRightsRequest, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DataRightsRequest), args.Error(1)
}

func (m *BillingRepoMock) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type EventsMock struct {
	mock.Mock
}

func (m *EventsMock) Record(event models.Event) {
	m.Called(event)
}

func (m *EventsMock) Notify(msg models.NotificationMessage) {
	m.Called(msg)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newTestScheduler(repo *BillingRepoMock, events *EventsMock) *BillingSchedulerService {
	return NewBillingSchedulerService(repo, events, 72*time.Hour, 3, newNoopLogger())
}

func eventReason(ev models.Event) string {
	var payload struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		return ""
	}
	return payload.Reason
}

func TestBillingScheduler_TrialActivations(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	trialEnd := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	sub := &models.Subscription{ID: "sub-1", UserID: "user-1", PlanID: "plan-1",
		Status: models.SubscriptionStatusTrialing, CurrentPeriodEnd: trialEnd}
	plan := &models.Plan{ID: "plan-1", Code: "premium-monthly", PriceCents: 49900,
		Currency: "COP", IntervalMonths: 1, TrialDays: 7, IsActive: true}

	t.Run("ended trial is activated and invoiced", func(t *testing.T) {
		repo := new(BillingRepoMock)
		events := new(EventsMock)
		svc := newTestScheduler(repo, events)

		periodEnd := period.AddMonths(trialEnd, 1)
		repo.On("FindTrialsEndingBefore", mock.Anything, now).
			Return([]*models.Subscription{sub}, nil).Once()
		repo.On("GetPlan", mock.Anything, "plan-1").Return(plan, nil).Once()
		repo.On("ActivateFromTrial", mock.Anything, "sub-1", trialEnd, periodEnd).
			Return(1, nil).Once()
		repo.On("CreateInvoice", mock.Anything, mock.MatchedBy(func(inv models.Invoice) bool {
			return inv.SubscriptionID == "sub-1" && inv.AmountCents == 49900 &&
				inv.PeriodStart.Equal(trialEnd) && inv.PeriodEnd.Equal(periodEnd)
		})).Return("inv-1", nil).Once()

		svc.runTrialActivations(context.Background(), now)

		repo.AssertExpectations(t)
	})

	t.Run("trial cancelled in between is skipped", func(t *testing.T) {
		repo := new(BillingRepoMock)
		events := new(EventsMock)
		svc := newTestScheduler(repo, events)

		repo.On("FindTrialsEndingBefore", mock.Anything, now).
			Return([]*models.Subscription{sub}, nil).Once()
		repo.On("GetPlan", mock.Anything, "plan-1").Return(plan, nil).Once()
		repo.On("ActivateFromTrial", mock.Anything, "sub-1", mock.Anything, mock.Anything).
			Return(0, nil).Once()

		svc.runTrialActivations(context.Background(), now)

		repo.AssertExpectations(t)
	})
}

func TestBillingScheduler_Renewals(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	sub := &models.Subscription{ID: "sub-1", UserID: "user-1", PlanID: "plan-1",
		Status: models.SubscriptionStatusActive, CurrentPeriodEnd: periodEnd}
	plan := &models.Plan{ID: "plan-1", Code: "premium-monthly", PriceCents: 49900,
		Currency: "COP", IntervalMonths: 1, IsActive: true}

	t.Run("new period starts where the old one ended", func(t *testing.T) {
		repo := new(BillingRepoMock)
		events := new(EventsMock)
		svc := newTestScheduler(repo, events)

		nextEnd := period.AddMonths(periodEnd, 1)
		repo.On("FindRenewalsDueBefore", mock.Anything, now).
			Return([]*models.Subscription{sub}, nil).Once()
		repo.On("GetPlan", mock.Anything, "plan-1").Return(plan, nil).Once()
		repo.On("AdvancePeriod", mock.Anything, "sub-1", periodEnd, nextEnd).
			Return(1, nil).Once()
		repo.On("CreateInvoice", mock.Anything, mock.MatchedBy(func(inv models.Invoice) bool {
			return inv.PeriodStart.Equal(periodEnd) && inv.PeriodEnd.Equal(nextEnd)
		})).Return("inv-1", nil).Once()

		svc.runRenewals(context.Background(), now)

		repo.AssertExpectations(t)
	})

	t.Run("duplicate invoice from a parallel run is tolerated", func(t *testing.T) {
		repo := new(BillingRepoMock)
		events := new(EventsMock)
		svc := newTestScheduler(repo, events)

		repo.On("FindRenewalsDueBefore", mock.Anything, now).
			Return([]*models.Subscription{sub}, nil).Once()
		repo.On("GetPlan", mock.Anything, "plan-1").Return(plan, nil).Once()
		repo.On("AdvancePeriod", mock.Anything, "sub-1", mock.Anything, mock.Anything).
			Return(1, nil).Once()
		repo.On("CreateInvoice", mock.Anything, mock.Anything).
			Return("", fmt.Errorf("repository.CreateInvoice: %w", repository.ErrAlreadyExists)).Once()

		svc.runRenewals(context.Background(), now)

		repo.AssertExpectations(t)
	})
}

func TestBillingScheduler_Cancellations(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	sub := &models.Subscription{ID: "sub-1", UserID: "user-1", PlanID: "plan-1",
		Status: models.SubscriptionStatusActive, CancelAtPeriodEnd: true,
		CurrentPeriodEnd: now.Add(-time.Hour)}

	repo := new(BillingRepoMock)
	events := new(EventsMock)
	svc := newTestScheduler(repo, events)

	repo.On("FindCancellationsDueBefore", mock.Anything, now).
		Return([]*models.Subscription{sub}, nil).Once()
	repo.On("FinishCancelledPeriod", mock.Anything, "sub-1").Return(1, nil).Once()
	repo.On("VoidOpenInvoices", mock.Anything, "sub-1").Return(1, nil).Once()
	events.On("Record", mock.MatchedBy(func(ev models.Event) bool {
		return ev.EventType == models.EventSubscriptionEnd && eventReason(ev) == "cancel_period_end"
	})).Return().Once()

	svc.runCancellations(context.Background(), now)

	repo.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestBillingScheduler_OverdueInvoices(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	invoice := &models.Invoice{ID: "inv-1", SubscriptionID: "sub-1", UserID: "user-1",
		AmountCents: 49900, Currency: "COP", Status: models.InvoiceStatusOpen}
	user := &models.User{ID: "user-1", Email: "ana@example.com"}

	t.Run("unpaid invoice past grace marks the subscription", func(t *testing.T) {
		repo := new(BillingRepoMock)
		events := new(EventsMock)
		svc := newTestScheduler(repo, events)

		repo.On("ListOpenInvoicesIssuedBefore", mock.Anything, now.Add(-72*time.Hour)).
			Return([]*models.Invoice{invoice}, nil).Once()
		repo.On("MarkSubscriptionPastDue", mock.Anything, "sub-1").Return(1, nil).Once()
		repo.On("GetUserByID", mock.Anything, "user-1").Return(user, nil).Once()
		events.On("Notify", mock.MatchedBy(func(msg models.NotificationMessage) bool {
			return msg.Topic == models.TopicPaymentOverdue && msg.Email == "ana@example.com"
		})).Return().Once()

		svc.runOverdueInvoices(context.Background(), now)

		repo.AssertExpectations(t)
		events.AssertExpectations(t)
	})

	t.Run("subscription already past due is not notified again", func(t *testing.T) {
		repo := new(BillingRepoMock)
		events := new(EventsMock)
		svc := newTestScheduler(repo, events)

		repo.On("ListOpenInvoicesIssuedBefore", mock.Anything, mock.Anything).
			Return([]*models.Invoice{invoice}, nil).Once()
		repo.On("MarkSubscriptionPastDue", mock.Anything, "sub-1").Return(0, nil).Once()

		svc.runOverdueInvoices(context.Background(), now)

		repo.AssertExpectations(t)
		events.AssertExpectations(t)
	})
}

func TestBillingScheduler_Expirations(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	sub := &models.Subscription{ID: "sub-1", UserID: "user-1", PlanID: "plan-1",
		Status: models.SubscriptionStatusPastDue, CurrentPeriodEnd: now.Add(-time.Hour)}

	repo := new(BillingRepoMock)
	events := new(EventsMock)
	svc := newTestScheduler(repo, events)

	repo.On("FindPastDueEndedBefore", mock.Anything, now).
		Return([]*models.Subscription{sub}, nil).Once()
	repo.On("ExpireSubscription", mock.Anything, "sub-1").Return(1, nil).Once()
	repo.On("VoidOpenInvoices", mock.Anything, "sub-1").Return(0, nil).Once()
	events.On("Record", mock.MatchedBy(func(ev models.Event) bool {
		return ev.EventType == models.EventSubscriptionEnd && eventReason(ev) == "past_due_expired"
	})).Return().Once()

	svc.runExpirations(context.Background(), now)

	repo.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestBillingScheduler_EnrollmentExpiry(t *testing.T) {
	repo := new(BillingRepoMock)
	events := new(EventsMock)
	svc := newTestScheduler(repo, events)

	repo.On("ExpireEnrollments", mock.Anything).Return(3, nil).Once()

	svc.runEnrollmentExpiry(context.Background())

	repo.AssertExpectations(t)
}

func TestBillingScheduler_RenewalNotices(t *testing.T) {
	soon := time.Now().UTC().Add(48 * time.Hour)
	trialing := &models.Subscription{ID: "sub-1", UserID: "user-1", PlanID: "plan-1",
		Status: models.SubscriptionStatusTrialing, CurrentPeriodEnd: soon}
	active := &models.Subscription{ID: "sub-2", UserID: "user-2", PlanID: "plan-1",
		Status: models.SubscriptionStatusActive, CurrentPeriodEnd: soon}

	repo := new(BillingRepoMock)
	events := new(EventsMock)
	svc := newTestScheduler(repo, events)

	repo.On("FindSubscriptionsEndingBetween", mock.Anything, mock.Anything, mock.Anything).
		Return([]*models.Subscription{trialing, active}, nil).Once()
	repo.On("GetUserByID", mock.Anything, "user-1").
		Return(&models.User{ID: "user-1", Email: "ana@example.com"}, nil).Once()
	repo.On("GetUserByID", mock.Anything, "user-2").
		Return(&models.User{ID: "user-2", Email: "luis@example.com"}, nil).Once()
	events.On("Notify", mock.MatchedBy(func(msg models.NotificationMessage) bool {
		return msg.Topic == models.TopicTrialEnding && msg.UserID == "user-1"
	})).Return().Once()
	events.On("Notify", mock.MatchedBy(func(msg models.NotificationMessage) bool {
		return msg.Topic == models.TopicRenewalUpcoming && msg.UserID == "user-2"
	})).Return().Once()

	svc.runSendRenewalNotices(context.Background())

	repo.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestBillingScheduler_OverdueDataRights(t *testing.T) {
	received := time.Now().UTC().AddDate(0, -1, 0)
	request := &models.DataRightsRequest{ID: "req-1", UserID: "user-1",
		RequestType: models.DataRightsExport, Jurisdiction: models.JurisdictionEU,
		Status: models.DataRightsStatusInProgress, ReceivedAt: received,
		DeadlineAt: received.AddDate(0, 0, 30)}

	repo := new(BillingRepoMock)
	events := new(EventsMock)
	svc := newTestScheduler(repo, events)

	repo.On("FindOverdueDataRightsRequests", mock.Anything, mock.Anything).
		Return([]*models.DataRightsRequest{request}, nil).Once()
	repo.On("GetUserByID", mock.Anything, "user-1").
		Return(&models.User{ID: "user-1", Email: "ana@example.com"}, nil).Once()
	events.On("Notify", mock.MatchedBy(func(msg models.NotificationMessage) bool {
		return msg.Topic == models.TopicDataRightsDue
	})).Return().Once()

	svc.runRemindOverdueDataRights(context.Background())

	repo.AssertExpectations(t)
	events.AssertExpectations(t)
}
