package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edlatam/lms-platform/internal/lib/ordernum"
	"github.com/edlatam/lms-platform/internal/models"
)

func TestStorage_CreateOrder(t *testing.T) {
	t.Run("order gets a database-assigned number", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		instructorID := factory.CreateUser(t, RandomEmail(), models.RoleInstructor)
		userID := factory.CreateUser(t, RandomEmail(), models.RoleStudent)
		courseID := factory.CreateCourse(t, instructorID, "Redes", "redes", 1200000, true)
		ctx := context.Background()

		gotID, gotNumber, err := storage.CreateOrder(ctx, models.Order{
			UserID:      userID,
			CourseID:    courseID,
			AmountCents: 1200000,
			Currency:    "COP",
		})
		require.NoError(t, err)
		require.NotEmpty(t, gotID)
		assert.True(t, ordernum.Valid(gotNumber), "unexpected order number %q", gotNumber)

		order, err := storage.GetOrder(ctx, gotID)
		require.NoError(t, err)
		assert.Equal(t, gotNumber, order.OrderNumber)
		assert.Equal(t, models.OrderStatusPending, order.Status)
		assert.Equal(t, 1200000, order.AmountCents)
	})
}

func TestStorage_OrderTransitions(t *testing.T) {
	tests := []struct {
		name       string
		fromStatus string
		transition func(ctx context.Context, s *Storage, orderID, userID string) (int, error)
		wantRows   int
		wantStatus string
	}{
		{
			name:       "pay from pending",
			fromStatus: models.OrderStatusPending,
			transition: func(ctx context.Context, s *Storage, orderID, userID string) (int, error) {
				return s.MarkOrderPaid(ctx, orderID, userID)
			},
			wantRows:   1,
			wantStatus: models.OrderStatusPaid,
		},
		{
			name:       "pay an already paid order is rejected",
			fromStatus: models.OrderStatusPaid,
			transition: func(ctx context.Context, s *Storage, orderID, userID string) (int, error) {
				return s.MarkOrderPaid(ctx, orderID, userID)
			},
			wantRows:   0,
			wantStatus: models.OrderStatusPaid,
		},
		{
			name:       "cancel from pending",
			fromStatus: models.OrderStatusPending,
			transition: func(ctx context.Context, s *Storage, orderID, userID string) (int, error) {
				return s.MarkOrderCancelled(ctx, orderID, userID)
			},
			wantRows:   1,
			wantStatus: models.OrderStatusCancelled,
		},
		{
			name:       "refund from paid",
			fromStatus: models.OrderStatusPaid,
			transition: func(ctx context.Context, s *Storage, orderID, _ string) (int, error) {
				return s.MarkOrderRefunded(ctx, orderID)
			},
			wantRows:   1,
			wantStatus: models.OrderStatusRefunded,
		},
		{
			name:       "refund from pending is rejected",
			fromStatus: models.OrderStatusPending,
			transition: func(ctx context.Context, s *Storage, orderID, _ string) (int, error) {
				return s.MarkOrderRefunded(ctx, orderID)
			},
			wantRows:   0,
			wantStatus: models.OrderStatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			instructorID := factory.CreateUser(t, RandomEmail(), models.RoleInstructor)
			userID := factory.CreateUser(t, RandomEmail(), models.RoleStudent)
			courseID := factory.CreateCourse(t, instructorID, "Linux", "linux", 800000, true)
			orderID := factory.CreateOrder(t, userID, courseID, 800000, tt.fromStatus)

			gotRows, err := tt.transition(context.Background(), storage, orderID, userID)

			require.NoError(t, err)
			assert.Equal(t, tt.wantRows, gotRows)

			verification := NewTestVerification(storage)
			verification.VerifyRowStatus(t, "payments.orders", orderID, tt.wantStatus)
		})
	}
}

func TestStorage_CreateSubscription(t *testing.T) {
	t.Run("one open subscription per user", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		userID := factory.CreateUser(t, RandomEmail(), models.RoleStudent)
		planID := factory.GetPlanID(t, "pro-mensual")
		ctx := context.Background()
		now := time.Now().UTC()

		firstID, err := storage.CreateSubscription(ctx, models.Subscription{
			UserID:             userID,
			PlanID:             planID,
			Status:             models.SubscriptionStatusActive,
			CurrentPeriodStart: now,
			CurrentPeriodEnd:   now.AddDate(0, 1, 0),
		})
		require.NoError(t, err)
		require.NotEmpty(t, firstID)

		// Вторая открытая подписка упирается в частичный уникальный индекс.
		_, err = storage.CreateSubscription(ctx, models.Subscription{
			UserID:             userID,
			PlanID:             planID,
			Status:             models.SubscriptionStatusTrialing,
			CurrentPeriodStart: now,
			CurrentPeriodEnd:   now.AddDate(0, 1, 0),
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAlreadyExists)

		// После закрытия старой подписки новая оформляется свободно.
		rows, err := storage.CancelSubscriptionNow(ctx, firstID, userID)
		require.NoError(t, err)
		require.Equal(t, 1, rows)

		secondID, err := storage.CreateSubscription(ctx, models.Subscription{
			UserID:             userID,
			PlanID:             planID,
			Status:             models.SubscriptionStatusActive,
			CurrentPeriodStart: now,
			CurrentPeriodEnd:   now.AddDate(0, 1, 0),
		})
		require.NoError(t, err)
		require.NotEmpty(t, secondID)

		open, err := storage.GetOpenSubscriptionByUser(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, secondID, open.ID)
	})
}

func TestStorage_SubscriptionBillingTransitions(t *testing.T) {
	t.Run("trial activates into the first paid period", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		userID := factory.CreateUser(t, RandomEmail(), models.RoleStudent)
		planID := factory.GetPlanID(t, "basico-mensual")
		now := time.Now().UTC()
		subscriptionID := factory.CreateSubscription(t, userID, planID,
			models.SubscriptionStatusTrialing, now.AddDate(0, 0, -7), now)
		ctx := context.Background()

		rows, err := storage.ActivateFromTrial(ctx, subscriptionID, now, now.AddDate(0, 1, 0))
		require.NoError(t, err)
		require.Equal(t, 1, rows)

		sub, err := storage.GetSubscription(ctx, subscriptionID)
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionStatusActive, sub.Status)

		// Повторная активация уже активной подписки отклоняется.
		rows, err = storage.ActivateFromTrial(ctx, subscriptionID, now, now.AddDate(0, 1, 0))
		require.NoError(t, err)
		assert.Equal(t, 0, rows)
	})

	t.Run("past_due subscription expires after its period ends", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		userID := factory.CreateUser(t, RandomEmail(), models.RoleStudent)
		planID := factory.GetPlanID(t, "basico-mensual")
		now := time.Now().UTC()
		subscriptionID := factory.CreateSubscription(t, userID, planID,
			models.SubscriptionStatusActive, now.AddDate(0, -1, 0), now.AddDate(0, 0, -3))
		ctx := context.Background()

		rows, err := storage.MarkSubscriptionPastDue(ctx, subscriptionID)
		require.NoError(t, err)
		require.Equal(t, 1, rows)

		found, err := storage.FindPastDueEndedBefore(ctx, now)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, subscriptionID, found[0].ID)

		rows, err = storage.ExpireSubscription(ctx, subscriptionID)
		require.NoError(t, err)
		require.Equal(t, 1, rows)

		verification := NewTestVerification(storage)
		verification.VerifyRowStatus(t, "subscriptions.subscriptions",
			subscriptionID, models.SubscriptionStatusExpired)
	})
}

func TestStorage_CreateInvoice(t *testing.T) {
	t.Run("duplicate billing period returns ErrAlreadyExists", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		userID := factory.CreateUser(t, RandomEmail(), models.RoleStudent)
		planID := factory.GetPlanID(t, "pro-mensual")
		now := time.Now().UTC()
		subscriptionID := factory.CreateSubscription(t, userID, planID,
			models.SubscriptionStatusActive, now, now.AddDate(0, 1, 0))
		ctx := context.Background()

		periodStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		invoice := models.Invoice{
			SubscriptionID: subscriptionID,
			UserID:         userID,
			AmountCents:    4990000,
			Currency:       "COP",
			PeriodStart:    periodStart,
			PeriodEnd:      periodStart.AddDate(0, 1, 0),
		}

		firstID, err := storage.CreateInvoice(ctx, invoice)
		require.NoError(t, err)
		require.NotEmpty(t, firstID)

		_, err = storage.CreateInvoice(ctx, invoice)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAlreadyExists)

		rows, err := storage.MarkInvoicePaid(ctx, firstID)
		require.NoError(t, err)
		assert.Equal(t, 1, rows)

		// Оплаченный счёт нельзя аннулировать.
		rows, err = storage.MarkInvoiceVoid(ctx, firstID)
		require.NoError(t, err)
		assert.Equal(t, 0, rows)
	})
}

func TestStorage_SubmissionLifecycle(t *testing.T) {
	t.Run("single open submission, then submit and grade", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		instructorID := factory.CreateUser(t, RandomEmail(), models.RoleInstructor)
		userID := factory.CreateUser(t, RandomEmail(), models.RoleStudent)
		courseID := factory.CreateCourse(t, instructorID, "Git", "git", 500000, true)
		ctx := context.Background()

		quizID, err := storage.CreateQuiz(ctx, models.Quiz{
			CourseID:     courseID,
			Title:        "Examen final",
			PassingScore: 60,
		})
		require.NoError(t, err)

		submissionID, err := storage.CreateSubmission(ctx, quizID, userID)
		require.NoError(t, err)

		// Вторая открытая попытка по тому же тесту отклоняется.
		_, err = storage.CreateSubmission(ctx, quizID, userID)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAlreadyExists)

		answers := json.RawMessage(`{"q1": "b", "q2": "d"}`)
		rows, err := storage.SubmitSubmission(ctx, submissionID, userID, answers)
		require.NoError(t, err)
		require.Equal(t, 1, rows)

		// После сдачи первой попытки можно открыть новую.
		secondID, err := storage.CreateSubmission(ctx, quizID, userID)
		require.NoError(t, err)
		require.NotEqual(t, submissionID, secondID)

		rows, err = storage.GradeSubmission(ctx, submissionID, 85)
		require.NoError(t, err)
		require.Equal(t, 1, rows)

		graded, err := storage.GetSubmission(ctx, submissionID)
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionStatusGraded, graded.Status)
		require.NotNil(t, graded.Score)
		assert.InDelta(t, 85.0, *graded.Score, 0.001)
		require.NotNil(t, graded.GradedAt)
		assert.JSONEq(t, string(answers), string(graded.Answers))

		// Оценка несданной попытки отклоняется.
		rows, err = storage.GradeSubmission(ctx, secondID, 40)
		require.NoError(t, err)
		assert.Equal(t, 0, rows)
	})
}
