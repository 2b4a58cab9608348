// Package services содержит бизнес-логику записей на курсы и прогресса
// обучения. Прямая запись доступна на бесплатные курсы и обладателям
// открытой подписки, платные курсы проходят через оплату заказа.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// ErrPaymentRequired возвращается при попытке записаться на платный курс
// без открытой подписки.
var ErrPaymentRequired = errors.New("payment required")

// EnrollmentRepository описывает методы для работы с записями в хранилище.
type EnrollmentRepository interface {
	// CreateEnrollment записывает пользователя на курс.
	CreateEnrollment(ctx context.Context, enrollment models.Enrollment) (string, error)
	// GetEnrollment возвращает запись по идентификатору.
	GetEnrollment(ctx context.Context, enrollmentID string) (*models.Enrollment, error)
	// ListUserEnrollments возвращает записи пользователя.
	ListUserEnrollments(ctx context.Context, userID string, limit, offset int) ([]*models.Enrollment, error)
	// UpdateEnrollmentProgress монотонно повышает прогресс активной записи.
	UpdateEnrollmentProgress(ctx context.Context, enrollmentID, userID string, progress float64) (float64, error)
	// CompleteEnrollment завершает активную запись.
	CompleteEnrollment(ctx context.Context, enrollmentID, userID string) (int, error)
	// PauseEnrollment приостанавливает активную запись.
	PauseEnrollment(ctx context.Context, enrollmentID, userID string) (int, error)
	// ResumeEnrollment возобновляет приостановленную запись.
	ResumeEnrollment(ctx context.Context, enrollmentID, userID string) (int, error)
	// GetCourse возвращает неудалённый курс по идентификатору.
	GetCourse(ctx context.Context, courseID string) (*models.Course, error)
	// GetOpenSubscriptionByUser возвращает открытую подписку пользователя.
	GetOpenSubscriptionByUser(ctx context.Context, userID string) (*models.Subscription, error)
}

// Events описывает публикацию доменных событий.
type Events interface {
	Record(event models.Event)
}

// EnrollmentService реализует бизнес-логику записей на курсы.
type EnrollmentService struct {
	repo   EnrollmentRepository
	events Events
	log    *slog.Logger
}

// NewEnrollmentService создает новый экземпляр EnrollmentService.
func NewEnrollmentService(repo EnrollmentRepository, events Events, log *slog.Logger) *EnrollmentService {
	return &EnrollmentService{
		repo:   repo,
		events: events,
		log:    log,
	}
}

// Enroll записывает пользователя на опубликованный курс. Срок доступа
// считается от момента записи по access_days курса.
func (s *EnrollmentService) Enroll(ctx context.Context, userID string, req models.DummyEnrollment) (string, error) {
	course, err := s.repo.GetCourse(ctx, req.CourseID)
	if err != nil {
		return "", err
	}
	if !course.IsPublished {
		return "", repository.ErrNotFound
	}

	if course.PriceCents > 0 {
		if _, err := s.repo.GetOpenSubscriptionByUser(ctx, userID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return "", ErrPaymentRequired
			}
			return "", err
		}
	}

	enrollment := models.Enrollment{
		UserID:   userID,
		CourseID: course.ID,
		Status:   models.EnrollmentStatusActive,
	}
	if course.AccessDays != nil {
		expiresAt := time.Now().UTC().AddDate(0, 0, *course.AccessDays)
		enrollment.ExpiresAt = &expiresAt
	}

	id, err := s.repo.CreateEnrollment(ctx, enrollment)
	if err != nil {
		return "", err
	}
	s.log.Info("created enrollment", slog.String("id", id),
		slog.String("course_id", course.ID))

	s.recordEvent(models.EventEnrollmentCreated, userID, id, course.ID)
	return id, nil
}

// ListMine возвращает записи пользователя.
func (s *EnrollmentService) ListMine(ctx context.Context, userID string, limit, offset int) ([]*models.Enrollment, error) {
	return s.repo.ListUserEnrollments(ctx, userID, limit, offset)
}

// UpdateProgress повышает прогресс активной записи и возвращает его
// текущее значение. Прогресс не убывает, достижение 100 само по себе
// не завершает запись.
func (s *EnrollmentService) UpdateProgress(ctx context.Context, enrollmentID, userID string, req models.DummyProgress) (float64, error) {
	value, err := s.repo.UpdateEnrollmentProgress(ctx, enrollmentID, userID, req.ProgressPercentage)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, s.transitionError(ctx, enrollmentID, userID)
		}
		return 0, err
	}
	return value, nil
}

// Complete завершает активную запись и фиксирует момент завершения.
func (s *EnrollmentService) Complete(ctx context.Context, enrollmentID, userID string) error {
	count, err := s.repo.CompleteEnrollment(ctx, enrollmentID, userID)
	if err != nil {
		return err
	}
	if count == 0 {
		return s.transitionError(ctx, enrollmentID, userID)
	}
	s.log.Info("completed enrollment", slog.String("id", enrollmentID))

	enrollment, err := s.repo.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		s.log.Warn("failed to load completed enrollment", slog.Any("err", err))
		return nil
	}
	s.recordEvent(models.EventEnrollmentDone, userID, enrollmentID, enrollment.CourseID)
	return nil
}

// Pause приостанавливает активную запись.
func (s *EnrollmentService) Pause(ctx context.Context, enrollmentID, userID string) error {
	count, err := s.repo.PauseEnrollment(ctx, enrollmentID, userID)
	if err != nil {
		return err
	}
	if count == 0 {
		return s.transitionError(ctx, enrollmentID, userID)
	}
	return nil
}

// Resume возобновляет приостановленную запись.
func (s *EnrollmentService) Resume(ctx context.Context, enrollmentID, userID string) error {
	count, err := s.repo.ResumeEnrollment(ctx, enrollmentID, userID)
	if err != nil {
		return err
	}
	if count == 0 {
		return s.transitionError(ctx, enrollmentID, userID)
	}
	return nil
}

// transitionError различает отсутствие записи и недопустимый переход,
// когда охраняемое обновление не затронуло строк. Чужая запись
// неотличима от отсутствующей.
func (s *EnrollmentService) transitionError(ctx context.Context, enrollmentID, userID string) error {
	enrollment, err := s.repo.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return err
	}
	if enrollment.UserID != userID {
		return repository.ErrNotFound
	}
	return repository.ErrInvalidTransition
}

func (s *EnrollmentService) recordEvent(eventType, userID, enrollmentID, courseID string) {
	entity := "enrollment"
	payload, err := json.Marshal(map[string]string{"course_id": courseID})
	if err != nil {
		s.log.Warn("failed to marshal event payload", slog.Any("err", err))
		payload = nil
	}
	s.events.Record(models.Event{
		EventType:  eventType,
		UserID:     &userID,
		EntityType: &entity,
		EntityID:   &enrollmentID,
		Payload:    payload,
	})
}
