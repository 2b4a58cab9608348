// Package services содержит бизнес-логику курсов и отзывов, включая
// кеширование карточек опубликованных курсов.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// ErrNotEnrolled возвращается при попытке оставить отзыв без активной
// записи на курс.
var ErrNotEnrolled = errors.New("not enrolled")

// defaultCurrency подставляется, когда запрос не задаёт валюту.
const defaultCurrency = "COP"

// CourseRepository описывает методы для работы с курсами в хранилище.
type CourseRepository interface {
	// CreateCourse сохраняет новый курс и возвращает его ID.
	CreateCourse(ctx context.Context, course models.Course) (string, error)
	// GetCourse возвращает неудалённый курс по идентификатору.
	GetCourse(ctx context.Context, courseID string) (*models.Course, error)
	// UpdateCourse обновляет редактируемые поля курса.
	UpdateCourse(ctx context.Context, course models.Course) (int, error)
	// PublishCourse публикует курс, повторная публикация не меняет published_at.
	PublishCourse(ctx context.Context, courseID string) (int, error)
	// SoftDeleteCourse помечает курс удалённым.
	SoftDeleteCourse(ctx context.Context, courseID string) (int, error)
	// ListPublishedCourses возвращает страницу каталога.
	ListPublishedCourses(ctx context.Context, limit, offset int) ([]*models.Course, error)
	// ListCoursesByInstructor возвращает курсы преподавателя.
	ListCoursesByInstructor(ctx context.Context, instructorID string, limit, offset int) ([]*models.Course, error)
	// CreateReview сохраняет отзыв и обновляет счётчики рейтинга.
	CreateReview(ctx context.Context, review models.Review) (string, error)
	// ListReviews возвращает отзывы курса.
	ListReviews(ctx context.Context, courseID string, limit, offset int) ([]*models.Review, error)
	// EnrollmentExistsActive проверяет действующую запись на курс.
	EnrollmentExistsActive(ctx context.Context, userID, courseID string) (bool, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// Events описывает публикацию доменных событий.
type Events interface {
	Record(event models.Event)
}

// CourseService реализует бизнес-логику работы с курсами.
type CourseService struct {
	repo   CourseRepository
	cache  Cache
	events Events
	log    *slog.Logger
}

// NewCourseService создает новый экземпляр CourseService.
func NewCourseService(repo CourseRepository, cache Cache, events Events, log *slog.Logger) *CourseService {
	return &CourseService{
		repo:   repo,
		cache:  cache,
		events: events,
		log:    log,
	}
}

// Create сохраняет курс от имени преподавателя и возвращает его ID.
func (s *CourseService) Create(ctx context.Context, instructorID string, req models.DummyCourse) (string, error) {
	currency := req.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	course := models.Course{
		InstructorID: instructorID,
		Title:        req.Title,
		Slug:         req.Slug,
		Description:  req.Description,
		PriceCents:   req.PriceCents,
		Currency:     currency,
		AccessDays:   req.AccessDays,
	}

	id, err := s.repo.CreateCourse(ctx, course)
	if err != nil {
		return "", err
	}
	s.log.Info("created new course", slog.String("id", id))
	return id, nil
}

// Get возвращает карточку курса, используя кеш для опубликованных.
// Неопубликованный курс виден только его преподавателю.
func (s *CourseService) Get(ctx context.Context, courseID, viewerID string) (*models.Course, error) {
	cacheKey := fmt.Sprintf("course:%s", courseID)
	var cached models.Course
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read course from cache", slog.String("key", cacheKey), slog.Any("err", err))
	}
	if found {
		return &cached, nil
	}

	course, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsPublished && course.InstructorID != viewerID {
		return nil, repository.ErrNotFound
	}

	// В кеш попадают только опубликованные курсы, черновики через
	// общий ключ не раздаются.
	if course.IsPublished {
		if err := s.cache.Set(cacheKey, course, time.Hour); err != nil {
			s.log.Warn("failed to cache course", slog.String("key", cacheKey), slog.Any("err", err))
		}
	}
	return course, nil
}

// Update обновляет курс своего преподавателя и возвращает новое состояние.
func (s *CourseService) Update(ctx context.Context, instructorID, courseID string, req models.DummyCourse) (*models.Course, error) {
	current, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if current.InstructorID != instructorID {
		return nil, repository.ErrNotFound
	}

	currency := req.Currency
	if currency == "" {
		currency = current.Currency
	}
	course := models.Course{
		ID:          courseID,
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Currency:    currency,
		AccessDays:  req.AccessDays,
	}
	if _, err := s.repo.UpdateCourse(ctx, course); err != nil {
		return nil, err
	}
	s.log.Info("updated course", slog.String("id", courseID))

	s.invalidate(courseID)
	return s.repo.GetCourse(ctx, courseID)
}

// Publish публикует курс. Повторная публикация идемпотентна.
func (s *CourseService) Publish(ctx context.Context, instructorID, courseID string) error {
	course, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if course.InstructorID != instructorID {
		return repository.ErrNotFound
	}

	count, err := s.repo.PublishCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	s.log.Info("published course", slog.String("id", courseID))

	entity := "course"
	s.events.Record(models.Event{
		EventType:  models.EventCoursePublished,
		UserID:     &instructorID,
		EntityType: &entity,
		EntityID:   &courseID,
	})
	return nil
}

// Delete мягко удаляет курс своего преподавателя.
func (s *CourseService) Delete(ctx context.Context, instructorID, courseID string) error {
	course, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if course.InstructorID != instructorID {
		return repository.ErrNotFound
	}

	count, err := s.repo.SoftDeleteCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if count == 0 {
		return repository.ErrNotFound
	}
	s.log.Info("deleted course", slog.String("id", courseID))

	s.invalidate(courseID)
	return nil
}

// ListPublished возвращает страницу каталога опубликованных курсов.
func (s *CourseService) ListPublished(ctx context.Context, limit, offset int) ([]*models.Course, error) {
	return s.repo.ListPublishedCourses(ctx, limit, offset)
}

// ListMine возвращает курсы преподавателя, включая черновики.
func (s *CourseService) ListMine(ctx context.Context, instructorID string, limit, offset int) ([]*models.Course, error) {
	return s.repo.ListCoursesByInstructor(ctx, instructorID, limit, offset)
}

// CreateReview сохраняет отзыв от записанного на курс пользователя.
// Счётчики рейтинга меняются в одной транзакции с отзывом в хранилище.
func (s *CourseService) CreateReview(ctx context.Context, userID, courseID string, req models.DummyReview) (string, error) {
	if _, err := s.repo.GetCourse(ctx, courseID); err != nil {
		return "", err
	}
	enrolled, err := s.repo.EnrollmentExistsActive(ctx, userID, courseID)
	if err != nil {
		return "", err
	}
	if !enrolled {
		return "", ErrNotEnrolled
	}

	review := models.Review{
		CourseID: courseID,
		UserID:   userID,
		Rating:   req.Rating,
	}
	if req.Comment != "" {
		review.Comment = &req.Comment
	}
	id, err := s.repo.CreateReview(ctx, review)
	if err != nil {
		return "", err
	}
	s.log.Info("created review", slog.String("id", id), slog.String("course_id", courseID))

	s.invalidate(courseID)
	return id, nil
}

// ListReviews возвращает отзывы курса.
func (s *CourseService) ListReviews(ctx context.Context, courseID string, limit, offset int) ([]*models.Review, error) {
	return s.repo.ListReviews(ctx, courseID, limit, offset)
}

func (s *CourseService) invalidate(courseID string) {
	cacheKey := fmt.Sprintf("course:%s", courseID)
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to invalidate course cache", slog.String("key", cacheKey), slog.Any("err", err))
	}
}
