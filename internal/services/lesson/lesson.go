// Package services содержит бизнес-логику уроков. Полный список уроков
// доступен записанным на курс и преподавателю, остальным отдаются
// только ознакомительные уроки.
package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// ErrNotEnrolled возвращается при запросе закрытого урока без записи
// на курс.
var ErrNotEnrolled = errors.New("not enrolled")

// LessonRepository описывает методы для работы с уроками в хранилище.
type LessonRepository interface {
	// CreateLesson сохраняет урок и возвращает его ID.
	CreateLesson(ctx context.Context, lesson models.Lesson) (string, error)
	// GetLesson возвращает урок по идентификатору.
	GetLesson(ctx context.Context, lessonID string) (*models.Lesson, error)
	// ListLessons возвращает уроки курса по порядку позиций.
	ListLessons(ctx context.Context, courseID string, previewOnly bool) ([]*models.Lesson, error)
	// GetCourse возвращает неудалённый курс по идентификатору.
	GetCourse(ctx context.Context, courseID string) (*models.Course, error)
	// EnrollmentExistsActive проверяет действующую запись на курс.
	EnrollmentExistsActive(ctx context.Context, userID, courseID string) (bool, error)
}

// LessonService реализует бизнес-логику работы с уроками.
type LessonService struct {
	repo LessonRepository
	log  *slog.Logger
}

// NewLessonService создает новый экземпляр LessonService.
func NewLessonService(repo LessonRepository, log *slog.Logger) *LessonService {
	return &LessonService{
		repo: repo,
		log:  log,
	}
}

// Create добавляет урок в курс своего преподавателя и возвращает его ID.
func (s *LessonService) Create(ctx context.Context, instructorID, courseID string, req models.DummyLesson) (string, error) {
	course, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		return "", err
	}
	if course.InstructorID != instructorID {
		return "", repository.ErrNotFound
	}

	lesson := models.Lesson{
		CourseID:        courseID,
		Position:        req.Position,
		Title:           req.Title,
		DurationSeconds: req.DurationSeconds,
		IsPreview:       req.IsPreview,
	}
	if req.ContentURL != "" {
		lesson.ContentURL = &req.ContentURL
	}

	id, err := s.repo.CreateLesson(ctx, lesson)
	if err != nil {
		return "", err
	}
	s.log.Info("created lesson", slog.String("id", id), slog.String("course_id", courseID))
	return id, nil
}

// List возвращает уроки курса. Записанные на курс и преподаватель видят
// все уроки, остальные только ознакомительные. viewerID пуст для
// анонимного запроса.
func (s *LessonService) List(ctx context.Context, viewerID, courseID string) ([]*models.Lesson, error) {
	course, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsPublished && course.InstructorID != viewerID {
		return nil, repository.ErrNotFound
	}

	full, err := s.canViewFull(ctx, viewerID, course)
	if err != nil {
		return nil, err
	}
	return s.repo.ListLessons(ctx, courseID, !full)
}

// Get возвращает урок. Ознакомительные уроки опубликованного курса
// открыты всем, остальные требуют записи на курс.
func (s *LessonService) Get(ctx context.Context, viewerID, lessonID string) (*models.Lesson, error) {
	lesson, err := s.repo.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	course, err := s.repo.GetCourse(ctx, lesson.CourseID)
	if err != nil {
		return nil, err
	}
	if !course.IsPublished && course.InstructorID != viewerID {
		return nil, repository.ErrNotFound
	}
	if lesson.IsPreview {
		return lesson, nil
	}

	full, err := s.canViewFull(ctx, viewerID, course)
	if err != nil {
		return nil, err
	}
	if !full {
		return nil, ErrNotEnrolled
	}
	return lesson, nil
}

func (s *LessonService) canViewFull(ctx context.Context, viewerID string, course *models.Course) (bool, error) {
	if viewerID == "" {
		return false, nil
	}
	if course.InstructorID == viewerID {
		return true, nil
	}
	return s.repo.EnrollmentExistsActive(ctx, viewerID, course.ID)
}
