// Package services содержит бизнес-логику тестов и попыток их
// прохождения. Машина состояний попытки: in_progress, submitted, graded.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// ErrNotEnrolled возвращается при попытке начать тест без активной
// записи на курс.
var ErrNotEnrolled = errors.New("not enrolled")

// defaultPassingScore подставляется, когда запрос не задаёт проходной
// балл. Нулевой балл трактуется как незаданный.
const defaultPassingScore = 60

// AssessmentRepository описывает методы для работы с тестами в хранилище.
type AssessmentRepository interface {
	// CreateQuiz создаёт тест для курса.
	CreateQuiz(ctx context.Context, quiz models.Quiz) (string, error)
	// GetQuiz возвращает тест по идентификатору.
	GetQuiz(ctx context.Context, quizID string) (*models.Quiz, error)
	// ListQuizzesByCourse возвращает тесты курса.
	ListQuizzesByCourse(ctx context.Context, courseID string) ([]*models.Quiz, error)
	// CreateSubmission открывает попытку прохождения теста.
	CreateSubmission(ctx context.Context, quizID, userID string) (string, error)
	// GetSubmission возвращает попытку по идентификатору.
	GetSubmission(ctx context.Context, submissionID string) (*models.Submission, error)
	// ListUserSubmissions возвращает попытки пользователя по тесту.
	ListUserSubmissions(ctx context.Context, quizID, userID string) ([]*models.Submission, error)
	// SubmitSubmission сдаёт ответы открытой попытки.
	SubmitSubmission(ctx context.Context, submissionID, userID string, answers json.RawMessage) (int, error)
	// GradeSubmission выставляет балл сданной попытке.
	GradeSubmission(ctx context.Context, submissionID string, score float64) (int, error)
	// GetCourse возвращает неудалённый курс по идентификатору.
	GetCourse(ctx context.Context, courseID string) (*models.Course, error)
	// LessonExists проверяет принадлежность урока курсу.
	LessonExists(ctx context.Context, lessonID, courseID string) (bool, error)
	// EnrollmentExistsActive проверяет действующую запись на курс.
	EnrollmentExistsActive(ctx context.Context, userID, courseID string) (bool, error)
}

// Events описывает публикацию доменных событий.
type Events interface {
	Record(event models.Event)
}

// AssessmentService реализует бизнес-логику тестов.
type AssessmentService struct {
	repo   AssessmentRepository
	events Events
	log    *slog.Logger
}

// NewAssessmentService создает новый экземпляр AssessmentService.
func NewAssessmentService(repo AssessmentRepository, events Events, log *slog.Logger) *AssessmentService {
	return &AssessmentService{
		repo:   repo,
		events: events,
		log:    log,
	}
}

// CreateQuiz создаёт тест в курсе своего преподавателя. Урок, если
// указан, должен принадлежать тому же курсу.
func (s *AssessmentService) CreateQuiz(ctx context.Context, instructorID, courseID string, req models.DummyQuiz) (string, error) {
	course, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		return "", err
	}
	if course.InstructorID != instructorID {
		return "", repository.ErrNotFound
	}

	quiz := models.Quiz{
		CourseID:     courseID,
		Title:        req.Title,
		PassingScore: req.PassingScore,
	}
	if quiz.PassingScore == 0 {
		quiz.PassingScore = defaultPassingScore
	}
	if req.LessonID != "" {
		exists, err := s.repo.LessonExists(ctx, req.LessonID, courseID)
		if err != nil {
			return "", err
		}
		if !exists {
			return "", repository.ErrNotFound
		}
		quiz.LessonID = &req.LessonID
	}

	id, err := s.repo.CreateQuiz(ctx, quiz)
	if err != nil {
		return "", err
	}
	s.log.Info("created quiz", slog.String("id", id), slog.String("course_id", courseID))
	return id, nil
}

// ListQuizzes возвращает тесты курса записанному пользователю
// или преподавателю.
func (s *AssessmentService) ListQuizzes(ctx context.Context, viewerID, courseID string) ([]*models.Quiz, error) {
	course, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsPublished && course.InstructorID != viewerID {
		return nil, repository.ErrNotFound
	}
	if course.InstructorID != viewerID {
		enrolled, err := s.repo.EnrollmentExistsActive(ctx, viewerID, courseID)
		if err != nil {
			return nil, err
		}
		if !enrolled {
			return nil, ErrNotEnrolled
		}
	}
	return s.repo.ListQuizzesByCourse(ctx, courseID)
}

// StartSubmission открывает попытку прохождения теста. У пользователя
// может быть не больше одной открытой попытки на тест.
func (s *AssessmentService) StartSubmission(ctx context.Context, userID, quizID string) (string, error) {
	quiz, err := s.repo.GetQuiz(ctx, quizID)
	if err != nil {
		return "", err
	}
	enrolled, err := s.repo.EnrollmentExistsActive(ctx, userID, quiz.CourseID)
	if err != nil {
		return "", err
	}
	if !enrolled {
		return "", ErrNotEnrolled
	}

	id, err := s.repo.CreateSubmission(ctx, quizID, userID)
	if err != nil {
		return "", err
	}
	s.log.Info("started submission", slog.String("id", id), slog.String("quiz_id", quizID))
	return id, nil
}

// Submit сдаёт ответы открытой попытки.
func (s *AssessmentService) Submit(ctx context.Context, userID, submissionID string, req models.DummySubmit) error {
	count, err := s.repo.SubmitSubmission(ctx, submissionID, userID, req.Answers)
	if err != nil {
		return err
	}
	if count == 0 {
		submission, err := s.repo.GetSubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		if submission.UserID != userID {
			return repository.ErrNotFound
		}
		return repository.ErrInvalidTransition
	}
	s.log.Info("submitted answers", slog.String("id", submissionID))
	return nil
}

// Grade выставляет балл сданной попытке. Оценивает преподаватель курса,
// которому принадлежит тест.
func (s *AssessmentService) Grade(ctx context.Context, instructorID, submissionID string, req models.DummyGrade) error {
	submission, err := s.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return err
	}
	quiz, err := s.repo.GetQuiz(ctx, submission.QuizID)
	if err != nil {
		return err
	}
	course, err := s.repo.GetCourse(ctx, quiz.CourseID)
	if err != nil {
		return err
	}
	if course.InstructorID != instructorID {
		return repository.ErrNotFound
	}

	count, err := s.repo.GradeSubmission(ctx, submissionID, req.Score)
	if err != nil {
		return err
	}
	if count == 0 {
		return repository.ErrInvalidTransition
	}
	s.log.Info("graded submission", slog.String("id", submissionID),
		slog.Float64("score", req.Score))

	entity := "quiz_submission"
	payload, merr := json.Marshal(map[string]any{
		"quiz_id": quiz.ID,
		"score":   req.Score,
		"passed":  req.Score >= float64(quiz.PassingScore),
	})
	if merr != nil {
		s.log.Warn("failed to marshal event payload", slog.Any("err", merr))
		payload = nil
	}
	s.events.Record(models.Event{
		EventType:  models.EventQuizGraded,
		UserID:     &submission.UserID,
		EntityType: &entity,
		EntityID:   &submissionID,
		Payload:    payload,
	})
	return nil
}

// ListMySubmissions возвращает попытки пользователя по тесту,
// новые первыми.
func (s *AssessmentService) ListMySubmissions(ctx context.Context, userID, quizID string) ([]*models.Submission, error) {
	if _, err := s.repo.GetQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	return s.repo.ListUserSubmissions(ctx, quizID, userID)
}
