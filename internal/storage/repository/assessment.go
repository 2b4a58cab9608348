package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/edlatam/lms-platform/internal/models"
)

// CreateQuiz создаёт тест для курса и возвращает его ID.
func (s *Storage) CreateQuiz(ctx context.Context, quiz models.Quiz) (string, error) {
	const op = "storage.CreateQuiz"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID string
	query := `INSERT INTO assessments.quizzes (course_id, lesson_id, title, passing_score)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id`
	if err := s.DB.QueryRowContext(ctx, query,
		quiz.CourseID, quiz.LessonID, quiz.Title, quiz.PassingScore).Scan(&newID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetQuiz возвращает тест по идентификатору.
func (s *Storage) GetQuiz(ctx context.Context, quizID string) (*models.Quiz, error) {
	const op = "storage.GetQuiz"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	q := &models.Quiz{}
	var lessonID sql.NullString
	query := `SELECT id, course_id, lesson_id, title, passing_score, created_at, updated_at
			  FROM assessments.quizzes
			  WHERE id = $1`
	if err := s.DB.QueryRowContext(ctx, query, quizID).Scan(&q.ID, &q.CourseID, &lessonID,
		&q.Title, &q.PassingScore, &q.CreatedAt, &q.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if lessonID.Valid {
		q.LessonID = &lessonID.String
	}
	return q, nil
}

// ListQuizzesByCourse возвращает тесты курса в порядке создания.
func (s *Storage) ListQuizzesByCourse(ctx context.Context, courseID string) ([]*models.Quiz, error) {
	const op = "storage.ListQuizzesByCourse"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, course_id, lesson_id, title, passing_score, created_at, updated_at
			  FROM assessments.quizzes
			  WHERE course_id = $1
			  ORDER BY created_at`
	rows, err := s.DB.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Quiz
	for rows.Next() {
		q := models.Quiz{}
		var lessonID sql.NullString
		if err = rows.Scan(&q.ID, &q.CourseID, &lessonID, &q.Title, &q.PassingScore,
			&q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if lessonID.Valid {
			q.LessonID = &lessonID.String
		}
		result = append(result, &q)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CreateSubmission открывает попытку прохождения теста. Частичный
// уникальный индекс допускает лишь одну открытую попытку на тест,
// повторное открытие возвращает ErrAlreadyExists.
func (s *Storage) CreateSubmission(ctx context.Context, quizID, userID string) (string, error) {
	const op = "storage.CreateSubmission"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID string
	query := `INSERT INTO assessments.quiz_submissions (quiz_id, user_id)
			  VALUES ($1, $2)
			  RETURNING id`
	if err := s.DB.QueryRowContext(ctx, query, quizID, userID).Scan(&newID); err != nil {
		if uniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetSubmission возвращает попытку по идентификатору.
func (s *Storage) GetSubmission(ctx context.Context, submissionID string) (*models.Submission, error) {
	const op = "storage.GetSubmission"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	sub := &models.Submission{}
	var answers []byte
	var score sql.NullFloat64
	var submittedAt, gradedAt sql.NullTime
	query := `SELECT id, quiz_id, user_id, status, answers, score, started_at, submitted_at, graded_at
			  FROM assessments.quiz_submissions
			  WHERE id = $1`
	if err := s.DB.QueryRowContext(ctx, query, submissionID).Scan(&sub.ID, &sub.QuizID,
		&sub.UserID, &sub.Status, &answers, &score, &sub.StartedAt, &submittedAt, &gradedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if answers != nil {
		sub.Answers = json.RawMessage(answers)
	}
	if score.Valid {
		sub.Score = &score.Float64
	}
	if submittedAt.Valid {
		sub.SubmittedAt = &submittedAt.Time
	}
	if gradedAt.Valid {
		sub.GradedAt = &gradedAt.Time
	}
	return sub, nil
}

// ListUserSubmissions возвращает попытки пользователя по тесту,
// свежие впереди.
func (s *Storage) ListUserSubmissions(ctx context.Context, quizID, userID string) ([]*models.Submission, error) {
	const op = "storage.ListUserSubmissions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, quiz_id, user_id, status, answers, score, started_at, submitted_at, graded_at
			  FROM assessments.quiz_submissions
			  WHERE quiz_id = $1 AND user_id = $2
			  ORDER BY started_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, quizID, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Submission
	for rows.Next() {
		sub := models.Submission{}
		var answers []byte
		var score sql.NullFloat64
		var submittedAt, gradedAt sql.NullTime
		if err = rows.Scan(&sub.ID, &sub.QuizID, &sub.UserID, &sub.Status, &answers, &score,
			&sub.StartedAt, &submittedAt, &gradedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if answers != nil {
			sub.Answers = json.RawMessage(answers)
		}
		if score.Valid {
			sub.Score = &score.Float64
		}
		if submittedAt.Valid {
			sub.SubmittedAt = &submittedAt.Time
		}
		if gradedAt.Valid {
			sub.GradedAt = &gradedAt.Time
		}
		result = append(result, &sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// SubmitSubmission фиксирует ответы и переводит открытую попытку в
// submitted. Возвращает количество изменённых строк, ноль если попытка
// не открыта или принадлежит другому пользователю.
func (s *Storage) SubmitSubmission(ctx context.Context, submissionID, userID string, answers json.RawMessage) (int, error) {
	const op = "storage.SubmitSubmission"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE assessments.quiz_submissions
			  SET status = 'submitted', answers = $1, submitted_at = now()
			  WHERE id = $2 AND user_id = $3 AND status = 'in_progress'`
	result, err := s.DB.ExecContext(ctx, query, []byte(answers), submissionID, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// GradeSubmission выставляет балл сданной попытке и переводит её в graded.
func (s *Storage) GradeSubmission(ctx context.Context, submissionID string, score float64) (int, error) {
	const op = "storage.GradeSubmission"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE assessments.quiz_submissions
			  SET status = 'graded', score = $1, graded_at = now()
			  WHERE id = $2 AND status = 'submitted'`
	result, err := s.DB.ExecContext(ctx, query, score, submissionID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
