package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/edlatam/lms-platform/internal/models"
)

// CreateLesson сохраняет урок и возвращает его ID. Конфликт по занятой
// позиции внутри курса возвращается как ErrAlreadyExists.
func (s *Storage) CreateLesson(ctx context.Context, lesson models.Lesson) (string, error) {
	const op = "storage.CreateLesson"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID string
	query := `INSERT INTO content.lessons (course_id, position, title, content_url,
			      duration_seconds, is_preview)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	if err := s.DB.QueryRowContext(ctx, query,
		lesson.CourseID, lesson.Position, lesson.Title, lesson.ContentURL,
		lesson.DurationSeconds, lesson.IsPreview).Scan(&newID); err != nil {
		if uniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetLesson возвращает урок по идентификатору.
func (s *Storage) GetLesson(ctx context.Context, lessonID string) (*models.Lesson, error) {
	const op = "storage.GetLesson"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, course_id, position, title, content_url, duration_seconds,
			      is_preview, created_at, updated_at
			  FROM content.lessons
			  WHERE id = $1`
	l := &models.Lesson{}
	var contentURL sql.NullString
	var duration sql.NullInt64
	row := s.DB.QueryRowContext(ctx, query, lessonID)
	if err := row.Scan(&l.ID, &l.CourseID, &l.Position, &l.Title, &contentURL,
		&duration, &l.IsPreview, &l.CreatedAt, &l.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if contentURL.Valid {
		l.ContentURL = &contentURL.String
	}
	if duration.Valid {
		d := int(duration.Int64)
		l.DurationSeconds = &d
	}
	return l, nil
}

// ListLessons возвращает уроки курса в порядке позиций.
// При previewOnly отдаются только уроки, открытые без записи на курс.
func (s *Storage) ListLessons(ctx context.Context, courseID string, previewOnly bool) ([]*models.Lesson, error) {
	const op = "storage.ListLessons"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, course_id, position, title, content_url, duration_seconds,
			      is_preview, created_at, updated_at
			  FROM content.lessons
			  WHERE course_id = $1 AND ($2 = FALSE OR is_preview)
			  ORDER BY position`
	rows, err := s.DB.QueryContext(ctx, query, courseID, previewOnly)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Lesson
	for rows.Next() {
		l := models.Lesson{}
		var contentURL sql.NullString
		var duration sql.NullInt64
		if err = rows.Scan(&l.ID, &l.CourseID, &l.Position, &l.Title, &contentURL,
			&duration, &l.IsPreview, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if contentURL.Valid {
			l.ContentURL = &contentURL.String
		}
		if duration.Valid {
			d := int(duration.Int64)
			l.DurationSeconds = &d
		}
		result = append(result, &l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// LessonExists проверяет принадлежность урока курсу.
func (s *Storage) LessonExists(ctx context.Context, lessonID, courseID string) (bool, error) {
	const op = "storage.LessonExists"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
			      SELECT 1 FROM content.lessons WHERE id = $1 AND course_id = $2
			  )`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, lessonID, courseID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}
