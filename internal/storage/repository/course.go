package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/edlatam/lms-platform/internal/models"
)

const courseColumns = `id, instructor_id, title, slug, description, price_cents,
			      currency, access_days, is_published, published_at,
			      rating_sum, rating_count, created_at, updated_at`

// CreateCourse сохраняет новый курс и возвращает его ID.
// Конфликт по занятому slug возвращается как ErrAlreadyExists.
func (s *Storage) CreateCourse(ctx context.Context, course models.Course) (string, error) {
	const op = "storage.CreateCourse"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID string
	query := `INSERT INTO courses.courses (instructor_id, title, slug, description,
			      price_cents, currency, access_days)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id`
	if err := s.DB.QueryRowContext(ctx, query,
		course.InstructorID, course.Title, course.Slug, course.Description,
		course.PriceCents, course.Currency, course.AccessDays).Scan(&newID); err != nil {
		if uniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetCourse возвращает неудалённый курс по идентификатору.
func (s *Storage) GetCourse(ctx context.Context, courseID string) (*models.Course, error) {
	const op = "storage.GetCourse"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + courseColumns + `
			  FROM courses.courses
			  WHERE id = $1 AND deleted_at IS NULL`
	return s.scanCourse(s.DB.QueryRowContext(ctx, query, courseID), op)
}

func (s *Storage) scanCourse(row *sql.Row, op string) (*models.Course, error) {
	c := &models.Course{}
	var accessDays sql.NullInt64
	var publishedAt sql.NullTime
	if err := row.Scan(&c.ID, &c.InstructorID, &c.Title, &c.Slug, &c.Description,
		&c.PriceCents, &c.Currency, &accessDays, &c.IsPublished, &publishedAt,
		&c.RatingSum, &c.RatingCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if accessDays.Valid {
		days := int(accessDays.Int64)
		c.AccessDays = &days
	}
	if publishedAt.Valid {
		c.PublishedAt = &publishedAt.Time
	}
	return c, nil
}

// UpdateCourse обновляет редактируемые поля курса и возвращает
// количество изменённых строк. Публикационные поля не трогает.
func (s *Storage) UpdateCourse(ctx context.Context, course models.Course) (int, error) {
	const op = "storage.UpdateCourse"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE courses.courses
			  SET title = $1, slug = $2, description = $3, price_cents = $4,
			      currency = $5, access_days = $6
			  WHERE id = $7 AND deleted_at IS NULL`
	result, err := s.DB.ExecContext(ctx, query,
		course.Title, course.Slug, course.Description, course.PriceCents,
		course.Currency, course.AccessDays, course.ID)
	if err != nil {
		if uniqueViolation(err) {
			return 0, fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// PublishCourse публикует курс. Повторная публикация не меняет
// published_at, публикация необратима.
func (s *Storage) PublishCourse(ctx context.Context, courseID string) (int, error) {
	const op = "storage.PublishCourse"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE courses.courses
			  SET is_published = TRUE, published_at = now()
			  WHERE id = $1 AND deleted_at IS NULL AND NOT is_published`
	result, err := s.DB.ExecContext(ctx, query, courseID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// SoftDeleteCourse помечает курс удалённым и снимает его с витрины.
func (s *Storage) SoftDeleteCourse(ctx context.Context, courseID string) (int, error) {
	const op = "storage.SoftDeleteCourse"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE courses.courses
			  SET deleted_at = now(), is_published = FALSE
			  WHERE id = $1 AND deleted_at IS NULL`
	result, err := s.DB.ExecContext(ctx, query, courseID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ListPublishedCourses возвращает витрину опубликованных курсов
// со свежими впереди.
func (s *Storage) ListPublishedCourses(ctx context.Context, limit, offset int) ([]*models.Course, error) {
	const op = "storage.ListPublishedCourses"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + courseColumns + `
			  FROM courses.courses
			  WHERE is_published AND deleted_at IS NULL
			  ORDER BY published_at DESC
			  LIMIT $1 OFFSET $2`
	return s.listCourses(ctx, op, query, limit, offset)
}

// ListCoursesByInstructor возвращает курсы преподавателя, включая
// неопубликованные.
func (s *Storage) ListCoursesByInstructor(ctx context.Context, instructorID string, limit, offset int) ([]*models.Course, error) {
	const op = "storage.ListCoursesByInstructor"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + courseColumns + `
			  FROM courses.courses
			  WHERE instructor_id = $1 AND deleted_at IS NULL
			  ORDER BY created_at DESC
			  LIMIT $2 OFFSET $3`
	return s.listCourses(ctx, op, query, instructorID, limit, offset)
}

func (s *Storage) listCourses(ctx context.Context, op, query string, args ...any) ([]*models.Course, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Course
	for rows.Next() {
		c := models.Course{}
		var accessDays sql.NullInt64
		var publishedAt sql.NullTime
		if err = rows.Scan(&c.ID, &c.InstructorID, &c.Title, &c.Slug, &c.Description,
			&c.PriceCents, &c.Currency, &accessDays, &c.IsPublished, &publishedAt,
			&c.RatingSum, &c.RatingCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if accessDays.Valid {
			days := int(accessDays.Int64)
			c.AccessDays = &days
		}
		if publishedAt.Valid {
			c.PublishedAt = &publishedAt.Time
		}
		result = append(result, &c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CourseExistsPublished проверяет, что курс существует, опубликован
// и не удалён. Используется другими контекстами вместо внешнего ключа.
func (s *Storage) CourseExistsPublished(ctx context.Context, courseID string) (bool, error) {
	const op = "storage.CourseExistsPublished"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
			      SELECT 1 FROM courses.courses
			      WHERE id = $1 AND is_published AND deleted_at IS NULL
			  )`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, courseID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// CreateReview сохраняет отзыв и в той же транзакции обновляет счётчики
// рейтинга курса. Повторный отзыв того же пользователя возвращает
// ErrAlreadyExists.
func (s *Storage) CreateReview(ctx context.Context, review models.Review) (string, error) {
	const op = "storage.CreateReview"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var newID string
	insertQuery := `INSERT INTO courses.course_reviews (course_id, user_id, rating, comment)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id`
	if err = tx.QueryRowContext(ctx, insertQuery,
		review.CourseID, review.UserID, review.Rating, review.Comment).Scan(&newID); err != nil {
		if uniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	countersQuery := `UPDATE courses.courses
			  SET rating_sum = rating_sum + $1, rating_count = rating_count + 1
			  WHERE id = $2`
	if _, err = tx.ExecContext(ctx, countersQuery, review.Rating, review.CourseID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListReviews возвращает отзывы курса со свежими впереди.
func (s *Storage) ListReviews(ctx context.Context, courseID string, limit, offset int) ([]*models.Review, error) {
	const op = "storage.ListReviews"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, course_id, user_id, rating, comment, created_at
			  FROM courses.course_reviews
			  WHERE course_id = $1
			  ORDER BY created_at DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, courseID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Review
	for rows.Next() {
		r := models.Review{}
		var comment sql.NullString
		if err = rows.Scan(&r.ID, &r.CourseID, &r.UserID, &r.Rating, &comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if comment.Valid {
			r.Comment = &comment.String
		}
		result = append(result, &r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
