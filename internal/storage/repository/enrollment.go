package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/edlatam/lms-platform/internal/models"
)

const enrollmentColumns = `id, user_id, course_id, status, progress_percentage,
			      enrolled_at, completed_at, expires_at, created_at, updated_at`

// CreateEnrollment записывает пользователя на курс и возвращает ID записи.
// Повторная запись на тот же курс возвращает ErrAlreadyExists.
func (s *Storage) CreateEnrollment(ctx context.Context, enrollment models.Enrollment) (string, error) {
	const op = "storage.CreateEnrollment"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID string
	query := `INSERT INTO enrollments.enrollments (user_id, course_id, status, expires_at)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id`
	if err := s.DB.QueryRowContext(ctx, query,
		enrollment.UserID, enrollment.CourseID, enrollment.Status,
		enrollment.ExpiresAt).Scan(&newID); err != nil {
		if uniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetEnrollment возвращает запись по идентификатору.
func (s *Storage) GetEnrollment(ctx context.Context, enrollmentID string) (*models.Enrollment, error) {
	const op = "storage.GetEnrollment"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + enrollmentColumns + `
			  FROM enrollments.enrollments
			  WHERE id = $1`
	return s.scanEnrollment(s.DB.QueryRowContext(ctx, query, enrollmentID), op)
}

// GetEnrollmentByUserCourse возвращает запись пользователя на курс.
func (s *Storage) GetEnrollmentByUserCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	const op = "storage.GetEnrollmentByUserCourse"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + enrollmentColumns + `
			  FROM enrollments.enrollments
			  WHERE user_id = $1 AND course_id = $2`
	return s.scanEnrollment(s.DB.QueryRowContext(ctx, query, userID, courseID), op)
}

func (s *Storage) scanEnrollment(row *sql.Row, op string) (*models.Enrollment, error) {
	e := &models.Enrollment{}
	var completedAt, expiresAt sql.NullTime
	if err := row.Scan(&e.ID, &e.UserID, &e.CourseID, &e.Status, &e.ProgressPercentage,
		&e.EnrolledAt, &completedAt, &expiresAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if completedAt.Valid {
		e.CompletedAt = &completedAt.Time
	}
	if expiresAt.Valid {
		e.ExpiresAt = &expiresAt.Time
	}
	return e, nil
}

// ListUserEnrollments возвращает записи пользователя со свежими впереди.
func (s *Storage) ListUserEnrollments(ctx context.Context, userID string, limit, offset int) ([]*models.Enrollment, error) {
	const op = "storage.ListUserEnrollments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + enrollmentColumns + `
			  FROM enrollments.enrollments
			  WHERE user_id = $1
			  ORDER BY enrolled_at DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Enrollment
	for rows.Next() {
		e := models.Enrollment{}
		var completedAt, expiresAt sql.NullTime
		if err = rows.Scan(&e.ID, &e.UserID, &e.CourseID, &e.Status, &e.ProgressPercentage,
			&e.EnrolledAt, &completedAt, &expiresAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if completedAt.Valid {
			e.CompletedAt = &completedAt.Time
		}
		if expiresAt.Valid {
			e.ExpiresAt = &expiresAt.Time
		}
		result = append(result, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateEnrollmentProgress поднимает прогресс активной записи до нового
// значения. GREATEST гарантирует монотонность: обновление с меньшим
// значением не уменьшает сохранённый прогресс. Возвращает итоговое
// значение прогресса.
func (s *Storage) UpdateEnrollmentProgress(ctx context.Context, enrollmentID, userID string, progress float64) (float64, error) {
	const op = "storage.UpdateEnrollmentProgress"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE enrollments.enrollments
			  SET progress_percentage = GREATEST(progress_percentage, $1)
			  WHERE id = $2 AND user_id = $3 AND status = 'active'
			  RETURNING progress_percentage`
	var current float64
	if err := s.DB.QueryRowContext(ctx, query, progress, enrollmentID, userID).Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return current, nil
}

// CompleteEnrollment переводит активную запись в completed.
// Возвращает количество изменённых строк, ноль при недопустимом переходе.
func (s *Storage) CompleteEnrollment(ctx context.Context, enrollmentID, userID string) (int, error) {
	const op = "storage.CompleteEnrollment"
	return s.transitionEnrollment(ctx, op, `
			  UPDATE enrollments.enrollments
			  SET status = 'completed', completed_at = now()
			  WHERE id = $1 AND user_id = $2 AND status = 'active'`,
		enrollmentID, userID)
}

// PauseEnrollment переводит активную запись в paused.
func (s *Storage) PauseEnrollment(ctx context.Context, enrollmentID, userID string) (int, error) {
	const op = "storage.PauseEnrollment"
	return s.transitionEnrollment(ctx, op, `
			  UPDATE enrollments.enrollments
			  SET status = 'paused'
			  WHERE id = $1 AND user_id = $2 AND status = 'active'`,
		enrollmentID, userID)
}

// ResumeEnrollment возвращает приостановленную запись в active.
func (s *Storage) ResumeEnrollment(ctx context.Context, enrollmentID, userID string) (int, error) {
	const op = "storage.ResumeEnrollment"
	return s.transitionEnrollment(ctx, op, `
			  UPDATE enrollments.enrollments
			  SET status = 'active'
			  WHERE id = $1 AND user_id = $2 AND status = 'paused'`,
		enrollmentID, userID)
}

// RefundEnrollment помечает запись возвращённой при возврате оплаты.
// Допустим из любого нетерминального статуса и из completed.
func (s *Storage) RefundEnrollment(ctx context.Context, userID, courseID string) (int, error) {
	const op = "storage.RefundEnrollment"
	return s.transitionEnrollment(ctx, op, `
			  UPDATE enrollments.enrollments
			  SET status = 'refunded'
			  WHERE user_id = $1 AND course_id = $2
			      AND status IN ('active', 'paused', 'completed')`,
		userID, courseID)
}

// ReactivateEnrollment возвращает возвращённую запись в active при
// повторной оплате, с новым сроком доступа и сброшенным завершением.
func (s *Storage) ReactivateEnrollment(ctx context.Context, userID, courseID string, expiresAt *time.Time) (int, error) {
	const op = "storage.ReactivateEnrollment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE enrollments.enrollments
			  SET status = 'active', enrolled_at = now(), expires_at = $3,
			      completed_at = NULL, progress_percentage = 0
			  WHERE user_id = $1 AND course_id = $2 AND status = 'refunded'`
	result, err := s.DB.ExecContext(ctx, query, userID, courseID, expiresAt)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ExpireEnrollments переводит активные записи с истёкшим сроком доступа
// в expired. Возвращает количество затронутых записей.
func (s *Storage) ExpireEnrollments(ctx context.Context) (int, error) {
	const op = "storage.ExpireEnrollments"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE enrollments.enrollments
			  SET status = 'expired'
			  WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at < now()`
	result, err := s.DB.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// EnrollmentExistsActive проверяет наличие активной или завершённой
// записи пользователя на курс. Открывает доступ к материалам и отзывам.
func (s *Storage) EnrollmentExistsActive(ctx context.Context, userID, courseID string) (bool, error) {
	const op = "storage.EnrollmentExistsActive"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
			      SELECT 1 FROM enrollments.enrollments
			      WHERE user_id = $1 AND course_id = $2
			          AND status IN ('active', 'completed')
			  )`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, userID, courseID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

func (s *Storage) transitionEnrollment(ctx context.Context, op, query string, args ...any) (int, error) {
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	result, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
