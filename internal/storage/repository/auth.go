package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/edlatam/lms-platform/internal/models"
)

// CreateUser сохраняет новую учётную запись и возвращает её ID.
// Конфликт по занятой почте возвращается как ErrAlreadyExists.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID string
	query := `INSERT INTO auth.users (email, password_hash, role)
			  VALUES ($1, $2, $3)
			  RETURNING id`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.Role).Scan(&newID); err != nil {
		if uniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetUserByEmail возвращает неудалённого пользователя по почте.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, email, password_hash, role, is_verified, verified_at,
			      created_at, updated_at
			  FROM auth.users
			  WHERE lower(email) = lower($1) AND deleted_at IS NULL`
	return s.scanUser(s.DB.QueryRowContext(ctx, query, email), op)
}

// GetUserByID возвращает неудалённого пользователя по идентификатору.
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	const op = "storage.GetUserByID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, email, password_hash, role, is_verified, verified_at,
			      created_at, updated_at
			  FROM auth.users
			  WHERE id = $1 AND deleted_at IS NULL`
	return s.scanUser(s.DB.QueryRowContext(ctx, query, userID), op)
}

func (s *Storage) scanUser(row *sql.Row, op string) (*models.User, error) {
	u := &models.User{}
	var verifiedAt sql.NullTime
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role,
		&u.IsVerified, &verifiedAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if verifiedAt.Valid {
		u.VerifiedAt = &verifiedAt.Time
	}
	return u, nil
}

// MarkEmailVerified отмечает почту подтверждённой. Возвращает количество
// изменённых строк, ноль для уже подтверждённых или отсутствующих.
func (s *Storage) MarkEmailVerified(ctx context.Context, email string) (int, error) {
	const op = "storage.MarkEmailVerified"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE auth.users
			  SET is_verified = TRUE, verified_at = now()
			  WHERE lower(email) = lower($1) AND deleted_at IS NULL AND NOT is_verified`
	result, err := s.DB.ExecContext(ctx, query, email)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// SoftDeleteUser помечает учётную запись удалённой, строка остаётся
// для истории и запросов субъекта данных.
func (s *Storage) SoftDeleteUser(ctx context.Context, userID string) (int, error) {
	const op = "storage.SoftDeleteUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE auth.users
			  SET deleted_at = now()
			  WHERE id = $1 AND deleted_at IS NULL`
	result, err := s.DB.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// UserExists проверяет существование неудалённой учётной записи.
// Используется другими контекстами вместо межсхемного внешнего ключа.
func (s *Storage) UserExists(ctx context.Context, userID string) (bool, error) {
	const op = "storage.UserExists"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
			      SELECT 1 FROM auth.users WHERE id = $1 AND deleted_at IS NULL
			  )`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}
