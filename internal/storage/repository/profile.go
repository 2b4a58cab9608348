package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/edlatam/lms-platform/internal/models"
)

// GetOrCreateProfile возвращает профиль пользователя, создавая пустой
// при первом обращении. Вставка идемпотентна за счёт ON CONFLICT.
func (s *Storage) GetOrCreateProfile(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "storage.GetOrCreateProfile"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users.user_profiles (user_id)
			  VALUES ($1)
			  ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
			  RETURNING user_id, full_name, avatar_url, bio, locale, created_at, updated_at`
	return s.scanProfile(s.DB.QueryRowContext(ctx, query, userID), op)
}

// GetProfile возвращает профиль пользователя без создания.
func (s *Storage) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "storage.GetProfile"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_id, full_name, avatar_url, bio, locale, created_at, updated_at
			  FROM users.user_profiles
			  WHERE user_id = $1`
	return s.scanProfile(s.DB.QueryRowContext(ctx, query, userID), op)
}

func (s *Storage) scanProfile(row *sql.Row, op string) (*models.Profile, error) {
	p := &models.Profile{}
	var avatarURL, bio sql.NullString
	if err := row.Scan(&p.UserID, &p.FullName, &avatarURL, &bio,
		&p.Locale, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if avatarURL.Valid {
		p.AvatarURL = &avatarURL.String
	}
	if bio.Valid {
		p.Bio = &bio.String
	}
	return p, nil
}

// UpdateProfile обновляет отображаемые поля профиля и возвращает
// количество изменённых строк.
func (s *Storage) UpdateProfile(ctx context.Context, profile models.Profile) (int, error) {
	const op = "storage.UpdateProfile"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users.user_profiles
			  SET full_name = $1, avatar_url = $2, bio = $3, locale = $4
			  WHERE user_id = $5`
	result, err := s.DB.ExecContext(ctx, query,
		profile.FullName, profile.AvatarURL, profile.Bio, profile.Locale, profile.UserID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
