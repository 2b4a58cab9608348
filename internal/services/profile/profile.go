// Package services содержит бизнес-логику профилей пользователей.
// Сводка /users/me собирается из схем auth и users в приложении,
// межсхемного соединения в базе нет.
package services

import (
	"context"
	"log/slog"

	"github.com/edlatam/lms-platform/internal/models"
)

// ProfileRepository описывает методы для работы с профилями в хранилище.
type ProfileRepository interface {
	// GetUserByID возвращает неудалённого пользователя по идентификатору.
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	// GetOrCreateProfile возвращает профиль, создавая пустой при первом обращении.
	GetOrCreateProfile(ctx context.Context, userID string) (*models.Profile, error)
	// GetProfile возвращает профиль без создания.
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	// UpdateProfile обновляет отображаемые поля профиля.
	UpdateProfile(ctx context.Context, profile models.Profile) (int, error)
}

// ProfileService реализует бизнес-логику работы с профилями.
type ProfileService struct {
	repo ProfileRepository
	log  *slog.Logger
}

// NewProfileService создает новый экземпляр ProfileService.
func NewProfileService(repo ProfileRepository, log *slog.Logger) *ProfileService {
	return &ProfileService{
		repo: repo,
		log:  log,
	}
}

// Me возвращает сводку учётной записи и профиля. Профиль создаётся
// лениво при первом обращении.
func (s *ProfileService) Me(ctx context.Context, userID string) (*models.Me, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.repo.GetOrCreateProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.Me{
		ID:         user.ID,
		Email:      user.Email,
		Role:       user.Role,
		IsVerified: user.IsVerified,
		FullName:   profile.FullName,
		AvatarURL:  profile.AvatarURL,
		Bio:        profile.Bio,
		Locale:     profile.Locale,
	}, nil
}

// UpdateMe обновляет отображаемые поля профиля и возвращает его новое
// состояние. Незаданная локаль сохраняет текущее значение.
func (s *ProfileService) UpdateMe(ctx context.Context, userID string, req models.DummyProfileUpdate) (*models.Profile, error) {
	current, err := s.repo.GetOrCreateProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	locale := req.Locale
	if locale == "" {
		locale = current.Locale
	}
	profile := models.Profile{
		UserID:    userID,
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
		Bio:       req.Bio,
		Locale:    locale,
	}
	if _, err := s.repo.UpdateProfile(ctx, profile); err != nil {
		return nil, err
	}
	s.log.Info("profile updated", slog.String("user_id", userID))

	return s.repo.GetProfile(ctx, userID)
}
