// Package services содержит бизнес-логику регистрации и входа.
// Выпуск и проверка токенов выполняются внешним шлюзом, сервис работает
// только с учётными записями.
package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/edlatam/lms-platform/internal/lib/password"
	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// ErrInvalidCredentials возвращается при неверной паре почта-пароль.
// Текст одинаков для несуществующей почты и неверного пароля.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository описывает методы для работы с учётными записями в хранилище.
type UserRepository interface {
	// CreateUser сохраняет новую учётную запись и возвращает её ID.
	CreateUser(ctx context.Context, user models.User) (string, error)
	// GetUserByEmail возвращает неудалённого пользователя по почте.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUserByID возвращает неудалённого пользователя по идентификатору.
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	// MarkEmailVerified отмечает почту подтверждённой.
	MarkEmailVerified(ctx context.Context, email string) (int, error)
	// SoftDeleteUser помечает учётную запись удалённой.
	SoftDeleteUser(ctx context.Context, userID string) (int, error)
}

// Events описывает публикацию доменных событий и уведомлений.
type Events interface {
	Record(event models.Event)
	Notify(msg models.NotificationMessage)
}

// AuthService отвечает за регистрацию, вход и жизненный цикл учётной записи.
type AuthService struct {
	repo   UserRepository
	events Events
	log    *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(repo UserRepository, events Events, log *slog.Logger) *AuthService {
	return &AuthService{
		repo:   repo,
		events: events,
		log:    log,
	}
}

// Register создает учётную запись с bcrypt-хэшем пароля. Роль по умолчанию
// student, admin через регистрацию получить нельзя.
func (s *AuthService) Register(ctx context.Context, req models.DummyRegister) (string, error) {
	hashed, err := password.GetHash(req.Password)
	if err != nil {
		return "", err
	}

	role := req.Role
	if role == "" {
		role = models.RoleStudent
	}
	user := models.User{
		Email:        req.Email,
		PasswordHash: hashed,
		Role:         role,
	}

	id, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		return "", err
	}
	s.log.Info("registered new user", slog.String("id", id), slog.String("role", role))

	entity := "user"
	s.events.Record(models.Event{
		EventType:  models.EventUserRegistered,
		UserID:     &id,
		EntityType: &entity,
		EntityID:   &id,
	})
	s.events.Notify(models.NotificationMessage{
		UserID: id,
		Email:  req.Email,
		Topic:  models.TopicWelcome,
		Title:  "Bienvenido a la plataforma",
		Body:   "Tu cuenta fue creada con éxito. Explora el catálogo y comienza a aprender.",
	})

	return id, nil
}

// Login проверяет учётные данные и возвращает пользователя.
func (s *AuthService) Login(ctx context.Context, req models.DummyLogin) (*models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := password.CompareHash(user.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// VerifyEmail отмечает почту подтверждённой. Повторное подтверждение
// не является ошибкой.
func (s *AuthService) VerifyEmail(ctx context.Context, email string) error {
	count, err := s.repo.MarkEmailVerified(ctx, email)
	if err != nil {
		return err
	}
	if count == 0 {
		user, err := s.repo.GetUserByEmail(ctx, email)
		if err != nil {
			return err
		}
		if user.IsVerified {
			return nil
		}
		return repository.ErrNotFound
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	entity := "user"
	s.events.Record(models.Event{
		EventType:  models.EventUserVerified,
		UserID:     &user.ID,
		EntityType: &entity,
		EntityID:   &user.ID,
	})
	s.log.Info("email verified", slog.String("user_id", user.ID))
	return nil
}

// DeleteAccount мягко удаляет учётную запись. Строка остаётся для
// истории платежей и запросов субъекта данных.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	count, err := s.repo.SoftDeleteUser(ctx, userID)
	if err != nil {
		return err
	}
	if count == 0 {
		return repository.ErrNotFound
	}
	s.log.Info("account deleted", slog.String("user_id", userID))
	return nil
}

// GetUserByID возвращает живую учётную запись. Используется middleware
// для проверки заголовка идентификации.
func (s *AuthService) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}
