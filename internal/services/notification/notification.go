// Package services содержит бизнес-логику ленты уведомлений пользователя.
// Запись строк выполняет отправитель уведомлений, здесь только чтение
// и отметка о прочтении.
package services

import (
	"context"
	"log/slog"

	"github.com/edlatam/lms-platform/internal/models"
)

// NotificationRepository описывает методы хранилища для ленты уведомлений.
type NotificationRepository interface {
	// ListUserNotifications возвращает уведомления пользователя со свежими впереди.
	ListUserNotifications(ctx context.Context, userID string, limit, offset int) ([]*models.Notification, error)
	// MarkNotificationRead фиксирует прочтение получателем.
	MarkNotificationRead(ctx context.Context, notificationID, userID string) (int, error)
}

// NotificationService реализует бизнес-логику ленты уведомлений.
type NotificationService struct {
	repo NotificationRepository
	log  *slog.Logger
}

// NewNotificationService создает новый экземпляр NotificationService.
func NewNotificationService(repo NotificationRepository, log *slog.Logger) *NotificationService {
	return &NotificationService{
		repo: repo,
		log:  log,
	}
}

// ListMine возвращает страницу уведомлений пользователя.
func (s *NotificationService) ListMine(ctx context.Context, userID string, limit, offset int) ([]*models.Notification, error) {
	return s.repo.ListUserNotifications(ctx, userID, limit, offset)
}

// MarkRead отмечает уведомление прочитанным. Повторная отметка
// и чужой идентификатор не считаются ошибкой.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID string) error {
	count, err := s.repo.MarkNotificationRead(ctx, notificationID, userID)
	if err != nil {
		return err
	}
	if count == 0 {
		s.log.Info("notification already read or not visible",
			slog.String("notification_id", notificationID),
			slog.String("user_id", userID))
	}
	return nil
}
