package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/edlatam/lms-platform/internal/models"
)

// CreateNotification сохраняет уведомление со статусом pending
// и возвращает его ID.
func (s *Storage) CreateNotification(ctx context.Context, n models.Notification) (string, error) {
	const op = "storage.CreateNotification"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID string
	query := `INSERT INTO notifications.notifications (user_id, topic, title, body, channel)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id`
	if err := s.DB.QueryRowContext(ctx, query,
		n.UserID, n.Topic, n.Title, n.Body, n.Channel).Scan(&newID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// MarkNotificationSent фиксирует успешную доставку.
func (s *Storage) MarkNotificationSent(ctx context.Context, notificationID string) (int, error) {
	const op = "storage.MarkNotificationSent"
	return s.updateNotificationStatus(ctx, op, `
			  UPDATE notifications.notifications
			  SET status = 'sent', sent_at = now()
			  WHERE id = $1 AND status = 'pending'`,
		notificationID)
}

// MarkNotificationFailed фиксирует неудачную доставку.
func (s *Storage) MarkNotificationFailed(ctx context.Context, notificationID string) (int, error) {
	const op = "storage.MarkNotificationFailed"
	return s.updateNotificationStatus(ctx, op, `
			  UPDATE notifications.notifications
			  SET status = 'failed'
			  WHERE id = $1 AND status = 'pending'`,
		notificationID)
}

// MarkNotificationRead фиксирует прочтение получателем.
func (s *Storage) MarkNotificationRead(ctx context.Context, notificationID, userID string) (int, error) {
	const op = "storage.MarkNotificationRead"
	return s.updateNotificationStatus(ctx, op, `
			  UPDATE notifications.notifications
			  SET read_at = now()
			  WHERE id = $1 AND user_id = $2 AND read_at IS NULL`,
		notificationID, userID)
}

func (s *Storage) updateNotificationStatus(ctx context.Context, op, query string, args ...any) (int, error) {
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

// ListUserNotifications возвращает уведомления пользователя со свежими
// впереди.
func (s *Storage) ListUserNotifications(ctx context.Context, userID string, limit, offset int) ([]*models.Notification, error) {
	const op = "storage.ListUserNotifications"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, topic, title, body, channel, status,
			      sent_at, read_at, created_at, updated_at
			  FROM notifications.notifications
			  WHERE user_id = $1
			  ORDER BY created_at DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Notification
	for rows.Next() {
		n := models.Notification{}
		var sentAt, readAt sql.NullTime
		if err = rows.Scan(&n.ID, &n.UserID, &n.Topic, &n.Title, &n.Body, &n.Channel,
			&n.Status, &sentAt, &readAt, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if sentAt.Valid {
			n.SentAt = &sentAt.Time
		}
		if readAt.Valid {
			n.ReadAt = &readAt.Time
		}
		result = append(result, &n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
