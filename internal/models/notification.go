package models

import "time"

// Статусы и каналы уведомления.
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"

	NotificationChannelEmail = "email"
	NotificationChannelInApp = "in_app"
)

// Темы уведомлений, задают шаблон письма у отправителя.
const (
	TopicWelcome          = "welcome"
	TopicEnrollmentActive = "enrollment.active"
	TopicOrderPaid        = "order.paid"
	TopicRenewalUpcoming  = "renewal.upcoming"
	TopicTrialEnding      = "trial.ending"
	TopicPaymentOverdue   = "payment.overdue"
	TopicDataRightsDue    = "data_rights.due"
)

// Notification представляет уведомление пользователя в схеме notifications.
// Строка появляется при обработке сообщения из очереди и отражает
// судьбу доставки по выбранному каналу.
type Notification struct {
	ID        string     `json:"id"`                // Уникальный идентификатор уведомления
	UserID    string     `json:"user_id"`           // Идентификатор получателя
	Topic     string     `json:"topic"`             // Тема, определяет шаблон письма
	Title     string     `json:"title"`             // Заголовок
	Body      string     `json:"body"`              // Текст уведомления
	Channel   string     `json:"channel"`           // email или in_app
	Status    string     `json:"status"`            // pending, sent или failed
	SentAt    *time.Time `json:"sent_at,omitempty"` // Момент успешной отправки
	ReadAt    *time.Time `json:"read_at,omitempty"` // Момент прочтения получателем
	CreatedAt time.Time  `json:"created_at"`        // Момент создания
	UpdatedAt time.Time  `json:"updated_at"`        // Момент последнего изменения
}

// NotificationMessage представляет сообщение очереди уведомлений.
// Email получателя кладёт издатель, чтобы отправитель не ходил в схему auth
// за каждым письмом.
type NotificationMessage struct {
	UserID  string `json:"user_id"`           // Идентификатор получателя
	Email   string `json:"email"`             // Адрес получателя
	Topic   string `json:"topic"`             // Тема уведомления
	Title   string `json:"title"`             // Заголовок
	Body    string `json:"body"`              // Текст уведомления
	Channel string `json:"channel,omitempty"` // Канал, по умолчанию email
}
