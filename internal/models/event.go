package models

import (
	"encoding/json"
	"time"
)

// Типы доменных событий аналитики. Список открытый, потребитель
// сохраняет и незнакомые типы.
const (
	EventUserRegistered    = "user.registered"
	EventUserVerified      = "user.verified"
	EventCoursePublished   = "course.published"
	EventEnrollmentCreated = "enrollment.created"
	EventEnrollmentDone    = "enrollment.completed"
	EventOrderPaid         = "order.paid"
	EventOrderRefunded     = "order.refunded"
	EventSubscriptionStart = "subscription.started"
	EventSubscriptionEnd   = "subscription.ended"
	EventQuizGraded        = "quiz.graded"
	EventDataRightsCreated = "data_rights.requested"
)

// Event представляет доменное событие. Публикуется сервисами в очередь
// и сохраняется воркером аналитики в месячную партицию analytics.events.
// CreatedMonth всегда равен первому дню месяца OccurredAt в UTC.
type Event struct {
	EventID      string          `json:"event_id"`              // Уникальный идентификатор события
	EventType    string          `json:"event_type"`            // Тип события, например order.paid
	UserID       *string         `json:"user_id,omitempty"`     // Идентификатор пользователя, если применим
	EntityType   *string         `json:"entity_type,omitempty"` // Тип сущности: course, order, enrollment
	EntityID     *string         `json:"entity_id,omitempty"`   // Идентификатор сущности
	Payload      json.RawMessage `json:"payload,omitempty"`     // Дополнительные атрибуты события
	OccurredAt   time.Time       `json:"occurred_at"`           // Момент события в домене
	CreatedMonth time.Time       // Месяц партиционирования, вычисляется при записи
}
