package models

import "time"

// Статусы записи на курс. Допустимые переходы проверяет сервис,
// база ограничивает множество значений CHECK-ограничением.
const (
	EnrollmentStatusActive    = "active"
	EnrollmentStatusCompleted = "completed"
	EnrollmentStatusPaused    = "paused"
	EnrollmentStatusRefunded  = "refunded"
	EnrollmentStatusExpired   = "expired"
)

// Enrollment представляет запись пользователя на курс в схеме enrollments.
// Пара (пользователь, курс) уникальна. Прогресс монотонный: обновления
// с меньшим значением игнорируются.
type Enrollment struct {
	ID                 string     `json:"id"`                     // Уникальный идентификатор записи
	UserID             string     `json:"user_id"`                // Идентификатор пользователя
	CourseID           string     `json:"course_id"`              // Идентификатор курса
	Status             string     `json:"status"`                 // Текущий статус записи
	ProgressPercentage float64    `json:"progress_percentage"`    // Прогресс прохождения, от 0 до 100
	EnrolledAt         time.Time  `json:"enrolled_at"`            // Момент записи на курс
	CompletedAt        *time.Time `json:"completed_at,omitempty"` // Момент завершения курса
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`   // Момент истечения доступа, nil для бессрочного
	CreatedAt          time.Time  `json:"created_at"`             // Момент создания
	UpdatedAt          time.Time  `json:"updated_at"`             // Момент последнего изменения
}

// DummyEnrollment используется для приёма запроса на запись из JSON.
type DummyEnrollment struct {
	CourseID string `json:"course_id" validate:"required,uuid4"` // Идентификатор курса
}

// DummyProgress используется для приёма обновления прогресса из JSON.
type DummyProgress struct {
	ProgressPercentage float64 `json:"progress_percentage" validate:"gte=0,lte=100"` // Новое значение прогресса
}
