package models

import "time"

// Lesson представляет урок курса в схеме content. Уроки упорядочены
// полем Position, пара (курс, позиция) уникальна. Видео хранится как
// внешняя ссылка, обработкой медиа платформа не занимается.
type Lesson struct {
	ID              string    `json:"id"`                         // Уникальный идентификатор урока
	CourseID        string    `json:"course_id"`                  // Идентификатор курса
	Position        int       `json:"position"`                   // Порядковый номер внутри курса, с единицы
	Title           string    `json:"title"`                      // Название урока
	ContentURL      *string   `json:"content_url,omitempty"`      // Ссылка на материалы урока
	DurationSeconds *int      `json:"duration_seconds,omitempty"` // Длительность в секундах
	IsPreview       bool      `json:"is_preview"`                 // Доступен ли урок без записи на курс
	CreatedAt       time.Time `json:"created_at"`                 // Момент создания
	UpdatedAt       time.Time `json:"updated_at"`                 // Момент последнего изменения
}

// DummyLesson используется для приёма данных урока из JSON-запроса.
type DummyLesson struct {
	Position        int    `json:"position" validate:"required,gt=0"`                     // Порядковый номер
	Title           string `json:"title" validate:"required,max=300"`                     // Название урока
	ContentURL      string `json:"content_url,omitempty" validate:"omitempty,url"`        // Ссылка на материалы
	DurationSeconds *int   `json:"duration_seconds,omitempty" validate:"omitempty,gte=0"` // Длительность в секундах
	IsPreview       bool   `json:"is_preview,omitempty"`                                  // Доступен без записи
}
