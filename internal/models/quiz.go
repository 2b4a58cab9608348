package models

import (
	"encoding/json"
	"time"
)

// Статусы попытки прохождения теста.
const (
	SubmissionStatusInProgress = "in_progress"
	SubmissionStatusSubmitted  = "submitted"
	SubmissionStatusGraded     = "graded"
)

// Quiz представляет тест в схеме assessments. Ссылки на курс и урок
// хранятся голыми идентификаторами, их существование проверяет сервис.
type Quiz struct {
	ID           string    `json:"id"`                  // Уникальный идентификатор теста
	CourseID     string    `json:"course_id"`           // Идентификатор курса
	LessonID     *string   `json:"lesson_id,omitempty"` // Идентификатор урока, nil для итогового теста курса
	Title        string    `json:"title"`               // Название теста
	PassingScore int       `json:"passing_score"`       // Проходной балл от 0 до 100
	CreatedAt    time.Time `json:"created_at"`          // Момент создания
	UpdatedAt    time.Time `json:"updated_at"`          // Момент последнего изменения
}

// Submission представляет попытку прохождения теста. У пользователя может
// быть не более одной открытой попытки на тест, история попыток сохраняется.
type Submission struct {
	ID          string          `json:"id"`                     // Уникальный идентификатор попытки
	QuizID      string          `json:"quiz_id"`                // Идентификатор теста
	UserID      string          `json:"user_id"`                // Идентификатор пользователя
	Status      string          `json:"status"`                 // in_progress, submitted или graded
	Answers     json.RawMessage `json:"answers,omitempty"`      // Ответы в произвольной структуре JSON
	Score       *float64        `json:"score,omitempty"`        // Балл от 0 до 100, появляется после проверки
	StartedAt   time.Time       `json:"started_at"`             // Момент начала попытки
	SubmittedAt *time.Time      `json:"submitted_at,omitempty"` // Момент сдачи ответов
	GradedAt    *time.Time      `json:"graded_at,omitempty"`    // Момент выставления балла
}

// DummyQuiz используется для приёма данных теста из JSON-запроса.
type DummyQuiz struct {
	LessonID     string `json:"lesson_id,omitempty" validate:"omitempty,uuid4"`             // Идентификатор урока
	Title        string `json:"title" validate:"required,max=300"`                          // Название теста
	PassingScore int    `json:"passing_score,omitempty" validate:"omitempty,min=0,max=100"` // Проходной балл
}

// DummySubmit используется для приёма ответов из JSON-запроса.
type DummySubmit struct {
	Answers json.RawMessage `json:"answers" validate:"required"` // Ответы в произвольном JSON
}

// DummyGrade используется для приёма балла от преподавателя.
type DummyGrade struct {
	Score float64 `json:"score" validate:"gte=0,lte=100"` // Балл от 0 до 100
}
