// Package models содержит доменные структуры платформы обучения:
// учётные записи, курсы, уроки, записи на курсы, оценки, заказы,
// подписки и сопутствующие типы для приёма данных из JSON-запросов.
package models

import "time"

// Роли учётных записей. Хранятся строкой и ограничены CHECK-ограничением
// в auth.users.
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

// User представляет учётную запись в схеме auth.
// Поле DeletedAt не nil для мягко удалённых записей, такие записи
// не участвуют в аутентификации и проверках существования.
type User struct {
	ID           string     // Уникальный идентификатор пользователя
	Email        string     // Электронная почта (уникальна среди неудалённых)
	PasswordHash string     // Хэш пароля bcrypt
	Role         string     // Роль: student, instructor или admin
	IsVerified   bool       // Подтверждена ли почта
	VerifiedAt   *time.Time // Момент подтверждения почты
	DeletedAt    *time.Time // Момент мягкого удаления
	CreatedAt    time.Time  // Момент создания записи
	UpdatedAt    time.Time  // Момент последнего изменения
}

// DummyRegister используется для приёма данных регистрации из JSON-запроса
// до их валидации и передачи в сервис.
type DummyRegister struct {
	Email    string `json:"email" validate:"required,email"`                              // Электронная почта
	Password string `json:"password" validate:"required,min=8"`                           // Пароль, минимум 8 символов
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=student instructor"` // Роль, по умолчанию student
}

// DummyLogin используется для приёма учётных данных из JSON-запроса.
type DummyLogin struct {
	Email    string `json:"email" validate:"required,email"` // Электронная почта
	Password string `json:"password" validate:"required"`    // Пароль
}

// DummyVerifyEmail используется для подтверждения почты.
type DummyVerifyEmail struct {
	Email string `json:"email" validate:"required,email"` // Электронная почта
}
