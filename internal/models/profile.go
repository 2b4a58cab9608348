package models

import "time"

// Profile представляет публичный профиль пользователя в схеме users.
// Создаётся лениво при первом обращении, ключом служит идентификатор
// учётной записи из схемы auth.
type Profile struct {
	UserID    string    `json:"user_id"`              // Идентификатор учётной записи
	FullName  string    `json:"full_name"`            // Полное имя
	AvatarURL *string   `json:"avatar_url,omitempty"` // Ссылка на аватар
	Bio       *string   `json:"bio,omitempty"`        // Краткая биография
	Locale    string    `json:"locale"`               // Локаль интерфейса, по умолчанию es
	CreatedAt time.Time `json:"created_at"`           // Момент создания профиля
	UpdatedAt time.Time `json:"updated_at"`           // Момент последнего изменения
}

// Me объединяет учётную запись и профиль для ответа /users/me.
// Сборка выполняется в приложении, без межсхемного соединения в базе.
type Me struct {
	ID         string  `json:"id"`                   // Идентификатор пользователя
	Email      string  `json:"email"`                // Электронная почта
	Role       string  `json:"role"`                 // Роль
	IsVerified bool    `json:"is_verified"`          // Подтверждена ли почта
	FullName   string  `json:"full_name"`            // Полное имя из профиля
	AvatarURL  *string `json:"avatar_url,omitempty"` // Ссылка на аватар
	Bio        *string `json:"bio,omitempty"`        // Краткая биография
	Locale     string  `json:"locale"`               // Локаль интерфейса
}

// DummyProfileUpdate используется для приёма изменений профиля из JSON-запроса.
type DummyProfileUpdate struct {
	FullName  string  `json:"full_name" validate:"required,max=200"`              // Полное имя
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url"`      // Ссылка на аватар
	Bio       *string `json:"bio,omitempty" validate:"omitempty,max=2000"`        // Краткая биография
	Locale    string  `json:"locale,omitempty" validate:"omitempty,min=2,max=20"` // Локаль интерфейса
}
