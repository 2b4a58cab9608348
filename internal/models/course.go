package models

import "time"

// Course представляет курс в схеме courses. Цена хранится в целых
// сентаво, рейтинг поддерживается счётчиками RatingSum и RatingCount,
// которые обновляются приложением в одной транзакции с отзывом.
type Course struct {
	ID           string     `json:"id"`                     // Уникальный идентификатор курса
	InstructorID string     `json:"instructor_id"`          // Идентификатор преподавателя (учётная запись в auth)
	Title        string     `json:"title"`                  // Название курса
	Slug         string     `json:"slug"`                   // Человекочитаемый идентификатор в URL
	Description  string     `json:"description"`            // Описание курса
	PriceCents   int        `json:"price_cents"`            // Цена в сентаво
	Currency     string     `json:"currency"`               // Валюта ISO 4217
	AccessDays   *int       `json:"access_days,omitempty"`  // Срок доступа в днях, nil для бессрочного
	IsPublished  bool       `json:"is_published"`           // Опубликован ли курс
	PublishedAt  *time.Time `json:"published_at,omitempty"` // Момент первой публикации, устанавливается один раз
	RatingSum    int64      `json:"-"`                      // Сумма оценок отзывов
	RatingCount  int        `json:"rating_count"`           // Количество отзывов
	DeletedAt    *time.Time `json:"-"`                      // Момент мягкого удаления
	CreatedAt    time.Time  `json:"created_at"`             // Момент создания
	UpdatedAt    time.Time  `json:"updated_at"`             // Момент последнего изменения
}

// Rating возвращает средний рейтинг курса, 0 при отсутствии отзывов.
func (c *Course) Rating() float64 {
	if c.RatingCount == 0 {
		return 0
	}
	return float64(c.RatingSum) / float64(c.RatingCount)
}

// Review представляет отзыв о курсе. Пара (курс, пользователь) уникальна.
type Review struct {
	ID        string    `json:"id"`                // Уникальный идентификатор отзыва
	CourseID  string    `json:"course_id"`         // Идентификатор курса
	UserID    string    `json:"user_id"`           // Идентификатор автора отзыва
	Rating    int       `json:"rating"`            // Оценка от 1 до 5
	Comment   *string   `json:"comment,omitempty"` // Текст отзыва
	CreatedAt time.Time `json:"created_at"`        // Момент создания
}

// DummyCourse используется для приёма данных курса из JSON-запроса
// при создании и обновлении.
type DummyCourse struct {
	Title       string `json:"title" validate:"required,max=300"`                   // Название курса
	Slug        string `json:"slug" validate:"required,max=200"`                    // Идентификатор в URL
	Description string `json:"description,omitempty" validate:"omitempty"`          // Описание
	PriceCents  int    `json:"price_cents" validate:"gte=0"`                        // Цена в сентаво
	Currency    string `json:"currency,omitempty" validate:"omitempty,len=3,alpha"` // Валюта, по умолчанию COP
	AccessDays  *int   `json:"access_days,omitempty" validate:"omitempty,gt=0"`     // Срок доступа в днях
}

// DummyReview используется для приёма отзыва из JSON-запроса.
type DummyReview struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`          // Оценка от 1 до 5
	Comment string `json:"comment,omitempty" validate:"omitempty,max=4000"` // Текст отзыва
}
