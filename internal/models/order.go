package models

import "time"

// Статусы заказа. Допустимые переходы: pending в paid или cancelled,
// paid в refunded. Остальные комбинации сервис отклоняет.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusCancelled = "cancelled"
	OrderStatusRefunded  = "refunded"
)

// Статусы счёта за период подписки.
const (
	InvoiceStatusOpen = "open"
	InvoiceStatusPaid = "paid"
	InvoiceStatusVoid = "void"
)

// Order представляет заказ на покупку курса в схеме payments.
// Номер вида ORD-YYYY-NNNNNN выдаёт база из последовательности,
// цена фиксируется на момент создания заказа.
type Order struct {
	ID          string     `json:"id"`                     // Уникальный идентификатор заказа
	OrderNumber string     `json:"order_number"`           // Номер заказа ORD-YYYY-NNNNNN
	UserID      string     `json:"user_id"`                // Идентификатор покупателя
	CourseID    string     `json:"course_id"`              // Идентификатор курса
	AmountCents int        `json:"amount_cents"`           // Сумма в сентаво на момент заказа
	Currency    string     `json:"currency"`               // Валюта ISO 4217
	Status      string     `json:"status"`                 // Текущий статус заказа
	PaidAt      *time.Time `json:"paid_at,omitempty"`      // Момент оплаты
	CancelledAt *time.Time `json:"cancelled_at,omitempty"` // Момент отмены
	RefundedAt  *time.Time `json:"refunded_at,omitempty"`  // Момент возврата
	CreatedAt   time.Time  `json:"created_at"`             // Момент создания
	UpdatedAt   time.Time  `json:"updated_at"`             // Момент последнего изменения
}

// Invoice представляет счёт за период подписки. Пара
// (подписка, начало периода) уникальна, повторный биллинг
// за тот же период невозможен.
type Invoice struct {
	ID             string     `json:"id"`                // Уникальный идентификатор счёта
	SubscriptionID string     `json:"subscription_id"`   // Идентификатор подписки
	UserID         string     `json:"user_id"`           // Идентификатор плательщика
	AmountCents    int        `json:"amount_cents"`      // Сумма в сентаво
	Currency       string     `json:"currency"`          // Валюта ISO 4217
	PeriodStart    time.Time  `json:"period_start"`      // Начало оплачиваемого периода
	PeriodEnd      time.Time  `json:"period_end"`        // Конец оплачиваемого периода
	Status         string     `json:"status"`            // open, paid или void
	IssuedAt       time.Time  `json:"issued_at"`         // Момент выставления
	PaidAt         *time.Time `json:"paid_at,omitempty"` // Момент оплаты
}

// DummyOrder используется для приёма заказа из JSON-запроса.
type DummyOrder struct {
	CourseID string `json:"course_id" validate:"required,uuid4"` // Идентификатор курса
}
