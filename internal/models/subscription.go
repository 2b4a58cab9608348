package models

import "time"

// Статусы подписки. Переходы trialing-active, active-past_due и выходы
// в canceled и expired контролирует сервис и планировщик биллинга.
const (
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusExpired  = "expired"
)

// Plan представляет тарифный план в схеме subscriptions.
// Каталог планов заполняется миграцией и читается приложением.
type Plan struct {
	ID             string    `json:"id"`              // Уникальный идентификатор плана
	Code           string    `json:"code"`            // Машинное имя плана, уникально
	Name           string    `json:"name"`            // Отображаемое название
	PriceCents     int       `json:"price_cents"`     // Цена за период в сентаво
	Currency       string    `json:"currency"`        // Валюта ISO 4217
	IntervalMonths int       `json:"interval_months"` // Длительность периода в месяцах
	TrialDays      int       `json:"trial_days"`      // Длительность пробного периода в днях
	IsActive       bool      `json:"is_active"`       // Доступен ли план для новых подписок
	CreatedAt      time.Time `json:"created_at"`      // Момент создания
	UpdatedAt      time.Time `json:"updated_at"`      // Момент последнего изменения
}

// Subscription представляет подписку пользователя в схеме subscriptions.
// У пользователя не больше одной подписки в нетерминальном статусе,
// завершённые подписки остаются историей.
type Subscription struct {
	ID                 string     `json:"id"`                      // Уникальный идентификатор подписки
	UserID             string     `json:"user_id"`                 // Идентификатор пользователя
	PlanID             string     `json:"plan_id"`                 // Идентификатор тарифного плана
	Status             string     `json:"status"`                  // Текущий статус подписки
	TrialEndsAt        *time.Time `json:"trial_ends_at,omitempty"` // Конец пробного периода
	CurrentPeriodStart time.Time  `json:"current_period_start"`    // Начало текущего оплаченного периода
	CurrentPeriodEnd   time.Time  `json:"current_period_end"`      // Конец текущего оплаченного периода
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`    // Отменить в конце периода вместо продления
	CanceledAt         *time.Time `json:"canceled_at,omitempty"`   // Момент запроса отмены
	CreatedAt          time.Time  `json:"created_at"`              // Момент создания
	UpdatedAt          time.Time  `json:"updated_at"`              // Момент последнего изменения
}

// Open сообщает, находится ли подписка в нетерминальном статусе.
func (s *Subscription) Open() bool {
	switch s.Status {
	case SubscriptionStatusTrialing, SubscriptionStatusActive, SubscriptionStatusPastDue:
		return true
	}
	return false
}

// DummySubscribe используется для приёма запроса на подписку из JSON.
type DummySubscribe struct {
	PlanCode string `json:"plan_code" validate:"required"` // Машинное имя плана
}

// DummyCancelSubscription используется для приёма запроса на отмену.
// По умолчанию подписка доживает до конца оплаченного периода.
type DummyCancelSubscription struct {
	Immediate bool `json:"immediate,omitempty"` // Отменить немедленно
}
