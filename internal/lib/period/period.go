// Package period содержит календарную арифметику для биллинга и
// месячного партиционирования аналитики. Все вычисления ведутся в UTC,
// чтобы границы месяца совпадали с границами партиций в базе.
package period

import "time"

// MonthStartUTC возвращает первый день месяца момента t в UTC
// с нулевым временем. Это значение ключа партиционирования
// analytics.events для события, произошедшего в t.
func MonthStartUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths сдвигает момент t на заданное число календарных месяцев.
// Отрицательное значение сдвигает назад. Используется для продления
// периода подписки и вычисления границы хранения партиций.
func AddMonths(t time.Time, months int) time.Time {
	return t.AddDate(0, months, 0)
}

// RetentionCutoff возвращает первый день самого старого месяца,
// который ещё надо хранить при глубине хранения retentionMonths.
// Партиции строго старше этой границы подлежат удалению.
func RetentionCutoff(now time.Time, retentionMonths int) time.Time {
	return AddMonths(MonthStartUTC(now), -(retentionMonths - 1))
}
