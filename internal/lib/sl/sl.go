// Package sl содержит помощники для структурированных полей slog.
package sl

import "log/slog"

// Err возвращает атрибут с ключом "error" и текстом ошибки.
// Все журналы платформы пишут ошибки через этот помощник, поле
// называется одинаково во всех сервисах. Вызов с nil паникует.
func Err(err error) slog.Attr {
	return slog.String("error", err.Error())
}
