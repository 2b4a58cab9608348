// Package logger настраивает slog по окружению приложения.
package logger

import (
	"log/slog"
	"os"
)

// Окружения платформы из конфигурации.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Setup возвращает логгер для окружения env. Локально пишется
// текстовый лог уровня Debug, в dev структурированный JSON уровня
// Debug, в prod JSON уровня Info. Неизвестное окружение считается
// локальным.
func Setup(env string) *slog.Logger {
	switch env {
	case EnvProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case EnvDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
