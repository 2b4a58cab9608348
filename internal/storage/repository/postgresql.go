// Package repository реализует хранилище данных на основе PostgreSQL.
// Одна физическая база разбита на схемы ограниченных контекстов: auth,
// users, courses, content, enrollments, assessments, payments,
// subscriptions, analytics, notifications и compliance. Ссылки между
// схемами хранятся голыми UUID, проверки существования выполняются
// методами Exists через выданные межсхемные права SELECT.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL
// и реализует методы работы со всеми схемами платформы.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его доступность.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Общие лимиты пула для всех бинарей платформы.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(10 * time.Minute)

	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет, что миграции накатаны и ключевые
// таблицы на месте.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_schema = 'enrollments' AND table_name = 'enrollments'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table enrollments.enrollments missing or query error: %w", err)
	}
	return nil
}
