package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Сигнальные ошибки хранилища. Сервисы и обработчики сопоставляют их
// через errors.Is, чтобы отличать отсутствие записи и конфликт
// уникальности от инфраструктурных сбоев. ErrInvalidTransition поднимают
// сервисы, когда охраняемый переход состояния не затронул ни одной
// строки при существующей записи.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidTransition = errors.New("invalid transition")
)

// uniqueViolation сообщает, вызвана ли ошибка нарушением уникального
// ограничения PostgreSQL.
func uniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
