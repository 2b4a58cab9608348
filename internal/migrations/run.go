// Package migrations применяет встроенные SQL-миграции схемного реестра.
// Файлы нумеруются последовательно и накатываются только вперёд; повторный
// запуск на актуальной базе завершается без изменений.
package migrations

import (
	"database/sql"
	"embed"

	"github.com/golang-migrate/migrate/v4"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var files embed.FS

func Run(db *sql.DB) error {
	src, err := iofs.New(files, "sql")
	if err != nil {
		return err
	}
	driver, err := pgxv5.WithInstance(db, &pgxv5.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx_v5", driver)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}
