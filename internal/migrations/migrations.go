package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var embedMigrations embed.FS

// Run применяет все миграции к базе данных.
func Run(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// RunURI открывает подключение по URI и применяет миграции. Используется
// при старте приложения и как доводка схемы после восстановления из снимка.
func RunURI(databaseURI string) error {
	db, err := sql.Open("pgx", databaseURI)
	if err != nil {
		return fmt.Errorf("unable to open database connection: %w", err)
	}
	defer db.Close()

	return Run(db)
}

// Version возвращает текущую версию миграций.
func Version(db *sql.DB) (int64, error) {
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, fmt.Errorf("failed to set goose dialect: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("failed to get migration version: %w", err)
	}

	return version, nil
}
