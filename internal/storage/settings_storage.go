package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrSettingNotFound = errors.New("setting not found")
)

// SettingsStorage - персистентные настройки парами ключ/значение.
// На них живёт конфигурация автоматического резервного копирования.
type SettingsStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// PostgresSettingsStorage реализует SettingsStorage для PostgreSQL.
type PostgresSettingsStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresSettingsStorage создаёт новый экземпляр PostgresSettingsStorage.
func NewPostgresSettingsStorage(pool *pgxpool.Pool) *PostgresSettingsStorage {
	return &PostgresSettingsStorage{pool: pool}
}

// Get возвращает значение настройки.
func (s *PostgresSettingsStorage) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrSettingNotFound
		}
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}

	return value, nil
}

// Set сохраняет значение настройки (upsert).
func (s *PostgresSettingsStorage) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	if _, err := s.pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}

	return nil
}
