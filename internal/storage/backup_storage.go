package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/agamariel/teastore/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrBackupNotFound = errors.New("backup not found")
)

// BackupStorage определяет интерфейс для записей о резервных копиях.
type BackupStorage interface {
	Create(ctx context.Context, backup *models.Backup) error
	GetByID(ctx context.Context, id int64) (*models.Backup, error)
	List(ctx context.Context) ([]*models.Backup, error)
	ListOlderThan(ctx context.Context, months int) ([]*models.Backup, error)
	Delete(ctx context.Context, id int64) error
}

// PostgresBackupStorage реализует BackupStorage для PostgreSQL.
type PostgresBackupStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresBackupStorage создаёт новый экземпляр PostgresBackupStorage.
func NewPostgresBackupStorage(pool *pgxpool.Pool) *PostgresBackupStorage {
	return &PostgresBackupStorage{pool: pool}
}

const backupColumns = `id, filename, file_path, target_drive, file_size, created_by, status, error_message, created_at`

// Create сохраняет запись о попытке резервного копирования.
func (s *PostgresBackupStorage) Create(ctx context.Context, backup *models.Backup) error {
	query := `
		INSERT INTO backups (filename, file_path, target_drive, file_size, created_by, status, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`

	err := s.pool.QueryRow(ctx, query,
		backup.Filename,
		backup.FilePath,
		backup.TargetDrive,
		backup.FileSize,
		backup.CreatedBy,
		backup.Status,
		backup.ErrorMessage,
	).Scan(&backup.ID, &backup.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create backup record: %w", err)
	}

	return nil
}

// GetByID возвращает запись о резервной копии.
func (s *PostgresBackupStorage) GetByID(ctx context.Context, id int64) (*models.Backup, error) {
	query := `SELECT ` + backupColumns + ` FROM backups WHERE id = $1`
	return scanBackup(s.pool.QueryRow(ctx, query, id))
}

// List возвращает историю резервных копий (свежие первыми).
func (s *PostgresBackupStorage) List(ctx context.Context) ([]*models.Backup, error) {
	query := `SELECT ` + backupColumns + ` FROM backups ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query backups: %w", err)
	}
	defer rows.Close()

	return collectBackups(rows)
}

// ListOlderThan возвращает записи старше заданного числа месяцев.
// Используется при чистке по сроку хранения.
func (s *PostgresBackupStorage) ListOlderThan(ctx context.Context, months int) ([]*models.Backup, error) {
	query := `SELECT ` + backupColumns + ` FROM backups WHERE created_at < NOW() - ($1 || ' months')::interval`

	rows, err := s.pool.Query(ctx, query, fmt.Sprintf("%d", months))
	if err != nil {
		return nil, fmt.Errorf("failed to query old backups: %w", err)
	}
	defer rows.Close()

	return collectBackups(rows)
}

// Delete удаляет запись о резервной копии. Файл на диске не трогается.
func (s *PostgresBackupStorage) Delete(ctx context.Context, id int64) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM backups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete backup record: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrBackupNotFound
	}

	return nil
}

// collectBackups читает все записи из результата запроса.
func collectBackups(rows pgx.Rows) ([]*models.Backup, error) {
	var backups []*models.Backup
	for rows.Next() {
		backup, err := scanBackup(rows)
		if err != nil {
			return nil, err
		}
		backups = append(backups, backup)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows error: %w", rows.Err())
	}

	return backups, nil
}

// scanBackup помогает читать запись из строки результата.
func scanBackup(row pgx.Row) (*models.Backup, error) {
	backup := &models.Backup{}

	err := row.Scan(
		&backup.ID,
		&backup.Filename,
		&backup.FilePath,
		&backup.TargetDrive,
		&backup.FileSize,
		&backup.CreatedBy,
		&backup.Status,
		&backup.ErrorMessage,
		&backup.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBackupNotFound
		}
		return nil, fmt.Errorf("failed to scan backup: %w", err)
	}

	return backup, nil
}
