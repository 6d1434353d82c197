package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agamariel/teastore/internal/models"
	"github.com/agamariel/teastore/internal/pgtools"
	"github.com/agamariel/teastore/internal/sqldump"
	"github.com/google/uuid"
)

var (
	ErrBackupIncomplete = errors.New("backup captured fewer rows than live tables")
)

// BackupService определяет интерфейс резервного копирования.
type BackupService interface {
	CreateBackup(ctx context.Context, createdBy *int64, targetDrive, folder string) (*models.Backup, error)
	List(ctx context.Context) ([]*models.Backup, error)
	GetByID(ctx context.Context, id int64) (*models.Backup, error)
	Delete(ctx context.Context, id int64) error
	GetDrives(ctx context.Context) ([]models.DriveInfo, error)
}

// BackupServiceImpl реализует BackupService.
type BackupServiceImpl struct {
	backupStorage  BackupStorage
	exportStorage  ExportStorage
	tools          pgtools.Tools
	backupRoot     string
	criticalTables []string
	now            func() time.Time
}

// NewBackupService создаёт сервис резервного копирования.
func NewBackupService(backupStorage BackupStorage, exportStorage ExportStorage, tools pgtools.Tools, backupRoot string, criticalTables []string) *BackupServiceImpl {
	return &BackupServiceImpl{
		backupStorage:  backupStorage,
		exportStorage:  exportStorage,
		tools:          tools,
		backupRoot:     backupRoot,
		criticalTables: criticalTables,
		now:            time.Now,
	}
}

// CreateBackup снимает дамп базы и дописывает в него идемпотентные
// upsert-блоки критичных таблиц. Запись о попытке сохраняется всегда:
// completed с метриками или failed с текстом ошибки.
func (s *BackupServiceImpl) CreateBackup(ctx context.Context, createdBy *int64, targetDrive, folder string) (*models.Backup, error) {
	backup := &models.Backup{
		TargetDrive: targetDrive,
		CreatedBy:   createdBy,
		Status:      models.BackupStatusCompleted,
	}

	dir := s.backupRoot
	if folder != "" {
		dir = filepath.Join(s.backupRoot, filepath.Clean("/"+folder))
	}

	backup.Filename = fmt.Sprintf("backup_%s_%s.sql",
		s.now().Format("20060102_150405"),
		strings.Split(uuid.New().String(), "-")[0],
	)
	backup.FilePath = filepath.Join(dir, backup.Filename)

	if err := s.runBackup(ctx, backup, dir); err != nil {
		backup.Status = models.BackupStatusFailed
		backup.ErrorMessage = err.Error()

		if createErr := s.backupStorage.Create(ctx, backup); createErr != nil {
			return nil, fmt.Errorf("backup failed (%v) and record not persisted: %w", err, createErr)
		}
		return backup, err
	}

	if err := s.backupStorage.Create(ctx, backup); err != nil {
		return nil, fmt.Errorf("persist backup record: %w", err)
	}

	return backup, nil
}

// runBackup выполняет дамп и дозапись, заполняя метрики записи.
func (s *BackupServiceImpl) runBackup(ctx context.Context, backup *models.Backup, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	// Живые счётчики до дампа - эталон для проверки полноты.
	preCounts := make(map[string]int64, len(s.criticalTables))
	for _, table := range s.criticalTables {
		n, err := s.exportStorage.CountTable(ctx, table)
		if err != nil {
			return fmt.Errorf("count %s before dump: %w", table, err)
		}
		preCounts[table] = n
	}

	if err := s.tools.Dump(ctx, backup.FilePath); err != nil {
		return err
	}

	appended, err := s.appendCriticalTables(ctx, backup.FilePath)
	if err != nil {
		return fmt.Errorf("append critical tables: %w", err)
	}

	// Нативный дамп мог молча оборвать COPY-блок; дозаписанный блок
	// обязан покрывать не меньше строк, чем было до дампа.
	for _, table := range s.criticalTables {
		if appended[table] < preCounts[table] {
			return fmt.Errorf("%w: %s captured %d of %d rows",
				ErrBackupIncomplete, table, appended[table], preCounts[table])
		}
	}

	info, err := os.Stat(backup.FilePath)
	if err != nil {
		return fmt.Errorf("stat backup file: %w", err)
	}
	backup.FileSize = info.Size()

	return nil
}

// appendCriticalTables дописывает в файл маркер и upsert-блок каждой
// критичной таблицы, возвращая число строк по таблицам.
func (s *BackupServiceImpl) appendCriticalTables(ctx context.Context, path string) (map[string]int64, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	appended := make(map[string]int64, len(s.criticalTables))
	for _, table := range s.criticalTables {
		columns, rows, err := s.exportStorage.FetchTable(ctx, table)
		if err != nil {
			return nil, err
		}

		var b strings.Builder
		b.WriteString("\n")
		b.WriteString(sqldump.Marker(table, int64(len(rows))))
		b.WriteString("\n")
		for _, row := range rows {
			// Первая колонка - первичный ключ, по нему и конфликт.
			b.WriteString(sqldump.UpsertStatement(table, columns, columns[0], row))
			b.WriteString("\n")
		}

		if _, err := f.WriteString(b.String()); err != nil {
			return nil, err
		}
		appended[table] = int64(len(rows))
	}

	return appended, nil
}

// List возвращает историю резервных копий.
func (s *BackupServiceImpl) List(ctx context.Context) ([]*models.Backup, error) {
	return s.backupStorage.List(ctx)
}

// GetByID возвращает запись о резервной копии.
func (s *BackupServiceImpl) GetByID(ctx context.Context, id int64) (*models.Backup, error) {
	return s.backupStorage.GetByID(ctx, id)
}

// Delete удаляет запись о резервной копии; файл на диске остаётся.
func (s *BackupServiceImpl) Delete(ctx context.Context, id int64) error {
	return s.backupStorage.Delete(ctx, id)
}

// GetDrives возвращает сведения о томах. Ошибка перечисления не
// блокирует работу: возвращается одна заглушка с неизвестной ёмкостью.
func (s *BackupServiceImpl) GetDrives(ctx context.Context) ([]models.DriveInfo, error) {
	stats, err := s.tools.ListDrives(ctx)
	if err != nil || len(stats) == 0 {
		return []models.DriveInfo{
			{Label: "default", MountPoint: s.backupRoot, Unknown: true},
		}, nil
	}

	drives := make([]models.DriveInfo, 0, len(stats))
	for _, st := range stats {
		drives = append(drives, models.DriveInfo{
			Label:      st.Filesystem,
			MountPoint: st.MountPoint,
			TotalBytes: st.TotalBytes,
			UsedBytes:  st.UsedBytes,
			FreeBytes:  st.FreeBytes,
		})
	}

	return drives, nil
}
