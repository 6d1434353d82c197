package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/agamariel/teastore/internal/models"
	"github.com/agamariel/teastore/internal/storage"
)

// Ключи настроек автоматического резервного копирования.
const (
	settingAutoEnabled     = "auto_backup_enabled"
	settingAutoFrequency   = "auto_backup_frequency"
	settingAutoTimeOfDay   = "auto_backup_time_of_day"
	settingAutoDayOfMonth  = "auto_backup_day_of_month"
	settingAutoRetention   = "auto_backup_retention_months"
	settingAutoTargetDrive = "auto_backup_target_drive"
	settingAutoFolder      = "auto_backup_folder"
	settingAutoLastRun     = "auto_backup_last_run"
)

// BackupScheduler периодически проверяет расписание и запускает
// автоматическое резервное копирование. Интервал опроса грубый,
// точность cron здесь не нужна.
type BackupScheduler struct {
	backupService   BackupService
	backupStorage   BackupStorage
	settingsStorage SettingsStorage
	interval        time.Duration
	logger          *log.Logger
	now             func() time.Time

	// inFlight не даёт двум тикам пересечься на долгом бэкапе.
	inFlight atomic.Bool
}

// NewBackupScheduler создаёт планировщик автоматических бэкапов.
func NewBackupScheduler(backupService BackupService, backupStorage BackupStorage, settingsStorage SettingsStorage, interval time.Duration, logger *log.Logger) *BackupScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &BackupScheduler{
		backupService:   backupService,
		backupStorage:   backupStorage,
		settingsStorage: settingsStorage,
		interval:        interval,
		logger:          logger,
		now:             time.Now,
	}
}

// Start запускает планировщик в отдельной горутине и останавливается по ctx.Done().
func (w *BackupScheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.tick(ctx); err != nil {
					w.logger.Printf("backup scheduler error: %v", err)
				}
			}
		}
	}()
}

// tick выполняет одну проверку расписания.
func (w *BackupScheduler) tick(ctx context.Context) error {
	if !w.inFlight.CompareAndSwap(false, true) {
		return nil
	}
	defer w.inFlight.Store(false)

	settings, err := w.LoadSettings(ctx)
	if err != nil {
		return err
	}
	if !settings.Enabled {
		return nil
	}

	lastRun := w.loadLastRun(ctx)
	now := w.now()

	due, err := scheduleDue(settings, now, lastRun)
	if err != nil {
		return err
	}
	if !due {
		return nil
	}

	w.logger.Printf("scheduled backup starting (frequency=%s)", settings.Frequency)

	// Автоматический запуск - без аутентифицированного субъекта.
	if _, err := w.backupService.CreateBackup(ctx, nil, settings.TargetDrive, settings.Folder); err != nil {
		w.logger.Printf("scheduled backup failed: %v", err)
		// Запись failed уже сохранена сервисом; отметку о запуске
		// обновляем, чтобы не молотить каждую минуту.
	}

	if err := w.settingsStorage.Set(ctx, settingAutoLastRun, now.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("update last run marker: %w", err)
	}

	if settings.RetentionMonths > 0 {
		w.applyRetention(ctx, settings.RetentionMonths)
	}

	return nil
}

// applyRetention удаляет файлы и записи старше срока хранения.
func (w *BackupScheduler) applyRetention(ctx context.Context, months int) {
	old, err := w.backupStorage.ListOlderThan(ctx, months)
	if err != nil {
		w.logger.Printf("retention query failed: %v", err)
		return
	}

	for _, b := range old {
		if b.FilePath != "" {
			if err := os.Remove(b.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
				w.logger.Printf("retention: remove %s: %v", b.FilePath, err)
			}
		}
		if err := w.backupStorage.Delete(ctx, b.ID); err != nil {
			w.logger.Printf("retention: delete record %d: %v", b.ID, err)
		}
	}

	if len(old) > 0 {
		w.logger.Printf("retention removed %d old backups", len(old))
	}
}

// scheduleDue решает, пора ли запускать бэкап: запланированный момент
// сегодняшнего дня (или дня месяца) прошёл, а запуска в текущем
// периоде ещё не было.
func scheduleDue(settings *models.AutoBackupSettings, now, lastRun time.Time) (bool, error) {
	tod, err := time.Parse("15:04", settings.TimeOfDay)
	if err != nil {
		return false, fmt.Errorf("bad time of day %q: %w", settings.TimeOfDay, err)
	}

	switch settings.Frequency {
	case "daily":
		scheduled := time.Date(now.Year(), now.Month(), now.Day(), tod.Hour(), tod.Minute(), 0, 0, now.Location())
		return now.After(scheduled) && lastRun.Before(scheduled), nil

	case "monthly":
		day := clampDayOfMonth(settings.DayOfMonth, now)
		scheduled := time.Date(now.Year(), now.Month(), day, tod.Hour(), tod.Minute(), 0, 0, now.Location())
		return now.After(scheduled) && lastRun.Before(scheduled), nil

	default:
		return false, fmt.Errorf("unknown backup frequency %q", settings.Frequency)
	}
}

// clampDayOfMonth прижимает день к последнему дню текущего месяца:
// 31-е в апреле превращается в 30-е, в феврале - в 28-е или 29-е.
func clampDayOfMonth(day int, now time.Time) int {
	if day < 1 {
		return 1
	}
	lastDay := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()
	if day > lastDay {
		return lastDay
	}
	return day
}

// loadLastRun читает отметку последнего запуска.
func (w *BackupScheduler) loadLastRun(ctx context.Context) time.Time {
	raw, err := w.settingsStorage.Get(ctx, settingAutoLastRun)
	if err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

// LoadSettings собирает настройки автобэкапа из таблицы settings.
func (w *BackupScheduler) LoadSettings(ctx context.Context) (*models.AutoBackupSettings, error) {
	settings := &models.AutoBackupSettings{
		Frequency:       "daily",
		TimeOfDay:       "03:00",
		DayOfMonth:      1,
		RetentionMonths: 6,
	}

	settings.Enabled = w.getSetting(ctx, settingAutoEnabled) == "true"
	if v := w.getSetting(ctx, settingAutoFrequency); v != "" {
		settings.Frequency = v
	}
	if v := w.getSetting(ctx, settingAutoTimeOfDay); v != "" {
		settings.TimeOfDay = v
	}
	if v := w.getSetting(ctx, settingAutoDayOfMonth); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.DayOfMonth = n
		}
	}
	if v := w.getSetting(ctx, settingAutoRetention); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.RetentionMonths = n
		}
	}
	settings.TargetDrive = w.getSetting(ctx, settingAutoTargetDrive)
	settings.Folder = w.getSetting(ctx, settingAutoFolder)

	return settings, nil
}

// SaveSettings сохраняет настройки автобэкапа.
func (w *BackupScheduler) SaveSettings(ctx context.Context, settings *models.AutoBackupSettings) error {
	if settings.Frequency != "daily" && settings.Frequency != "monthly" {
		return fmt.Errorf("unknown backup frequency %q", settings.Frequency)
	}
	if _, err := time.Parse("15:04", settings.TimeOfDay); err != nil {
		return fmt.Errorf("bad time of day %q: %w", settings.TimeOfDay, err)
	}

	pairs := map[string]string{
		settingAutoEnabled:     strconv.FormatBool(settings.Enabled),
		settingAutoFrequency:   settings.Frequency,
		settingAutoTimeOfDay:   settings.TimeOfDay,
		settingAutoDayOfMonth:  strconv.Itoa(settings.DayOfMonth),
		settingAutoRetention:   strconv.Itoa(settings.RetentionMonths),
		settingAutoTargetDrive: settings.TargetDrive,
		settingAutoFolder:      settings.Folder,
	}

	for key, value := range pairs {
		if err := w.settingsStorage.Set(ctx, key, value); err != nil {
			return err
		}
	}

	return nil
}

// getSetting возвращает значение настройки или пустую строку.
func (w *BackupScheduler) getSetting(ctx context.Context, key string) string {
	v, err := w.settingsStorage.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrSettingNotFound) {
			w.logger.Printf("read setting %s: %v", key, err)
		}
		return ""
	}
	return v
}
