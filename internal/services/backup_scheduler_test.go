package services

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/agamariel/teastore/internal/models"
	"github.com/agamariel/teastore/internal/storage"
)

// fakeBackupService подменяет BackupService в тестах планировщика.
type fakeBackupService struct {
	CreateBackupFunc func(ctx context.Context, createdBy *int64, targetDrive, folder string) (*models.Backup, error)
}

func (f *fakeBackupService) CreateBackup(ctx context.Context, createdBy *int64, targetDrive, folder string) (*models.Backup, error) {
	if f.CreateBackupFunc != nil {
		return f.CreateBackupFunc(ctx, createdBy, targetDrive, folder)
	}
	return &models.Backup{Status: models.BackupStatusCompleted}, nil
}

func (f *fakeBackupService) List(ctx context.Context) ([]*models.Backup, error) {
	return nil, nil
}

func (f *fakeBackupService) GetByID(ctx context.Context, id int64) (*models.Backup, error) {
	return nil, storage.ErrBackupNotFound
}

func (f *fakeBackupService) Delete(ctx context.Context, id int64) error {
	return nil
}

func (f *fakeBackupService) GetDrives(ctx context.Context) ([]models.DriveInfo, error) {
	return nil, nil
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestScheduleDue(t *testing.T) {
	at := func(day, hour, minute int) time.Time {
		return time.Date(2026, time.September, day, hour, minute, 0, 0, time.UTC)
	}

	tests := []struct {
		name     string
		settings models.AutoBackupSettings
		now      time.Time
		lastRun  time.Time
		want     bool
		wantErr  bool
	}{
		{
			name:     "daily before scheduled time",
			settings: models.AutoBackupSettings{Frequency: "daily", TimeOfDay: "03:00"},
			now:      at(1, 2, 30),
			want:     false,
		},
		{
			name:     "daily after scheduled time, never ran",
			settings: models.AutoBackupSettings{Frequency: "daily", TimeOfDay: "03:00"},
			now:      at(1, 3, 5),
			want:     true,
		},
		{
			name:     "daily already ran today",
			settings: models.AutoBackupSettings{Frequency: "daily", TimeOfDay: "03:00"},
			now:      at(1, 9, 0),
			lastRun:  at(1, 3, 1),
			want:     false,
		},
		{
			name:     "daily ran yesterday",
			settings: models.AutoBackupSettings{Frequency: "daily", TimeOfDay: "03:00"},
			now:      at(2, 3, 5),
			lastRun:  at(1, 3, 1),
			want:     true,
		},
		{
			name:     "monthly wrong day",
			settings: models.AutoBackupSettings{Frequency: "monthly", TimeOfDay: "03:00", DayOfMonth: 15},
			now:      at(10, 9, 0),
			want:     false,
		},
		{
			name:     "monthly on schedule day",
			settings: models.AutoBackupSettings{Frequency: "monthly", TimeOfDay: "03:00", DayOfMonth: 15},
			now:      at(15, 3, 5),
			want:     true,
		},
		{
			name:     "monthly already ran this month",
			settings: models.AutoBackupSettings{Frequency: "monthly", TimeOfDay: "03:00", DayOfMonth: 15},
			now:      at(20, 9, 0),
			lastRun:  at(15, 3, 1),
			want:     false,
		},
		{
			// День 31 в сентябре прижимается к 30-му.
			name:     "monthly day clamped to month length",
			settings: models.AutoBackupSettings{Frequency: "monthly", TimeOfDay: "03:00", DayOfMonth: 31},
			now:      at(30, 3, 5),
			want:     true,
		},
		{
			name:     "unknown frequency",
			settings: models.AutoBackupSettings{Frequency: "hourly", TimeOfDay: "03:00"},
			now:      at(1, 9, 0),
			wantErr:  true,
		},
		{
			name:     "bad time of day",
			settings: models.AutoBackupSettings{Frequency: "daily", TimeOfDay: "3pm"},
			now:      at(1, 9, 0),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := scheduleDue(&tt.settings, tt.now, tt.lastRun)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("due = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClampDayOfMonth(t *testing.T) {
	february := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)

	if got := clampDayOfMonth(31, february); got != 28 {
		t.Errorf("clamp 31 in feb 2026 = %d, want 28", got)
	}
	if got := clampDayOfMonth(15, february); got != 15 {
		t.Errorf("clamp 15 = %d, want 15", got)
	}
	if got := clampDayOfMonth(0, february); got != 1 {
		t.Errorf("clamp 0 = %d, want 1", got)
	}
}

func TestBackupScheduler_Tick(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled schedule does nothing", func(t *testing.T) {
		ran := false
		svc := &fakeBackupService{
			CreateBackupFunc: func(ctx context.Context, createdBy *int64, targetDrive, folder string) (*models.Backup, error) {
				ran = true
				return &models.Backup{}, nil
			},
		}
		settings := &storage.MockSettingsStorage{Values: map[string]string{
			settingAutoEnabled: "false",
		}}

		w := NewBackupScheduler(svc, &storage.MockBackupStorage{}, settings, time.Minute, quietLogger())
		if err := w.tick(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ran {
			t.Error("backup must not run when schedule disabled")
		}
	})

	t.Run("due schedule runs backup and stamps last run", func(t *testing.T) {
		var creator *int64 = new(int64)
		var gotDrive, gotFolder string
		ran := false

		svc := &fakeBackupService{
			CreateBackupFunc: func(ctx context.Context, createdBy *int64, targetDrive, folder string) (*models.Backup, error) {
				ran = true
				creator = createdBy
				gotDrive, gotFolder = targetDrive, folder
				return &models.Backup{Status: models.BackupStatusCompleted}, nil
			},
		}
		settings := &storage.MockSettingsStorage{Values: map[string]string{
			settingAutoEnabled:     "true",
			settingAutoFrequency:   "daily",
			settingAutoTimeOfDay:   "03:00",
			settingAutoTargetDrive: "local",
			settingAutoFolder:      "auto",
		}}

		w := NewBackupScheduler(svc, &storage.MockBackupStorage{}, settings, time.Minute, quietLogger())
		w.now = fixedNow

		if err := w.tick(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ran {
			t.Fatal("backup did not run")
		}
		if creator != nil {
			t.Error("scheduled backup must run without an acting user")
		}
		if gotDrive != "local" || gotFolder != "auto" {
			t.Errorf("backup target = %q/%q", gotDrive, gotFolder)
		}

		stamp, ok := settings.Values[settingAutoLastRun]
		if !ok {
			t.Fatal("last run marker not written")
		}
		if _, err := time.Parse(time.RFC3339, stamp); err != nil {
			t.Errorf("last run marker %q is not RFC3339: %v", stamp, err)
		}
	})

	t.Run("second run in same period skipped", func(t *testing.T) {
		runs := 0
		svc := &fakeBackupService{
			CreateBackupFunc: func(ctx context.Context, createdBy *int64, targetDrive, folder string) (*models.Backup, error) {
				runs++
				return &models.Backup{}, nil
			},
		}
		settings := &storage.MockSettingsStorage{Values: map[string]string{
			settingAutoEnabled:   "true",
			settingAutoFrequency: "daily",
			settingAutoTimeOfDay: "03:00",
		}}

		w := NewBackupScheduler(svc, &storage.MockBackupStorage{}, settings, time.Minute, quietLogger())
		w.now = fixedNow

		if err := w.tick(ctx); err != nil {
			t.Fatalf("first tick: %v", err)
		}
		if err := w.tick(ctx); err != nil {
			t.Fatalf("second tick: %v", err)
		}
		if runs != 1 {
			t.Errorf("runs = %d, want 1", runs)
		}
	})

	t.Run("retention removes expired records", func(t *testing.T) {
		deleted := []int64{}
		backups := &storage.MockBackupStorage{
			ListOlderThanFunc: func(ctx context.Context, months int) ([]*models.Backup, error) {
				if months != 6 {
					t.Errorf("retention months = %d, want 6", months)
				}
				return []*models.Backup{{ID: 3}, {ID: 4}}, nil
			},
			DeleteFunc: func(ctx context.Context, id int64) error {
				deleted = append(deleted, id)
				return nil
			},
		}
		settings := &storage.MockSettingsStorage{Values: map[string]string{
			settingAutoEnabled:   "true",
			settingAutoFrequency: "daily",
			settingAutoTimeOfDay: "03:00",
		}}

		w := NewBackupScheduler(&fakeBackupService{}, backups, settings, time.Minute, quietLogger())
		w.now = fixedNow

		if err := w.tick(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(deleted) != 2 {
			t.Errorf("deleted %v, want ids 3 and 4", deleted)
		}
	})
}

func TestBackupScheduler_Settings(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults when table empty", func(t *testing.T) {
		w := NewBackupScheduler(&fakeBackupService{}, &storage.MockBackupStorage{}, &storage.MockSettingsStorage{}, time.Minute, quietLogger())

		settings, err := w.LoadSettings(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if settings.Enabled {
			t.Error("auto backup must be disabled by default")
		}
		if settings.Frequency != "daily" || settings.TimeOfDay != "03:00" || settings.RetentionMonths != 6 {
			t.Errorf("unexpected defaults: %+v", settings)
		}
	})

	t.Run("save and load round trip", func(t *testing.T) {
		store := &storage.MockSettingsStorage{}
		w := NewBackupScheduler(&fakeBackupService{}, &storage.MockBackupStorage{}, store, time.Minute, quietLogger())

		in := &models.AutoBackupSettings{
			Enabled:         true,
			Frequency:       "monthly",
			TimeOfDay:       "04:30",
			DayOfMonth:      15,
			RetentionMonths: 3,
			TargetDrive:     "local",
			Folder:          "auto",
		}
		if err := w.SaveSettings(ctx, in); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out, err := w.LoadSettings(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if *out != *in {
			t.Errorf("round trip mismatch:\n got %+v\nwant %+v", out, in)
		}
	})

	t.Run("rejects unknown frequency", func(t *testing.T) {
		w := NewBackupScheduler(&fakeBackupService{}, &storage.MockBackupStorage{}, &storage.MockSettingsStorage{}, time.Minute, quietLogger())
		err := w.SaveSettings(ctx, &models.AutoBackupSettings{Frequency: "hourly", TimeOfDay: "03:00"})
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("rejects malformed time", func(t *testing.T) {
		w := NewBackupScheduler(&fakeBackupService{}, &storage.MockBackupStorage{}, &storage.MockSettingsStorage{}, time.Minute, quietLogger())
		err := w.SaveSettings(ctx, &models.AutoBackupSettings{Frequency: "daily", TimeOfDay: "25:99"})
		if err == nil {
			t.Fatal("expected error")
		}
	})
}
