package services

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/agamariel/teastore/internal/models"
	"github.com/agamariel/teastore/internal/pgtools"
	"github.com/agamariel/teastore/internal/storage"
)

// fakeTools подменяет нативные утилиты PostgreSQL в тестах.
type fakeTools struct {
	DumpFunc       func(ctx context.Context, outputPath string) error
	RestoreFunc    func(ctx context.Context, scriptPath string, stopOnError bool) error
	ListDrivesFunc func(ctx context.Context) ([]pgtools.DriveStat, error)
}

func (t *fakeTools) Dump(ctx context.Context, outputPath string) error {
	if t.DumpFunc != nil {
		return t.DumpFunc(ctx, outputPath)
	}
	return os.WriteFile(outputPath, []byte("-- PostgreSQL database dump\n"), 0o644)
}

func (t *fakeTools) Restore(ctx context.Context, scriptPath string, stopOnError bool) error {
	if t.RestoreFunc != nil {
		return t.RestoreFunc(ctx, scriptPath, stopOnError)
	}
	return nil
}

func (t *fakeTools) ListDrives(ctx context.Context) ([]pgtools.DriveStat, error) {
	if t.ListDrivesFunc != nil {
		return t.ListDrivesFunc(ctx)
	}
	return nil, nil
}

func TestBackupService_CreateBackup(t *testing.T) {
	ctx := context.Background()

	usersExport := &storage.MockExportStorage{
		CountTableFunc: func(ctx context.Context, table string) (int64, error) {
			return 2, nil
		},
		FetchTableFunc: func(ctx context.Context, table string) ([]string, [][]interface{}, error) {
			return []string{"id", "email"}, [][]interface{}{
				{int64(1), "alice@example.com"},
				{int64(2), "bob@example.com"},
			}, nil
		},
	}

	t.Run("successful backup", func(t *testing.T) {
		var persisted *models.Backup
		backups := &storage.MockBackupStorage{
			CreateFunc: func(ctx context.Context, backup *models.Backup) error {
				persisted = backup
				return nil
			},
		}

		root := t.TempDir()
		svc := NewBackupService(backups, usersExport, &fakeTools{}, root, []string{"users"})
		svc.now = fixedNow

		creator := int64(1)
		backup, err := svc.CreateBackup(ctx, &creator, "local", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if backup.Status != models.BackupStatusCompleted {
			t.Errorf("status = %q, want completed", backup.Status)
		}
		if !strings.HasPrefix(backup.Filename, "backup_20260901_120000_") {
			t.Errorf("filename = %q", backup.Filename)
		}
		if backup.FileSize == 0 {
			t.Error("file size not recorded")
		}
		if persisted != backup {
			t.Error("backup record not persisted")
		}

		data, err := os.ReadFile(backup.FilePath)
		if err != nil {
			t.Fatalf("read backup file: %v", err)
		}
		content := string(data)
		if !strings.Contains(content, "-- APP_USERS_TOTAL:2") {
			t.Errorf("marker missing from dump:\n%s", content)
		}
		if !strings.Contains(content, "ON CONFLICT (id) DO UPDATE SET") {
			t.Errorf("upsert block missing from dump:\n%s", content)
		}
		if !strings.Contains(content, "'alice@example.com'") {
			t.Errorf("row data missing from dump:\n%s", content)
		}
	})

	t.Run("dump failure persists failed record", func(t *testing.T) {
		var persisted *models.Backup
		backups := &storage.MockBackupStorage{
			CreateFunc: func(ctx context.Context, backup *models.Backup) error {
				persisted = backup
				return nil
			},
		}
		dumpErr := errors.New("pg_dump failed: exit status 1")
		tools := &fakeTools{
			DumpFunc: func(ctx context.Context, outputPath string) error {
				return dumpErr
			},
		}

		svc := NewBackupService(backups, usersExport, tools, t.TempDir(), []string{"users"})
		svc.now = fixedNow

		backup, err := svc.CreateBackup(ctx, nil, "local", "")
		if !errors.Is(err, dumpErr) {
			t.Fatalf("expected dump error, got %v", err)
		}
		if backup.Status != models.BackupStatusFailed {
			t.Errorf("status = %q, want failed", backup.Status)
		}
		if backup.ErrorMessage == "" {
			t.Error("error message not recorded")
		}
		if persisted == nil {
			t.Error("failed attempt must still be persisted")
		}
	})

	t.Run("shortfall against live counts", func(t *testing.T) {
		export := &storage.MockExportStorage{
			CountTableFunc: func(ctx context.Context, table string) (int64, error) {
				return 5, nil
			},
			FetchTableFunc: func(ctx context.Context, table string) ([]string, [][]interface{}, error) {
				return []string{"id"}, [][]interface{}{{int64(1)}}, nil
			},
		}
		backups := &storage.MockBackupStorage{}

		svc := NewBackupService(backups, export, &fakeTools{}, t.TempDir(), []string{"orders"})
		svc.now = fixedNow

		backup, err := svc.CreateBackup(ctx, nil, "local", "")
		if !errors.Is(err, ErrBackupIncomplete) {
			t.Fatalf("expected ErrBackupIncomplete, got %v", err)
		}
		if backup.Status != models.BackupStatusFailed {
			t.Errorf("status = %q, want failed", backup.Status)
		}
	})

	t.Run("folder cannot escape backup root", func(t *testing.T) {
		root := t.TempDir()
		svc := NewBackupService(&storage.MockBackupStorage{}, usersExport, &fakeTools{}, root, []string{"users"})
		svc.now = fixedNow

		backup, err := svc.CreateBackup(ctx, nil, "local", "../../etc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(backup.FilePath, root) {
			t.Errorf("backup path %q escaped root %q", backup.FilePath, root)
		}
	})
}

func TestBackupService_GetDrives(t *testing.T) {
	ctx := context.Background()

	t.Run("maps df output", func(t *testing.T) {
		tools := &fakeTools{
			ListDrivesFunc: func(ctx context.Context) ([]pgtools.DriveStat, error) {
				return []pgtools.DriveStat{
					{Filesystem: "/dev/sda1", MountPoint: "/", TotalBytes: 100, UsedBytes: 40, FreeBytes: 60},
				}, nil
			},
		}
		svc := NewBackupService(&storage.MockBackupStorage{}, &storage.MockExportStorage{}, tools, "/backups", nil)

		drives, err := svc.GetDrives(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(drives) != 1 {
			t.Fatalf("drives = %d, want 1", len(drives))
		}
		if drives[0].Label != "/dev/sda1" || drives[0].FreeBytes != 60 || drives[0].Unknown {
			t.Errorf("drive mapped incorrectly: %+v", drives[0])
		}
	})

	t.Run("falls back to placeholder on error", func(t *testing.T) {
		tools := &fakeTools{
			ListDrivesFunc: func(ctx context.Context) ([]pgtools.DriveStat, error) {
				return nil, errors.New("df: command not found")
			},
		}
		svc := NewBackupService(&storage.MockBackupStorage{}, &storage.MockExportStorage{}, tools, "/backups", nil)

		drives, err := svc.GetDrives(ctx)
		if err != nil {
			t.Fatalf("listing failure must not propagate: %v", err)
		}
		if len(drives) != 1 || !drives[0].Unknown {
			t.Fatalf("expected single unknown placeholder, got %+v", drives)
		}
	})
}
