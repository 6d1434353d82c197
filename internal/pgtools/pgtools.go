package pgtools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

var (
	// ErrToolNotFound означает, что нативная утилита PostgreSQL
	// отсутствует в системе. Вызывающая сторона переходит на
	// внутренний путь восстановления.
	ErrToolNotFound = errors.New("postgres tool not found")
)

// Tools описывает операции над нативными утилитами PostgreSQL.
type Tools interface {
	Dump(ctx context.Context, outputPath string) error
	Restore(ctx context.Context, scriptPath string, stopOnError bool) error
	ListDrives(ctx context.Context) ([]DriveStat, error)
}

// DriveStat - сырая строка вывода df для одного тома.
type DriveStat struct {
	Filesystem string
	MountPoint string
	TotalBytes int64
	UsedBytes  int64
	FreeBytes  int64
}

// CommandTools запускает pg_dump и psql как внешние процессы.
type CommandTools struct {
	PgDumpPath  string
	PsqlPath    string
	DatabaseURI string
}

// NewCommandTools создаёт обёртку над нативными утилитами.
func NewCommandTools(pgDumpPath, psqlPath, databaseURI string) *CommandTools {
	return &CommandTools{
		PgDumpPath:  pgDumpPath,
		PsqlPath:    psqlPath,
		DatabaseURI: databaseURI,
	}
}

// Dump снимает plain-text дамп базы в указанный файл.
func (t *CommandTools) Dump(ctx context.Context, outputPath string) error {
	if _, err := exec.LookPath(t.PgDumpPath); err != nil {
		return fmt.Errorf("%w: %s", ErrToolNotFound, t.PgDumpPath)
	}

	cmd := exec.CommandContext(ctx, t.PgDumpPath,
		"--dbname="+t.DatabaseURI,
		"--format=plain",
		"--no-owner",
		"--no-privileges",
		"--file="+outputPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pg_dump failed: %w: %s", err, stderr.String())
	}

	return nil
}

// Restore проигрывает SQL-скрипт через psql. При stopOnError выполнение
// прерывается на первой ошибке (ON_ERROR_STOP), иначе psql продолжает
// до конца скрипта.
func (t *CommandTools) Restore(ctx context.Context, scriptPath string, stopOnError bool) error {
	if _, err := exec.LookPath(t.PsqlPath); err != nil {
		return fmt.Errorf("%w: %s", ErrToolNotFound, t.PsqlPath)
	}

	args := []string{t.DatabaseURI, "--file=" + scriptPath}
	if stopOnError {
		args = append(args, "-v", "ON_ERROR_STOP=1")
	}

	cmd := exec.CommandContext(ctx, t.PsqlPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("psql failed: %w: %s", err, stderr.String())
	}

	return nil
}
