package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config содержит конфигурацию приложения.
type Config struct {
	RunAddress  string
	DatabaseURI string
	JWTSecret   string

	// Резервное копирование и восстановление
	BackupRoot        string
	PgDumpPath        string
	PsqlPath          string
	RestoreTmpDir     string
	RestoreMaxBytes   int64
	CriticalTables    []string
	RecoveryTables    []string
	SchedulerInterval time.Duration

	// Служебные учётные записи, пересоздаваемые после восстановления
	AdminEmail         string
	AdminPassword      string
	SuperAdminEmail    string
	SuperAdminPassword string
}

// Load загружает конфигурацию из флагов командной строки и переменных окружения.
// Приоритет: переменные окружения > флаги > значения по умолчанию.
func Load() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "адрес и порт запуска сервиса")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "строка подключения к PostgreSQL")
	flag.StringVar(&cfg.BackupRoot, "b", "./backups", "корневой каталог файлов резервных копий")
	flag.Parse()

	if envRunAddr := os.Getenv("RUN_ADDRESS"); envRunAddr != "" {
		cfg.RunAddress = envRunAddr
	}
	if envDBURI := os.Getenv("DATABASE_URI"); envDBURI != "" {
		cfg.DatabaseURI = envDBURI
	}
	if envBackupRoot := os.Getenv("BACKUP_ROOT"); envBackupRoot != "" {
		cfg.BackupRoot = envBackupRoot
	}

	// JWT секрет
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "default-secret-change-in-production"
	}

	// Пути к нативным утилитам PostgreSQL
	cfg.PgDumpPath = envOrDefault("PG_DUMP_PATH", "pg_dump")
	cfg.PsqlPath = envOrDefault("PSQL_PATH", "psql")

	cfg.RestoreTmpDir = envOrDefault("RESTORE_TMP_DIR", os.TempDir())
	cfg.RestoreMaxBytes = envInt64("RESTORE_MAX_BYTES", 100<<20)

	// Критичные таблицы: для них пишутся маркеры количества строк
	// и выполняется сверка после восстановления.
	cfg.CriticalTables = envList("CRITICAL_TABLES", []string{"users", "orders", "order_items"})
	// Таблицы, недобор по которым запускает повторный проход восстановления.
	cfg.RecoveryTables = envList("RECOVERY_TABLES", []string{"orders", "order_items"})

	cfg.SchedulerInterval = envDuration("BACKUP_SCHEDULER_INTERVAL", time.Minute)

	cfg.AdminEmail = envOrDefault("ADMIN_EMAIL", "admin@teastore.local")
	cfg.AdminPassword = envOrDefault("ADMIN_PASSWORD", "admin12345")
	cfg.SuperAdminEmail = envOrDefault("SUPER_ADMIN_EMAIL", "superadmin@teastore.local")
	cfg.SuperAdminPassword = envOrDefault("SUPER_ADMIN_PASSWORD", "superadmin12345")

	return cfg
}

// envOrDefault возвращает значение переменной окружения или значение по умолчанию.
func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envList разбирает список, разделённый запятыми.
func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// envInt64 разбирает целое значение переменной окружения.
func envInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

// envDuration разбирает длительность вида "30s", "5m".
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
