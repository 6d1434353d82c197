package models

import (
	"time"
)

// BackupStatus - итог операции резервного копирования.
type BackupStatus string

const (
	BackupStatusCompleted BackupStatus = "completed"
	BackupStatusFailed    BackupStatus = "failed"
)

// Backup - запись о попытке резервного копирования. Запись создаётся
// и при неудаче, чтобы след оставался в любом случае.
type Backup struct {
	ID           int64        `db:"id"`
	Filename     string       `db:"filename"`
	FilePath     string       `db:"file_path"`
	TargetDrive  string       `db:"target_drive"`
	FileSize     int64        `db:"file_size"`
	CreatedBy    *int64       `db:"created_by"`
	Status       BackupStatus `db:"status"`
	ErrorMessage string       `db:"error_message"`
	CreatedAt    time.Time    `db:"created_at"`
}

// BackupResponse - запись о бэкапе в HTTP-ответе.
type BackupResponse struct {
	ID           int64  `json:"id"`
	Filename     string `json:"filename"`
	TargetDrive  string `json:"target_drive"`
	FileSize     int64  `json:"file_size"`
	CreatedBy    *int64 `json:"created_by"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// DriveInfo - сведения о томе для выбора места бэкапа.
type DriveInfo struct {
	Label      string `json:"label"`
	MountPoint string `json:"mount_point"`
	TotalBytes int64  `json:"total_bytes"`
	UsedBytes  int64  `json:"used_bytes"`
	FreeBytes  int64  `json:"free_bytes"`
	Unknown    bool   `json:"unknown,omitempty"`
}

// CreateBackupRequest - тело POST /api/backup/create.
type CreateBackupRequest struct {
	TargetDrive string `json:"target_drive"`
	Folder      string `json:"folder"`
}

// AutoBackupSettings - настройки автоматического резервного копирования,
// хранятся в таблице settings парами ключ/значение.
type AutoBackupSettings struct {
	Enabled         bool   `json:"enabled"`
	Frequency       string `json:"frequency"` // daily | monthly
	TimeOfDay       string `json:"time_of_day"`
	DayOfMonth      int    `json:"day_of_month"`
	RetentionMonths int    `json:"retention_months"`
	TargetDrive     string `json:"target_drive"`
	Folder          string `json:"folder"`
}

// RestoreReport - итог восстановления базы из снимка.
type RestoreReport struct {
	UsersCount               int64  `json:"usersCount"`
	OrdersCount              int64  `json:"ordersCount"`
	OrderItemsCount          int64  `json:"orderItemsCount"`
	ExpectedUsersFromBackup  int64  `json:"expectedUsersFromBackup"`
	ExpectedOrdersFromBackup int64  `json:"expectedOrdersFromBackup"`
	ExpectedItemsFromBackup  int64  `json:"expectedOrderItemsFromBackup"`
	RestoreMethod            string `json:"restoreMethod"`
	SkippedStatements        int    `json:"skippedStatements"`
	Warning                  string `json:"warning,omitempty"`
}
