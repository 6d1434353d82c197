package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/agamariel/teastore/internal/auth"
	"github.com/agamariel/teastore/internal/models"
	"github.com/agamariel/teastore/internal/pgtools"
	"github.com/agamariel/teastore/internal/services"
	"github.com/agamariel/teastore/internal/storage"
	"github.com/labstack/echo/v4"
)

// BackupHandler обрабатывает запросы резервного копирования.
type BackupHandler struct {
	backupService services.BackupService
	scheduler     *services.BackupScheduler
}

func NewBackupHandler(backupService services.BackupService, scheduler *services.BackupScheduler) *BackupHandler {
	return &BackupHandler{backupService: backupService, scheduler: scheduler}
}

// CreateBackup обрабатывает POST /api/backup/create.
func (h *BackupHandler) CreateBackup(c echo.Context) error {
	principal, err := auth.GetPrincipal(c)
	if err != nil {
		return err
	}

	var req models.CreateBackupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	backup, err := h.backupService.CreateBackup(c.Request().Context(), &principal.UserID, req.TargetDrive, req.Folder)
	if err != nil {
		detail := err.Error()
		if errors.Is(err, pgtools.ErrToolNotFound) {
			detail = "pg_dump is not installed or not in PATH; install postgresql-client or set PG_DUMP_PATH"
		}
		// Запись failed уже сохранена, отдаём её вместе с причиной.
		body := map[string]interface{}{"error": detail}
		if backup != nil {
			body["backup"] = mapBackupToResponse(backup)
		}
		return c.JSON(http.StatusInternalServerError, body)
	}

	return c.JSON(http.StatusCreated, mapBackupToResponse(backup))
}

// GetBackups обрабатывает GET /api/backup/history.
func (h *BackupHandler) GetBackups(c echo.Context) error {
	backups, err := h.backupService.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	response := make([]*models.BackupResponse, 0, len(backups))
	for _, b := range backups {
		response = append(response, mapBackupToResponse(b))
	}
	return c.JSON(http.StatusOK, response)
}

// GetBackup обрабатывает GET /api/backup/:id.
func (h *BackupHandler) GetBackup(c echo.Context) error {
	backup, err := h.backupByID(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, mapBackupToResponse(backup))
}

// DownloadBackup обрабатывает GET /api/backup/:id/download.
func (h *BackupHandler) DownloadBackup(c echo.Context) error {
	backup, err := h.backupByID(c)
	if err != nil {
		return err
	}
	if backup.Status != models.BackupStatusCompleted {
		return echo.NewHTTPError(http.StatusConflict, "backup did not complete")
	}
	return c.Attachment(backup.FilePath, backup.Filename)
}

// DeleteBackup обрабатывает DELETE /api/backup/:id.
func (h *BackupHandler) DeleteBackup(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid backup id")
	}

	if err := h.backupService.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, storage.ErrBackupNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "backup not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.NoContent(http.StatusNoContent)
}

// GetDrives обрабатывает GET /api/backup/drives.
func (h *BackupHandler) GetDrives(c echo.Context) error {
	drives, err := h.backupService.GetDrives(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, drives)
}

// GetAutoSettings обрабатывает GET /api/backup/auto-settings.
func (h *BackupHandler) GetAutoSettings(c echo.Context) error {
	settings, err := h.scheduler.LoadSettings(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, settings)
}

// UpdateAutoSettings обрабатывает POST /api/backup/auto-settings.
func (h *BackupHandler) UpdateAutoSettings(c echo.Context) error {
	var settings models.AutoBackupSettings
	if err := c.Bind(&settings); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.scheduler.SaveSettings(c.Request().Context(), &settings); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, settings)
}

func (h *BackupHandler) backupByID(c echo.Context) (*models.Backup, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid backup id")
	}

	backup, err := h.backupService.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrBackupNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "backup not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return backup, nil
}

// mapBackupToResponse преобразует запись о копии в DTO для HTTP-ответа.
func mapBackupToResponse(b *models.Backup) *models.BackupResponse {
	return &models.BackupResponse{
		ID:           b.ID,
		Filename:     b.Filename,
		TargetDrive:  b.TargetDrive,
		FileSize:     b.FileSize,
		CreatedBy:    b.CreatedBy,
		Status:       string(b.Status),
		ErrorMessage: b.ErrorMessage,
		CreatedAt:    b.CreatedAt.Format(time.RFC3339),
	}
}
