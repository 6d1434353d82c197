package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/agamariel/teastore/internal/services"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RestoreHandler обрабатывает загрузку снимка и восстановление базы.
type RestoreHandler struct {
	restoreService services.RestoreService
	tmpDir         string
	maxBytes       int64
}

func NewRestoreHandler(restoreService services.RestoreService, tmpDir string, maxBytes int64) *RestoreHandler {
	return &RestoreHandler{
		restoreService: restoreService,
		tmpDir:         tmpDir,
		maxBytes:       maxBytes,
	}
}

// Restore обрабатывает POST /api/restore: принимает .sql файл
// multipart-формой и запускает восстановление. Операция разрушительна,
// доступ ограничен супер-администратором на уровне маршрута.
func (h *RestoreHandler) Restore(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "snapshot file is required (multipart field \"file\")")
	}

	if !strings.HasSuffix(strings.ToLower(file.Filename), ".sql") {
		return echo.NewHTTPError(http.StatusBadRequest, "only .sql snapshots are accepted")
	}
	if file.Size > h.maxBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("snapshot exceeds %d bytes", h.maxBytes))
	}

	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unable to read uploaded file")
	}
	defer src.Close()

	if err := os.MkdirAll(h.tmpDir, 0o755); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "unable to prepare upload directory")
	}

	// Имя файла от клиента не используется: снимок кладётся под
	// случайным именем внутри служебного каталога.
	uploadPath := filepath.Join(h.tmpDir, "restore_"+uuid.New().String()+".sql")
	dst, err := os.Create(uploadPath)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "unable to store uploaded file")
	}

	_, copyErr := io.Copy(dst, io.LimitReader(src, h.maxBytes+1))
	closeErr := dst.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(uploadPath)
		return echo.NewHTTPError(http.StatusInternalServerError, "unable to store uploaded file")
	}

	report, err := h.restoreService.Restore(c.Request().Context(), uploadPath)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError,
			fmt.Sprintf("restore failed: %v", err))
	}

	return c.JSON(http.StatusOK, report)
}
