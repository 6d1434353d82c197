package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agamariel/teastore/internal/models"
	"github.com/labstack/echo/v4"
)

type mockRestoreService struct {
	RestoreFunc func(ctx context.Context, uploadPath string) (*models.RestoreReport, error)
}

func (m *mockRestoreService) Restore(ctx context.Context, uploadPath string) (*models.RestoreReport, error) {
	if m.RestoreFunc != nil {
		return m.RestoreFunc(ctx, uploadPath)
	}
	return &models.RestoreReport{RestoreMethod: "psql"}, nil
}

// multipartRequest собирает multipart-запрос с одним файлом в поле "file".
func multipartRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/restore", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestRestoreHandler_Restore(t *testing.T) {
	t.Run("uploads and reports", func(t *testing.T) {
		tmpDir := t.TempDir()
		e := echo.New()
		req := multipartRequest(t, "snapshot.sql", "SELECT 1;")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		var gotPath, gotContent string
		svc := &mockRestoreService{
			RestoreFunc: func(ctx context.Context, uploadPath string) (*models.RestoreReport, error) {
				gotPath = uploadPath
				data, err := os.ReadFile(uploadPath)
				if err != nil {
					t.Fatalf("uploaded file unreadable: %v", err)
				}
				gotContent = string(data)
				return &models.RestoreReport{
					UsersCount:    2,
					RestoreMethod: "psql",
				}, nil
			},
		}
		handler := NewRestoreHandler(svc, tmpDir, 1<<20)

		if err := handler.Restore(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		if filepath.Dir(gotPath) != tmpDir {
			t.Errorf("upload stored at %q, want inside %q", gotPath, tmpDir)
		}
		if strings.Contains(filepath.Base(gotPath), "snapshot") {
			t.Errorf("client filename %q must not be reused", gotPath)
		}
		if gotContent != "SELECT 1;" {
			t.Errorf("uploaded content = %q", gotContent)
		}

		var report models.RestoreReport
		if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
			t.Fatalf("unmarshal report: %v", err)
		}
		if report.UsersCount != 2 || report.RestoreMethod != "psql" {
			t.Errorf("report = %+v", report)
		}
	})

	t.Run("missing file field", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/api/restore", strings.NewReader("plain body"))
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler := NewRestoreHandler(&mockRestoreService{}, t.TempDir(), 1<<20)
		err := handler.Restore(c)
		if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
			t.Fatalf("error = %v, want 400", err)
		}
	})

	t.Run("rejects non-sql extension", func(t *testing.T) {
		e := echo.New()
		req := multipartRequest(t, "snapshot.tar.gz", "binary")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler := NewRestoreHandler(&mockRestoreService{}, t.TempDir(), 1<<20)
		err := handler.Restore(c)
		if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
			t.Fatalf("error = %v, want 400", err)
		}
	})

	t.Run("rejects oversized snapshot", func(t *testing.T) {
		e := echo.New()
		req := multipartRequest(t, "snapshot.sql", strings.Repeat("x", 64))
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler := NewRestoreHandler(&mockRestoreService{}, t.TempDir(), 16)
		err := handler.Restore(c)
		if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("error = %v, want 413", err)
		}
	})
}
