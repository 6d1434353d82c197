package storage

import (
	"context"

	"github.com/agamariel/teastore/internal/models"
)

// MockBackupStorage - мок записей о резервных копиях для тестов.
type MockBackupStorage struct {
	CreateFunc        func(ctx context.Context, backup *models.Backup) error
	GetByIDFunc       func(ctx context.Context, id int64) (*models.Backup, error)
	ListFunc          func(ctx context.Context) ([]*models.Backup, error)
	ListOlderThanFunc func(ctx context.Context, months int) ([]*models.Backup, error)
	DeleteFunc        func(ctx context.Context, id int64) error
}

func (m *MockBackupStorage) Create(ctx context.Context, backup *models.Backup) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, backup)
	}
	return nil
}

func (m *MockBackupStorage) GetByID(ctx context.Context, id int64) (*models.Backup, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, ErrBackupNotFound
}

func (m *MockBackupStorage) List(ctx context.Context) ([]*models.Backup, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*models.Backup{}, nil
}

func (m *MockBackupStorage) ListOlderThan(ctx context.Context, months int) ([]*models.Backup, error) {
	if m.ListOlderThanFunc != nil {
		return m.ListOlderThanFunc(ctx, months)
	}
	return []*models.Backup{}, nil
}

func (m *MockBackupStorage) Delete(ctx context.Context, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockSettingsStorage - мок настроек для тестов.
type MockSettingsStorage struct {
	GetFunc func(ctx context.Context, key string) (string, error)
	SetFunc func(ctx context.Context, key, value string) error

	// Values - простое хранилище в памяти, если функции не заданы.
	Values map[string]string
}

func (m *MockSettingsStorage) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	if v, ok := m.Values[key]; ok {
		return v, nil
	}
	return "", ErrSettingNotFound
}

func (m *MockSettingsStorage) Set(ctx context.Context, key, value string) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value)
	}
	if m.Values == nil {
		m.Values = make(map[string]string)
	}
	m.Values[key] = value
	return nil
}

// MockExportStorage - мок выгрузки критичных таблиц для тестов.
type MockExportStorage struct {
	CountTableFunc func(ctx context.Context, table string) (int64, error)
	FetchTableFunc func(ctx context.Context, table string) ([]string, [][]interface{}, error)
}

func (m *MockExportStorage) CountTable(ctx context.Context, table string) (int64, error) {
	if m.CountTableFunc != nil {
		return m.CountTableFunc(ctx, table)
	}
	return 0, nil
}

func (m *MockExportStorage) FetchTable(ctx context.Context, table string) ([]string, [][]interface{}, error) {
	if m.FetchTableFunc != nil {
		return m.FetchTableFunc(ctx, table)
	}
	return nil, nil, nil
}

// MockUserStorage - мок пользователей для тестов.
type MockUserStorage struct {
	GetByIDFunc       func(ctx context.Context, id int64) (*models.User, error)
	GetByEmailFunc    func(ctx context.Context, email string) (*models.User, error)
	EnsureAccountFunc func(ctx context.Context, email, passwordHash, name string, role models.Role) error
}

func (m *MockUserStorage) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, ErrUserNotFound
}

func (m *MockUserStorage) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, ErrUserNotFound
}

func (m *MockUserStorage) EnsureAccount(ctx context.Context, email, passwordHash, name string, role models.Role) error {
	if m.EnsureAccountFunc != nil {
		return m.EnsureAccountFunc(ctx, email, passwordHash, name, role)
	}
	return nil
}
