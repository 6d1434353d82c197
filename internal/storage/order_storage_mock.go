package storage

import (
	"context"

	"github.com/agamariel/teastore/internal/models"
	"github.com/jackc/pgx/v5"
)

// MockOrderStorage - мок для тестирования (экспортируемый для использования в других пакетах)
type MockOrderStorage struct {
	CreateTxFunc       func(ctx context.Context, tx pgx.Tx, order *models.Order) error
	AddItemTxFunc      func(ctx context.Context, tx pgx.Tx, item *models.OrderItem) error
	GetByIDFunc        func(ctx context.Context, id int64) (*models.Order, error)
	GetByUserIDFunc    func(ctx context.Context, userID int64) ([]*models.Order, error)
	ListFunc           func(ctx context.Context, filter models.OrderListFilter) ([]*models.Order, error)
	LockByIDTxFunc     func(ctx context.Context, tx pgx.Tx, id int64) (*models.Order, error)
	GetItemsTxFunc     func(ctx context.Context, tx pgx.Tx, orderID int64) ([]*models.OrderItem, error)
	UpdateStatusTxFunc func(ctx context.Context, tx pgx.Tx, id int64, status models.OrderStatus) error
	GetNumbersLikeFunc func(ctx context.Context, base string) ([]string, error)
}

func (m *MockOrderStorage) CreateTx(ctx context.Context, tx pgx.Tx, order *models.Order) error {
	if m.CreateTxFunc != nil {
		return m.CreateTxFunc(ctx, tx, order)
	}
	return nil
}

func (m *MockOrderStorage) AddItemTx(ctx context.Context, tx pgx.Tx, item *models.OrderItem) error {
	if m.AddItemTxFunc != nil {
		return m.AddItemTxFunc(ctx, tx, item)
	}
	return nil
}

func (m *MockOrderStorage) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, ErrOrderNotFound
}

func (m *MockOrderStorage) GetByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	if m.GetByUserIDFunc != nil {
		return m.GetByUserIDFunc(ctx, userID)
	}
	return []*models.Order{}, nil
}

func (m *MockOrderStorage) List(ctx context.Context, filter models.OrderListFilter) ([]*models.Order, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return []*models.Order{}, nil
}

func (m *MockOrderStorage) LockByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*models.Order, error) {
	if m.LockByIDTxFunc != nil {
		return m.LockByIDTxFunc(ctx, tx, id)
	}
	return nil, ErrOrderNotFound
}

func (m *MockOrderStorage) GetItemsTx(ctx context.Context, tx pgx.Tx, orderID int64) ([]*models.OrderItem, error) {
	if m.GetItemsTxFunc != nil {
		return m.GetItemsTxFunc(ctx, tx, orderID)
	}
	return []*models.OrderItem{}, nil
}

func (m *MockOrderStorage) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id int64, status models.OrderStatus) error {
	if m.UpdateStatusTxFunc != nil {
		return m.UpdateStatusTxFunc(ctx, tx, id, status)
	}
	return nil
}

func (m *MockOrderStorage) GetNumbersLike(ctx context.Context, base string) ([]string, error) {
	if m.GetNumbersLikeFunc != nil {
		return m.GetNumbersLikeFunc(ctx, base)
	}
	return nil, nil
}
