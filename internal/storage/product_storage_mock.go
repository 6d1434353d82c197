package storage

import (
	"context"

	"github.com/agamariel/teastore/internal/models"
	"github.com/jackc/pgx/v5"
)

// MockProductStorage - мок складского журнала для тестов.
type MockProductStorage struct {
	GetByIDFunc          func(ctx context.Context, id int64) (*models.Product, error)
	LockByIDTxFunc       func(ctx context.Context, tx pgx.Tx, id int64) (*models.Product, error)
	DecrementStockTxFunc func(ctx context.Context, tx pgx.Tx, id int64, qty int) error
	IncrementStockTxFunc func(ctx context.Context, tx pgx.Tx, id int64, qty int) error
}

func (m *MockProductStorage) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, ErrProductNotFound
}

func (m *MockProductStorage) LockByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*models.Product, error) {
	if m.LockByIDTxFunc != nil {
		return m.LockByIDTxFunc(ctx, tx, id)
	}
	return nil, ErrProductNotFound
}

func (m *MockProductStorage) DecrementStockTx(ctx context.Context, tx pgx.Tx, id int64, qty int) error {
	if m.DecrementStockTxFunc != nil {
		return m.DecrementStockTxFunc(ctx, tx, id, qty)
	}
	return nil
}

func (m *MockProductStorage) IncrementStockTx(ctx context.Context, tx pgx.Tx, id int64, qty int) error {
	if m.IncrementStockTxFunc != nil {
		return m.IncrementStockTxFunc(ctx, tx, id, qty)
	}
	return nil
}

// MockCartStorage - мок корзины для тестов.
type MockCartStorage struct {
	GetByUserIDFunc func(ctx context.Context, userID int64) ([]*models.CartItem, error)
	ClearTxFunc     func(ctx context.Context, tx pgx.Tx, userID int64) error
}

func (m *MockCartStorage) GetByUserID(ctx context.Context, userID int64) ([]*models.CartItem, error) {
	if m.GetByUserIDFunc != nil {
		return m.GetByUserIDFunc(ctx, userID)
	}
	return []*models.CartItem{}, nil
}

func (m *MockCartStorage) ClearTx(ctx context.Context, tx pgx.Tx, userID int64) error {
	if m.ClearTxFunc != nil {
		return m.ClearTxFunc(ctx, tx, userID)
	}
	return nil
}
