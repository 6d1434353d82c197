package storage

import (
	"context"
	"fmt"

	"github.com/agamariel/teastore/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CartStorage определяет интерфейс для работы с корзиной.
type CartStorage interface {
	GetByUserID(ctx context.Context, userID int64) ([]*models.CartItem, error)
	ClearTx(ctx context.Context, tx pgx.Tx, userID int64) error
}

// PostgresCartStorage реализует CartStorage для PostgreSQL.
type PostgresCartStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresCartStorage создаёт новый экземпляр PostgresCartStorage.
func NewPostgresCartStorage(pool *pgxpool.Pool) *PostgresCartStorage {
	return &PostgresCartStorage{pool: pool}
}

// GetByUserID возвращает содержимое корзины пользователя.
func (s *PostgresCartStorage) GetByUserID(ctx context.Context, userID int64) ([]*models.CartItem, error) {
	query := `
		SELECT id, user_id, product_id, quantity
		FROM cart_items
		WHERE user_id = $1
		ORDER BY id
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var items []*models.CartItem
	for rows.Next() {
		item := &models.CartItem{}
		if err := rows.Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows error: %w", rows.Err())
	}

	return items, nil
}

// ClearTx очищает корзину пользователя в рамках транзакции заказа.
func (s *PostgresCartStorage) ClearTx(ctx context.Context, tx pgx.Tx, userID int64) error {
	query := `DELETE FROM cart_items WHERE user_id = $1`

	if _, err := tx.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return nil
}
