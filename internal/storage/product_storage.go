package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/agamariel/teastore/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ProductStorage - складской журнал: чтение и атомарные изменения
// остатков в рамках транзакции вызывающей стороны.
type ProductStorage interface {
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	LockByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*models.Product, error)
	DecrementStockTx(ctx context.Context, tx pgx.Tx, id int64, qty int) error
	IncrementStockTx(ctx context.Context, tx pgx.Tx, id int64, qty int) error
}

// PostgresProductStorage реализует ProductStorage для PostgreSQL.
type PostgresProductStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresProductStorage создаёт новый экземпляр PostgresProductStorage.
func NewPostgresProductStorage(pool *pgxpool.Pool) *PostgresProductStorage {
	return &PostgresProductStorage{pool: pool}
}

const productColumns = `id, name, retail_price, wholesale_price, stock_quantity, created_at, updated_at`

// GetByID возвращает товар по идентификатору.
func (s *PostgresProductStorage) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return scanProduct(s.pool.QueryRow(ctx, query, id))
}

// LockByIDTx читает товар с блокировкой строки. Блокировка держит
// остаток неизменным между проверкой наличия и списанием.
func (s *PostgresProductStorage) LockByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`
	return scanProduct(tx.QueryRow(ctx, query, id))
}

// DecrementStockTx уменьшает остаток товара в рамках транзакции.
func (s *PostgresProductStorage) DecrementStockTx(ctx context.Context, tx pgx.Tx, id int64, qty int) error {
	query := `
		UPDATE products
		SET stock_quantity = stock_quantity - $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := tx.Exec(ctx, query, qty, id)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}

// IncrementStockTx возвращает остаток товара в рамках транзакции
// (компенсация при отмене заказа).
func (s *PostgresProductStorage) IncrementStockTx(ctx context.Context, tx pgx.Tx, id int64, qty int) error {
	query := `
		UPDATE products
		SET stock_quantity = stock_quantity + $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := tx.Exec(ctx, query, qty, id)
	if err != nil {
		return fmt.Errorf("failed to increment stock: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}

// scanProduct помогает читать товар из строки результата.
func scanProduct(row pgx.Row) (*models.Product, error) {
	product := &models.Product{}

	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.RetailPrice,
		&product.WholesalePrice,
		&product.StockQuantity,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}

	return product, nil
}
