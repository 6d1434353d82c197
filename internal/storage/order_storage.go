package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/agamariel/teastore/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderNumberTaken = errors.New("order number already taken")
)

// OrderStorage определяет интерфейс для работы с заказами.
type OrderStorage interface {
	CreateTx(ctx context.Context, tx pgx.Tx, order *models.Order) error
	AddItemTx(ctx context.Context, tx pgx.Tx, item *models.OrderItem) error
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.Order, error)
	List(ctx context.Context, filter models.OrderListFilter) ([]*models.Order, error)
	LockByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*models.Order, error)
	GetItemsTx(ctx context.Context, tx pgx.Tx, orderID int64) ([]*models.OrderItem, error)
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id int64, status models.OrderStatus) error
	GetNumbersLike(ctx context.Context, base string) ([]string, error)
}

// PostgresOrderStorage реализует OrderStorage для PostgreSQL.
type PostgresOrderStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresOrderStorage создаёт новый экземпляр PostgresOrderStorage.
func NewPostgresOrderStorage(pool *pgxpool.Pool) *PostgresOrderStorage {
	return &PostgresOrderStorage{pool: pool}
}

const orderColumns = `
	id, user_id, order_number, status, total_amount,
	ship_full_name, ship_phone, ship_line1, ship_line2, ship_city, ship_postal_code,
	payment_method, delivery_speed, delivery_charge, notes, created_at, updated_at
`

// CreateTx вставляет строку заказа в рамках переданной транзакции.
// Конфликт по order_number возвращается как ErrOrderNumberTaken,
// чтобы вызывающая сторона могла повторить выделение номера.
func (s *PostgresOrderStorage) CreateTx(ctx context.Context, tx pgx.Tx, order *models.Order) error {
	query := `
		INSERT INTO orders (
			user_id, order_number, status, total_amount,
			ship_full_name, ship_phone, ship_line1, ship_line2, ship_city, ship_postal_code,
			payment_method, delivery_speed, delivery_charge, notes, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		order.UserID,
		order.Number,
		order.Status,
		order.TotalAmount,
		order.Shipping.FullName,
		order.Shipping.Phone,
		order.Shipping.Line1,
		order.Shipping.Line2,
		order.Shipping.City,
		order.Shipping.PostalCode,
		order.PaymentMethod,
		order.DeliverySpeed,
		order.DeliveryCharge,
		order.Notes,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return ErrOrderNumberTaken
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// AddItemTx вставляет позицию заказа в рамках транзакции.
func (s *PostgresOrderStorage) AddItemTx(ctx context.Context, tx pgx.Tx, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, product_name, quantity, price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := tx.QueryRow(ctx, query,
		item.OrderID,
		item.ProductID,
		item.ProductName,
		item.Quantity,
		item.Price,
		item.Subtotal,
	).Scan(&item.ID)

	if err != nil {
		return fmt.Errorf("failed to create order item: %w", err)
	}

	return nil
}

// GetByID возвращает заказ с позициями.
func (s *PostgresOrderStorage) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := s.attachItems(ctx, []*models.Order{order}); err != nil {
		return nil, err
	}

	return order, nil
}

// GetByUserID возвращает список заказов пользователя (свежие первыми).
func (s *PostgresOrderStorage) GetByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user orders: %w", err)
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}

	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// List возвращает заказы с фильтром по статусу и пагинацией.
func (s *PostgresOrderStorage) List(ctx context.Context, filter models.OrderListFilter) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	args := []interface{}{}

	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, len(args)+1)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}

	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// LockByIDTx читает заказ с блокировкой строки (SELECT ... FOR UPDATE),
// сериализуя конкурентные смены статуса одного заказа.
func (s *PostgresOrderStorage) LockByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	return scanOrder(tx.QueryRow(ctx, query, id))
}

// GetItemsTx возвращает позиции заказа в рамках транзакции.
func (s *PostgresOrderStorage) GetItemsTx(ctx context.Context, tx pgx.Tx, orderID int64) ([]*models.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, product_name, quantity, price, subtotal
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := tx.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// UpdateStatusTx обновляет статус заказа в рамках транзакции.
func (s *PostgresOrderStorage) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id int64, status models.OrderStatus) error {
	query := `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := tx.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// GetNumbersLike возвращает номера заказов, равные базе или имеющие
// суффикс base-N. Используется сервисом нумерации.
func (s *PostgresOrderStorage) GetNumbersLike(ctx context.Context, base string) ([]string, error) {
	query := `
		SELECT order_number
		FROM orders
		WHERE order_number = $1 OR order_number LIKE $1 || '-%'
	`

	rows, err := s.pool.Query(ctx, query, base)
	if err != nil {
		return nil, fmt.Errorf("failed to query order numbers: %w", err)
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan order number: %w", err)
		}
		numbers = append(numbers, n)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows error: %w", rows.Err())
	}

	return numbers, nil
}

// attachItems подгружает позиции для набора заказов одним запросом.
func (s *PostgresOrderStorage) attachItems(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(orders))
	byID := make(map[int64]*models.Order, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
		byID[o.ID] = o
	}

	query := `
		SELECT id, order_id, product_id, product_name, quantity, price, subtotal
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id
	`

	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items, err := collectItems(rows)
	if err != nil {
		return err
	}

	for _, item := range items {
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}

	return nil
}

// collectOrders читает все заказы из результата запроса.
func collectOrders(rows pgx.Rows) ([]*models.Order, error) {
	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows error: %w", rows.Err())
	}

	return orders, nil
}

// collectItems читает все позиции из результата запроса.
func collectItems(rows pgx.Rows) ([]*models.OrderItem, error) {
	var items []*models.OrderItem
	for rows.Next() {
		item := &models.OrderItem{}
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.Price,
			&item.Subtotal,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("rows error: %w", rows.Err())
	}

	return items, nil
}

// scanOrder помогает читать заказ из строки результата.
func scanOrder(row pgx.Row) (*models.Order, error) {
	order := &models.Order{}

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.Number,
		&order.Status,
		&order.TotalAmount,
		&order.Shipping.FullName,
		&order.Shipping.Phone,
		&order.Shipping.Line1,
		&order.Shipping.Line2,
		&order.Shipping.City,
		&order.Shipping.PostalCode,
		&order.PaymentMethod,
		&order.DeliverySpeed,
		&order.DeliveryCharge,
		&order.Notes,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	return order, nil
}
