package services

import (
	"context"

	"github.com/agamariel/teastore/internal/models"
	"github.com/jackc/pgx/v5"
)

// TxBeginner открывает транзакции. Интерфейс позволяет подменить
// pgxpool.Pool в тестах сервисов.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

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

// ProductStorage определяет интерфейс складского журнала.
type ProductStorage interface {
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	LockByIDTx(ctx context.Context, tx pgx.Tx, id int64) (*models.Product, error)
	DecrementStockTx(ctx context.Context, tx pgx.Tx, id int64, qty int) error
	IncrementStockTx(ctx context.Context, tx pgx.Tx, id int64, qty int) error
}

// CartStorage определяет интерфейс для работы с корзиной.
type CartStorage interface {
	GetByUserID(ctx context.Context, userID int64) ([]*models.CartItem, error)
	ClearTx(ctx context.Context, tx pgx.Tx, userID int64) error
}

// UserStorage определяет интерфейс для работы с пользователями.
type UserStorage interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EnsureAccount(ctx context.Context, email, passwordHash, name string, role models.Role) error
}

// BackupStorage определяет интерфейс для записей о резервных копиях.
type BackupStorage interface {
	Create(ctx context.Context, backup *models.Backup) error
	GetByID(ctx context.Context, id int64) (*models.Backup, error)
	List(ctx context.Context) ([]*models.Backup, error)
	ListOlderThan(ctx context.Context, months int) ([]*models.Backup, error)
	Delete(ctx context.Context, id int64) error
}

// SettingsStorage определяет интерфейс персистентных настроек.
type SettingsStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// ExportStorage определяет интерфейс выгрузки критичных таблиц.
type ExportStorage interface {
	CountTable(ctx context.Context, table string) (int64, error)
	FetchTable(ctx context.Context, table string) ([]string, [][]interface{}, error)
}
