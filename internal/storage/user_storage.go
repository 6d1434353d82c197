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
	ErrUserNotFound = errors.New("user not found")
)

// UserStorage определяет интерфейс для работы с пользователями.
type UserStorage interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EnsureAccount(ctx context.Context, email, passwordHash, name string, role models.Role) error
}

// PostgresUserStorage реализует UserStorage для PostgreSQL.
type PostgresUserStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresUserStorage создаёт новый экземпляр PostgresUserStorage.
func NewPostgresUserStorage(pool *pgxpool.Pool) *PostgresUserStorage {
	return &PostgresUserStorage{pool: pool}
}

const userColumns = `id, email, password_hash, name, role, wholesale_approved, created_at, updated_at`

// GetByID ищет пользователя по ID.
func (s *PostgresUserStorage) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.pool.QueryRow(ctx, query, id))
}

// GetByEmail ищет пользователя по email.
func (s *PostgresUserStorage) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(s.pool.QueryRow(ctx, query, email))
}

// EnsureAccount идемпотентно создаёт служебную учётную запись.
// Вызывается на старте и после восстановления из снимка, чтобы
// устаревший снимок не оставил операторов без доступа. Пароль
// существующей учётки не трогаем.
func (s *PostgresUserStorage) EnsureAccount(ctx context.Context, email, passwordHash, name string, role models.Role) error {
	query := `
		INSERT INTO users (email, password_hash, name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (email) DO UPDATE SET role = EXCLUDED.role, updated_at = NOW()
	`

	if _, err := s.pool.Exec(ctx, query, email, passwordHash, name, role); err != nil {
		return fmt.Errorf("failed to ensure account %s: %w", email, err)
	}

	return nil
}

// scanUser помогает читать пользователя из строки результата.
func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Role,
		&user.WholesaleApproved,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return user, nil
}
