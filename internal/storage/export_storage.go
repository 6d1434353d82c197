package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrBadTableName = errors.New("invalid table name")
)

// identRe ограничивает имена таблиц простыми идентификаторами:
// имена приходят из конфигурации и подставляются в SQL напрямую.
var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ExportStorage читает содержимое критичных таблиц для дописывания
// в снимок и считает строки для сверки после восстановления.
type ExportStorage interface {
	CountTable(ctx context.Context, table string) (int64, error)
	FetchTable(ctx context.Context, table string) (columns []string, rows [][]interface{}, err error)
}

// PostgresExportStorage реализует ExportStorage для PostgreSQL.
type PostgresExportStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresExportStorage создаёт новый экземпляр PostgresExportStorage.
func NewPostgresExportStorage(pool *pgxpool.Pool) *PostgresExportStorage {
	return &PostgresExportStorage{pool: pool}
}

// CountTable возвращает число строк таблицы.
func (s *PostgresExportStorage) CountTable(ctx context.Context, table string) (int64, error) {
	if !identRe.MatchString(table) {
		return 0, ErrBadTableName
	}

	var count int64
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}

	return count, nil
}

// FetchTable возвращает все строки таблицы вместе со списком колонок.
// Список критичных таблиц конфигурируемый, поэтому выборка обобщённая:
// колонки берутся из описания результата.
func (s *PostgresExportStorage) FetchTable(ctx context.Context, table string) ([]string, [][]interface{}, error) {
	if !identRe.MatchString(table) {
		return nil, nil, ErrBadTableName
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`SELECT * FROM %s ORDER BY 1`, table))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, 0, len(fields))
	for _, f := range fields {
		columns = append(columns, string(f.Name))
	}

	var result [][]interface{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read row of %s: %w", table, err)
		}
		result = append(result, normalizeValues(values))
	}

	if rows.Err() != nil {
		return nil, nil, fmt.Errorf("rows error: %w", rows.Err())
	}

	return columns, result, nil
}

// normalizeValues приводит драйверные типы (pgtype.Numeric и подобные)
// к простым Go-значениям, пригодным для рендеринга в SQL-литералы.
func normalizeValues(values []interface{}) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		if valuer, ok := v.(driver.Valuer); ok {
			if plain, err := valuer.Value(); err == nil {
				out[i] = plain
				continue
			}
		}
		out[i] = v
	}
	return out
}
