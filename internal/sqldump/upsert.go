package sqldump

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// QuoteLiteral оборачивает строку в одинарные кавычки, удваивая
// кавычки внутри. Обратные слеши выводятся через синтаксис E'...',
// чтобы литерал читался одинаково при любом standard_conforming_strings.
func QuoteLiteral(s string) string {
	escaped := strings.ReplaceAll(s, "'", "''")
	if strings.ContainsRune(escaped, '\\') {
		return "E'" + strings.ReplaceAll(escaped, `\`, `\\`) + "'"
	}
	return "'" + escaped + "'"
}

// Literal преобразует Go-значение в SQL-литерал для вставки в снимок.
func Literal(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return QuoteLiteral(val)
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case *int64:
		if val == nil {
			return "NULL"
		}
		return fmt.Sprintf("%d", *val)
	case float64:
		return fmt.Sprintf("%v", val)
	case decimal.Decimal:
		return val.String()
	case time.Time:
		return QuoteLiteral(val.UTC().Format("2006-01-02 15:04:05.999999+00"))
	default:
		return QuoteLiteral(fmt.Sprintf("%v", val))
	}
}

// UpsertStatement строит идемпотентный INSERT ... ON CONFLICT DO UPDATE
// для одной строки. Такие statement-ы дописываются в хвост снимка и
// переживают частично оборванный нативный дамп.
func UpsertStatement(table string, columns []string, conflictKey string, values []interface{}) string {
	literals := make([]string, 0, len(values))
	for _, v := range values {
		literals = append(literals, Literal(v))
	}

	assignments := make([]string, 0, len(columns))
	for _, col := range columns {
		if col == conflictKey {
			continue
		}
		assignments = append(assignments, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s;",
		table,
		strings.Join(columns, ", "),
		strings.Join(literals, ", "),
		conflictKey,
		strings.Join(assignments, ", "),
	)
}
