package sqldump

import (
	"fmt"
	"regexp"
	"strings"
)

// copyHeaderRe распознаёт заголовок блока COPY в выводе pg_dump:
// COPY public.orders (id, user_id, ...) FROM stdin;
var copyHeaderRe = regexp.MustCompile(`(?i)^COPY\s+([\w".]+)\s*\(([^)]*)\)\s+FROM\s+stdin;?\s*$`)

// copyNullMarker - маркер NULL в данных COPY.
const copyNullMarker = `\N`

// TransformCopyBlocks заменяет блоки COPY ... FROM stdin на построчные
// INSERT-ы. Данные COPY разделены табуляцией, строки завершаются
// терминатором "\.". Используется при in-process восстановлении, когда
// psql недоступен или недогрузил COPY-блоки.
func TransformCopyBlocks(script string) string {
	lines := strings.Split(script, "\n")
	var out []string

	for i := 0; i < len(lines); i++ {
		m := copyHeaderRe.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			out = append(out, lines[i])
			continue
		}

		table := m[1]
		columns := m[2]

		// Читаем данные до терминатора
		for i++; i < len(lines); i++ {
			row := lines[i]
			if strings.TrimSpace(row) == `\.` {
				break
			}
			if row == "" {
				continue
			}
			out = append(out, copyRowToInsert(table, columns, row))
		}
	}

	return strings.Join(out, "\n")
}

// copyRowToInsert превращает одну строку данных COPY в INSERT.
func copyRowToInsert(table, columns, row string) string {
	fields := strings.Split(row, "\t")
	values := make([]string, 0, len(fields))
	for _, f := range fields {
		values = append(values, copyFieldToLiteral(f))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s);", table, columns, strings.Join(values, ", "))
}

// copyFieldToLiteral декодирует поле COPY в SQL-литерал.
func copyFieldToLiteral(field string) string {
	if field == copyNullMarker {
		return "NULL"
	}
	return QuoteLiteral(unescapeCopyField(field))
}

// unescapeCopyField раскрывает escape-последовательности формата COPY.
func unescapeCopyField(field string) string {
	if !strings.ContainsRune(field, '\\') {
		return field
	}

	var b strings.Builder
	runes := []rune(field)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '\\' || i+1 >= len(runes) {
			b.WriteRune(runes[i])
			continue
		}
		i++
		switch runes[i] {
		case '\\':
			b.WriteRune('\\')
		case 't':
			b.WriteRune('\t')
		case 'n':
			b.WriteRune('\n')
		case 'r':
			b.WriteRune('\r')
		case 'b':
			b.WriteRune('\b')
		case 'f':
			b.WriteRune('\f')
		case 'v':
			b.WriteRune('\v')
		default:
			b.WriteRune(runes[i])
		}
	}
	return b.String()
}

// CountCopyRows считает строки данных в COPY-блоке таблицы.
// Резервный способ узнать ожидаемое число строк, когда в снимке
// нет маркера APP_*_TOTAL.
func CountCopyRows(script, table string) int64 {
	lines := strings.Split(script, "\n")
	var count int64

	for i := 0; i < len(lines); i++ {
		m := copyHeaderRe.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil || normalizeTable(m[1]) != table {
			continue
		}
		for i++; i < len(lines); i++ {
			if strings.TrimSpace(lines[i]) == `\.` {
				break
			}
			if lines[i] != "" {
				count++
			}
		}
	}

	return count
}

// normalizeTable убирает схему и кавычки из имени таблицы.
func normalizeTable(name string) string {
	name = strings.ReplaceAll(name, `"`, "")
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.ToLower(name)
}
