package sqldump

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// markerRe распознаёт маркер количества строк в снимке:
// -- APP_ORDER_ITEMS_TOTAL:123
var markerRe = regexp.MustCompile(`(?m)^--\s*APP_([A-Z0-9_]+)_TOTAL:(\d+)\s*$`)

// Marker формирует маркер количества строк для таблицы.
func Marker(table string, total int64) string {
	return fmt.Sprintf("-- APP_%s_TOTAL:%d", strings.ToUpper(table), total)
}

// ParseMarkers извлекает из снимка все маркеры количества строк.
// Ключи результата - имена таблиц в нижнем регистре.
func ParseMarkers(script string) map[string]int64 {
	result := make(map[string]int64)
	for _, m := range markerRe.FindAllStringSubmatch(script, -1) {
		n, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			continue
		}
		result[strings.ToLower(m[1])] = n
	}
	return result
}

// ExpectedRows возвращает ожидаемое число строк таблицы: сначала по
// маркеру, при его отсутствии - подсчётом строк COPY-блока.
func ExpectedRows(script, table string) int64 {
	if n, ok := ParseMarkers(script)[strings.ToLower(table)]; ok {
		return n
	}
	return CountCopyRows(script, table)
}
