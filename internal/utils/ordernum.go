package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OrderNumberPrefix - фирменный тег в начале номера заказа.
const OrderNumberPrefix = "MM"

// OrderNumberBase строит базовый номер заказа для календарной даты:
// тег + день + месяц + год, например MM01092026.
func OrderNumberBase(t time.Time) string {
	return fmt.Sprintf("%s%02d%02d%04d", OrderNumberPrefix, t.Day(), int(t.Month()), t.Year())
}

// NextOrderNumber выбирает следующий свободный номер: сама база, если
// она не занята, иначе base-N с наименьшим незанятым суффиксом >= 2.
// Существующие номера приходят из базы данных; гонку двух одинаковых
// ответов разрешает уникальный индекс при вставке.
func NextOrderNumber(base string, existing []string) string {
	baseTaken := false
	maxSuffix := 1
	for _, number := range existing {
		if number == base {
			baseTaken = true
			continue
		}
		if suffix, ok := parseSuffix(base, number); ok && suffix > maxSuffix {
			maxSuffix = suffix
		}
	}

	// База свободна - переиспользуем её даже при занятых суффиксах:
	// такое случается после удаления заказа.
	if !baseTaken {
		return base
	}
	return fmt.Sprintf("%s-%d", base, maxSuffix+1)
}

// parseSuffix извлекает N из номера вида base-N.
func parseSuffix(base, number string) (int, bool) {
	rest, found := strings.CutPrefix(number, base+"-")
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 2 {
		return 0, false
	}
	return n, true
}
