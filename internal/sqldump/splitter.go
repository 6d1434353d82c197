package sqldump

import (
	"strings"
)

// splitState - состояние сканера statement-ов.
type splitState int

const (
	stateNormal splitState = iota
	stateLineComment
	stateSingleQuote
	stateDollarQuote
)

// Split разбивает текст SQL-скрипта на отдельные statement-ы.
// Сканер отслеживает строковые литералы в одинарных кавычках и
// dollar-quoted блоки ($$ ... $$, $tag$ ... $tag$), чтобы точка с
// запятой внутри литерала не считалась разделителем.
func Split(script string) []string {
	var (
		statements []string
		current    strings.Builder
		state      = stateNormal
		dollarTag  string
	)

	runes := []rune(script)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		switch state {
		case stateNormal:
			switch {
			case ch == '-' && i+1 < len(runes) && runes[i+1] == '-':
				state = stateLineComment
				current.WriteRune(ch)
			case ch == '\'':
				state = stateSingleQuote
				current.WriteRune(ch)
			case ch == '$':
				if tag, ok := readDollarTag(runes, i); ok {
					state = stateDollarQuote
					dollarTag = tag
					current.WriteString(tag)
					i += len([]rune(tag)) - 1
				} else {
					current.WriteRune(ch)
				}
			case ch == ';':
				stmt := strings.TrimSpace(current.String())
				if stmt != "" {
					statements = append(statements, stmt)
				}
				current.Reset()
			default:
				current.WriteRune(ch)
			}

		case stateLineComment:
			current.WriteRune(ch)
			if ch == '\n' {
				state = stateNormal
			}

		case stateSingleQuote:
			current.WriteRune(ch)
			if ch == '\'' {
				// Удвоенная кавычка - экранирование внутри литерала
				if i+1 < len(runes) && runes[i+1] == '\'' {
					current.WriteRune(runes[i+1])
					i++
				} else {
					state = stateNormal
				}
			}

		case stateDollarQuote:
			if ch == '$' && hasPrefixRunes(runes, i, dollarTag) {
				current.WriteString(dollarTag)
				i += len([]rune(dollarTag)) - 1
				state = stateNormal
			} else {
				current.WriteRune(ch)
			}
		}
	}

	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}

// readDollarTag пытается прочитать открывающий dollar-quote тег,
// начинающийся с позиции i: $$, $body$, $fn1$ и т.п.
func readDollarTag(runes []rune, i int) (string, bool) {
	j := i + 1
	for j < len(runes) {
		ch := runes[j]
		if ch == '$' {
			return string(runes[i : j+1]), true
		}
		if !isTagRune(ch) {
			return "", false
		}
		j++
	}
	return "", false
}

// isTagRune проверяет символ на допустимость внутри dollar-quote тега.
func isTagRune(ch rune) bool {
	return ch == '_' ||
		(ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9')
}

// hasPrefixRunes проверяет, что с позиции i начинается подстрока tag.
func hasPrefixRunes(runes []rune, i int, tag string) bool {
	tagRunes := []rune(tag)
	if i+len(tagRunes) > len(runes) {
		return false
	}
	for k, tr := range tagRunes {
		if runes[i+k] != tr {
			return false
		}
	}
	return true
}
