package sqldump

import (
	"strings"
)

// Sanitize убирает из снимка строки, не являющиеся валидными SQL
// statement-ами: psql-метакоманды (\connect, \restrict и прочие) и
// осиротевшие терминаторы COPY. Вызывается после TransformCopyBlocks,
// поэтому данные COPY к этому моменту уже преобразованы.
func Sanitize(script string) string {
	lines := strings.Split(script, "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, `\`) {
			continue
		}
		out = append(out, line)
	}

	return strings.Join(out, "\n")
}

// IsIgnorableStatement определяет statement-ы, пропускаемые при
// in-process восстановлении: выдача прав и смена владельца падают
// под ограниченной учётной записью хостинга и не влияют на данные.
// pg_dump предваряет каждый statement блоком комментариев, а Split
// оставляет такой блок при следующем statement-е, поэтому перед
// классификацией комментарии отбрасываются.
func IsIgnorableStatement(stmt string) bool {
	upper := strings.ToUpper(strings.TrimSpace(stripLeadingComments(stmt)))

	switch {
	case strings.HasPrefix(upper, "GRANT "),
		strings.HasPrefix(upper, "REVOKE "),
		strings.HasPrefix(upper, "COMMENT ON "),
		strings.HasPrefix(upper, "SECURITY LABEL"),
		strings.HasPrefix(upper, "ALTER DEFAULT PRIVILEGES"),
		strings.HasPrefix(upper, "CREATE ROLE "),
		strings.HasPrefix(upper, "ALTER ROLE "):
		return true
	}

	// ALTER ... OWNER TO ...
	if strings.HasPrefix(upper, "ALTER ") && strings.Contains(upper, " OWNER TO ") {
		return true
	}

	return false
}

// stripLeadingComments отбрасывает ведущие строки-комментарии и пустые
// строки, оставляя сам statement.
func stripLeadingComments(stmt string) string {
	lines := strings.Split(stmt, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		return strings.Join(lines[i:], "\n")
	}
	return ""
}

// IsIgnorableError относит ошибку выполнения statement-а к классу
// прав/владения, который безопасно пропустить.
func IsIgnorableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())

	for _, needle := range []string{
		"permission denied",
		"must be owner of",
		"must be member of role",
		"role \"", // role "xxx" does not exist
		"no privileges could be revoked",
		"already exists",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}

	return false
}
