package auth

import (
	"net/http"
	"strings"

	"github.com/agamariel/teastore/internal/models"
	"github.com/labstack/echo/v4"
)

// Principal - аутентифицированный субъект запроса. Все операции ядра
// принимают его явно, а не читают из глобального состояния.
type Principal struct {
	UserID            int64
	Role              models.Role
	WholesaleApproved bool
}

// ContextKey - тип для ключей контекста.
type ContextKey string

const (
	// PrincipalKey - ключ для хранения субъекта в контексте запроса.
	PrincipalKey ContextKey = "principal"
)

// JWTMiddleware создаёт middleware для проверки JWT токена.
func JWTMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractTokenFromHeader(c)

			if token == "" {
				token = extractTokenFromCookie(c)
			}

			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid token")
			}

			claims, err := ValidateToken(token, secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			// Сохранение субъекта в контексте
			c.Set(string(PrincipalKey), Principal{
				UserID:            claims.UserID,
				Role:              claims.Role,
				WholesaleApproved: claims.WholesaleApproved,
			})

			return next(c)
		}
	}
}

// RequireAdmin пропускает только администраторов и супер-администраторов.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := GetPrincipal(c)
		if err != nil {
			return err
		}
		if !p.Role.IsAdmin() {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return next(c)
	}
}

// RequireSuperAdmin пропускает только супер-администраторов.
func RequireSuperAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := GetPrincipal(c)
		if err != nil {
			return err
		}
		if p.Role != models.RoleSuperAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "super admin access required")
		}
		return next(c)
	}
}

// extractTokenFromHeader извлекает токен из заголовка Authorization.
func extractTokenFromHeader(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	// Проверка формата "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
		return parts[1]
	}

	return ""
}

// extractTokenFromCookie извлекает токен из cookie.
func extractTokenFromCookie(c echo.Context) string {
	cookie, err := c.Cookie("Authorization")
	if err != nil {
		return ""
	}
	return cookie.Value
}

// GetPrincipal извлекает субъекта запроса из контекста.
func GetPrincipal(c echo.Context) (Principal, error) {
	p, ok := c.Get(string(PrincipalKey)).(Principal)
	if !ok {
		return Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "principal not found in context")
	}
	return p, nil
}
