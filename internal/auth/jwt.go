package auth

import (
	"errors"
	"time"

	"github.com/agamariel/teastore/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims содержит информацию о пользователе в JWT токене.
// Токены выпускает внешний сервис аутентификации с общим секретом,
// здесь они только проверяются.
type Claims struct {
	UserID            int64       `json:"user_id"`
	Role              models.Role `json:"role"`
	WholesaleApproved bool        `json:"wholesale_approved"`
	jwt.RegisteredClaims
}

var (
	// ErrInvalidToken возвращается при невалидном токене.
	ErrInvalidToken = errors.New("invalid token")
)

// GenerateToken генерирует JWT токен для пользователя. Используется
// в тестах и служебных сценариях; боевые токены приходят извне.
func GenerateToken(user *models.User, secret string, expiration time.Duration) (string, error) {
	claims := Claims{
		UserID:            user.ID,
		Role:              user.Role,
		WholesaleApproved: user.WholesaleApproved,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken валидирует JWT токен и возвращает claims.
func ValidateToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Проверка метода подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
