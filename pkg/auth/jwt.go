package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Роли участников игровой сессии
const (
	RoleHost        = "host"
	RoleParticipant = "participant"
)

// JWTCustomClaims содержит пользовательские поля для токена.
// Идентичность гостевая: участник получает токен при входе в игру,
// без регистрации и пароля.
type JWTCustomClaims struct {
	ParticipantID string `json:"participant_id"`
	Nickname      string `json:"nickname"`
	Role          string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService предоставляет методы для работы с JWT
type JWTService struct {
	secretKey     []byte
	expirationHrs int
}

// NewJWTService создает новый сервис JWT и возвращает ошибку при проблемах
func NewJWTService(secretKey string, expirationHrs int) (*JWTService, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("JWT secret key is required")
	}
	if expirationHrs <= 0 {
		expirationHrs = 24
	}
	return &JWTService{
		secretKey:     []byte(secretKey),
		expirationHrs: expirationHrs,
	}, nil
}

// GenerateToken создает подписанный токен для участника или ведущего
func (s *JWTService) GenerateToken(participantID, nickname, role string) (string, error) {
	if participantID == "" {
		return "", fmt.Errorf("participant ID is required")
	}
	if role != RoleHost && role != RoleParticipant {
		return "", fmt.Errorf("unknown role %q", role)
	}

	now := time.Now()
	claims := JWTCustomClaims{
		ParticipantID: participantID,
		Nickname:      nickname,
		Role:          role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   participantID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.expirationHrs) * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ParseToken проверяет подпись и срок действия токена и возвращает claims
func (s *JWTService) ParseToken(tokenString string) (*JWTCustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Принимаем только HMAC: токен с RS256-заголовком и публичным
		// ключом в теле не должен проходить проверку
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*JWTCustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
