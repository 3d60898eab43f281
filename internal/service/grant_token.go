package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidGrantToken токен подтверждения не прошёл проверку.
var ErrInvalidGrantToken = errors.New("grant token invalid")

const grantTokenIssuer = "truck-storefront/otp"

// grantTokenLeeway покрывает округление exp вниз до целых секунд.
// Точное окно подтверждения проверяет хранилище.
const grantTokenLeeway = time.Second

// GrantClaims клеймы токена подтверждения телефона.
// Subject номер телефона, ID идентификатор подтверждённой записи otp_verifications.
type GrantClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// GrantTokenManager выпускает и проверяет токены подтверждения.
type GrantTokenManager struct {
	secret []byte
}

// NewGrantTokenManager создаёт менеджер токенов подтверждения.
func NewGrantTokenManager(secret string) *GrantTokenManager {
	return &GrantTokenManager{secret: []byte(secret)}
}

// Issue подписывает токен, привязанный к конкретному подтверждению.
func (m *GrantTokenManager) Issue(challengeID uuid.UUID, phone, purpose string, verifiedAt, expiresAt time.Time) (string, error) {
	claims := GrantClaims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    grantTokenIssuer,
			Subject:   phone,
			ID:        challengeID.String(),
			IssuedAt:  jwt.NewNumericDate(verifiedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("grant token: не удалось подписать: %w", err)
	}
	return signed, nil
}

// Parse проверяет подпись и срок действия токена на момент now.
func (m *GrantTokenManager) Parse(token string, now time.Time) (*GrantClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &GrantClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(grantTokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(grantTokenLeeway),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGrantToken, err)
	}

	claims, ok := parsed.Claims.(*GrantClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidGrantToken
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		return nil, fmt.Errorf("%w: некорректный jti", ErrInvalidGrantToken)
	}

	return claims, nil
}

// ChallengeID идентификатор подтверждения, к которому привязан токен.
func (c *GrantClaims) ChallengeID() uuid.UUID {
	id, _ := uuid.Parse(c.ID)
	return id
}
