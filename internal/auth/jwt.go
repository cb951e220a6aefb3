package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrInvalidToken covers every verification failure: bad signature, expiry,
// malformed input, wrong token type. Callers must not learn which.
var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Email     string `json:"email"`
	TokenType string `json:"tokenType"`
	jwt.RegisteredClaims
}

// Manager signs and verifies the access/refresh token pair. The two token
// kinds use distinct secrets, so a leaked access secret cannot mint refresh
// tokens (and vice versa); the tokenType claim blocks cross-use even if the
// secrets were ever configured identically.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (m *Manager) IssuePair(userID, email string) (accessToken, refreshToken string, err error) {
	accessToken, err = m.sign(userID, email, TokenTypeAccess, m.accessSecret, m.accessTTL)

	if err != nil {
		return "", "", err
	}

	refreshToken, err = m.sign(userID, email, TokenTypeRefresh, m.refreshSecret, m.refreshTTL)

	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func (m *Manager) sign(userID, email, tokenType string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(secret)
}

func (m *Manager) VerifyAccessToken(tokenStr string) (*Claims, error) {
	return m.parseAndValidate(tokenStr, m.accessSecret, TokenTypeAccess)
}

func (m *Manager) VerifyRefreshToken(tokenStr string) (*Claims, error) {
	return m.parseAndValidate(tokenStr, m.refreshSecret, TokenTypeRefresh)
}

func (m *Manager) parseAndValidate(tokenStr string, secret []byte, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256
		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})

	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != wantType {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// HashRefreshToken is a deterministic HMAC over the raw token, keyed with the
// refresh secret. Only this hash is stored; the raw token never touches the DB.
func (m *Manager) HashRefreshToken(raw string) string {
	h := hmac.New(sha256.New, m.refreshSecret)
	h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}
