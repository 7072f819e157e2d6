package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"scanx/internal/tz"
)

var (
	// ErrInvalidToken: подпись не сошлась или токен испорчен.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken: срок действия истёк.
	ErrExpiredToken = errors.New("token expired")
)

// DefaultTTL: срок жизни сессии администратора.
const DefaultTTL = 12 * time.Hour

// Claims: содержимое токена администратора.
type Claims struct {
	jwt.RegisteredClaims
	AdminID uint   `json:"id"`
	Email   string `json:"email"`
}

// Identity: кто выполняет запрос.
type Identity struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
}

// Tokens выпускает и проверяет HS256-токены.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: tz.Now}
}

func (t *Tokens) TTL() time.Duration { return t.ttl }

// Issue возвращает подписанный токен и момент его истечения.
func (t *Tokens) Issue(id uint, email string) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(id), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		AdminID: id,
		Email:   email,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

// Parse проверяет подпись и срок; срок сверяется с tz.Now.
func (t *Tokens) Parse(raw string) (*Identity, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.AdminID == 0 {
		return nil, ErrInvalidToken
	}
	return &Identity{ID: claims.AdminID, Email: claims.Email}, nil
}
