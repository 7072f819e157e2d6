package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost: стоимость bcrypt для паролей администраторов.
const DefaultCost = 12

// Hasher хэширует и проверяет пароли через bcrypt.
type Hasher struct {
	Cost int
}

// NewHasher зажимает cost в допустимые для bcrypt пределы.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

func (h *Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare: nil при совпадении.
func (h *Hasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
