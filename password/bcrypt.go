package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is a syntactically valid bcrypt hash of a throwaway string.
// Verifying against it costs the same as a real comparison, which keeps the
// unknown-user login path timing-indistinguishable from a wrong-password
// one.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Hasher wraps bcrypt with a fixed cost.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher. cost 0 selects bcrypt's default.
func NewHasher(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, errors.New("bcrypt cost out of range")
	}
	return &Hasher{cost: cost}, nil
}

// Hash returns the bcrypt hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether password matches hash.
func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// DummyVerify burns a full bcrypt comparison against a fixed hash and
// discards the result. Called on the unknown-user login path.
func (h *Hasher) DummyVerify(password string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
}
