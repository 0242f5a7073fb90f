package userstore

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and checks passwords
type Hasher interface {
	Hash(password string) (string, error)
	// Compare returns nil when password matches hash
	Compare(hash, password string) error
	// DummyHash returns a hash at the hasher's own cost that no real password
	// matches. It is compared against when the user does not exist so that
	// unknown usernames cost as much as wrong passwords.
	DummyHash() string
}

// fallbackDummyHash is used only if a dummy hash cannot be generated
const fallbackDummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

var (
	dummyMu     sync.Mutex
	dummyHashes = map[int]string{}
)

// BcryptHasher hashes passwords with bcrypt at Cost.
// A zero Cost means bcrypt.DefaultCost.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) cost() int {
	if h.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return h.Cost
}

// Hash returns the bcrypt encoding of password
func (h BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost())
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Compare checks password against a bcrypt hash
func (h BcryptHasher) Compare(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrBadPassword
	}
	return nil
}

// DummyHash returns a random bcrypt hash at h's cost, generated once per cost
func (h BcryptHasher) DummyHash() string {
	cost := h.cost()

	dummyMu.Lock()
	defer dummyMu.Unlock()
	if hash, ok := dummyHashes[cost]; ok {
		return hash
	}
	b, err := bcrypt.GenerateFromPassword([]byte(rand.Text()), cost)
	if err != nil {
		return fallbackDummyHash
	}
	dummyHashes[cost] = string(b)
	return string(b)
}
