package userstore

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	h, err := testHasher.Hash("hunter2")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(h, "$2a$") {
		t.Errorf("Expected a bcrypt encoding, got %q", h)
	}
	if cost, _ := bcrypt.Cost([]byte(h)); cost != bcrypt.MinCost {
		t.Errorf("Expected cost %d, got %d", bcrypt.MinCost, cost)
	}
	if err := testHasher.Compare(h, "hunter2"); err != nil {
		t.Errorf("Compare(correct) = %v", err)
	}
	if err := testHasher.Compare(h, "hunter3"); !errors.Is(err, ErrBadPassword) {
		t.Errorf("Compare(wrong) = %v, want ErrBadPassword", err)
	}
}

func TestBcryptHasherSalts(t *testing.T) {
	a, _ := testHasher.Hash("same")
	b, _ := testHasher.Hash("same")
	if a == b {
		t.Error("Expected two hashes of the same password to differ")
	}
}

func TestBcryptHasherRejectsEmptyPassword(t *testing.T) {
	if _, err := testHasher.Hash(""); err == nil {
		t.Error("Expected error for empty password")
	}
}

func TestBcryptHasherMalformedHash(t *testing.T) {
	if err := testHasher.Compare("not-a-hash", "pw"); !errors.Is(err, ErrBadPassword) {
		t.Errorf("Expected ErrBadPassword, got %v", err)
	}
}

func TestDummyHashMatchesCost(t *testing.T) {
	if _, err := bcrypt.Cost([]byte(fallbackDummyHash)); err != nil {
		t.Fatalf("fallbackDummyHash is not a valid bcrypt encoding: %v", err)
	}

	for _, cost := range []int{bcrypt.MinCost, bcrypt.MinCost + 1} {
		h := BcryptHasher{Cost: cost}
		dummy := h.DummyHash()
		got, err := bcrypt.Cost([]byte(dummy))
		if err != nil {
			t.Fatalf("Cost %d: dummy hash is not a valid bcrypt encoding: %v", cost, err)
		}
		if got != cost {
			t.Errorf("Expected dummy hash at cost %d, got %d", cost, got)
		}
		if again := h.DummyHash(); again != dummy {
			t.Errorf("Cost %d: expected the dummy hash to be reused", cost)
		}
		if err := h.Compare(dummy, ""); !errors.Is(err, ErrBadPassword) {
			t.Errorf("Cost %d: expected the empty password not to match, got %v", cost, err)
		}
	}
}
