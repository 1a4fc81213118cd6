package password

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashVerify(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("P@ssw0rd!")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if hash == "P@ssw0rd!" {
		t.Fatalf("expected password to be hashed")
	}
	if err := h.Verify("P@ssw0rd!", hash); err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if err := h.Verify("wrong", hash); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
	if err := h.Verify("P@ssw0rd!", "not-a-hash"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch for malformed hash, got %v", err)
	}
}

func TestBcryptHasher_SaltsEachHash(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	a, _ := h.Hash("P@ssw0rd!")
	b, _ := h.Hash("P@ssw0rd!")
	if a == b {
		t.Fatalf("expected distinct hashes for the same password")
	}
}

func TestNewBcryptHasher_InvalidCostFallsBack(t *testing.T) {
	h := NewBcryptHasher(0)

	hash, err := h.Hash("P@ssw0rd!")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("Cost returned error: %v", err)
	}
	if cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost %d, got %d", bcrypt.DefaultCost, cost)
	}
}

func TestBcryptHasher_VerifyDummy(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	h.VerifyDummy("timing-equaliser-is-not-this")
}

func TestBcryptHasher_TooLong(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	long := make([]byte, MaxBytes+1)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := h.Hash(string(long)); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
	if _, err := h.Hash(string(long[:MaxBytes])); err != nil {
		t.Fatalf("expected %d bytes to hash, got %v", MaxBytes, err)
	}
}
