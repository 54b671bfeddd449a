package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashAndCompare(t *testing.T) {
	hashed, err := HashPassword("hunter2", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hashed == "hunter2" {
		t.Fatal("password stored in plaintext")
	}

	if err := ComparePassword(hashed, "hunter2"); err != nil {
		t.Errorf("ComparePassword with correct password: %v", err)
	}
	if err := ComparePassword(hashed, "wrong"); err == nil {
		t.Error("wrong password accepted")
	}
}

func TestHashPasswordDefaultsCost(t *testing.T) {
	hashed, err := HashPassword("hunter2", 0)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hashed))
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	if cost != bcrypt.DefaultCost {
		t.Errorf("cost = %d, want %d", cost, bcrypt.DefaultCost)
	}
}
