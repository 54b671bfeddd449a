package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a plaintext credential for storage on a user record.
// A non-positive cost falls back to the bcrypt default, so callers can pass
// the BCRYPT_COST setting straight through without validating it.
func HashPassword(password string, cost int) (string, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a login attempt against the stored hash.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
