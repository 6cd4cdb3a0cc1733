package crypto

import "golang.org/x/crypto/bcrypt"

// ErrMismatch reports that the plaintext does not match the stored hash.
// Any other comparison failure is an internal fault, not a credential error.
var ErrMismatch = bcrypt.ErrMismatchedHashAndPassword

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 12

// HashPassword hashes plaintext using bcrypt with the given cost. Costs
// outside bcrypt's supported range fall back to DefaultCost.
func HashPassword(plain string, cost int) ([]byte, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return bcrypt.GenerateFromPassword([]byte(plain), cost)
}

// ComparePassword compares plaintext to hashed secret.
func ComparePassword(hash []byte, plain string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain))
}
