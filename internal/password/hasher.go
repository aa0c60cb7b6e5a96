// Package password implements salted one-way hashing of user credentials.
//
// Digests are self-describing: bcrypt digests carry their cost and salt,
// argon2id digests use the PHC string format. Verify picks the algorithm from
// the digest itself, so stored digests remain verifiable when the configured
// algorithm changes.
package password

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/userauth-server/internal/model"
)

// Algorithm names a supported hashing scheme.
type Algorithm string

const (
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
)

var _ model.PasswordHasher = (*Hasher)(nil)

// Hasher hashes new passwords with the configured algorithm and verifies
// digests produced by any supported algorithm.
type Hasher struct {
	algorithm  Algorithm
	bcryptCost int
	argon2id   Argon2idParams
}

// NewHasher creates a Hasher. params is only used for argon2id hashing and
// as the upper bound when verifying argon2id digests.
func NewHasher(algorithm Algorithm, bcryptCost int, params Argon2idParams) (*Hasher, error) {
	switch algorithm {
	case AlgorithmBcrypt, AlgorithmArgon2id:
	default:
		return nil, fmt.Errorf("unsupported password algorithm %q", algorithm)
	}

	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d..%d]", bcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("invalid argon2id params: %w", err)
	}

	return &Hasher{
		algorithm:  algorithm,
		bcryptCost: bcryptCost,
		argon2id:   params,
	}, nil
}

// Algorithm returns the algorithm used for new digests.
func (h *Hasher) Algorithm() Algorithm {
	return h.algorithm
}

// Hash returns a digest of password with a freshly generated salt.
func (h *Hasher) Hash(password string) (string, error) {
	if h.algorithm == AlgorithmArgon2id {
		return hashArgon2id(password, h.argon2id)
	}
	return hashBcrypt(password, h.bcryptCost)
}

// Verify reports whether password matches digest.
// It returns model.ErrMalformedDigest when digest cannot be parsed.
func (h *Hasher) Verify(digest, password string) (bool, error) {
	switch {
	case strings.HasPrefix(digest, argon2idPrefix):
		return verifyArgon2id(digest, password, h.argon2id)
	case isBcryptDigest(digest):
		return verifyBcrypt(digest, password)
	default:
		return false, model.ErrMalformedDigest
	}
}
