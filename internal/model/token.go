package model

// SessionIDGenerator produces opaque session identifiers.
type SessionIDGenerator interface {
	Generate() (string, error)
}

// PasswordHasher hashes and verifies user credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(digest, password string) (bool, error)
}
