package token

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/userauth-server/internal/model"
)

var _ model.SessionIDGenerator = (*SessionID)(nil)

// SessionID generates session identifiers as random (version 4) UUIDs.
// Randomness comes from crypto/rand; the canonical form is 36 characters.
type SessionID struct{}

// NewSessionID creates a new session identifier generator.
func NewSessionID() *SessionID {
	return &SessionID{}
}

// Generate returns a new session identifier.
func (g *SessionID) Generate() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return id.String(), nil
}
