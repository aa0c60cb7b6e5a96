package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/dtroode/userauth-server/internal/model"
)

const (
	argon2idPrefix = "$argon2id$"
	argon2Version  = argon2.Version

	defaultSaltLength = 16
	defaultKeyLength  = 32
)

// Argon2idParams controls argon2id cost. MemoryKiB is in KiB as required by
// argon2.IDKey.
type Argon2idParams struct {
	Time        uint32
	MemoryKiB   uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// NewArgon2idParams returns params with the default salt and key lengths.
func NewArgon2idParams(time, memKiB uint32, par uint8) Argon2idParams {
	return Argon2idParams{
		Time:        time,
		MemoryKiB:   memKiB,
		Parallelism: par,
		SaltLength:  defaultSaltLength,
		KeyLength:   defaultKeyLength,
	}
}

func (p Argon2idParams) validate() error {
	if p.Time == 0 || p.MemoryKiB == 0 || p.Parallelism == 0 {
		return fmt.Errorf("time, memory and parallelism must be positive")
	}
	if p.SaltLength < 8 || p.SaltLength > 64 {
		return fmt.Errorf("salt length %d out of range [8..64]", p.SaltLength)
	}
	if p.KeyLength < 16 || p.KeyLength > 128 {
		return fmt.Errorf("key length %d out of range [16..128]", p.KeyLength)
	}
	return nil
}

// hashArgon2id encodes as $argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt>$<key>.
func hashArgon2id(password string, p Argon2idParams) (string, error) {
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKiB, p.Parallelism, p.KeyLength)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2idPrefix,
		argon2Version,
		p.MemoryKiB,
		p.Time,
		p.Parallelism,
		b64.EncodeToString(salt),
		b64.EncodeToString(key),
	), nil
}

func verifyArgon2id(digest, password string, limits Argon2idParams) (bool, error) {
	p, salt, expected, err := decodeArgon2id(digest)
	if err != nil {
		return false, err
	}

	// Digests may be older and cheaper than the current settings, never
	// wildly more expensive.
	if p.MemoryKiB > limits.MemoryKiB*2 || p.Time > limits.Time*2 || p.Parallelism > limits.Parallelism*2 {
		return false, fmt.Errorf("%w: cost parameters exceed limits", model.ErrMalformedDigest)
	}

	key := argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKiB, p.Parallelism, p.KeyLength)

	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}

func decodeArgon2id(digest string) (Argon2idParams, []byte, []byte, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Argon2idParams{}, nil, nil, model.ErrMalformedDigest
	}

	if parts[2] != fmt.Sprintf("v=%d", argon2Version) {
		return Argon2idParams{}, nil, nil, fmt.Errorf("%w: unsupported version", model.ErrMalformedDigest)
	}

	var mem, iter, par uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iter, &par); err != nil {
		return Argon2idParams{}, nil, nil, fmt.Errorf("%w: bad parameters", model.ErrMalformedDigest)
	}
	if mem == 0 || iter == 0 || par == 0 || par > 255 {
		return Argon2idParams{}, nil, nil, fmt.Errorf("%w: bad parameters", model.ErrMalformedDigest)
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return Argon2idParams{}, nil, nil, fmt.Errorf("%w: bad salt", model.ErrMalformedDigest)
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil {
		return Argon2idParams{}, nil, nil, fmt.Errorf("%w: bad key", model.ErrMalformedDigest)
	}

	p := Argon2idParams{
		Time:        iter,
		MemoryKiB:   mem,
		Parallelism: uint8(par),
		SaltLength:  uint32(len(salt)),
		KeyLength:   uint32(len(key)),
	}
	if err := p.validate(); err != nil {
		return Argon2idParams{}, nil, nil, fmt.Errorf("%w: %v", model.ErrMalformedDigest, err)
	}

	return p, salt, key, nil
}
