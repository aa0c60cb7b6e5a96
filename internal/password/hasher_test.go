package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/userauth-server/internal/model"
)

// Cheap parameters keep the suite fast.
var testArgon2id = NewArgon2idParams(1, 8*1024, 1)

func newTestHasher(t *testing.T, alg Algorithm) *Hasher {
	t.Helper()
	h, err := NewHasher(alg, bcrypt.MinCost, testArgon2id)
	require.NoError(t, err)
	return h
}

func TestNewHasher_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		alg     Algorithm
		cost    int
		params  Argon2idParams
		wantErr bool
	}{
		{name: "bcrypt", alg: AlgorithmBcrypt, cost: bcrypt.DefaultCost, params: testArgon2id},
		{name: "argon2id", alg: AlgorithmArgon2id, cost: bcrypt.DefaultCost, params: testArgon2id},
		{name: "unknown algorithm", alg: "md5", cost: bcrypt.DefaultCost, params: testArgon2id, wantErr: true},
		{name: "bcrypt cost too low", alg: AlgorithmBcrypt, cost: 2, params: testArgon2id, wantErr: true},
		{name: "bcrypt cost too high", alg: AlgorithmBcrypt, cost: 40, params: testArgon2id, wantErr: true},
		{name: "zero argon2 time", alg: AlgorithmArgon2id, cost: bcrypt.DefaultCost, params: NewArgon2idParams(0, 1024, 1), wantErr: true},
		{name: "short salt", alg: AlgorithmArgon2id, cost: bcrypt.DefaultCost, params: Argon2idParams{Time: 1, MemoryKiB: 1024, Parallelism: 1, SaltLength: 4, KeyLength: 32}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h, err := NewHasher(tt.alg, tt.cost, tt.params)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, h)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.alg, h.Algorithm())
		})
	}
}

func TestHasher_HashAndVerify(t *testing.T) {
	t.Parallel()

	for _, alg := range []Algorithm{AlgorithmBcrypt, AlgorithmArgon2id} {
		alg := alg
		t.Run(string(alg), func(t *testing.T) {
			t.Parallel()

			h := newTestHasher(t, alg)

			digest, err := h.Hash("pw1")
			require.NoError(t, err)
			assert.NotEqual(t, "pw1", digest)
			assert.NotContains(t, digest, "pw1")

			ok, err := h.Verify(digest, "pw1")
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = h.Verify(digest, "pw2")
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = h.Verify(digest, "")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestHasher_Hash_FreshSaltPerCall(t *testing.T) {
	t.Parallel()

	for _, alg := range []Algorithm{AlgorithmBcrypt, AlgorithmArgon2id} {
		h := newTestHasher(t, alg)

		first, err := h.Hash("same password")
		require.NoError(t, err)
		second, err := h.Hash("same password")
		require.NoError(t, err)

		assert.NotEqual(t, first, second, alg)
	}
}

func TestHasher_Hash_Format(t *testing.T) {
	t.Parallel()

	digest, err := newTestHasher(t, AlgorithmArgon2id).Hash("pw")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$argon2id$v=19$m=8192,t=1,p=1$"), digest)

	digest, err = newTestHasher(t, AlgorithmBcrypt).Hash("pw")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$2a$04$"), digest)
}

func TestHasher_Hash_BcryptTooLong(t *testing.T) {
	t.Parallel()

	_, err := newTestHasher(t, AlgorithmBcrypt).Hash(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestHasher_Verify_AcrossAlgorithms(t *testing.T) {
	t.Parallel()

	bcryptHasher := newTestHasher(t, AlgorithmBcrypt)
	argonHasher := newTestHasher(t, AlgorithmArgon2id)

	bcryptDigest, err := bcryptHasher.Hash("pw1")
	require.NoError(t, err)
	argonDigest, err := argonHasher.Hash("pw1")
	require.NoError(t, err)

	ok, err := argonHasher.Verify(bcryptDigest, "pw1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = bcryptHasher.Verify(argonDigest, "pw1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasher_Verify_MalformedDigest(t *testing.T) {
	t.Parallel()

	h := newTestHasher(t, AlgorithmArgon2id)

	digests := []string{
		"",
		"plaintext",
		"$2a$",
		"$2b$04$tooshort",
		"$argon2id$",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0$!!!",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=1048576,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5",
	}

	for _, d := range digests {
		ok, err := h.Verify(d, "pw")
		assert.False(t, ok, d)
		assert.ErrorIs(t, err, model.ErrMalformedDigest, d)
	}
}
