package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	assert.NoError(t, h.Compare(hash, "secret1"))
	assert.ErrorIs(t, h.Compare(hash, "secret2"), ErrMismatch)
}

func TestHasher_SaltedPerRecord(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHasher_EmptyRejected(t *testing.T) {
	_, err := NewHasher(bcrypt.MinCost).Hash("")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestHasher_CompareMalformedHash(t *testing.T) {
	err := NewHasher(bcrypt.MinCost).Compare("not-a-hash", "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMismatch)
}

func TestHasher_Prepare(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	t.Run("new record is hashed", func(t *testing.T) {
		out, err := h.Prepare("", "secret1")
		require.NoError(t, err)
		assert.NoError(t, h.Compare(out, "secret1"))
	})

	t.Run("unchanged hash is kept", func(t *testing.T) {
		stored, err := h.Hash("secret1")
		require.NoError(t, err)

		out, err := h.Prepare(stored, stored)
		require.NoError(t, err)
		assert.Equal(t, stored, out)
	})

	t.Run("new plaintext replaces stored hash", func(t *testing.T) {
		stored, err := h.Hash("secret1")
		require.NoError(t, err)

		out, err := h.Prepare(stored, "secret2")
		require.NoError(t, err)
		assert.NotEqual(t, stored, out)
		assert.NoError(t, h.Compare(out, "secret2"))
	})
}

func TestNewHasher_InvalidCostFallsBack(t *testing.T) {
	assert.Equal(t, DefaultCost, NewHasher(0).cost)
	assert.Equal(t, DefaultCost, NewHasher(99).cost)
}

func TestPlaceholder(t *testing.T) {
	a := Placeholder("sub-1")
	b := Placeholder("sub-1")
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "sub-1")
	assert.Greater(t, len(a), 32)
}

func TestHash_TooLong(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	_, err := h.Hash(strings.Repeat("a", MaxBytes+1))
	assert.ErrorIs(t, err, ErrTooLong)

	_, err = h.Prepare("", strings.Repeat("é", 40))
	assert.ErrorIs(t, err, ErrTooLong)

	_, err = h.Hash(strings.Repeat("a", MaxBytes))
	assert.NoError(t, err)
}
