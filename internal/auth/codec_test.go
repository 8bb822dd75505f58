package auth

import (
	"encoding/hex"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCipher keeps key derivation cheap so tests stay fast.
func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher("test-cryptr-key")
	require.NoError(t, err)
	c.iterations = 1000
	return c
}

func TestHashSecret(t *testing.T) {
	h1 := HashSecret("abc")
	h2 := HashSecret("abc")
	assert.Equal(t, h1, h2, "hash should be deterministic")

	decoded, err := hex.DecodeString(h1)
	require.NoError(t, err)
	assert.Len(t, decoded, 32)

	assert.NotEqual(t, h1, HashSecret("abd"))
}

func TestMintSecret(t *testing.T) {
	uid := uuid.New()

	s1, err := MintSecret(uid)
	require.NoError(t, err)
	s2, err := MintSecret(uid)
	require.NoError(t, err)

	assert.NotEqual(t, s1, s2)
	assert.True(t, strings.HasSuffix(s1, uid.String()))

	random := strings.TrimSuffix(s1, uid.String())
	b, err := hex.DecodeString(random)
	require.NoError(t, err)
	assert.Len(t, b, 32)
}

func TestNewLoginCode_Range(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := NewLoginCode()
		require.NoError(t, err)
		require.Len(t, code, 6)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestCipher_RoundTrip(t *testing.T) {
	c := newTestCipher(t)

	for _, plain := range []string{"123456", "", "ünïcode secret", strings.Repeat("x", 1024)} {
		enc, err := c.Encrypt(plain)
		require.NoError(t, err)
		assert.NotEqual(t, plain, enc)

		dec, err := c.Decrypt(enc)
		require.NoError(t, err)
		assert.Equal(t, plain, dec)
	}
}

func TestCipher_FreshSaltPerMessage(t *testing.T) {
	c := newTestCipher(t)

	a, err := c.Encrypt("654321")
	require.NoError(t, err)
	b, err := c.Encrypt("654321")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCipher_WrongKeyFails(t *testing.T) {
	c := newTestCipher(t)
	enc, err := c.Encrypt("123456")
	require.NoError(t, err)

	other, err := NewCipher("another-key")
	require.NoError(t, err)
	other.iterations = c.iterations

	_, err = other.Decrypt(enc)
	assert.Error(t, err)
}

func TestCipher_Malformed(t *testing.T) {
	c := newTestCipher(t)

	_, err := c.Decrypt("zz-not-hex")
	assert.Error(t, err)

	_, err = c.Decrypt(hex.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, errMalformedCiphertext)

	enc, err := c.Encrypt("123456")
	require.NoError(t, err)
	tampered := enc[:len(enc)-2] + "00"
	if tampered == enc {
		tampered = enc[:len(enc)-2] + "11"
	}
	_, err = c.Decrypt(tampered)
	assert.Error(t, err)
}

func TestNewCipher_EmptySecret(t *testing.T) {
	_, err := NewCipher("")
	assert.Error(t, err)
}
