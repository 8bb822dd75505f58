package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"
)

const (
	secretBytes = 32

	loginCodeMin   = 100000
	loginCodeRange = 900000

	cipherSaltBytes  = 64
	cipherIterations = 100000
	cipherKeyBytes   = 32
)

var errMalformedCiphertext = errors.New("malformed ciphertext")

// HashSecret returns the SHA256 hex digest of secret. Only digests of emailed
// secrets are stored, so lookups by HashSecret(secret) are exact-match.
func HashSecret(secret string) string {
	hash := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(hash[:])
}

// MintSecret returns 32 random bytes as hex with the owner's id appended, so
// two users can never share a secret.
func MintSecret(userID uuid.UUID) (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(b) + userID.String(), nil
}

// NewLoginCode returns a random 6-digit code in [100000, 999999].
func NewLoginCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(loginCodeRange))
	if err != nil {
		return "", fmt.Errorf("generate login code: %w", err)
	}
	return strconv.FormatInt(n.Int64()+loginCodeMin, 10), nil
}

// Cipher is reversible encryption keyed by a process-wide secret. Each message
// gets a fresh salt; the AES-256-GCM key is derived from the secret and that
// salt with PBKDF2-SHA512. Output is hex(salt | nonce | sealed).
type Cipher struct {
	secret     []byte
	iterations int
}

func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, errors.New("cipher secret must not be empty")
	}
	return &Cipher{secret: []byte(secret), iterations: cipherIterations}, nil
}

func (c *Cipher) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(c.secret, salt, c.iterations, cipherKeyBytes, sha512.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (c *Cipher) Encrypt(plaintext string) (string, error) {
	salt := make([]byte, cipherSaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	gcm, err := c.aead(salt)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}

	out := make([]byte, 0, len(salt)+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = gcm.Seal(out, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(out), nil
}

func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := hex.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(raw) < cipherSaltBytes {
		return "", errMalformedCiphertext
	}
	salt, rest := raw[:cipherSaltBytes], raw[cipherSaltBytes:]

	gcm, err := c.aead(salt)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	if len(rest) < gcm.NonceSize()+gcm.Overhead() {
		return "", errMalformedCiphertext
	}
	nonce, sealed := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("open ciphertext: %w", err)
	}
	return string(plain), nil
}
