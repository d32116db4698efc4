package crypto

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	SchemeBcrypt   = "bcrypt"
	SchemeArgon2id = "argon2id"
	// SchemeSHA1 reproduces hashes of accounts migrated from the legacy station database.
	SchemeSHA1 = "sha1"

	SaltLength   = 16
	saltAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// ErrUnusableSecret is returned when a secret cannot be hashed under the configured scheme.
var ErrUnusableSecret = errors.New("secret cannot be hashed")

// Argon2 parameters for newly written hashes.
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
)

// Hasher derives and checks salted secret hashes. Every hash covers secret+salt; the
// stored salt column is kept next to the hash regardless of scheme.
type Hasher struct {
	scheme     string
	bcryptCost int
}

func NewHasher(scheme string) (*Hasher, error) {
	switch scheme {
	case SchemeBcrypt, SchemeArgon2id, SchemeSHA1:
	default:
		return nil, fmt.Errorf("unsupported hash scheme %q", scheme)
	}
	return &Hasher{scheme: scheme, bcryptCost: bcrypt.DefaultCost}, nil
}

// NewSalt returns a random 16 character alphanumeric salt from a CSPRNG.
func NewSalt() (string, error) {
	max := big.NewInt(int64(len(saltAlphabet)))
	var sb strings.Builder
	sb.Grow(SaltLength)
	for i := 0; i < SaltLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate salt: %w", err)
		}
		sb.WriteByte(saltAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// Hash derives the stored representation of secret+salt with the configured scheme.
func (h *Hasher) Hash(secret, salt string) (string, error) {
	switch h.scheme {
	case SchemeArgon2id:
		key := argon2.IDKey([]byte(secret+salt), []byte(salt), argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
		return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s",
			argon2Memory, argon2Time, argon2Threads, base64.RawStdEncoding.EncodeToString(key)), nil
	case SchemeSHA1:
		return sha1Hex(secret + salt), nil
	default:
		out, err := bcrypt.GenerateFromPassword(bcryptInput(secret, salt), h.bcryptCost)
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: %v", ErrUnusableSecret, err)
		}
		if err != nil {
			return "", fmt.Errorf("bcrypt hash failed: %w", err)
		}
		return string(out), nil
	}
}

// Matches recomputes the hash of secret+salt and compares it to stored in constant time.
// The scheme is detected from stored, so accounts hashed under an older scheme keep working.
func (h *Hasher) Matches(secret, salt, stored string) bool {
	switch {
	case strings.HasPrefix(stored, "$2"):
		return bcrypt.CompareHashAndPassword([]byte(stored), bcryptInput(secret, salt)) == nil
	case strings.HasPrefix(stored, "$argon2id$"):
		return matchArgon2(secret, salt, stored)
	case len(stored) == sha1.Size*2:
		return subtle.ConstantTimeCompare([]byte(sha1Hex(secret+salt)), []byte(stored)) == 1
	}
	return false
}

func matchArgon2(secret, salt, encoded string) bool {
	// $argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<key>
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 {
		return false
	}
	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	computed := argon2.IDKey([]byte(secret+salt), []byte(salt), time, memory, threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1
}

// bcryptInput digests secret+salt to 64 hex characters, keeping bcrypt under its 72 byte
// input limit for secrets of any length.
func bcryptInput(secret, salt string) []byte {
	sum := sha256.Sum256([]byte(secret + salt))
	return []byte(hex.EncodeToString(sum[:]))
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
