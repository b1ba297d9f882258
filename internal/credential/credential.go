// ABOUTME: Salted SHA-512 password hashing, password policy, and opaque token generation
// ABOUTME: Pure functions with no persistence; randomness comes from crypto/rand

package credential

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

const (
	// SaltLength is the number of alphanumeric characters in a password salt
	SaltLength = 512

	// MaxPasswordLength is the longest password IsAcceptablePassword allows
	MaxPasswordLength = 255

	// TokenBytes is the amount of randomness in a bearer token (512 bits)
	TokenBytes = 64
)

const saltAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// HashPassword generates a fresh salt and returns hex(SHA-512(plaintext || salt)) with it.
func HashPassword(plaintext string) (hash, salt string, err error) {
	salt, err = NewSalt()
	if err != nil {
		return "", "", err
	}
	return digest(plaintext, salt), salt, nil
}

// VerifyPassword reports whether plaintext combined with salt produces hash.
// The comparison is constant-time.
func VerifyPassword(plaintext, hash, salt string) bool {
	want := digest(plaintext, salt)
	return subtle.ConstantTimeCompare([]byte(want), []byte(hash)) == 1
}

// IsAcceptablePassword rejects passwords longer than MaxPasswordLength or
// containing anything other than ASCII letters and digits.
// There is no minimum length.
func IsAcceptablePassword(plaintext string) bool {
	if len(plaintext) > MaxPasswordLength {
		return false
	}
	for i := 0; i < len(plaintext); i++ {
		if !isAlnum(plaintext[i]) {
			return false
		}
	}
	return true
}

// GenerateToken returns TokenBytes of randomness as unpadded base64url.
func GenerateToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewSalt returns SaltLength characters drawn uniformly from [0-9a-zA-Z].
func NewSalt() (string, error) {
	out := make([]byte, 0, SaltLength)
	buf := make([]byte, SaltLength)

	// Rejection sampling: bytes >= 248 would bias toward the start of the alphabet.
	limit := byte(256 - 256%len(saltAlphabet))
	for len(out) < SaltLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("reading random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, saltAlphabet[int(b)%len(saltAlphabet)])
			if len(out) == SaltLength {
				break
			}
		}
	}
	return string(out), nil
}

func digest(plaintext, salt string) string {
	sum := sha512.Sum512([]byte(plaintext + salt))
	return hex.EncodeToString(sum[:])
}

func isAlnum(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
