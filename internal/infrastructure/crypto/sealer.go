// Package crypto seals capsule content at rest with age (X25519).
package crypto

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// ErrInvalidIdentity is returned when the configured age identity cannot be parsed
var ErrInvalidIdentity = errors.New("invalid age identity")

// AgeSealer encrypts content to the X25519 recipient of its identity and
// stores it ASCII-armored, so it fits a text column.
type AgeSealer struct {
	identity  *age.X25519Identity
	recipient *age.X25519Recipient
}

// NewAgeSealer parses an AGE-SECRET-KEY-1... identity
func NewAgeSealer(identity string) (*AgeSealer, error) {
	id, err := age.ParseX25519Identity(strings.TrimSpace(identity))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	return &AgeSealer{identity: id, recipient: id.Recipient()}, nil
}

// Seal encrypts plaintext and returns the armored ciphertext
func (s *AgeSealer) Seal(plaintext string) (string, error) {
	var buf bytes.Buffer
	armored := armor.NewWriter(&buf)

	w, err := age.Encrypt(armored, s.recipient)
	if err != nil {
		return "", fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", fmt.Errorf("encrypting content: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing encryption: %w", err)
	}
	if err := armored.Close(); err != nil {
		return "", fmt.Errorf("finalizing armor: %w", err)
	}
	return buf.String(), nil
}

// Open decrypts armored ciphertext. Rows written before encryption was
// enabled carry no armor header and are returned unchanged.
func (s *AgeSealer) Open(stored string) (string, error) {
	if !IsSealed(stored) {
		return stored, nil
	}

	r, err := age.Decrypt(armor.NewReader(strings.NewReader(stored)), s.identity)
	if err != nil {
		return "", fmt.Errorf("decrypting content: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading decrypted content: %w", err)
	}
	return string(plaintext), nil
}

// IsSealed reports whether stored carries the age armor header
func IsSealed(stored string) bool {
	return strings.HasPrefix(strings.TrimSpace(stored), armor.Header)
}

// PlaintextSealer stores content unchanged. Used when no identity is configured.
type PlaintextSealer struct{}

// Seal returns plaintext unchanged
func (PlaintextSealer) Seal(plaintext string) (string, error) {
	return plaintext, nil
}

// Open returns stored unchanged. Sealed content cannot be opened without an identity.
func (PlaintextSealer) Open(stored string) (string, error) {
	if IsSealed(stored) {
		return "", errors.New("content is encrypted but no age identity is configured")
	}
	return stored, nil
}
