package crypto

import (
	"strings"

	"filippo.io/age"
	"github.com/familynest/backend/internal/domain/capsule"
	"go.uber.org/zap"
)

// NewSealer returns an AgeSealer for a configured identity, otherwise PlaintextSealer
func NewSealer(identity string, log *zap.Logger) (capsule.ContentSealer, error) {
	if strings.TrimSpace(identity) == "" {
		log.Warn("No capsule age identity configured, capsule content is stored unencrypted")
		return PlaintextSealer{}, nil
	}
	s, err := NewAgeSealer(identity)
	if err != nil {
		return nil, err
	}
	log.Info("Capsule content encryption enabled", zap.String("recipient", s.recipient.String()))
	return s, nil
}

// GenerateIdentity creates a new X25519 identity for capsule.age_identity
// and returns it with its public recipient
func GenerateIdentity() (identity, recipient string, err error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", err
	}
	return id.String(), id.Recipient().String(), nil
}
