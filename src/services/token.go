package services

import (
	"strings"

	"github.com/google/uuid"
	"github.com/zapflow/zapflow-api/src/models"
)

// FormatToken assembles the opaque bearer token handed to the caller exactly
// once at creation: zap_<keyId>_<secret>
func FormatToken(keyID uuid.UUID, secret string) string {
	return models.TokenPrefix + "_" + keyID.String() + "_" + secret
}

// ParseToken splits a presented token into key id and secret. The split is
// bounded at three parts so any trailing underscores stay inside the secret
// segment. Returns ErrInvalidToken for anything that cannot name a key,
// before any store lookup happens.
func ParseToken(raw string) (uuid.UUID, string, error) {
	parts := strings.SplitN(raw, "_", 3)
	if len(parts) != 3 || parts[0] != models.TokenPrefix || parts[1] == "" || parts[2] == "" {
		return uuid.Nil, "", ErrInvalidToken
	}

	keyID, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, "", ErrInvalidToken
	}

	return keyID, parts[2], nil
}
