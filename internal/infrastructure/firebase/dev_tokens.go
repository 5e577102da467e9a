package firebase

import (
	"context"
	"strings"

	"swapmarket/pkg/errors"
)

// DevTokenPrefix marks tokens accepted by DevTokenVerifier.
const DevTokenPrefix = "dev:"

// DevTokenVerifier accepts "dev:<uid>" tokens. It is only wired with the
// memory storage driver outside production, where there is no Firebase
// project to verify against.
type DevTokenVerifier struct{}

func NewDevTokenVerifier() *DevTokenVerifier {
	return &DevTokenVerifier{}
}

func (v *DevTokenVerifier) VerifyToken(ctx context.Context, token string) (string, error) {
	uid := strings.TrimSpace(strings.TrimPrefix(token, DevTokenPrefix))
	if !strings.HasPrefix(token, DevTokenPrefix) || uid == "" {
		return "", errors.Unauthorized("Invalid development token", nil)
	}
	return uid, nil
}
