package http

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/pixelfield/internal/platform/errors"
)

// Environment variables configuring painter grant verification.
const (
	EnvGrantIssuer    = "PIXELFIELD_CANVAS_GRANT_ISSUER"
	EnvGrantAudience  = "PIXELFIELD_CANVAS_GRANT_AUDIENCE"
	EnvGrantPublicKey = "PIXELFIELD_CANVAS_GRANT_PUBLIC_KEY"
)

// grantEnv holds raw env values before post-parse validation.
type grantEnv struct {
	Issuer    string `env:"PIXELFIELD_CANVAS_GRANT_ISSUER"`
	Audience  string `env:"PIXELFIELD_CANVAS_GRANT_AUDIENCE"`
	PublicKey string `env:"PIXELFIELD_CANVAS_GRANT_PUBLIC_KEY"`
}

// GrantVerifier verifies painter grants: EdDSA-signed JWTs whose subject is
// the painter identity.
type GrantVerifier struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

// LoadGrantVerifierFromEnv reads painter grant configuration. When none of
// the grant variables are set it returns nil with no error, which puts the
// transport in development mode. Setting some but not all is an error.
func LoadGrantVerifierFromEnv(now func() time.Time) (*GrantVerifier, error) {
	var raw grantEnv
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("parse painter grant env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if issuer == "" && audience == "" && publicKey == "" {
		return nil, nil
	}
	if issuer == "" {
		return nil, fmt.Errorf("PIXELFIELD_CANVAS_GRANT_ISSUER is required")
	}
	if audience == "" {
		return nil, fmt.Errorf("PIXELFIELD_CANVAS_GRANT_AUDIENCE is required")
	}
	if publicKey == "" {
		return nil, fmt.Errorf("PIXELFIELD_CANVAS_GRANT_PUBLIC_KEY is required")
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return nil, fmt.Errorf("decode painter grant public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("painter grant public key must be %d bytes", ed25519.PublicKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return &GrantVerifier{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PublicKey(keyBytes),
		Now:      now,
	}, nil
}

// Verify checks a painter grant and returns the painter identity it names.
func (v *GrantVerifier) Verify(grant string) (string, error) {
	grant = strings.TrimSpace(grant)
	if grant == "" {
		return "", apperrors.New(apperrors.CodeGrantInvalid, "painter grant is required")
	}
	if v.Issuer == "" || v.Audience == "" || len(v.Key) != ed25519.PublicKeySize {
		return "", errors.New("painter grant verifier is not configured")
	}
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}

	var parsed jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(grant, &parsed, func(token *jwt.Token) (any, error) {
		return v.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return "", mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != v.Issuer {
		return "", apperrors.WithMetadata(
			apperrors.CodeGrantInvalid,
			"painter grant issuer mismatch",
			map[string]string{"Field": "issuer"},
		)
	}
	if !audienceContains(parsed.Audience, v.Audience) {
		return "", apperrors.WithMetadata(
			apperrors.CodeGrantInvalid,
			"painter grant audience mismatch",
			map[string]string{"Field": "audience"},
		)
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return "", apperrors.New(apperrors.CodeGrantInvalid, "painter grant sub is required")
	}
	if parsed.ExpiresAt == nil {
		return "", apperrors.New(apperrors.CodeGrantInvalid, "painter grant exp is required")
	}

	at := now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(at) {
		return "", apperrors.New(apperrors.CodeGrantExpired, "painter grant is expired")
	}
	if parsed.NotBefore != nil {
		nbf := parsed.NotBefore.Time.UTC()
		if at.Before(nbf) {
			return "", apperrors.New(apperrors.CodeGrantInvalid, "painter grant not active yet")
		}
	}

	return strings.TrimSpace(parsed.Subject), nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.New(apperrors.CodeGrantInvalid, "painter grant signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeGrantInvalid, "painter grant alg is invalid")
	}
	return apperrors.New(apperrors.CodeGrantInvalid, "painter grant is invalid")
}

// audienceContains reports whether the audience list contains the given value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
