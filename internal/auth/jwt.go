package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoVerificationKey = errors.New("no token verification key configured")
	ErrMissingIdentity   = errors.New("token carries no email or preferred_username claim")
)

// Claims defines the identity-provider claims this service reads.
type Claims struct {
	Email             string `json:"email,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	Name              string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the email the caller is known by.
func (c *Claims) Identity() string {
	if c.Email != "" {
		return strings.ToLower(strings.TrimSpace(c.Email))
	}
	return strings.ToLower(strings.TrimSpace(c.PreferredUsername))
}

// DisplayName falls back to the identity when the token has no name.
func (c *Claims) DisplayName() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return c.Identity()
}

// VerifierConfig selects how bearer tokens are checked. At least one key
// must be set; when both are set the token's alg header picks the key.
type VerifierConfig struct {
	HMACSecret   string
	RSAPublicKey string // PEM
	Issuer       string
	Audience     string
}

// Verifier validates tokens minted by the external identity provider. It
// never issues tokens itself.
type Verifier struct {
	hmacSecret []byte
	rsaKey     *rsa.PublicKey
	options    []jwt.ParserOption
}

func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	v := &Verifier{}
	if cfg.HMACSecret != "" {
		v.hmacSecret = []byte(cfg.HMACSecret)
	}
	if cfg.RSAPublicKey != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.RSAPublicKey))
		if err != nil {
			return nil, fmt.Errorf("parse RSA public key: %w", err)
		}
		v.rsaKey = key
	}
	if v.hmacSecret == nil && v.rsaKey == nil {
		return nil, ErrNoVerificationKey
	}

	methods := make([]string, 0, 6)
	if v.hmacSecret != nil {
		methods = append(methods, "HS256", "HS384", "HS512")
	}
	if v.rsaKey != nil {
		methods = append(methods, "RS256", "RS384", "RS512")
	}
	v.options = []jwt.ParserOption{jwt.WithValidMethods(methods), jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		v.options = append(v.options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		v.options = append(v.options, jwt.WithAudience(cfg.Audience))
	}
	return v, nil
}

// Verify parses and validates the token string
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyFor, v.options...)
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Identity() == "" {
		return nil, ErrMissingIdentity
	}

	return claims, nil
}

func (v *Verifier) keyFor(token *jwt.Token) (any, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if v.hmacSecret != nil {
			return v.hmacSecret, nil
		}
	case *jwt.SigningMethodRSA:
		if v.rsaKey != nil {
			return v.rsaKey, nil
		}
	}
	return nil, errors.New("unexpected signing method")
}
