package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSigningSecret = errors.New("auth: signing secret required")
	ErrMissingIssuer        = errors.New("auth: issuer required")
	ErrMissingToken         = errors.New("auth: token required")
	ErrInvalidToken         = errors.New("auth: invalid token")
	ErrMissingUserClaim     = errors.New("auth: user id claim required")
	ErrMissingCompanyClaim  = errors.New("auth: company id claim required")
)

// Claims mirrors the JWT payload emitted by the platform's auth service.
// CompanyCountry drives country-level grid refinement for Scope 2
// calculations.
type Claims struct {
	UserID         string `json:"user_id"`
	CompanyID      string `json:"company_id"`
	CompanyCountry string `json:"company_country"`
	jwt.RegisteredClaims
}

// ClaimsValidatorConfig describes how to validate auth-service JWTs.
type ClaimsValidatorConfig struct {
	SigningSecret []byte
	Issuer        string
	Clock         func() time.Time
}

// ClaimsValidator validates HS256 JWTs and extracts the calling user and
// company context. Token issuing lives in the external auth service.
type ClaimsValidator struct {
	signingSecret []byte
	issuer        string
	clock         func() time.Time
}

// NewClaimsValidator constructs a validator with the provided configuration.
func NewClaimsValidator(cfg ClaimsValidatorConfig) (*ClaimsValidator, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, ErrMissingSigningSecret
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		return nil, ErrMissingIssuer
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ClaimsValidator{
		signingSecret: append([]byte(nil), cfg.SigningSecret...),
		issuer:        issuer,
		clock:         clock,
	}, nil
}

// ValidateToken validates the supplied JWT string and returns the parsed claims.
func (v *ClaimsValidator) ValidateToken(tokenString string) (Claims, error) {
	token := strings.TrimSpace(tokenString)
	if token == "" {
		return Claims{}, ErrMissingToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(
		token,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("unexpected signing algorithm: %s", token.Method.Alg())
			}
			return v.signingSecret, nil
		},
		jwt.WithIssuer(v.issuer),
		jwt.WithTimeFunc(v.clock),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return Claims{}, ErrMissingUserClaim
	}
	if strings.TrimSpace(claims.CompanyID) == "" {
		return Claims{}, ErrMissingCompanyClaim
	}
	return *claims, nil
}
