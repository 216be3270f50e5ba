package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

// Token is a verified token that can expose its claims. *oidc.IDToken satisfies it.
type Token interface {
	Claims(v interface{}) error
}

// TokenVerifier checks signature, issuer, audience and expiry of an identity token.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// ExternalScheme accepts RS256 identity tokens from the external provider.
type ExternalScheme struct {
	verifier TokenVerifier
}

func NewExternalScheme(v TokenVerifier) *ExternalScheme { return &ExternalScheme{verifier: v} }

func (s *ExternalScheme) Kind() Kind { return KindExternal }

func (s *ExternalScheme) Verify(ctx context.Context, raw string) (*Claims, error) {
	alg, err := headerAlg(raw)
	if err != nil {
		return nil, err
	}
	if alg != jwt.SigningMethodRS256.Alg() {
		return nil, fmt.Errorf("%w: alg %q", ErrWrongScheme, alg)
	}
	tok, err := s.verifier.Verify(ctx, raw)
	if err != nil {
		var expired *oidc.TokenExpiredError
		if errors.As(err, &expired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	var body struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := tok.Claims(&body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if body.Sub == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return &Claims{Subject: body.Sub, Email: body.Email, Name: body.Name}, nil
}
