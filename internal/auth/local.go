package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/demonically2004/ziota/internal/config"
	"github.com/demonically2004/ziota/internal/tokens"
	"github.com/golang-jwt/jwt/v5"
)

// LocalScheme accepts HS256 session tokens issued by this server.
type LocalScheme struct {
	cfg *config.Config
}

func NewLocalScheme(cfg *config.Config) *LocalScheme { return &LocalScheme{cfg: cfg} }

func (s *LocalScheme) Kind() Kind { return KindLocal }

func (s *LocalScheme) Verify(ctx context.Context, raw string) (*Claims, error) {
	alg, err := headerAlg(raw)
	if err != nil {
		return nil, err
	}
	if alg != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("%w: alg %q", ErrWrongScheme, alg)
	}
	c, err := tokens.ParseAccessToken(s.cfg, raw)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return &Claims{Subject: c.UserID}, nil
}
