// Package auth resolves bearer tokens to local accounts. Two schemes are
// supported: locally issued session tokens and external identity tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/demonically2004/ziota/internal/models"
	"github.com/demonically2004/ziota/pkg/metrics"
)

// Kind names a token scheme.
type Kind string

const (
	KindLocal    Kind = "local"
	KindExternal Kind = "external"
)

var (
	ErrMissingToken = errors.New("missing token")
	// ErrWrongScheme means the token is not in this scheme's format at all.
	ErrWrongScheme = errors.New("token is not of this scheme")
	// ErrInvalidToken means the scheme recognised the token but rejected it.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = fmt.Errorf("%w: expired", ErrInvalidToken)
	// ErrAccountNotFound means a token verified but no account carries its subject.
	ErrAccountNotFound = errors.New("no account for token")
)

// Claims is what a scheme learned from a verified token.
type Claims struct {
	Subject string
	Email   string
	Name    string
}

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Kind   Kind
	Claims Claims
}

// Scheme verifies one kind of token.
type Scheme interface {
	Kind() Kind
	Verify(ctx context.Context, raw string) (*Claims, error)
}

// AccountLookup is the read side of the user store the dispatcher needs.
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByFirebaseUID(ctx context.Context, uid string) (*models.User, error)
}

// Attempt records how one scheme handled a token.
type Attempt struct {
	Scheme Kind
	Err    error
}

// Error is returned when no scheme accepted the token.
type Error struct {
	Attempts []Attempt
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Scheme, a.Err))
	}
	return "authentication failed (" + strings.Join(parts, "; ") + ")"
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		out = append(out, a.Err)
	}
	return out
}

// Dispatcher tries each scheme in order until one verifies the token and the
// verified subject maps to an account.
type Dispatcher struct {
	schemes []Scheme
	lookup  AccountLookup
}

func NewDispatcher(lookup AccountLookup, schemes ...Scheme) *Dispatcher {
	return &Dispatcher{schemes: schemes, lookup: lookup}
}

// Schemes reports the configured schemes in the order they are tried.
func (d *Dispatcher) Schemes() []Kind {
	out := make([]Kind, 0, len(d.schemes))
	for _, s := range d.schemes {
		out = append(out, s.Kind())
	}
	return out
}

// Authenticate resolves raw to an Identity. Every failure is an *Error
// listing each scheme's attempt, except store failures which are returned as is.
func (d *Dispatcher) Authenticate(ctx context.Context, raw string) (*Identity, error) {
	if raw == "" {
		return nil, &Error{Attempts: []Attempt{{Err: ErrMissingToken}}}
	}
	var attempts []Attempt
	for _, s := range d.schemes {
		claims, err := s.Verify(ctx, raw)
		if err != nil {
			record(s.Kind(), err)
			attempts = append(attempts, Attempt{Scheme: s.Kind(), Err: err})
			continue
		}
		u, err := d.resolve(ctx, s.Kind(), claims)
		if err != nil {
			return nil, err
		}
		if u == nil {
			record(s.Kind(), ErrAccountNotFound)
			attempts = append(attempts, Attempt{Scheme: s.Kind(), Err: ErrAccountNotFound})
			continue
		}
		record(s.Kind(), nil)
		return &Identity{UserID: u.ID, Kind: s.Kind(), Claims: *claims}, nil
	}
	return nil, &Error{Attempts: attempts}
}

func (d *Dispatcher) resolve(ctx context.Context, kind Kind, c *Claims) (*models.User, error) {
	if kind == KindExternal {
		return d.lookup.GetByFirebaseUID(ctx, c.Subject)
	}
	return d.lookup.GetByID(ctx, c.Subject)
}

func record(kind Kind, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrWrongScheme):
		outcome = "wrong_scheme"
	case errors.Is(err, ErrTokenExpired):
		outcome = "expired"
	case errors.Is(err, ErrAccountNotFound):
		outcome = "no_account"
	default:
		outcome = "invalid"
	}
	metrics.AuthAttempts.WithLabelValues(string(kind), outcome).Inc()
}
