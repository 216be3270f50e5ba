package users

import (
	"context"
	"errors"
	"strings"

	"github.com/demonically2004/ziota/internal/apperrors"
	"github.com/demonically2004/ziota/internal/models"
	"github.com/demonically2004/ziota/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service encapsulates account-related business logic
type Service struct {
	repo              UserRepository
	bcryptCost        int
	passwordOnlyLogin bool
}

type Option func(*Service)

// WithBcryptCost overrides the hashing cost (tests use bcrypt.MinCost).
func WithBcryptCost(cost int) Option { return func(s *Service) { s.bcryptCost = cost } }

// WithPasswordOnlyLogin toggles the login fallback that matches a bare password
// against every password account.
func WithPasswordOnlyLogin(enabled bool) Option {
	return func(s *Service) { s.passwordOnlyLogin = enabled }
}

func NewService(r UserRepository, opts ...Option) *Service {
	s := &Service{repo: r, bcryptCost: 10, passwordOnlyLogin: true}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Repository exposes the underlying store for the user-data service.
func (s *Service) Repository() UserRepository { return s.repo }

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type Credentials struct {
	Email    string
	Username string
	Password string
}

// ExternalProfile is what a verified external identity token says about its holder.
type ExternalProfile struct {
	UID   string
	Email string
	Name  string
}

// Register creates a password account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return nil, apperrors.Validation("Username, email, and password are required")
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Internal("Registration failed", err)
	}
	if existing != nil {
		return nil, apperrors.Validation("Email already exists")
	}
	existing, err = s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperrors.Internal("Registration failed", err)
	}
	if existing != nil {
		return nil, apperrors.Validation("Username already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, apperrors.Internal("Registration failed", err)
	}
	u := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		SubjectNotes: models.DefaultSubjectNotes(),
	}
	if err := u.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	created, err := s.repo.Create(ctx, u)
	if err != nil {
		return nil, duplicateOr(err, "Registration failed")
	}
	logger.Infof("registered user id=%s username=%s", created.ID, created.Username)
	return created, nil
}

// Authenticate checks a password against the account named by email or
// username. With neither given, it falls back to scanning password accounts
// when that mode is enabled.
func (s *Service) Authenticate(ctx context.Context, cr Credentials) (*models.User, error) {
	email := normalizeEmail(cr.Email)
	username := strings.TrimSpace(cr.Username)

	if email == "" && username == "" {
		if cr.Password == "" || !s.passwordOnlyLogin {
			return nil, apperrors.Validation("Email, username, or password required")
		}
		return s.authenticateByPasswordOnly(ctx, cr.Password)
	}

	var (
		u   *models.User
		err error
	)
	if email != "" {
		u, err = s.repo.GetByEmail(ctx, email)
	} else {
		u, err = s.repo.GetByUsername(ctx, username)
	}
	if err != nil {
		return nil, apperrors.Internal("Login failed", err)
	}
	if u == nil || !passwordMatches(u, cr.Password) {
		return nil, apperrors.Validation("Invalid credentials")
	}
	return u, nil
}

func (s *Service) authenticateByPasswordOnly(ctx context.Context, password string) (*models.User, error) {
	list, err := s.repo.ListWithPassword(ctx)
	if err != nil {
		return nil, apperrors.Internal("Login failed", err)
	}
	for _, u := range list {
		if passwordMatches(u, password) {
			return u, nil
		}
	}
	return nil, apperrors.Validation("Invalid password")
}

// UpsertExternal resolves a verified external identity to an account: by
// external id first, then by email (linking the identity), else a new account.
func (s *Service) UpsertExternal(ctx context.Context, p ExternalProfile) (*models.User, error) {
	if p.UID == "" {
		return nil, apperrors.Validation("identity token has no subject")
	}
	u, err := s.repo.GetByFirebaseUID(ctx, p.UID)
	if err != nil {
		return nil, apperrors.Internal("User lookup failed", err)
	}
	if u != nil {
		return u, nil
	}
	email := normalizeEmail(p.Email)
	if email == "" {
		return nil, apperrors.Validation("identity token has no email")
	}

	u, err = s.linkByEmail(ctx, email, p)
	if err != nil || u != nil {
		return u, err
	}

	username, err := s.availableUsername(ctx, email)
	if err != nil {
		return nil, err
	}
	nu := &models.User{
		FirebaseUID:  p.UID,
		Email:        email,
		Name:         displayName(p.Name, ""),
		Username:     username,
		SubjectNotes: models.DefaultSubjectNotes(),
	}
	created, err := s.repo.Create(ctx, nu)
	if err == nil {
		logger.Infof("created user id=%s from external identity", created.ID)
		return created, nil
	}
	if !errors.Is(err, ErrDuplicate) {
		return nil, apperrors.Internal("User creation failed", err)
	}
	// created concurrently by another request; link whatever is there now
	u, lerr := s.linkByEmail(ctx, email, p)
	if lerr != nil {
		return nil, lerr
	}
	if u == nil {
		return nil, duplicateOr(err, "User creation failed")
	}
	return u, nil
}

func (s *Service) linkByEmail(ctx context.Context, email string, p ExternalProfile) (*models.User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Internal("User lookup failed", err)
	}
	if u == nil {
		return nil, nil
	}
	if u.FirebaseUID == p.UID {
		return u, nil
	}
	u.FirebaseUID = p.UID
	u.Name = displayName(p.Name, u.Name)
	if err := s.repo.Save(ctx, u); err != nil {
		return nil, duplicateOr(err, "User update failed")
	}
	logger.Infof("linked external identity to user id=%s", u.ID)
	return u, nil
}

func (s *Service) availableUsername(ctx context.Context, email string) (string, error) {
	base := strings.SplitN(email, "@", 2)[0]
	if base == "" {
		base = "user"
	}
	taken, err := s.repo.GetByUsername(ctx, base)
	if err != nil {
		return "", apperrors.Internal("User creation failed", err)
	}
	if taken == nil {
		return base, nil
	}
	return base + "-" + uuid.NewString()[:8], nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByFirebaseUID(ctx context.Context, uid string) (*models.User, error) {
	return s.repo.GetByFirebaseUID(ctx, uid)
}

func passwordMatches(u *models.User, password string) bool {
	if u.PasswordHash == "" || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func displayName(fromToken, current string) string {
	switch {
	case fromToken != "":
		return fromToken
	case current != "":
		return current
	}
	return "No Name"
}

func duplicateOr(err error, msg string) error {
	var dup *DuplicateKeyError
	if errors.As(err, &dup) {
		switch dup.Field {
		case "email":
			return apperrors.Validation("Email already exists")
		case "username":
			return apperrors.Validation("Username already exists")
		}
		return apperrors.Validation("User already exists")
	}
	return apperrors.Internal(msg, err)
}
