package service

import (
	"context"
	"digimart/internal/auth"
	"digimart/internal/domain"
	"digimart/internal/repo"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Credentials struct {
	Email    string
	Password string
}

// IdentityAssertion is what the external identity provider vouches for.
type IdentityAssertion struct {
	Subject string
	Name    string
	Email   string
}

type AuthResult struct {
	User    *domain.User
	Session *auth.Session
}

type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*AuthResult, error)
	Authenticate(ctx context.Context, c Credentials) (*AuthResult, error)
	AuthenticateIdentity(ctx context.Context, a IdentityAssertion) (*AuthResult, error)
	// ActorFromToken validates a session token and reloads the caller's role.
	ActorFromToken(ctx context.Context, token string) (domain.Actor, error)
	EnsureAdmin(ctx context.Context, name, email, password string) (*domain.User, error)
	Me(ctx context.Context, actor domain.Actor) (*domain.User, error)
	ListUsers(ctx context.Context, actor domain.Actor) ([]domain.User, error)
}

type authService struct {
	users  repo.UserRepo
	hasher *auth.PasswordHasher
	tokens *auth.TokenManager
	logger *zap.Logger
	now    func() time.Time
}

func NewAuthService(users repo.UserRepo, hasher *auth.PasswordHasher, tokens *auth.TokenManager, logger *zap.Logger) AuthService {
	return &authService{users: users, hasher: hasher, tokens: tokens, logger: logger, now: time.Now}
}

func (s *authService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	u, err := domain.NewUser(name, email, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if u.PasswordHash, err = s.hash(password); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("%w: email already registered", domain.ErrConflict)
		}
		return nil, err
	}
	s.logger.Info("user registered", zap.Stringer("user_id", u.ID))
	return s.session(u)
}

func (s *authService) Authenticate(ctx context.Context, c Credentials) (*AuthResult, error) {
	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(c.Email)))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrAuthFailed
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(c.Password, u.PasswordHash) {
		s.logger.Debug("password login rejected", zap.Stringer("user_id", u.ID))
		return nil, domain.ErrAuthFailed
	}
	return s.session(u)
}

func (s *authService) AuthenticateIdentity(ctx context.Context, a IdentityAssertion) (*AuthResult, error) {
	subject := strings.TrimSpace(a.Subject)
	if subject == "" {
		return nil, domain.Invalid("subject", "is required")
	}

	u, err := s.users.FindByIdentitySubject(ctx, subject)
	if errors.Is(err, domain.ErrNotFound) {
		u, err = s.linkOrProvision(ctx, subject, a)
	}
	if err != nil {
		return nil, err
	}
	// administrators must sign in with their password
	if u.Role == domain.RoleAdmin {
		return nil, fmt.Errorf("%w: identity login is not available for this account", domain.ErrAuthFailed)
	}
	return s.session(u)
}

func (s *authService) linkOrProvision(ctx context.Context, subject string, a IdentityAssertion) (*domain.User, error) {
	fresh, err := domain.NewUser(a.Name, a.Email, s.now().UTC())
	if err != nil {
		return nil, err
	}
	existing, err := s.users.FindByEmail(ctx, fresh.Email)
	switch {
	case err == nil:
		if existing.Role == domain.RoleAdmin {
			return existing, nil
		}
		if existing.IdentitySubject != "" {
			return nil, fmt.Errorf("%w: account is linked to another identity", domain.ErrAuthFailed)
		}
		if err := s.users.LinkIdentity(ctx, existing.ID, subject); err != nil {
			return nil, err
		}
		existing.IdentitySubject = subject
		s.logger.Info("identity linked", zap.Stringer("user_id", existing.ID))
		return existing, nil
	case errors.Is(err, domain.ErrNotFound):
		fresh.IdentitySubject = subject
		if err := s.users.Create(ctx, fresh); err != nil {
			return nil, err
		}
		s.logger.Info("user provisioned from identity", zap.Stringer("user_id", fresh.ID))
		return fresh, nil
	default:
		return nil, err
	}
}

func (s *authService) ActorFromToken(ctx context.Context, token string) (domain.Actor, error) {
	id, err := s.tokens.Validate(token)
	if err != nil {
		return domain.Anonymous, fmt.Errorf("%w: %v", domain.ErrAuthFailed, err)
	}
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Anonymous, fmt.Errorf("%w: account no longer exists", domain.ErrAuthFailed)
	}
	if err != nil {
		return domain.Anonymous, err
	}
	return domain.ActorFor(*u), nil
}

// EnsureAdmin creates the administrator account on first start. An existing
// admin with the same email is left untouched.
func (s *authService) EnsureAdmin(ctx context.Context, name, email, password string) (*domain.User, error) {
	u, err := domain.NewUser(name, email, s.now().UTC())
	if err != nil {
		return nil, err
	}
	existing, err := s.users.FindByEmail(ctx, u.Email)
	if err == nil {
		if existing.Role != domain.RoleAdmin {
			return nil, fmt.Errorf("%w: %s belongs to a customer account", domain.ErrConflict, u.Email)
		}
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	u.Role = domain.RoleAdmin
	if u.PasswordHash, err = s.hash(password); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("admin account created", zap.Stringer("user_id", u.ID), zap.String("email", u.Email))
	return u, nil
}

func (s *authService) Me(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	if !actor.IsAuthenticated() {
		return nil, domain.ErrAuthFailed
	}
	return s.users.FindByID(ctx, actor.UserID)
}

func (s *authService) ListUsers(ctx context.Context, actor domain.Actor) ([]domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

func (s *authService) hash(password string) (string, error) {
	h, err := s.hasher.Hash(password)
	if errors.Is(err, auth.ErrWeakPassword) || errors.Is(err, auth.ErrPasswordTooLong) {
		return "", domain.Invalid("password", strings.TrimPrefix(err.Error(), "password "))
	}
	return h, err
}

func (s *authService) session(u *domain.User) (*AuthResult, error) {
	sess, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	return &AuthResult{User: u, Session: sess}, nil
}
