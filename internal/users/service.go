package users

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"gestor-energia/internal/auth"
	"gestor-energia/internal/billing/application"
	"gestor-energia/internal/observability/metrics"
)

// Mailer delivers account emails, such as temporary passwords.
type Mailer interface {
	Send(ctx context.Context, recipient, subject, content string) error
}

// Service handles account use cases: registration, login and
// administration.
type Service struct {
	repo              Repository
	secret            []byte
	tokenTTL          time.Duration
	primaryAdminEmail string
	mailer            Mailer
	logger            *log.Logger
}

// Option customizes the service.
type Option func(*Service)

// WithPasswordMailer enables the forgot-password flow through the given
// channel.
func WithPasswordMailer(mailer Mailer) Option {
	return func(s *Service) {
		s.mailer = mailer
	}
}

// NewService constructs the service.
func NewService(repo Repository, secret []byte, tokenTTL time.Duration, primaryAdminEmail string, logger *log.Logger, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, errors.New("users service: nil repository")
	}
	if len(secret) == 0 {
		return nil, errors.New("users service: empty secret")
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}

	s := &Service{
		repo:              repo,
		secret:            secret,
		tokenTTL:          tokenTTL,
		primaryAdminEmail: NormalizeEmail(primaryAdminEmail),
		logger:            logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a pending account. An administrator must activate it
// before it can sign in.
func (s *Service) Register(ctx context.Context, name, email, password string) (*User, error) {
	email = NormalizeEmail(email)
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         auth.RoleUser,
		Status:       StatusPending,
	}
	if err := s.repo.Create(ctx, &user); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Printf("users: registered %s pending approval", user.Email)
	}
	return &user, nil
}

// Authenticate verifies credentials and issues a token. Only active
// accounts may sign in.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, string, error) {
	user, token, err := s.authenticate(ctx, email, password)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.IncLogin(result)
	return user, token, err
}

func (s *Service) authenticate(ctx context.Context, email, password string) (*User, string, error) {
	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, "", err
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}
	if user.Status != StatusActive {
		return nil, "", ErrAccountNotActive
	}

	token, err := auth.SignJWT(user.ID, user.Name, user.Role, s.secret, s.tokenTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Identity resolves the caller scope for the billing use cases.
func (s *Service) Identity(ctx context.Context, userID string) (application.Identity, error) {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return application.Identity{}, err
	}
	if user == nil {
		return application.Identity{}, ErrNotFound
	}
	return application.Identity{
		UserID:            user.ID,
		Name:              user.Name,
		Role:              user.Role,
		Active:            user.Status == StatusActive,
		AccessibleUnitIDs: user.AccessibleUnitIDs,
	}, nil
}

// List returns every account.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// UpdateProfile changes the caller's own name and optionally password.
func (s *Service) UpdateProfile(ctx context.Context, userID, name, password string) (*User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if name != "" {
		user.Name = name
	}
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetStatus activates or deactivates an account. The primary admin always
// stays active.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) (*User, error) {
	if _, ok := NormalizeStatus(string(status)); !ok {
		return nil, errors.New("users: invalid status")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.isPrimaryAdmin(user) && status != StatusActive {
		return nil, ErrPrimaryAdmin
	}

	user.Status = status
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetRole changes an account's role. The primary admin keeps the admin
// role.
func (s *Service) SetRole(ctx context.Context, id string, role auth.Role) (*User, error) {
	if _, ok := auth.NormalizeRole(string(role)); !ok {
		return nil, errors.New("users: invalid role")
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.isPrimaryAdmin(user) && role != auth.RoleAdmin {
		return nil, ErrPrimaryAdmin
	}

	user.Role = role
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetAccessibleUnits replaces an account's unit allow-list. An empty list
// means the account sees every unit.
func (s *Service) SetAccessibleUnits(ctx context.Context, id string, unitIDs []string) (*User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	user.AccessibleUnitIDs = unitIDs
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ForgotPassword generates a temporary password for the account matching
// the email, mails it and stores its hash. The new password is persisted
// only after the mail goes out, so a delivery failure leaves the old
// credentials valid. An unknown email is not an error, so callers cannot
// probe which addresses are registered. Returns the affected account, nil
// when the email is unknown.
func (s *Service) ForgotPassword(ctx context.Context, email string) (*User, error) {
	if s.mailer == nil {
		return nil, ErrMailerNotConfigured
	}
	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil || user.Email == "" {
		return nil, nil
	}

	password, err := tempPassword()
	if err != nil {
		return nil, err
	}
	content := fmt.Sprintf(
		"Olá %s,\n\nUma nova senha temporária foi gerada para a sua conta: %s\n\nAltere-a após o próximo acesso.",
		user.Name, password,
	)
	if err := s.mailer.Send(ctx, user.Email, "Redefinição de Senha", content); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Printf("users: temporary password sent to %s", user.Email)
	}
	return user, nil
}

func tempPassword() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// ResetPassword sets a new password on an account.
func (s *Service) ResetPassword(ctx context.Context, id, password string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.repo.Update(ctx, user)
}

// Delete removes an account. The primary admin cannot be deleted.
func (s *Service) Delete(ctx context.Context, id string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.isPrimaryAdmin(user) {
		return ErrPrimaryAdmin
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) isPrimaryAdmin(user *User) bool {
	return s.primaryAdminEmail != "" && NormalizeEmail(user.Email) == s.primaryAdminEmail
}
