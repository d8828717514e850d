package users

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gestor-energia/internal/auth"
)

type memoryRepo struct {
	items map[string]*User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[string]*User{}}
}

func (m *memoryRepo) Get(_ context.Context, id string) (*User, error) {
	if user, ok := m.items[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, nil
}

func (m *memoryRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, user := range m.items {
		if user.Email == NormalizeEmail(email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memoryRepo) List(_ context.Context) ([]User, error) {
	var list []User
	for _, user := range m.items {
		list = append(list, *user)
	}
	return list, nil
}

func (m *memoryRepo) Create(_ context.Context, user *User) error {
	user.Email = NormalizeEmail(user.Email)
	copied := *user
	m.items[user.ID] = &copied
	return nil
}

func (m *memoryRepo) Update(_ context.Context, user *User) error {
	if _, ok := m.items[user.ID]; !ok {
		return ErrNotFound
	}
	copied := *user
	m.items[user.ID] = &copied
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	service, err := NewService(repo, []byte("test-secret"), time.Hour, "admin@example.com", nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service, repo
}

func TestRegisterStartsPending(t *testing.T) {
	service, _ := newTestService(t)

	user, err := service.Register(context.Background(), "Maria", "Maria@Example.com", "segredo1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Status != StatusPending || user.Role != auth.RoleUser {
		t.Fatalf("expected pending user role, got %+v", user)
	}
	if user.Email != "maria@example.com" {
		t.Fatalf("expected normalized email, got %s", user.Email)
	}

	if _, err := service.Register(context.Background(), "Other", "maria@example.com", "segredo1"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthenticateLifecycle(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	user, err := service.Register(ctx, "Maria", "maria@example.com", "segredo1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// Pending accounts cannot sign in.
	if _, _, err := service.Authenticate(ctx, "maria@example.com", "segredo1"); !errors.Is(err, ErrAccountNotActive) {
		t.Fatalf("expected ErrAccountNotActive, got %v", err)
	}

	if _, err := service.SetStatus(ctx, user.ID, StatusActive); err != nil {
		t.Fatalf("set status: %v", err)
	}

	logged, token, err := service.Authenticate(ctx, "maria@example.com", "segredo1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if token == "" || logged.ID != user.ID {
		t.Fatalf("expected token for %s", user.ID)
	}

	claims, err := auth.ParseJWT(token, []byte("test-secret"))
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != user.ID || claims.Role != "user" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, _, err := service.Authenticate(ctx, "maria@example.com", "errada"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestPrimaryAdminProtections(t *testing.T) {
	service, repo := newTestService(t)
	ctx := context.Background()

	hash, err := auth.HashPassword("segredo1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	admin := &User{
		ID: "admin-1", Name: "Admin", Email: "admin@example.com",
		PasswordHash: hash, Role: auth.RoleAdmin, Status: StatusActive,
	}
	if err := repo.Create(ctx, admin); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := service.SetStatus(ctx, "admin-1", StatusInactive); !errors.Is(err, ErrPrimaryAdmin) {
		t.Fatalf("expected ErrPrimaryAdmin, got %v", err)
	}
	if _, err := service.SetRole(ctx, "admin-1", auth.RoleUser); !errors.Is(err, ErrPrimaryAdmin) {
		t.Fatalf("expected ErrPrimaryAdmin, got %v", err)
	}
	if err := service.Delete(ctx, "admin-1"); !errors.Is(err, ErrPrimaryAdmin) {
		t.Fatalf("expected ErrPrimaryAdmin, got %v", err)
	}
}

func TestIdentityScope(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	user, err := service.Register(ctx, "Maria", "maria@example.com", "segredo1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := service.SetStatus(ctx, user.ID, StatusActive); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if _, err := service.SetAccessibleUnits(ctx, user.ID, []string{"unit-1", "unit-2"}); err != nil {
		t.Fatalf("set units: %v", err)
	}

	identity, err := service.Identity(ctx, user.ID)
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if !identity.Active || identity.Role != auth.RoleUser {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if len(identity.AccessibleUnitIDs) != 2 || !identity.CanAccessUnit("unit-1") || identity.CanAccessUnit("unit-9") {
		t.Fatalf("unexpected scope: %+v", identity)
	}
}

type recordingMailer struct {
	recipient string
	subject   string
	content   string
	fail      error
}

func (m *recordingMailer) Send(_ context.Context, recipient, subject, content string) error {
	if m.fail != nil {
		return m.fail
	}
	m.recipient = recipient
	m.subject = subject
	m.content = content
	return nil
}

// sentPassword pulls the temporary password out of the mail body.
func (m *recordingMailer) sentPassword(t *testing.T) string {
	t.Helper()
	_, after, ok := strings.Cut(m.content, "conta: ")
	if !ok {
		t.Fatalf("mail body has no password line: %q", m.content)
	}
	password, _, _ := strings.Cut(after, "\n")
	return strings.TrimSpace(password)
}

func TestForgotPasswordIssuesTemporaryPassword(t *testing.T) {
	repo := newMemoryRepo()
	mailer := &recordingMailer{}
	service, err := NewService(repo, []byte("test-secret"), time.Hour, "admin@example.com", nil, WithPasswordMailer(mailer))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()

	user, err := service.Register(ctx, "Maria", "maria@example.com", "segredo1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := service.SetStatus(ctx, user.ID, StatusActive); err != nil {
		t.Fatalf("set status: %v", err)
	}

	reset, err := service.ForgotPassword(ctx, "Maria@Example.com")
	if err != nil {
		t.Fatalf("forgot password: %v", err)
	}
	if reset == nil || reset.ID != user.ID {
		t.Fatalf("expected the registered account, got %+v", reset)
	}
	if mailer.recipient != "maria@example.com" || mailer.subject != "Redefinição de Senha" {
		t.Fatalf("unexpected mail: %s %s", mailer.recipient, mailer.subject)
	}

	// The old password stops working, the mailed one signs in.
	if _, _, err := service.Authenticate(ctx, "maria@example.com", "segredo1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password rejected, got %v", err)
	}
	if _, _, err := service.Authenticate(ctx, "maria@example.com", mailer.sentPassword(t)); err != nil {
		t.Fatalf("authenticate with temporary password: %v", err)
	}
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	repo := newMemoryRepo()
	mailer := &recordingMailer{}
	service, err := NewService(repo, []byte("test-secret"), time.Hour, "admin@example.com", nil, WithPasswordMailer(mailer))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	reset, err := service.ForgotPassword(context.Background(), "ninguem@example.com")
	if err != nil || reset != nil {
		t.Fatalf("expected silent no-op, got %+v %v", reset, err)
	}
	if mailer.recipient != "" {
		t.Fatalf("expected no mail, got %s", mailer.recipient)
	}
}

func TestForgotPasswordKeepsOldPasswordOnSendFailure(t *testing.T) {
	repo := newMemoryRepo()
	mailer := &recordingMailer{fail: errors.New("smtp down")}
	service, err := NewService(repo, []byte("test-secret"), time.Hour, "admin@example.com", nil, WithPasswordMailer(mailer))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()

	user, err := service.Register(ctx, "Maria", "maria@example.com", "segredo1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := service.SetStatus(ctx, user.ID, StatusActive); err != nil {
		t.Fatalf("set status: %v", err)
	}

	if _, err := service.ForgotPassword(ctx, "maria@example.com"); err == nil {
		t.Fatalf("expected send error")
	}
	if _, _, err := service.Authenticate(ctx, "maria@example.com", "segredo1"); err != nil {
		t.Fatalf("expected old password still valid, got %v", err)
	}
}

func TestForgotPasswordRequiresMailer(t *testing.T) {
	service, _ := newTestService(t)
	if _, err := service.ForgotPassword(context.Background(), "maria@example.com"); !errors.Is(err, ErrMailerNotConfigured) {
		t.Fatalf("expected ErrMailerNotConfigured, got %v", err)
	}
}
