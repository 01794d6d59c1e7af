package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Shimizu-Technology/content-analyzer/internal/models"
)

// memoryUsers is an in-memory UserStore for tests.
type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]*models.User)}
}

func (m *memoryUsers) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = fmt.Sprintf("user-%d", len(m.users)+1)
	u.CreatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *memoryUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *memoryUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func signUp(t *testing.T, p *Local) string {
	t.Helper()
	_, token, err := p.SignUp(context.Background(), models.RegisterRequest{
		Email: " Ada@Example.com ", Password: "correct horse", Name: "Ada",
	})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	return token
}

func TestSignUpThenVerify(t *testing.T) {
	p := NewLocal(newMemoryUsers(), "secret")
	token := signUp(t, p)

	s, err := p.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !s.SignedIn || s.UserID != "user-1" || s.Email != "ada@example.com" {
		t.Errorf("Verify() = %+v", s)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	p := NewLocal(newMemoryUsers(), "secret")
	signUp(t, p)

	_, _, err := p.SignUp(context.Background(), models.RegisterRequest{
		Email: "ada@example.com", Password: "another one", Name: "Imposter",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("SignUp() error = %v, want ErrEmailTaken", err)
	}
}

func TestSignIn(t *testing.T) {
	p := NewLocal(newMemoryUsers(), "secret")
	signUp(t, p)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"correct", "ada@example.com", "correct horse", nil},
		{"case-insensitive email", "ADA@example.com", "correct horse", nil},
		{"wrong password", "ada@example.com", "battery staple", ErrInvalidCredentials},
		{"unknown email", "bob@example.com", "correct horse", ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, token, err := p.SignIn(context.Background(), tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SignIn() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && token == "" {
				t.Error("SignIn() returned empty token")
			}
		})
	}
}

func TestVerifyRejects(t *testing.T) {
	users := newMemoryUsers()
	p := NewLocal(users, "secret")
	token := signUp(t, p)

	other := NewLocal(users, "different-secret")
	expired := NewLocal(users, "secret")
	expired.now = func() time.Time { return time.Now().Add(SessionTTL + time.Hour) }

	tests := []struct {
		name  string
		p     *Local
		token string
	}{
		{"empty token", p, ""},
		{"garbage", p, "not.a.jwt"},
		{"wrong secret", other, token},
		{"expired", expired, token},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := tt.p.Verify(context.Background(), tt.token)
			if !errors.Is(err, ErrInvalidSession) {
				t.Errorf("Verify() error = %v, want ErrInvalidSession", err)
			}
			if s.SignedIn {
				t.Error("Verify() returned a signed-in session")
			}
		})
	}
}

func TestSignOutEndsSession(t *testing.T) {
	p := NewLocal(newMemoryUsers(), "secret")
	token := signUp(t, p)

	if err := p.SignOut(context.Background(), token); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if _, err := p.Verify(context.Background(), token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Verify() after SignOut error = %v, want ErrInvalidSession", err)
	}

	// A fresh sign-in still works.
	_, fresh, err := p.SignIn(context.Background(), "ada@example.com", "correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Verify(context.Background(), fresh); err != nil {
		t.Errorf("Verify(fresh) error = %v", err)
	}

	if err := p.SignOut(context.Background(), "garbage"); err != nil {
		t.Errorf("SignOut(garbage) error = %v, want nil", err)
	}
}
