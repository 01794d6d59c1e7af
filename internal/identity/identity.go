// Package identity is the identity provider the app delegates sign-in,
// sign-up and sign-out to. The app shell only ever asks it one question:
// who, if anyone, does this token belong to.
//
// Local is a self-hosted provider (bcrypt passwords, HS256 JWT sessions).
// Any other provider can be plugged in by implementing Provider.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Shimizu-Technology/content-analyzer/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidSession     = errors.New("invalid or expired session")
)

// SessionTTL is how long an issued session token stays valid.
const SessionTTL = 72 * time.Hour

// Provider issues and checks sessions.
type Provider interface {
	SignUp(ctx context.Context, req models.RegisterRequest) (*models.User, string, error)
	SignIn(ctx context.Context, email, password string) (*models.User, string, error)
	Verify(ctx context.Context, token string) (models.Session, error)
	SignOut(ctx context.Context, token string) error
}

// UserStore is the account storage Local needs. *database.DB satisfies it.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Claims extends standard JWT claims with user info.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// Local is the built-in provider.
type Local struct {
	users  UserStore
	secret []byte
	now    func() time.Time

	// Signed-out token ids, kept until the token would have expired anyway.
	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewLocal creates a Local provider signing tokens with secret.
func NewLocal(users UserStore, secret string) *Local {
	return &Local{
		users:   users,
		secret:  []byte(secret),
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

// SignUp creates an account and opens a session for it.
func (l *Local) SignUp(ctx context.Context, req models.RegisterRequest) (*models.User, string, error) {
	email := normalizeEmail(req.Email)

	if existing, _ := l.users.GetUserByEmail(ctx, email); existing != nil {
		return nil, "", ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(req.Name),
	}
	if err := l.users.CreateUser(ctx, user); err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := l.issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// SignIn checks credentials and opens a session.
func (l *Local) SignIn(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := l.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil || user == nil {
		return nil, "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := l.issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Verify turns a token into a signed-in session. Any failure yields
// ErrInvalidSession and a signed-out session.
func (l *Local) Verify(ctx context.Context, token string) (models.Session, error) {
	claims, err := l.parse(token)
	if err != nil {
		return models.SignedOut, ErrInvalidSession
	}

	if l.isRevoked(claims.ID) {
		return models.SignedOut, ErrInvalidSession
	}

	// The account must still exist.
	user, err := l.users.GetUserByID(ctx, claims.UserID)
	if err != nil || user == nil {
		return models.SignedOut, ErrInvalidSession
	}

	return models.Session{
		SignedIn: true,
		UserID:   user.ID,
		Email:    user.Email,
		Name:     user.Name,
	}, nil
}

// SignOut ends the session the token belongs to. Signing out an invalid or
// already-ended session is not an error.
func (l *Local) SignOut(_ context.Context, token string) error {
	claims, err := l.parse(token)
	if err != nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, exp := range l.revoked {
		if now.After(exp) {
			delete(l.revoked, id)
		}
	}
	if claims.ExpiresAt != nil {
		l.revoked[claims.ID] = claims.ExpiresAt.Time
	}
	return nil
}

func (l *Local) issue(user *models.User) (string, error) {
	now := l.now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   user.ID,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

func (l *Local) parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidSession
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return l.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(l.now),
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}

func (l *Local) isRevoked(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.revoked[id]
	return ok
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
