// Package auth provides email/password accounts and cookie sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid input")
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store persists users, sessions and the owner of each conversation. Lookups of unknown
// keys report found == false.
type Store interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (*User, bool, error)
	GetUserByEmail(ctx context.Context, email string) (*User, bool, error)
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, token string) (*Session, bool, error)
	DeleteSession(ctx context.Context, token string) error

	SetConversationOwner(ctx context.Context, conversationID, userID string) error
	ConversationOwner(ctx context.Context, conversationID string) (string, bool, error)
	OwnedConversations(ctx context.Context, userID string) ([]string, error)
}

type signUpInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

var validate = validator.New()

type Service struct {
	store  Store
	ttl    time.Duration
	cost   int
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Service)

// WithBcryptCost lowers the hashing cost, for tests.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, ttl time.Duration, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) SignUp(ctx context.Context, email, password, name string) (*User, error) {
	email = normalizeEmail(email)
	if err := validate.Struct(signUpInput{Email: email, Password: password}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if _, found, err := s.store.GetUserByEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	} else if found {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user signed up", zap.String("userID", user.ID))
	return &user, nil
}

// SignIn checks the credentials and opens a new session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, *User, error) {
	user, found, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !found {
		return nil, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	session := Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.ttl).UTC(),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &session, user, nil
}

func (s *Service) SignOut(ctx context.Context, token string) error {
	if err := s.store.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Authenticate resolves a session token. Expired sessions are deleted and reported as
// not found.
func (s *Service) Authenticate(ctx context.Context, token string) (*Session, *User, bool, error) {
	if token == "" {
		return nil, nil, false, nil
	}

	session, found, err := s.store.GetSession(ctx, token)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to look up session: %w", err)
	}
	if !found {
		return nil, nil, false, nil
	}

	if !s.now().Before(session.ExpiresAt) {
		if err := s.store.DeleteSession(ctx, token); err != nil {
			s.logger.Warn("failed to delete expired session", zap.Error(err))
		}
		return nil, nil, false, nil
	}

	user, found, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to look up user: %w", err)
	}
	if !found {
		return nil, nil, false, nil
	}
	return session, user, true, nil
}
