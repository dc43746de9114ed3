// Package account manages the local users that samples, idle sessions and
// reports belong to.
package account

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidName        = errors.New("user name must be between 3 and 64 characters")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
)

const (
	minNameLen     = 3
	maxNameLen     = 64
	minPasswordLen = 6
)

// User is a registered account. A nil *User means guest mode everywhere it is
// accepted.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Valid reports whether u refers to a persisted account.
func (u *User) Valid() bool {
	return u != nil && u.ID > 0
}

// Store persists users. CreateUser assigns u.ID and returns ErrUserExists for
// a duplicate name; UserByName returns ErrNotFound.
type Store interface {
	CreateUser(u *User) error
	UserByName(name string) (*User, error)
}

type Service struct {
	store Store
	cost  int
}

type Option func(*Service)

// WithCost overrides the bcrypt cost.
func WithCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, cost: bcrypt.DefaultCost}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register creates a user with a bcrypt-hashed password.
func (s *Service) Register(name, password string) (*User, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < minNameLen || n > maxNameLen {
		return nil, ErrInvalidName
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}

	if _, err := s.store.UserByName(name); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{Name: name, PasswordHash: string(hash), CreatedAt: time.Now()}
	if err := s.store.CreateUser(u); err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Authenticate returns the user when the password matches. Unknown names and
// wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Authenticate(name, password string) (*User, error) {
	u, err := s.store.UserByName(strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Lookup finds a user by name without checking a password.
func (s *Service) Lookup(name string) (*User, error) {
	return s.store.UserByName(strings.TrimSpace(name))
}
