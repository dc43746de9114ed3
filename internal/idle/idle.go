// Package idle tracks periods during which the user is away from the machine.
package idle

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/account"
)

// Reasons an idle session was opened.
const (
	ReasonManual = "manual"
	ReasonSleep  = "sleep"
)

var ErrNoUser = errors.New("idle sessions require a registered user")

// Session is one idle period. End is nil while the session is open.
type Session struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	Start           time.Time  `json:"start"`
	End             *time.Time `json:"end,omitempty"`
	DurationSeconds int64      `json:"duration_seconds"`
	Reason          string     `json:"reason"`
}

// Open reports whether the session has not been closed yet.
func (s Session) Open() bool {
	return s.End == nil
}

// Store persists idle sessions.
type Store interface {
	InsertIdleSession(s *Session) error
	CloseIdleSession(id int64, end time.Time, durationSeconds int64) error
	OpenIdleSession(userID int64) (*Session, error)
}

// Service enforces at most one open session per user.
type Service struct {
	mu    sync.Mutex
	store Store
	log   *slog.Logger
	now   func() time.Time
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, log: logger, now: time.Now}
}

// Start opens an idle session, or returns the one already open.
func (s *Service) Start(user *account.User, reason string) (*Session, error) {
	if !user.Valid() {
		return nil, ErrNoUser
	}
	if reason == "" {
		reason = ReasonManual
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	open, err := s.store.OpenIdleSession(user.ID)
	if err != nil {
		return nil, fmt.Errorf("find open idle session: %w", err)
	}
	if open != nil {
		s.log.Debug("idle session already open", "user", user.Name, "id", open.ID)
		return open, nil
	}

	sess := &Session{UserID: user.ID, Start: s.now(), Reason: reason}
	if err := s.store.InsertIdleSession(sess); err != nil {
		return nil, fmt.Errorf("insert idle session: %w", err)
	}
	s.log.Info("idle session started", "user", user.Name, "id", sess.ID, "reason", reason)
	return sess, nil
}

// End closes the open session. It returns nil, nil when none is open.
func (s *Service) End(user *account.User) (*Session, error) {
	if !user.Valid() {
		return nil, ErrNoUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	open, err := s.store.OpenIdleSession(user.ID)
	if err != nil {
		return nil, fmt.Errorf("find open idle session: %w", err)
	}
	if open == nil {
		return nil, nil
	}

	end := s.now()
	dur := int64(end.Sub(open.Start) / time.Second)
	if dur < 0 {
		dur = 0
	}
	if err := s.store.CloseIdleSession(open.ID, end, dur); err != nil {
		return nil, fmt.Errorf("close idle session: %w", err)
	}
	open.End = &end
	open.DurationSeconds = dur
	s.log.Info("idle session ended", "user", user.Name, "id", open.ID, "duration_secs", dur)
	return open, nil
}

// Active returns the open session, or nil.
func (s *Service) Active(user *account.User) (*Session, error) {
	if !user.Valid() {
		return nil, ErrNoUser
	}
	return s.store.OpenIdleSession(user.ID)
}
