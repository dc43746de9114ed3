package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/account"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS metric_samples (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	timestamp INTEGER NOT NULL,
	cpu_percent REAL NOT NULL,
	ram_used_mb REAL NOT NULL,
	ram_total_mb REAL NOT NULL,
	disk_used_gb REAL NOT NULL,
	disk_total_gb REAL NOT NULL,
	disk_details TEXT NOT NULL,
	active_window TEXT NOT NULL,
	key_presses INTEGER NOT NULL,
	mouse_clicks INTEGER NOT NULL,
	mouse_moves INTEGER NOT NULL,
	idle_seconds INTEGER NOT NULL,
	uptime_seconds INTEGER NOT NULL,
	os TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_samples_user_ts ON metric_samples(user_id, timestamp);

CREATE TABLE IF NOT EXISTS idle_sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	start_time INTEGER NOT NULL,
	end_time INTEGER,
	duration_secs INTEGER NOT NULL DEFAULT 0,
	reason TEXT NOT NULL DEFAULT 'manual'
);
CREATE INDEX IF NOT EXISTS idx_idle_user_start ON idle_sessions(user_id, start_time);

CREATE TABLE IF NOT EXISTS reports (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	period_start INTEGER NOT NULL,
	period_end INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	cpu_avg REAL NOT NULL,
	ram_avg REAL NOT NULL,
	idle_seconds_total REAL NOT NULL,
	avg_uptime_hours REAL NOT NULL,
	app_usage TEXT NOT NULL,
	days TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_user ON reports(user_id, created_at);
`

// ErrReportNotFound is returned when a report id does not exist.
var ErrReportNotFound = errors.New("report not found")

// DB wraps a SQLite database for activity monitor data.
type DB struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at the given path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// CreateUser inserts u and sets its ID.
func (d *DB) CreateUser(u *account.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	res, err := d.db.Exec(
		"INSERT INTO users (name, password_hash, created_at) VALUES (?, ?, ?)",
		u.Name, u.PasswordHash, u.CreatedAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return account.ErrUserExists
		}
		return err
	}
	u.ID, err = res.LastInsertId()
	return err
}

// UserByName returns the user with the given name or account.ErrNotFound.
func (d *DB) UserByName(name string) (*account.User, error) {
	row := d.db.QueryRow("SELECT id, name, password_hash, created_at FROM users WHERE name = ?", name)
	var u account.User
	var created int64
	err := row.Scan(&u.ID, &u.Name, &u.PasswordHash, &created)
	if err == sql.ErrNoRows {
		return nil, account.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(created, 0)
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

// unixOrNull maps a nil time to SQL NULL.
func unixOrNull(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}
