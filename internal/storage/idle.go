package storage

import (
	"database/sql"
	"time"

	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/idle"
)

// InsertIdleSession inserts s and sets its ID.
func (d *DB) InsertIdleSession(s *idle.Session) error {
	res, err := d.db.Exec(
		"INSERT INTO idle_sessions (user_id, start_time, end_time, duration_secs, reason) VALUES (?, ?, ?, ?, ?)",
		s.UserID, s.Start.Unix(), unixOrNull(s.End), s.DurationSeconds, s.Reason,
	)
	if err != nil {
		return err
	}
	s.ID, err = res.LastInsertId()
	return err
}

// CloseIdleSession records the end of an open session.
func (d *DB) CloseIdleSession(id int64, end time.Time, durationSeconds int64) error {
	_, err := d.db.Exec(
		"UPDATE idle_sessions SET end_time = ?, duration_secs = ? WHERE id = ? AND end_time IS NULL",
		end.Unix(), durationSeconds, id,
	)
	return err
}

// OpenIdleSession returns the user's open session, or nil if none is open.
func (d *DB) OpenIdleSession(userID int64) (*idle.Session, error) {
	row := d.db.QueryRow(
		"SELECT id, user_id, start_time, end_time, duration_secs, reason FROM idle_sessions WHERE user_id = ? AND end_time IS NULL ORDER BY start_time DESC LIMIT 1",
		userID,
	)
	s, err := scanIdleSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// IdleSessionsInRange returns the user's sessions that started within
// [from, to], oldest first. Open sessions are included.
func (d *DB) IdleSessionsInRange(userID int64, from, to time.Time) ([]idle.Session, error) {
	rows, err := d.db.Query(
		"SELECT id, user_id, start_time, end_time, duration_secs, reason FROM idle_sessions WHERE user_id = ? AND start_time >= ? AND start_time <= ? ORDER BY start_time, id",
		userID, from.Unix(), to.Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []idle.Session
	for rows.Next() {
		s, err := scanIdleSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func scanIdleSession(r scanner) (idle.Session, error) {
	var s idle.Session
	var start int64
	var end sql.NullInt64
	if err := r.Scan(&s.ID, &s.UserID, &start, &end, &s.DurationSeconds, &s.Reason); err != nil {
		return idle.Session{}, err
	}
	s.Start = time.Unix(start, 0)
	if end.Valid {
		t := time.Unix(end.Int64, 0)
		s.End = &t
	}
	return s, nil
}
