package storage

import (
	"database/sql"
	"time"

	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/collector"
)

const sampleColumns = "timestamp, cpu_percent, ram_used_mb, ram_total_mb, disk_used_gb, disk_total_gb, disk_details, active_window, key_presses, mouse_clicks, mouse_moves, idle_seconds, uptime_seconds, os"

// SaveSample inserts a metric sample for the given user.
func (d *DB) SaveSample(userID int64, s collector.MetricSample) error {
	ts := s.RecordedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := d.db.Exec(
		"INSERT INTO metric_samples (user_id, "+sampleColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		userID, ts.Unix(), s.CPUPercent, s.RAMUsedMB, s.RAMTotalMB, s.DiskUsedGB, s.DiskTotalGB,
		s.DiskDetails, s.ActiveWindow, s.KeyPresses, s.MouseClicks, s.MouseMoves, s.IdleSeconds,
		s.UptimeSeconds, s.OS,
	)
	return err
}

// LatestSample returns the user's most recent sample, or nil if there is none.
func (d *DB) LatestSample(userID int64) (*collector.MetricSample, error) {
	row := d.db.QueryRow("SELECT "+sampleColumns+" FROM metric_samples WHERE user_id = ? ORDER BY timestamp DESC, id DESC LIMIT 1", userID)
	s, err := scanSample(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SamplesInRange returns the user's samples with from <= timestamp <= to,
// oldest first.
func (d *DB) SamplesInRange(userID int64, from, to time.Time) ([]collector.MetricSample, error) {
	rows, err := d.db.Query(
		"SELECT "+sampleColumns+" FROM metric_samples WHERE user_id = ? AND timestamp >= ? AND timestamp <= ? ORDER BY timestamp, id",
		userID, from.Unix(), to.Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var samples []collector.MetricSample
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSample(r scanner) (collector.MetricSample, error) {
	var s collector.MetricSample
	var ts int64
	err := r.Scan(&ts, &s.CPUPercent, &s.RAMUsedMB, &s.RAMTotalMB, &s.DiskUsedGB, &s.DiskTotalGB,
		&s.DiskDetails, &s.ActiveWindow, &s.KeyPresses, &s.MouseClicks, &s.MouseMoves, &s.IdleSeconds,
		&s.UptimeSeconds, &s.OS)
	if err != nil {
		return collector.MetricSample{}, err
	}
	s.RecordedAt = time.Unix(ts, 0)
	return s, nil
}
