package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/report"
)

const reportColumns = "id, user_id, name, period_start, period_end, created_at, cpu_avg, ram_avg, idle_seconds_total, avg_uptime_hours, app_usage, days"

// SaveReport persists r and sets its ID. Day buckets and application usage
// are stored as JSON.
func (d *DB) SaveReport(r *report.Report) error {
	apps, err := json.Marshal(r.AppUsagePercent)
	if err != nil {
		return fmt.Errorf("encode app usage: %w", err)
	}
	days, err := json.Marshal(r.Days)
	if err != nil {
		return fmt.Errorf("encode days: %w", err)
	}
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := d.db.Exec(
		"INSERT INTO reports (user_id, name, period_start, period_end, created_at, cpu_avg, ram_avg, idle_seconds_total, avg_uptime_hours, app_usage, days) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		r.UserID, r.Name, r.PeriodStart.Unix(), r.PeriodEnd.Unix(), created.Unix(),
		r.CPUAvg, r.RAMAvg, r.IdleSecondsTotal, r.AvgUptimeHoursPerDay, string(apps), string(days),
	)
	if err != nil {
		return err
	}
	r.ID, err = res.LastInsertId()
	return err
}

// ReportByID returns the stored report or ErrReportNotFound.
func (d *DB) ReportByID(id int64) (*report.Report, error) {
	rep, err := scanReport(d.db.QueryRow("SELECT "+reportColumns+" FROM reports WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, ErrReportNotFound
	}
	return rep, err
}

// ReportsByUser returns the user's reports, newest first.
func (d *DB) ReportsByUser(userID int64) ([]report.Report, error) {
	rows, err := d.db.Query("SELECT "+reportColumns+" FROM reports WHERE user_id = ? ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []report.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// DeleteReport removes a report, returning ErrReportNotFound if it does not exist.
func (d *DB) DeleteReport(id int64) error {
	res, err := d.db.Exec("DELETE FROM reports WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrReportNotFound
	}
	return nil
}

func scanReport(r scanner) (*report.Report, error) {
	var rep report.Report
	var start, end, created int64
	var apps, days string
	err := r.Scan(&rep.ID, &rep.UserID, &rep.Name, &start, &end, &created,
		&rep.CPUAvg, &rep.RAMAvg, &rep.IdleSecondsTotal, &rep.AvgUptimeHoursPerDay, &apps, &days)
	if err != nil {
		return nil, err
	}
	rep.PeriodStart = time.Unix(start, 0)
	rep.PeriodEnd = time.Unix(end, 0)
	rep.CreatedAt = time.Unix(created, 0)
	if err := json.Unmarshal([]byte(apps), &rep.AppUsagePercent); err != nil {
		return nil, fmt.Errorf("decode app usage of report %d: %w", rep.ID, err)
	}
	if err := json.Unmarshal([]byte(days), &rep.Days); err != nil {
		return nil, fmt.Errorf("decode days of report %d: %w", rep.ID, err)
	}
	return &rep, nil
}
