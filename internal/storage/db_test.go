package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/account"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/collector"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/idle"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/report"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/scheduler"
)

var (
	_ scheduler.Sink = (*DB)(nil)
	_ report.Store   = (*DB)(nil)
	_ idle.Store     = (*DB)(nil)
	_ account.Store  = (*DB)(nil)
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	})

	return db
}

func createTestUser(t *testing.T, db *DB, name string) *account.User {
	t.Helper()

	u := &account.User{Name: name, PasswordHash: "hash", CreatedAt: time.Unix(1000, 0)}
	if err := db.CreateUser(u); err != nil {
		t.Fatalf("CreateUser(%q) error = %v", name, err)
	}
	return u
}

func TestUsers(t *testing.T) {
	db := openTestDB(t)

	u := createTestUser(t, db, "alice")
	if u.ID == 0 {
		t.Fatal("CreateUser() did not assign an ID")
	}

	got, err := db.UserByName("alice")
	if err != nil {
		t.Fatalf("UserByName() error = %v", err)
	}
	if got.ID != u.ID || got.PasswordHash != "hash" || got.CreatedAt.Unix() != 1000 {
		t.Fatalf("UserByName() = %#v", got)
	}

	if err := db.CreateUser(&account.User{Name: "alice", PasswordHash: "x"}); !errors.Is(err, account.ErrUserExists) {
		t.Fatalf("duplicate CreateUser() error = %v, want ErrUserExists", err)
	}
	if _, err := db.UserByName("bob"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("UserByName(bob) error = %v, want ErrNotFound", err)
	}
}

func TestAccountServiceOnDB(t *testing.T) {
	db := openTestDB(t)
	svc := account.NewService(db, account.WithCost(4))

	if _, err := svc.Register("carol", "secret1"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := svc.Register("carol", "secret2"); !errors.Is(err, account.ErrUserExists) {
		t.Fatalf("second Register() error = %v, want ErrUserExists", err)
	}
	if _, err := svc.Authenticate("carol", "secret1"); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
}

func TestSampleRoundTrip(t *testing.T) {
	db := openTestDB(t)
	u := createTestUser(t, db, "alice")
	other := createTestUser(t, db, "bob")

	latest, err := db.LatestSample(u.ID)
	if err != nil || latest != nil {
		t.Fatalf("LatestSample() on empty db = %#v, %v; want nil, nil", latest, err)
	}

	s1 := collector.MetricSample{CPUPercent: 12.5, RAMUsedMB: 2048, RAMTotalMB: 8192, DiskUsedGB: 40, DiskTotalGB: 100, DiskDetails: "/: 40.00 / 100.00 GB", ActiveWindow: "Terminal", KeyPresses: 3, MouseClicks: 2, MouseMoves: 9, IdleSeconds: 1, UptimeSeconds: 3600, OS: "Linux", RecordedAt: time.Unix(10, 0)}
	s2 := s1
	s2.CPUPercent = 50
	s2.RecordedAt = time.Unix(20, 0)
	for _, s := range []collector.MetricSample{s1, s2} {
		if err := db.SaveSample(u.ID, s); err != nil {
			t.Fatalf("SaveSample() error = %v", err)
		}
	}
	if err := db.SaveSample(other.ID, s1); err != nil {
		t.Fatalf("SaveSample(other) error = %v", err)
	}

	latest, err = db.LatestSample(u.ID)
	if err != nil {
		t.Fatalf("LatestSample() error = %v", err)
	}
	if latest == nil || latest.CPUPercent != 50 || latest.RecordedAt.Unix() != 20 {
		t.Fatalf("LatestSample() = %#v, want cpu=50 ts=20", latest)
	}

	ranged, err := db.SamplesInRange(u.ID, time.Unix(10, 0), time.Unix(15, 0))
	if err != nil {
		t.Fatalf("SamplesInRange() error = %v", err)
	}
	if len(ranged) != 1 {
		t.Fatalf("SamplesInRange() = %#v, want one row", ranged)
	}
	got := ranged[0]
	if got.DiskDetails != s1.DiskDetails || got.ActiveWindow != "Terminal" || got.MouseMoves != 9 || got.OS != "Linux" || got.UptimeSeconds != 3600 {
		t.Fatalf("SamplesInRange()[0] = %#v, want %#v", got, s1)
	}

	all, err := db.SamplesInRange(u.ID, time.Unix(0, 0), time.Unix(100, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("SamplesInRange(all) returned %d rows, want 2 for this user", len(all))
	}
}

func TestSaveSample_UnknownUser(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveSample(99, collector.MetricSample{RecordedAt: time.Unix(1, 0)}); err == nil {
		t.Fatal("SaveSample() for missing user error = nil, want foreign key error")
	}
}

func TestIdleSessions(t *testing.T) {
	db := openTestDB(t)
	u := createTestUser(t, db, "alice")

	open, err := db.OpenIdleSession(u.ID)
	if err != nil || open != nil {
		t.Fatalf("OpenIdleSession() = %#v, %v; want nil, nil", open, err)
	}

	s := &idle.Session{UserID: u.ID, Start: time.Unix(100, 0), Reason: idle.ReasonSleep}
	if err := db.InsertIdleSession(s); err != nil {
		t.Fatalf("InsertIdleSession() error = %v", err)
	}
	if s.ID == 0 {
		t.Fatal("InsertIdleSession() did not assign an ID")
	}

	open, err = db.OpenIdleSession(u.ID)
	if err != nil || open == nil || open.ID != s.ID || !open.Open() || open.Reason != idle.ReasonSleep {
		t.Fatalf("OpenIdleSession() = %#v, %v", open, err)
	}

	if err := db.CloseIdleSession(s.ID, time.Unix(130, 0), 30); err != nil {
		t.Fatalf("CloseIdleSession() error = %v", err)
	}
	if open, _ := db.OpenIdleSession(u.ID); open != nil {
		t.Fatalf("OpenIdleSession() after close = %#v, want nil", open)
	}

	sessions, err := db.IdleSessionsInRange(u.ID, time.Unix(0, 0), time.Unix(200, 0))
	if err != nil {
		t.Fatalf("IdleSessionsInRange() error = %v", err)
	}
	if len(sessions) != 1 || sessions[0].DurationSeconds != 30 || sessions[0].End == nil || sessions[0].End.Unix() != 130 {
		t.Fatalf("IdleSessionsInRange() = %#v", sessions)
	}
}

func TestIdleServiceOnDB(t *testing.T) {
	db := openTestDB(t)
	u := createTestUser(t, db, "alice")
	svc := idle.NewService(db, nil)

	first, err := svc.Start(u, "")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	again, err := svc.Start(u, idle.ReasonSleep)
	if err != nil || again.ID != first.ID {
		t.Fatalf("second Start() = %#v, %v; want the open session", again, err)
	}
	ended, err := svc.End(u)
	if err != nil || ended == nil || ended.Open() {
		t.Fatalf("End() = %#v, %v", ended, err)
	}
}

func TestReportsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	u := createTestUser(t, db, "alice")

	end := time.Unix(40, 0)
	for i, ts := range []int64{3600, 3660, 7200} {
		s := collector.MetricSample{CPUPercent: float64(10 * (i + 1)), RAMUsedMB: 1000, ActiveWindow: "Slack", UptimeSeconds: 3600, RecordedAt: time.Unix(ts, 0)}
		if err := db.SaveSample(u.ID, s); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.InsertIdleSession(&idle.Session{UserID: u.ID, Start: time.Unix(10, 0), End: &end, DurationSeconds: 30, Reason: idle.ReasonManual}); err != nil {
		t.Fatal(err)
	}

	gen := report.NewGenerator(db, report.WithLocation(time.UTC))
	rep, err := gen.Generate(u, "first", time.Unix(0, 0), time.Unix(0, 0))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if rep.IdleSecondsTotal != 30 || rep.CPUAvg != 20 || rep.HourCount() != 2 {
		t.Fatalf("Generate() = %#v", rep)
	}

	if err := db.SaveReport(rep); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}
	if rep.ID == 0 {
		t.Fatal("SaveReport() did not assign an ID")
	}

	loaded, err := db.ReportByID(rep.ID)
	if err != nil {
		t.Fatalf("ReportByID() error = %v", err)
	}
	if loaded.Name != "first" || loaded.AppUsagePercent["Slack"] != 100 || loaded.HourCount() != 2 || loaded.PeriodStart.Unix() != rep.PeriodStart.Unix() {
		t.Fatalf("ReportByID() = %#v", loaded)
	}
	if h, ok := loaded.HourAt(1); !ok || h.Hour != 2 || h.AvgCPU != 30 {
		t.Fatalf("loaded HourAt(1) = %+v, %v", h, ok)
	}

	second := *rep
	second.Name = "second"
	second.CreatedAt = rep.CreatedAt.Add(time.Hour)
	if err := db.SaveReport(&second); err != nil {
		t.Fatal(err)
	}
	list, err := db.ReportsByUser(u.ID)
	if err != nil {
		t.Fatalf("ReportsByUser() error = %v", err)
	}
	if len(list) != 2 || list[0].Name != "second" {
		t.Fatalf("ReportsByUser() = %#v, want newest first", list)
	}

	if err := db.DeleteReport(rep.ID); err != nil {
		t.Fatalf("DeleteReport() error = %v", err)
	}
	if err := db.DeleteReport(rep.ID); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("second DeleteReport() error = %v, want ErrReportNotFound", err)
	}
	if _, err := db.ReportByID(rep.ID); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("ReportByID() after delete error = %v, want ErrReportNotFound", err)
	}
}
