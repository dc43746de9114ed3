package dbus

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	godbus "github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/account"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/config"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/idle"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/logging"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/report"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/scheduler"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/storage"
)

const (
	BusName   = "org.gnome.ActivityMonitor"
	ObjPath   = "/org/gnome/ActivityMonitor"
	IfaceName = "org.gnome.ActivityMonitor"
)

const (
	errGuestMode    = IfaceName + ".Error.GuestMode"
	errInvalidRange = IfaceName + ".Error.InvalidRange"
)

// maxRangeSecs bounds the span of report queries.
const maxRangeSecs = 366 * 86400

const introspectXML = `
<node>
  <interface name="` + IfaceName + `">
    <method name="GetCurrentSample">
      <arg direction="out" type="s" name="json"/>
    </method>
    <method name="GetLatestSample">
      <arg direction="out" type="s" name="json"/>
    </method>
    <method name="SaveNow">
      <arg direction="out" type="s" name="json"/>
    </method>
    <method name="GetReport">
      <arg direction="in" type="x" name="from_epoch"/>
      <arg direction="in" type="x" name="to_epoch"/>
      <arg direction="out" type="s" name="json"/>
    </method>
    <method name="GetHourlyReport">
      <arg direction="in" type="x" name="from_epoch"/>
      <arg direction="in" type="x" name="to_epoch"/>
      <arg direction="out" type="s" name="text"/>
    </method>
    <method name="StartIdle">
      <arg direction="out" type="s" name="json"/>
    </method>
    <method name="EndIdle">
      <arg direction="out" type="s" name="json"/>
    </method>
    <method name="StartMonitoring"/>
    <method name="StopMonitoring"/>
    <method name="IsMonitoring">
      <arg direction="out" type="b" name="running"/>
    </method>
    <method name="GetConfig">
      <arg direction="out" type="s" name="json"/>
    </method>
  </interface>
` + introspect.IntrospectDataString + `
</node>`

// Service exposes the activity monitor over D-Bus.
type Service struct {
	sched *scheduler.Scheduler
	store *storage.DB
	gen   *report.Generator
	idle  *idle.Service
	cfg   *config.Config
	user  *account.User
	log   *slog.Logger
}

// NewService creates a new D-Bus service. user may be nil, in which case
// monitoring runs in guest mode and per-user methods fail.
func NewService(sched *scheduler.Scheduler, store *storage.DB, gen *report.Generator, idleSvc *idle.Service, cfg *config.Config, user *account.User, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		sched: sched,
		store: store,
		gen:   gen,
		idle:  idleSvc,
		cfg:   cfg,
		user:  user,
		log:   logger.With("topic", logging.TopicDBus),
	}
}

// Export registers the service on the session bus.
func (s *Service) Export() (*godbus.Conn, error) {
	conn, err := godbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}

	if err := conn.Export(s, ObjPath, IfaceName); err != nil {
		return nil, fmt.Errorf("export service: %w", err)
	}
	if err := conn.Export(introspect.Introspectable(introspectXML), ObjPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return nil, fmt.Errorf("export introspection: %w", err)
	}

	reply, err := conn.RequestName(BusName, godbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("request name: %w", err)
	}
	if reply != godbus.RequestNameReplyPrimaryOwner {
		return nil, fmt.Errorf("name %s already taken", BusName)
	}

	return conn, nil
}

// GetCurrentSample collects a fresh sample without persisting it.
func (s *Service) GetCurrentSample() (string, *godbus.Error) {
	s.log.Debug("GetCurrentSample")
	return marshal(s.sched.CollectNow())
}

// GetLatestSample returns the last collected sample, falling back to the
// newest stored one. It returns "null" when neither exists.
func (s *Service) GetLatestSample() (string, *godbus.Error) {
	if sample, ok := s.sched.Latest(); ok {
		return marshal(sample)
	}
	if !s.user.Valid() {
		return "null", nil
	}
	sample, err := s.store.LatestSample(s.user.ID)
	if err != nil {
		return "", godbus.MakeFailedError(err)
	}
	return marshal(sample)
}

// SaveNow collects and persists one sample for the configured user.
func (s *Service) SaveNow() (string, *godbus.Error) {
	sample, err := s.sched.SaveNow()
	if errors.Is(err, scheduler.ErrGuestMode) {
		return "", godbus.NewError(errGuestMode, []any{err.Error()})
	}
	if err != nil {
		return "", godbus.MakeFailedError(err)
	}
	return marshal(sample)
}

// GetReport builds a report over the calendar days containing the epochs.
func (s *Service) GetReport(fromEpoch, toEpoch int64) (string, *godbus.Error) {
	r, dErr := s.generate(fromEpoch, toEpoch)
	if dErr != nil {
		return "", dErr
	}
	return marshal(r)
}

// GetHourlyReport is GetReport rendered as hour-by-hour text.
func (s *Service) GetHourlyReport(fromEpoch, toEpoch int64) (string, *godbus.Error) {
	r, dErr := s.generate(fromEpoch, toEpoch)
	if dErr != nil {
		return "", dErr
	}
	return report.HourlyText(r), nil
}

func (s *Service) generate(fromEpoch, toEpoch int64) (*report.Report, *godbus.Error) {
	if err := validateRange(fromEpoch, toEpoch); err != nil {
		return nil, godbus.NewError(errInvalidRange, []any{err.Error()})
	}
	if !s.user.Valid() {
		return nil, godbus.NewError(errGuestMode, []any{report.ErrNoUser.Error()})
	}
	r, err := s.gen.Generate(s.user, "", time.Unix(fromEpoch, 0), time.Unix(toEpoch, 0))
	if err != nil {
		return nil, godbus.MakeFailedError(err)
	}
	s.log.Debug("report served", "from", fromEpoch, "to", toEpoch, "hours", r.HourCount())
	return r, nil
}

// StartIdle opens a manual idle session, or returns the open one.
func (s *Service) StartIdle() (string, *godbus.Error) {
	sess, err := s.idle.Start(s.user, idle.ReasonManual)
	if err != nil {
		return "", idleError(err)
	}
	return marshal(sess)
}

// EndIdle closes the open idle session. It returns "null" if none was open.
func (s *Service) EndIdle() (string, *godbus.Error) {
	sess, err := s.idle.End(s.user)
	if err != nil {
		return "", idleError(err)
	}
	return marshal(sess)
}

func (s *Service) StartMonitoring() *godbus.Error {
	s.sched.Start(s.user)
	return nil
}

func (s *Service) StopMonitoring() *godbus.Error {
	s.sched.Stop()
	return nil
}

func (s *Service) IsMonitoring() (bool, *godbus.Error) {
	return s.sched.Running(), nil
}

// GetConfig returns the effective daemon configuration.
func (s *Service) GetConfig() (string, *godbus.Error) {
	return marshal(s.cfg)
}

func idleError(err error) *godbus.Error {
	if errors.Is(err, idle.ErrNoUser) {
		return godbus.NewError(errGuestMode, []any{err.Error()})
	}
	return godbus.MakeFailedError(err)
}

func validateRange(fromEpoch, toEpoch int64) error {
	if fromEpoch < 0 {
		return fmt.Errorf("from_epoch must not be negative, got %d", fromEpoch)
	}
	if toEpoch < fromEpoch {
		return fmt.Errorf("to_epoch %d is before from_epoch %d", toEpoch, fromEpoch)
	}
	if toEpoch-fromEpoch > maxRangeSecs {
		return fmt.Errorf("range of %d s exceeds %d s", toEpoch-fromEpoch, maxRangeSecs)
	}
	return nil
}

func marshal(v any) (string, *godbus.Error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", godbus.MakeFailedError(err)
	}
	return string(data), nil
}
