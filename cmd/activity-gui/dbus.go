package main

import (
	"encoding/json"
	"fmt"
	"time"

	godbus "github.com/godbus/dbus/v5"

	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/collector"
	amconfig "github.com/cptspacemanspiff/gnome-activity-monitor/internal/config"
	amdbus "github.com/cptspacemanspiff/gnome-activity-monitor/internal/dbus"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/idle"
	"github.com/cptspacemanspiff/gnome-activity-monitor/internal/report"
)

type dbusClient struct {
	conn *godbus.Conn
	obj  godbus.BusObject
}

func newDBusClient() (*dbusClient, error) {
	conn, err := godbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	obj := conn.Object(amdbus.BusName, amdbus.ObjPath)
	return &dbusClient{conn: conn, obj: obj}, nil
}

func (c *dbusClient) callJSON(method string, out any, args ...any) error {
	var jsonStr string
	if err := c.obj.Call(amdbus.IfaceName+"."+method, 0, args...).Store(&jsonStr); err != nil {
		return err
	}
	return json.Unmarshal([]byte(jsonStr), out)
}

func (c *dbusClient) GetLatestSample() (*collector.MetricSample, error) {
	var s *collector.MetricSample
	if err := c.callJSON("GetLatestSample", &s); err != nil {
		return nil, err
	}
	return s, nil
}

func (c *dbusClient) GetReport(from, to time.Time) (*report.Report, error) {
	var r report.Report
	if err := c.callJSON("GetReport", &r, from.Unix(), to.Unix()); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *dbusClient) SaveNow() (*collector.MetricSample, error) {
	var s collector.MetricSample
	if err := c.callJSON("SaveNow", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *dbusClient) StartIdle() (*idle.Session, error) {
	var s idle.Session
	if err := c.callJSON("StartIdle", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *dbusClient) EndIdle() (*idle.Session, error) {
	var s *idle.Session
	if err := c.callJSON("EndIdle", &s); err != nil {
		return nil, err
	}
	return s, nil
}

func (c *dbusClient) IsMonitoring() (bool, error) {
	var running bool
	err := c.obj.Call(amdbus.IfaceName+".IsMonitoring", 0).Store(&running)
	return running, err
}

func (c *dbusClient) SetMonitoring(on bool) error {
	method := ".StopMonitoring"
	if on {
		method = ".StartMonitoring"
	}
	return c.obj.Call(amdbus.IfaceName+method, 0).Err
}

func (c *dbusClient) GetConfig() (*amconfig.Config, error) {
	var cfg amconfig.Config
	if err := c.callJSON("GetConfig", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
