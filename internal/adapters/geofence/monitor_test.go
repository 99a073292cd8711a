package geofence

import (
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/geofencing/internal/core/domain"
)

var (
	plaza   = domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}
	nearby  = domain.GeoPoint{Lat: 43.2633, Lon: -2.9350} // ~33m north
	faraway = domain.GeoPoint{Lat: 43.2700, Lon: -2.9350} // ~780m north
)

func newTestMonitor() *Monitor {
	return NewMonitor(Config{
		MaxDistance:   10000,
		MaxRegions:    20,
		Authorization: domain.AuthAlways,
		Available:     true,
	})
}

func fix(device string, p domain.GeoPoint) *domain.LocationUpdate {
	return &domain.LocationUpdate{DeviceID: device, Location: p, Time: time.Unix(1715003456, 0)}
}

func TestEvaluate_EntryFiresOnCrossingIn(t *testing.T) {
	m := newTestMonitor()
	if err := m.StartMonitoring(domain.MonitoredRegion{ID: "r1", Center: plaza, Radius: 100, NotifyOnEntry: true}); err != nil {
		t.Fatalf("start monitoring: %v", err)
	}

	if got := m.Evaluate(fix("d1", faraway)); len(got) != 0 {
		t.Fatalf("first fix should only record state, got %d events", len(got))
	}

	events := m.Evaluate(fix("d1", nearby))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Transition != domain.Entered {
		t.Errorf("expected entered, got %s", events[0].Transition)
	}
	if events[0].Message != "Entered region with r1" {
		t.Errorf("unexpected message %q", events[0].Message)
	}

	if got := m.Evaluate(fix("d1", plaza)); len(got) != 0 {
		t.Errorf("staying inside should not fire, got %d events", len(got))
	}
}

func TestEvaluate_EntryRegionIgnoresExit(t *testing.T) {
	m := newTestMonitor()
	_ = m.StartMonitoring(domain.MonitoredRegion{ID: "r1", Center: plaza, Radius: 100, NotifyOnEntry: true})

	m.Evaluate(fix("d1", plaza))
	if got := m.Evaluate(fix("d1", faraway)); len(got) != 0 {
		t.Errorf("entry-only region fired on exit: %+v", got)
	}
}

func TestEvaluate_ExitFiresOnCrossingOut(t *testing.T) {
	m := newTestMonitor()
	_ = m.StartMonitoring(domain.MonitoredRegion{ID: "r2", Center: plaza, Radius: 100, NotifyOnExit: true})

	m.Evaluate(fix("d1", plaza))
	events := m.Evaluate(fix("d1", faraway))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Transition != domain.Exited {
		t.Errorf("expected exited, got %s", events[0].Transition)
	}
	if events[0].Message != "Exit from region with r2" {
		t.Errorf("unexpected message %q", events[0].Message)
	}
}

func TestEvaluate_DevicesTrackedSeparately(t *testing.T) {
	m := newTestMonitor()
	_ = m.StartMonitoring(domain.MonitoredRegion{ID: "r1", Center: plaza, Radius: 100, NotifyOnEntry: true})

	m.Evaluate(fix("d1", faraway))
	m.Evaluate(fix("d2", plaza))

	if got := m.Evaluate(fix("d2", nearby)); len(got) != 0 {
		t.Errorf("d2 never left, got %d events", len(got))
	}
	if got := m.Evaluate(fix("d1", nearby)); len(got) != 1 {
		t.Errorf("d1 crossed in, expected 1 event, got %d", len(got))
	}
}

func TestEvaluate_RequiresAlwaysAuthorization(t *testing.T) {
	m := newTestMonitor()
	_ = m.StartMonitoring(domain.MonitoredRegion{ID: "r1", Center: plaza, Radius: 100, NotifyOnEntry: true})
	m.Evaluate(fix("d1", faraway))

	m.SetAuthorization(domain.AuthWhenInUse)
	if got := m.Evaluate(fix("d1", plaza)); len(got) != 0 {
		t.Errorf("expected no events without always authorization, got %d", len(got))
	}
	if len(m.Monitored()) != 1 {
		t.Error("registration should survive an authorization downgrade")
	}
}

func TestStartMonitoring_Limit(t *testing.T) {
	m := NewMonitor(Config{MaxDistance: 1000, MaxRegions: 1, Authorization: domain.AuthAlways, Available: true})
	if err := m.StartMonitoring(domain.MonitoredRegion{ID: "a", Center: plaza, Radius: 10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := m.StartMonitoring(domain.MonitoredRegion{ID: "b", Center: plaza, Radius: 10})
	if !errors.Is(err, ErrRegionLimit) {
		t.Fatalf("expected ErrRegionLimit, got %v", err)
	}
	// re-registering an existing ID is a replace, not a new slot
	if err := m.StartMonitoring(domain.MonitoredRegion{ID: "a", Center: plaza, Radius: 20}); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if r := m.Monitored(); len(r) != 1 || r[0].Radius != 20 {
		t.Errorf("expected replaced registration, got %+v", r)
	}
}

func TestStartMonitoring_Unavailable(t *testing.T) {
	m := NewMonitor(Config{MaxDistance: 1000, Authorization: domain.AuthAlways})
	if err := m.StartMonitoring(domain.MonitoredRegion{ID: "a", Center: plaza, Radius: 10}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestStopMonitoring(t *testing.T) {
	m := newTestMonitor()
	_ = m.StartMonitoring(domain.MonitoredRegion{ID: "a", Center: plaza, Radius: 100, NotifyOnEntry: true})
	_ = m.StartMonitoring(domain.MonitoredRegion{ID: "b", Center: plaza, Radius: 100, NotifyOnEntry: true})
	m.Evaluate(fix("d1", faraway))

	m.StopMonitoring("a")
	m.StopMonitoring("missing")

	got := m.Monitored()
	if len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("expected only b to remain, got %+v", got)
	}
	events := m.Evaluate(fix("d1", plaza))
	if len(events) != 1 || events[0].RegionID != "b" {
		t.Errorf("expected a single event for b, got %+v", events)
	}
}

func TestStatus(t *testing.T) {
	m := newTestMonitor()
	_ = m.StartMonitoring(domain.MonitoredRegion{ID: "a", Center: plaza, Radius: 100})
	st := m.Status()
	if st.Monitored != 1 || st.Authorization != domain.AuthAlways || st.MaxRegions != 20 {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestEvaluate_EntryNearPole(t *testing.T) {
	m := NewMonitor(Config{MaxDistance: 200000, Authorization: domain.AuthAlways, Available: true})
	center := domain.GeoPoint{Lat: 89, Lon: 0}
	if err := m.StartMonitoring(domain.MonitoredRegion{ID: "arctic", Center: center, Radius: 100000, NotifyOnEntry: true}); err != nil {
		t.Fatalf("start monitoring: %v", err)
	}

	m.Evaluate(fix("d1", domain.GeoPoint{Lat: 80, Lon: 0}))
	// ~99 km from the centre, well east of a naive d/cos(lat) box
	events := m.Evaluate(fix("d1", domain.GeoPoint{Lat: 89.294, Lon: 60}))
	if len(events) != 1 || events[0].Transition != domain.Entered {
		t.Fatalf("expected an entry event, got %+v", events)
	}
}

func TestEvaluate_DeviceCapEvictsLeastRecent(t *testing.T) {
	m := NewMonitor(Config{MaxDistance: 1000, Authorization: domain.AuthAlways, Available: true, MaxDevices: 2})
	_ = m.StartMonitoring(domain.MonitoredRegion{ID: "r1", Center: plaza, Radius: 100, NotifyOnEntry: true})

	clock := time.Unix(1715000000, 0)
	m.now = func() time.Time { return clock }

	for _, id := range []string{"d1", "d2", "d3"} {
		m.Evaluate(fix(id, faraway))
		clock = clock.Add(time.Second)
	}

	if len(m.devices) != 2 {
		t.Fatalf("expected 2 tracked devices, got %d", len(m.devices))
	}
	if _, ok := m.devices["d1"]; ok {
		t.Error("expected the least recently seen device to be evicted")
	}
	// d1 starts over: its next fix only records state
	if got := m.Evaluate(fix("d1", plaza)); len(got) != 0 {
		t.Errorf("evicted device should not fire on its first fix back, got %d events", len(got))
	}
}

func TestEvaluate_IdleDevicesExpire(t *testing.T) {
	m := NewMonitor(Config{MaxDistance: 1000, Authorization: domain.AuthAlways, Available: true, MaxDevices: 2, DeviceTTL: time.Minute})
	_ = m.StartMonitoring(domain.MonitoredRegion{ID: "r1", Center: plaza, Radius: 100, NotifyOnEntry: true})

	clock := time.Unix(1715000000, 0)
	m.now = func() time.Time { return clock }

	m.Evaluate(fix("idle", faraway))
	clock = clock.Add(10 * time.Minute)
	m.Evaluate(fix("d1", faraway))
	clock = clock.Add(time.Second)
	m.Evaluate(fix("d2", faraway))

	if _, ok := m.devices["idle"]; ok {
		t.Error("expected the idle device to expire")
	}
	if len(m.devices) != 2 {
		t.Errorf("expected d1 and d2 to remain, got %d devices", len(m.devices))
	}
	if got := m.Evaluate(fix("d1", plaza)); len(got) != 1 {
		t.Errorf("d1 kept its state and crossed in, expected 1 event, got %d", len(got))
	}
}

func TestNewMonitor_DeviceDefaults(t *testing.T) {
	m := NewMonitor(Config{})
	if m.cfg.MaxDevices != DefaultMaxDevices || m.cfg.DeviceTTL != DefaultDeviceTTL {
		t.Errorf("unexpected defaults %d %v", m.cfg.MaxDevices, m.cfg.DeviceTTL)
	}
}
