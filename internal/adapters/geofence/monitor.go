package geofence

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/geofencing/internal/core/domain"
	"github.com/samirrijal/geofencing/internal/core/ports"
	"github.com/samirrijal/geofencing/internal/pkg/geospatial"
)

var _ ports.RegionMonitor = (*Monitor)(nil)

var (
	ErrUnavailable  = errors.New("region monitoring is not available")
	ErrRegionLimit  = errors.New("monitored region limit reached")
	ErrInvalidShape = errors.New("region center or radius is invalid")
)

// Defaults applied when Config leaves the device limits at zero.
const (
	DefaultMaxDevices = 10000
	DefaultDeviceTTL  = 24 * time.Hour
)

// Config tunes the monitor.
type Config struct {
	MaxDistance   float64 // largest radius in meters that can be monitored
	MaxRegions    int     // registrations allowed at once; 0 means unlimited
	Authorization domain.Authorization
	Available     bool

	MaxDevices int           // devices whose inside/outside state is kept
	DeviceTTL  time.Duration // state of a device silent this long is dropped
}

// device is the per-device state: which regions it was last seen inside.
type device struct {
	inside map[string]bool
	seen   time.Time
}

// Monitor implements ports.RegionMonitor in-process. It keeps, per device,
// whether the device was last seen inside each registered region and emits
// an event when that flips in the direction the region asked for.
type Monitor struct {
	mu      sync.Mutex
	cfg     Config
	auth    domain.Authorization
	regions map[string]domain.MonitoredRegion
	order   []string
	devices map[string]*device
	now     func() time.Time
}

// NewMonitor creates a Monitor.
func NewMonitor(cfg Config) *Monitor {
	auth := cfg.Authorization
	if auth == "" {
		auth = domain.AuthNotDetermined
	}
	if cfg.MaxDevices <= 0 {
		cfg.MaxDevices = DefaultMaxDevices
	}
	if cfg.DeviceTTL <= 0 {
		cfg.DeviceTTL = DefaultDeviceTTL
	}
	return &Monitor{
		cfg:     cfg,
		auth:    auth,
		regions: make(map[string]domain.MonitoredRegion),
		devices: make(map[string]*device),
		now:     time.Now,
	}
}

func (m *Monitor) Available() bool { return m.cfg.Available }

func (m *Monitor) MaxMonitoringDistance() float64 { return m.cfg.MaxDistance }

func (m *Monitor) Authorization() domain.Authorization {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.auth
}

// SetAuthorization changes the permission level. Registrations survive a
// downgrade but no events are evaluated until it is "always" again.
func (m *Monitor) SetAuthorization(auth domain.Authorization) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auth = auth
}

// StartMonitoring registers r, replacing any registration with the same ID.
func (m *Monitor) StartMonitoring(r domain.MonitoredRegion) error {
	if !m.cfg.Available {
		return ErrUnavailable
	}
	if !r.Center.Valid() || r.Radius <= 0 {
		return fmt.Errorf("%w: %s radius=%.1f", ErrInvalidShape, r.Center, r.Radius)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.regions[r.ID]; !exists {
		if m.cfg.MaxRegions > 0 && len(m.regions) >= m.cfg.MaxRegions {
			return fmt.Errorf("%w (%d)", ErrRegionLimit, m.cfg.MaxRegions)
		}
		m.order = append(m.order, r.ID)
	} else {
		m.forget(r.ID)
	}
	m.regions[r.ID] = r
	return nil
}

// StopMonitoring drops the registration and any state tracked for it.
func (m *Monitor) StopMonitoring(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.regions[id]; !ok {
		return
	}
	delete(m.regions, id)
	for i, rid := range m.order {
		if rid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.forget(id)
}

// forget clears per-device state for a region. Caller holds mu.
func (m *Monitor) forget(id string) {
	for _, d := range m.devices {
		delete(d.inside, id)
	}
}

// Monitored returns the registrations in the order they were made.
func (m *Monitor) Monitored() []domain.MonitoredRegion {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.MonitoredRegion, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.regions[id])
	}
	return out
}

// Evaluate feeds a position fix through every registration. The first fix
// a device reports for a region only records where it is.
func (m *Monitor) Evaluate(update *domain.LocationUpdate) []domain.RegionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.cfg.Available || m.auth != domain.AuthAlways {
		return nil
	}

	now := m.now()
	dev, ok := m.devices[update.DeviceID]
	if !ok {
		dev = &device{inside: make(map[string]bool)}
		m.devices[update.DeviceID] = dev
	}
	dev.seen = now
	if !ok && len(m.devices) > m.cfg.MaxDevices {
		m.evict(now, update.DeviceID)
	}
	state := dev.inside

	at := update.Time
	if at.IsZero() {
		at = now
	}

	var events []domain.RegionEvent
	for _, id := range m.order {
		r := m.regions[id]
		in := contains(r, update.Location)

		was, seen := state[id]
		state[id] = in
		if !seen || was == in {
			continue
		}

		var t domain.Transition
		switch {
		case in && r.NotifyOnEntry:
			t = domain.Entered
		case !in && r.NotifyOnExit:
			t = domain.Exited
		default:
			continue
		}

		events = append(events, domain.RegionEvent{
			ID:         uuid.NewString(),
			RegionID:   r.ID,
			DeviceID:   update.DeviceID,
			Transition: t,
			Location:   update.Location,
			Message:    domain.AlertMessage(t, r.ID),
			Time:       at,
		})
	}
	return events
}

// evict drops devices idle longer than DeviceTTL, then the least recently
// seen ones until MaxDevices is respected. keep is never dropped. Caller
// holds mu.
func (m *Monitor) evict(now time.Time, keep string) {
	for id, d := range m.devices {
		if id != keep && now.Sub(d.seen) > m.cfg.DeviceTTL {
			delete(m.devices, id)
		}
	}
	for len(m.devices) > m.cfg.MaxDevices {
		oldest := ""
		var oldestSeen time.Time
		for id, d := range m.devices {
			if id == keep {
				continue
			}
			if oldest == "" || d.seen.Before(oldestSeen) {
				oldest, oldestSeen = id, d.seen
			}
		}
		if oldest == "" {
			return
		}
		delete(m.devices, oldest)
	}
}

// Status snapshots the monitor configuration and load.
func (m *Monitor) Status() domain.MonitorStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.MonitorStatus{
		Available:     m.cfg.Available,
		Authorization: m.auth,
		MaxDistance:   m.cfg.MaxDistance,
		MaxRegions:    m.cfg.MaxRegions,
		Monitored:     len(m.regions),
	}
}

// boxPadding widens the prefilter box so it never clips the circle.
const boxPadding = 1.05

func contains(r domain.MonitoredRegion, p domain.GeoPoint) bool {
	if minLat, minLon, maxLat, maxLon, ok := geospatial.BoundingBox(r.Center.Lat, r.Center.Lon, r.Radius*boxPadding); ok {
		box := domain.Bounds{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}
		if !box.Contains(p) {
			return false
		}
	}
	return geospatial.Within(r.Center.Lat, r.Center.Lon, r.Radius, p.Lat, p.Lon)
}
