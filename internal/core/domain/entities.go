package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrRegionNotFound   = errors.New("region not found")
	ErrInvalidEventType = errors.New("invalid event type")
	ErrInvalidFilter    = errors.New("invalid filter")
)

// EventType selects which boundary crossing a region alerts on.
type EventType string

const (
	OnEntry EventType = "on-entry"
	OnExit  EventType = "on-exit"
)

// ParseEventType accepts the canonical names plus the short "entry"/"exit" forms.
func ParseEventType(s string) (EventType, error) {
	switch s {
	case string(OnEntry), "entry":
		return OnEntry, nil
	case string(OnExit), "exit":
		return OnExit, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidEventType, s)
	}
}

// Filter is a read-side view over the region collection.
type Filter string

const (
	FilterAll   Filter = "all"
	FilterEntry Filter = "on-entry"
	FilterExit  Filter = "on-exit"
)

// ParseFilter maps a query value to a Filter. Empty means all.
func ParseFilter(s string) (Filter, error) {
	switch s {
	case "", string(FilterAll):
		return FilterAll, nil
	case string(FilterEntry), "entry":
		return FilterEntry, nil
	case string(FilterExit), "exit":
		return FilterExit, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFilter, s)
	}
}

// Matches reports whether r belongs to the view.
func (f Filter) Matches(r *Region) bool {
	switch f {
	case FilterEntry:
		return r.EventType == OnEntry
	case FilterExit:
		return r.EventType == OnExit
	default:
		return true
	}
}

// Region is a circular geofence.
type Region struct {
	ID        string    `json:"identifier"`
	Center    GeoPoint  `json:"coordinate"`
	Radius    float64   `json:"radius"` // meters
	Note      string    `json:"note"`
	EventType EventType `json:"eventType"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *Region) NotifyOnEntry() bool { return r.EventType == OnEntry }
func (r *Region) NotifyOnExit() bool  { return r.EventType == OnExit }

// RegionSummary holds the size of every view.
type RegionSummary struct {
	All   int `json:"all"`
	Entry int `json:"on_entry"`
	Exit  int `json:"on_exit"`
}

// Label renders the count caption shown next to the map.
func Label(count int) string {
	return fmt.Sprintf("Regions(%d)", count)
}

// Authorization is the location permission level granted to the monitor.
type Authorization string

const (
	AuthNotDetermined Authorization = "not-determined"
	AuthDenied        Authorization = "denied"
	AuthWhenInUse     Authorization = "when-in-use"
	AuthAlways        Authorization = "always"
)

// ParseAuthorization validates an authorization level.
func ParseAuthorization(s string) (Authorization, error) {
	switch a := Authorization(s); a {
	case AuthNotDetermined, AuthDenied, AuthWhenInUse, AuthAlways:
		return a, nil
	default:
		return "", fmt.Errorf("invalid authorization %q", s)
	}
}

// LocationUpdate is a single position fix reported by a device.
type LocationUpdate struct {
	DeviceID string    `json:"device_id"`
	Location GeoPoint  `json:"location"`
	Time     time.Time `json:"time"`
}

// Transition is a boundary crossing.
type Transition string

const (
	Entered Transition = "entered"
	Exited  Transition = "exited"
)

// RegionEvent records a delivered entry or exit.
type RegionEvent struct {
	ID         string     `json:"id"`
	RegionID   string     `json:"region_id"`
	DeviceID   string     `json:"device_id"`
	Transition Transition `json:"transition"`
	Location   GeoPoint   `json:"location"`
	Note       string     `json:"note,omitempty"`
	Message    string     `json:"message"`
	Time       time.Time  `json:"time"`
}

// AlertMessage is the text presented to the user for a transition.
func AlertMessage(t Transition, regionID string) string {
	if t == Exited {
		return "Exit from region with " + regionID
	}
	return "Entered region with " + regionID
}

// MonitoredRegion is a registration held by the region monitor.
type MonitoredRegion struct {
	ID            string   `json:"identifier"`
	Center        GeoPoint `json:"center"`
	Radius        float64  `json:"radius"`
	NotifyOnEntry bool     `json:"notify_on_entry"`
	NotifyOnExit  bool     `json:"notify_on_exit"`
}

// MonitorStatus describes the monitor's current state.
type MonitorStatus struct {
	Available     bool          `json:"available"`
	Authorization Authorization `json:"authorization"`
	MaxDistance   float64       `json:"max_distance"`
	MaxRegions    int           `json:"max_regions"`
	Monitored     int           `json:"monitored"`
}
