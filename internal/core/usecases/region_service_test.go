package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/samirrijal/geofencing/internal/core/domain"
	"github.com/samirrijal/geofencing/internal/core/usecases"
)

// --- Mock RegionStore ---

type mockStore struct {
	loadFn func(ctx context.Context) ([]domain.Region, error)
	saveFn func(ctx context.Context, regions []domain.Region) error
	saved  [][]domain.Region
}

func (m *mockStore) Load(ctx context.Context) ([]domain.Region, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx)
	}
	return nil, nil
}

func (m *mockStore) Save(ctx context.Context, regions []domain.Region) error {
	m.saved = append(m.saved, regions)
	if m.saveFn != nil {
		return m.saveFn(ctx, regions)
	}
	return nil
}

func (m *mockStore) last() []domain.Region {
	if len(m.saved) == 0 {
		return nil
	}
	return m.saved[len(m.saved)-1]
}

// --- Mock RegionMonitor ---

type mockMonitor struct {
	auth        domain.Authorization
	unavailable bool
	maxDistance float64
	startErr    error
	started     map[string]domain.MonitoredRegion
	stopped     []string
	evaluateFn  func(update *domain.LocationUpdate) []domain.RegionEvent
}

func newMockMonitor() *mockMonitor {
	return &mockMonitor{
		auth:        domain.AuthAlways,
		maxDistance: 1000,
		started:     make(map[string]domain.MonitoredRegion),
	}
}

func (m *mockMonitor) Available() bool                         { return !m.unavailable }
func (m *mockMonitor) Authorization() domain.Authorization     { return m.auth }
func (m *mockMonitor) SetAuthorization(a domain.Authorization) { m.auth = a }
func (m *mockMonitor) MaxMonitoringDistance() float64          { return m.maxDistance }
func (m *mockMonitor) StopMonitoring(id string) {
	m.stopped = append(m.stopped, id)
	delete(m.started, id)
}
func (m *mockMonitor) Status() domain.MonitorStatus {
	return domain.MonitorStatus{Authorization: m.auth, Monitored: len(m.started)}
}
func (m *mockMonitor) StartMonitoring(r domain.MonitoredRegion) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.started[r.ID] = r
	return nil
}
func (m *mockMonitor) Monitored() []domain.MonitoredRegion {
	out := make([]domain.MonitoredRegion, 0, len(m.started))
	for _, r := range m.started {
		out = append(out, r)
	}
	return out
}
func (m *mockMonitor) Evaluate(update *domain.LocationUpdate) []domain.RegionEvent {
	if m.evaluateFn != nil {
		return m.evaluateFn(update)
	}
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	added   []string
	removed []string
	events  []*domain.RegionEvent
	err     error
}

func (m *mockPublisher) PublishRegionEvent(ctx context.Context, e *domain.RegionEvent) error {
	m.events = append(m.events, e)
	return m.err
}
func (m *mockPublisher) PublishRegionAdded(ctx context.Context, r *domain.Region) error {
	m.added = append(m.added, r.ID)
	return m.err
}
func (m *mockPublisher) PublishRegionRemoved(ctx context.Context, r *domain.Region) error {
	m.removed = append(m.removed, r.ID)
	return m.err
}
func (m *mockPublisher) PublishLocation(ctx context.Context, u *domain.LocationUpdate) error {
	return m.err
}

func entryInput(radius float64) usecases.AddRegionInput {
	return usecases.AddRegionInput{Latitude: 43.263, Longitude: -2.935, Radius: radius, Note: "office", EventType: "on-entry"}
}

func exitInput(radius float64) usecases.AddRegionInput {
	in := entryInput(radius)
	in.EventType = "on-exit"
	return in
}

// --- Tests ---

func TestRegionService_AddAppearsInExactlyOneView(t *testing.T) {
	svc := usecases.NewRegionService(&mockStore{}, newMockMonitor(), nil)
	ctx := context.Background()

	entry, err := svc.Add(ctx, entryInput(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	exit, err := svc.Add(ctx, exitInput(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	all := svc.List(ctx, domain.FilterAll)
	if len(all) != 2 || all[0].ID != entry.ID || all[1].ID != exit.ID {
		t.Fatalf("expected both regions in insertion order, got %+v", all)
	}
	if got := svc.List(ctx, domain.FilterEntry); len(got) != 1 || got[0].ID != entry.ID {
		t.Errorf("entry view wrong: %+v", got)
	}
	if got := svc.List(ctx, domain.FilterExit); len(got) != 1 || got[0].ID != exit.ID {
		t.Errorf("exit view wrong: %+v", got)
	}
}

func TestRegionService_CountMatchesView(t *testing.T) {
	svc := usecases.NewRegionService(&mockStore{}, newMockMonitor(), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = svc.Add(ctx, entryInput(50))
	}
	_, _ = svc.Add(ctx, exitInput(50))

	for _, f := range []domain.Filter{domain.FilterAll, domain.FilterEntry, domain.FilterExit} {
		if c, l := svc.Count(ctx, f), len(svc.List(ctx, f)); c != l {
			t.Errorf("filter %s: count %d != list length %d", f, c, l)
		}
	}
	sum := svc.Summary(ctx)
	if sum.All != 4 || sum.Entry != 3 || sum.Exit != 1 {
		t.Errorf("unexpected summary %+v", sum)
	}
}

func TestRegionService_RadiusClamped(t *testing.T) {
	store := &mockStore{}
	mon := newMockMonitor()
	mon.maxDistance = 500
	svc := usecases.NewRegionService(store, mon, nil)

	r, err := svc.Add(context.Background(), entryInput(9000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Radius != 500 {
		t.Errorf("expected radius clamped to 500, got %f", r.Radius)
	}
	if got := store.last(); len(got) != 1 || got[0].Radius != 500 {
		t.Errorf("persisted radius not clamped: %+v", got)
	}
	if mon.started[r.ID].Radius != 500 {
		t.Errorf("monitored radius not clamped: %+v", mon.started[r.ID])
	}
}

func TestRegionService_RegistersNotifyFlags(t *testing.T) {
	mon := newMockMonitor()
	svc := usecases.NewRegionService(&mockStore{}, mon, nil)

	entry, _ := svc.Add(context.Background(), entryInput(100))
	exit, _ := svc.Add(context.Background(), exitInput(100))

	if r := mon.started[entry.ID]; !r.NotifyOnEntry || r.NotifyOnExit {
		t.Errorf("entry region flags wrong: %+v", r)
	}
	if r := mon.started[exit.ID]; r.NotifyOnEntry || !r.NotifyOnExit {
		t.Errorf("exit region flags wrong: %+v", r)
	}
}

func TestRegionService_AddWithoutAlwaysAuthorization(t *testing.T) {
	store := &mockStore{}
	mon := newMockMonitor()
	mon.auth = domain.AuthWhenInUse
	svc := usecases.NewRegionService(store, mon, nil)

	r, err := svc.Add(context.Background(), entryInput(100))
	if err != nil {
		t.Fatalf("missing authorization must not fail the add: %v", err)
	}
	if len(mon.started) != 0 {
		t.Error("region should not be registered without always authorization")
	}
	if svc.Count(context.Background(), domain.FilterAll) != 1 || len(store.last()) != 1 {
		t.Error("region should still be stored and persisted")
	}

	svc.SetAuthorization(context.Background(), domain.AuthAlways)
	if _, ok := mon.started[r.ID]; !ok {
		t.Error("upgrading to always should register the dropped region")
	}
}

func TestRegionService_MonitoringFailureIsSwallowed(t *testing.T) {
	mon := newMockMonitor()
	mon.startErr = errors.New("limit reached")
	svc := usecases.NewRegionService(&mockStore{}, mon, nil)

	if _, err := svc.Add(context.Background(), entryInput(100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegionService_PersistFailureIsSwallowed(t *testing.T) {
	store := &mockStore{saveFn: func(ctx context.Context, r []domain.Region) error {
		return errors.New("valkey down")
	}}
	svc := usecases.NewRegionService(store, newMockMonitor(), nil)

	if _, err := svc.Add(context.Background(), entryInput(100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Count(context.Background(), domain.FilterAll) != 1 {
		t.Error("region should be kept in memory")
	}
}

func TestRegionService_AddValidation(t *testing.T) {
	svc := usecases.NewRegionService(&mockStore{}, newMockMonitor(), nil)

	cases := map[string]usecases.AddRegionInput{
		"zero radius":    entryInput(0),
		"bad latitude":   {Latitude: 91, Longitude: 0, Radius: 10, EventType: "on-entry"},
		"bad longitude":  {Latitude: 0, Longitude: -181, Radius: 10, EventType: "on-entry"},
		"bad event type": {Latitude: 0, Longitude: 0, Radius: 10, EventType: "sideways"},
		"no event type":  {Latitude: 0, Longitude: 0, Radius: 10},
	}
	for name, in := range cases {
		if _, err := svc.Add(context.Background(), in); !errors.Is(err, usecases.ErrInvalidRegion) {
			t.Errorf("%s: expected ErrInvalidRegion, got %v", name, err)
		}
	}
	if svc.Count(context.Background(), domain.FilterAll) != 0 {
		t.Error("invalid input must not be stored")
	}
}

func TestRegionService_RemoveFromAllViews(t *testing.T) {
	store := &mockStore{}
	mon := newMockMonitor()
	pub := &mockPublisher{}
	svc := usecases.NewRegionService(store, mon, pub)
	ctx := context.Background()

	keep, _ := svc.Add(ctx, entryInput(100))
	gone, _ := svc.Add(ctx, exitInput(100))

	if _, err := svc.Remove(ctx, gone.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, f := range []domain.Filter{domain.FilterAll, domain.FilterEntry, domain.FilterExit} {
		for _, r := range svc.List(ctx, f) {
			if r.ID == gone.ID {
				t.Errorf("removed region still in %s view", f)
			}
		}
	}
	if len(mon.stopped) != 1 || mon.stopped[0] != gone.ID {
		t.Errorf("expected monitoring stopped for %s, got %v", gone.ID, mon.stopped)
	}
	if got := store.last(); len(got) != 1 || got[0].ID != keep.ID {
		t.Errorf("persisted snapshot wrong: %+v", got)
	}
	if len(pub.added) != 2 || len(pub.removed) != 1 {
		t.Errorf("expected 2 added and 1 removed notification, got %v %v", pub.added, pub.removed)
	}
}

func TestRegionService_RemoveUnknown(t *testing.T) {
	svc := usecases.NewRegionService(&mockStore{}, newMockMonitor(), nil)
	_, err := svc.Remove(context.Background(), "missing")
	if !errors.Is(err, domain.ErrRegionNotFound) {
		t.Fatalf("expected ErrRegionNotFound, got %v", err)
	}
}

func TestRegionService_Restore(t *testing.T) {
	stored := []domain.Region{
		{ID: "a", Center: domain.GeoPoint{Lat: 1, Lon: 1}, Radius: 100, EventType: domain.OnEntry},
		{ID: "b", Center: domain.GeoPoint{Lat: 2, Lon: 2}, Radius: 5000, EventType: domain.OnExit},
		{ID: "a", Center: domain.GeoPoint{Lat: 3, Lon: 3}, Radius: 100, EventType: domain.OnEntry},
		{ID: "c", Center: domain.GeoPoint{Lat: 4, Lon: 4}, Radius: 100, EventType: "bogus"},
	}
	store := &mockStore{loadFn: func(ctx context.Context) ([]domain.Region, error) { return stored, nil }}
	mon := newMockMonitor()
	svc := usecases.NewRegionService(store, mon, nil)

	if err := svc.Restore(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	all := svc.List(context.Background(), domain.FilterAll)
	if len(all) != 2 || all[0].ID != "a" || all[1].ID != "b" {
		t.Fatalf("unexpected restored regions %+v", all)
	}
	if all[1].Radius != 1000 {
		t.Errorf("expected restored radius clamped to 1000, got %f", all[1].Radius)
	}
	if len(mon.started) != 2 {
		t.Errorf("expected 2 registrations, got %d", len(mon.started))
	}
	if got := store.last(); len(got) != 2 || got[1].Radius != 1000 {
		t.Errorf("expected clamped snapshot to be rewritten, got %+v", got)
	}
}

func TestRegionService_RestoreLoadError(t *testing.T) {
	store := &mockStore{loadFn: func(ctx context.Context) ([]domain.Region, error) {
		return nil, fmt.Errorf("boom")
	}}
	svc := usecases.NewRegionService(store, newMockMonitor(), nil)
	if err := svc.Restore(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRegionService_GetReturnsCopy(t *testing.T) {
	svc := usecases.NewRegionService(&mockStore{}, newMockMonitor(), nil)
	r, _ := svc.Add(context.Background(), entryInput(100))

	got, err := svc.Get(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got.Note = "changed"

	again, _ := svc.Get(context.Background(), r.ID)
	if again.Note != "office" {
		t.Errorf("mutating a returned region leaked into the registry")
	}
}
