package usecases

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/geofencing/internal/core/domain"
	"github.com/samirrijal/geofencing/internal/core/ports"
	"github.com/samirrijal/geofencing/internal/pkg/logging"
	"github.com/samirrijal/geofencing/internal/pkg/metrics"
	"github.com/samirrijal/geofencing/internal/pkg/telemetry"
)

// ErrInvalidRegion wraps every input validation failure on Add.
var ErrInvalidRegion = errors.New("invalid region")

// AddRegionInput is the data collected by the add-region form.
type AddRegionInput struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Radius    float64 `json:"radius" validate:"gt=0"`
	Note      string  `json:"note" validate:"max=1024"`
	EventType string  `json:"event_type" validate:"required"`
}

// RegionService owns the region collection. Regions live in one
// insertion-ordered set keyed by ID; the entry and exit views are
// computed when read, never stored.
type RegionService struct {
	store     ports.RegionStore
	monitor   ports.RegionMonitor
	publisher ports.EventPublisher
	validate  *validator.Validate

	mu    sync.RWMutex
	byID  map[string]*domain.Region
	order []string

	now   func() time.Time
	newID func() string
}

// NewRegionService creates a new RegionService. publisher may be nil.
func NewRegionService(store ports.RegionStore, monitor ports.RegionMonitor, publisher ports.EventPublisher) *RegionService {
	return &RegionService{
		store:     store,
		monitor:   monitor,
		publisher: publisher,
		validate:  validator.New(),
		byID:      make(map[string]*domain.Region),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Restore replaces the in-memory collection with the stored snapshot and
// registers every region with the monitor. Radii above the current
// monitoring limit are clamped and the snapshot rewritten.
func (s *RegionService) Restore(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanRegionRestore)
	defer span.End()
	log := logging.FromContext(ctx)

	regions, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load regions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		s.monitor.StopMonitoring(id)
	}
	s.byID = make(map[string]*domain.Region, len(regions))
	s.order = s.order[:0]

	clamped := false
	for i := range regions {
		r := regions[i]
		if r.ID == "" {
			log.Warn("skipping stored region without identifier")
			continue
		}
		if _, dup := s.byID[r.ID]; dup {
			log.Warn("skipping duplicate stored region", "region_id", r.ID)
			continue
		}
		if _, err := domain.ParseEventType(string(r.EventType)); err != nil {
			log.Warn("skipping stored region", "region_id", r.ID, "error", err)
			continue
		}
		if limit := s.monitor.MaxMonitoringDistance(); r.Radius > limit {
			r.Radius = limit
			clamped = true
		}
		s.insertLocked(&r)
		s.startMonitoring(ctx, &r)
	}

	if clamped {
		s.persistLocked(ctx)
	}
	s.recordCountsLocked()

	log.Info("regions restored", "count", len(s.order))
	return nil
}

// Add validates the input, clamps the radius to the monitor's limit, stores
// the region and registers it for monitoring. Registration and persistence
// failures are logged and do not fail the call.
func (s *RegionService) Add(ctx context.Context, in AddRegionInput) (*domain.Region, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanRegionAdd)
	defer span.End()

	if err := s.validate.StructCtx(ctx, in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegion, err)
	}
	eventType, err := domain.ParseEventType(in.EventType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegion, err)
	}

	r := &domain.Region{
		ID:        s.newID(),
		Center:    domain.GeoPoint{Lat: in.Latitude, Lon: in.Longitude},
		Radius:    math.Min(in.Radius, s.monitor.MaxMonitoringDistance()),
		Note:      in.Note,
		EventType: eventType,
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	s.insertLocked(r)
	s.startMonitoring(ctx, r)
	s.persistLocked(ctx)
	s.recordCountsLocked()
	out := *r
	s.mu.Unlock()

	span.SetAttributes(attribute.String("region.id", out.ID), attribute.Float64("region.radius", out.Radius))
	metrics.RegionOperations.WithLabelValues("add").Inc()
	logging.FromContext(ctx).Info("region added",
		"region_id", out.ID, "event_type", out.EventType, "radius", out.Radius)

	if s.publisher != nil {
		if err := s.publisher.PublishRegionAdded(ctx, &out); err != nil {
			logging.FromContext(ctx).Warn("publish region added failed", "region_id", out.ID, "error", err)
		}
	}
	return &out, nil
}

// Remove stops monitoring the region and deletes it from every view.
func (s *RegionService) Remove(ctx context.Context, id string) (*domain.Region, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanRegionRemove, attribute.String("region.id", id))
	defer span.End()

	s.mu.Lock()
	r, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", domain.ErrRegionNotFound, id)
	}
	s.monitor.StopMonitoring(id)
	s.deleteLocked(id)
	s.persistLocked(ctx)
	s.recordCountsLocked()
	out := *r
	s.mu.Unlock()

	metrics.RegionOperations.WithLabelValues("remove").Inc()
	logging.FromContext(ctx).Info("region removed", "region_id", id)

	if s.publisher != nil {
		if err := s.publisher.PublishRegionRemoved(ctx, &out); err != nil {
			logging.FromContext(ctx).Warn("publish region removed failed", "region_id", id, "error", err)
		}
	}
	return &out, nil
}

// Get returns a region by identifier.
func (s *RegionService) Get(ctx context.Context, id string) (*domain.Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRegionNotFound, id)
	}
	out := *r
	return &out, nil
}

// List returns the regions in the given view, oldest first.
func (s *RegionService) List(ctx context.Context, f domain.Filter) []domain.Region {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Region, 0, len(s.order))
	for _, id := range s.order {
		if r := s.byID[id]; f.Matches(r) {
			out = append(out, *r)
		}
	}
	return out
}

// Count returns the size of the given view.
func (s *RegionService) Count(ctx context.Context, f domain.Filter) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked(f)
}

// Summary returns the size of all three views.
func (s *RegionService) Summary(ctx context.Context) domain.RegionSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summaryLocked()
}

// SetAuthorization updates the monitor's permission level. Upgrading to
// "always" registers any region that was dropped while it was missing.
func (s *RegionService) SetAuthorization(ctx context.Context, auth domain.Authorization) domain.MonitorStatus {
	s.monitor.SetAuthorization(auth)
	logging.FromContext(ctx).Info("monitor authorization changed", "authorization", auth)

	if auth == domain.AuthAlways {
		s.mu.RLock()
		monitored := make(map[string]bool)
		for _, m := range s.monitor.Monitored() {
			monitored[m.ID] = true
		}
		for _, id := range s.order {
			if !monitored[id] {
				s.startMonitoring(ctx, s.byID[id])
			}
		}
		s.mu.RUnlock()
	}
	return s.monitor.Status()
}

// MonitorStatus reports the monitor's state.
func (s *RegionService) MonitorStatus(ctx context.Context) domain.MonitorStatus {
	return s.monitor.Status()
}

// Monitored lists the monitor's current registrations.
func (s *RegionService) Monitored(ctx context.Context) []domain.MonitoredRegion {
	return s.monitor.Monitored()
}

// startMonitoring registers r when the monitor is authorized and able to.
// Any other outcome is logged and dropped.
func (s *RegionService) startMonitoring(ctx context.Context, r *domain.Region) {
	log := logging.FromContext(ctx)

	if s.monitor.Authorization() != domain.AuthAlways {
		log.Warn("always authorization is required for region monitoring", "region_id", r.ID)
		metrics.MonitoringRegistrations.WithLabelValues("unauthorized").Inc()
		return
	}
	if !s.monitor.Available() {
		log.Warn("region monitoring unavailable", "region_id", r.ID)
		metrics.MonitoringRegistrations.WithLabelValues("unavailable").Inc()
		return
	}

	err := s.monitor.StartMonitoring(domain.MonitoredRegion{
		ID:            r.ID,
		Center:        r.Center,
		Radius:        r.Radius,
		NotifyOnEntry: r.NotifyOnEntry(),
		NotifyOnExit:  r.NotifyOnExit(),
	})
	if err != nil {
		log.Error("monitoring failed for region", "region_id", r.ID, "error", err)
		metrics.MonitoringRegistrations.WithLabelValues("failed").Inc()
		return
	}
	metrics.MonitoringRegistrations.WithLabelValues("registered").Inc()
}

func (s *RegionService) insertLocked(r *domain.Region) {
	s.byID[r.ID] = r
	s.order = append(s.order, r.ID)
}

func (s *RegionService) deleteLocked(id string) {
	delete(s.byID, id)
	for i, rid := range s.order {
		if rid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// persistLocked writes the full list. Failures are logged only.
func (s *RegionService) persistLocked(ctx context.Context) {
	snapshot := make([]domain.Region, 0, len(s.order))
	for _, id := range s.order {
		snapshot = append(snapshot, *s.byID[id])
	}
	if err := s.store.Save(ctx, snapshot); err != nil {
		logging.FromContext(ctx).Error("error saving regions", "error", err)
		metrics.RegionPersistErrors.Inc()
	}
}

func (s *RegionService) countLocked(f domain.Filter) int {
	if f == domain.FilterAll || f == "" {
		return len(s.order)
	}
	n := 0
	for _, id := range s.order {
		if f.Matches(s.byID[id]) {
			n++
		}
	}
	return n
}

func (s *RegionService) summaryLocked() domain.RegionSummary {
	return domain.RegionSummary{
		All:   len(s.order),
		Entry: s.countLocked(domain.FilterEntry),
		Exit:  s.countLocked(domain.FilterExit),
	}
}

func (s *RegionService) recordCountsLocked() {
	sum := s.summaryLocked()
	metrics.SetRegionCounts(sum.All, sum.Entry, sum.Exit)
}
