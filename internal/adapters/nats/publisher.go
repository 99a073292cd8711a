package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geofencing/internal/core/domain"
	"github.com/samirrijal/geofencing/internal/core/ports"
)

var (
	_ ports.EventPublisher      = (*Publisher)(nil)
	_ ports.NotificationService = (*Publisher)(nil)
)

// PushMessage is what a push gateway receives on the push subject.
type PushMessage struct {
	DeviceID string    `json:"device_id"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sent_at"`
}

// RegionChange is published when a region is added or removed so map
// clients can update their overlays.
type RegionChange struct {
	Change string        `json:"change"`
	Region domain.Region `json:"region"`
}

// Publisher implements ports.EventPublisher and ports.NotificationService
// using NATS JetStream.
type Publisher struct {
	conn     *nats.Conn
	js       nats.JetStreamContext
	pushRoot string
}

// NewPublisher connects to NATS and enables JetStream. pushRoot defaults to
// geofence.push.
func NewPublisher(url, pushRoot string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if pushRoot == "" {
		pushRoot = DefaultPushRoot
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      "GEOFENCE_LOCATIONS",
			Subjects:  []string{SubjectLocations + ".>"},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "GEOFENCE_EVENTS",
			Subjects:  []string{SubjectEvents + ".>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "GEOFENCE_PUSH",
			Subjects:  []string{pushRoot + ".>"},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			if _, err := js.UpdateStream(&cfg); err != nil {
				conn.Close()
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js, pushRoot: pushRoot}, nil
}

func (p *Publisher) PublishRegionEvent(ctx context.Context, event *domain.RegionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	// Msg ID lets JetStream drop duplicates from retried alert workflows.
	_, err = p.js.Publish(EventSubject(string(event.Transition), event.RegionID), data,
		nats.Context(ctx), nats.MsgId(event.ID))
	return err
}

func (p *Publisher) PublishRegionAdded(ctx context.Context, region *domain.Region) error {
	return p.publishRegionChange("added", region)
}

func (p *Publisher) PublishRegionRemoved(ctx context.Context, region *domain.Region) error {
	return p.publishRegionChange("removed", region)
}

func (p *Publisher) publishRegionChange(change string, region *domain.Region) error {
	data, err := json.Marshal(RegionChange{Change: change, Region: *region})
	if err != nil {
		return err
	}
	return p.conn.Publish(RegionSubject(change), data)
}

func (p *Publisher) PublishLocation(ctx context.Context, update *domain.LocationUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(LocationSubject(update.DeviceID), data, nats.Context(ctx))
	return err
}

// SendPush queues a notification for the push gateway.
func (p *Publisher) SendPush(ctx context.Context, deviceID, title, body string) error {
	data, err := json.Marshal(PushMessage{DeviceID: deviceID, Title: title, Body: body, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	_, err = p.js.Publish(p.pushRoot+"."+token(deviceID), data, nats.Context(ctx))
	return err
}

// Connected reports whether the underlying connection is up.
func (p *Publisher) Connected() bool {
	return p.conn.IsConnected()
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
