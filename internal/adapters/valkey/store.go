package valkey

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/samirrijal/geofencing/internal/core/domain"
	"github.com/samirrijal/geofencing/internal/core/ports"
)

// DefaultKey is the key the region list is saved under.
const DefaultKey = "savedItems"

var _ ports.RegionStore = (*Store)(nil)

// Store implements ports.RegionStore on Valkey (Redis-compatible). The whole
// list is one JSON array under a single key.
type Store struct {
	client valkey.Client
	key    string
}

// New creates a new Valkey-backed region store.
func New(addr, key string) (*Store, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return NewWithClient(client, key), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client valkey.Client, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}
}

// Load reads the stored list. A missing key is an empty list.
func (s *Store) Load(ctx context.Context) ([]domain.Region, error) {
	b, err := s.client.Do(ctx, s.client.B().Get().Key(s.key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return []domain.Region{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.key, err)
	}
	return DecodeRegions(b)
}

// Save overwrites the stored list. No TTL: the list lives until replaced.
func (s *Store) Save(ctx context.Context, regions []domain.Region) error {
	b, err := EncodeRegions(regions)
	if err != nil {
		return err
	}
	cmd := s.client.Do(ctx, s.client.B().Set().Key(s.key).Value(valkey.BinaryString(b)).Build())
	if err := cmd.Error(); err != nil {
		return fmt.Errorf("set %s: %w", s.key, err)
	}
	return nil
}

// Ping checks the connection for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

// Close releases the client.
func (s *Store) Close() {
	s.client.Close()
}

// EncodeRegions renders the list as a JSON array. A nil list encodes as [].
func EncodeRegions(regions []domain.Region) ([]byte, error) {
	if regions == nil {
		regions = []domain.Region{}
	}
	b, err := json.Marshal(regions)
	if err != nil {
		return nil, fmt.Errorf("encode regions: %w", err)
	}
	return b, nil
}

// DecodeRegions parses a stored JSON array. Empty input is an empty list.
func DecodeRegions(b []byte) ([]domain.Region, error) {
	if len(b) == 0 {
		return []domain.Region{}, nil
	}
	var regions []domain.Region
	if err := json.Unmarshal(b, &regions); err != nil {
		return nil, fmt.Errorf("decode regions: %w", err)
	}
	if regions == nil {
		regions = []domain.Region{}
	}
	return regions, nil
}
