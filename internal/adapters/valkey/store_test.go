package valkey

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/valkey-io/valkey-go/mock"
	"go.uber.org/mock/gomock"

	"github.com/samirrijal/geofencing/internal/core/domain"
)

func TestEncodeRegions_Nil(t *testing.T) {
	b, err := EncodeRegions(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != "[]" {
		t.Errorf("expected [], got %s", b)
	}
}

func TestEncodeRegions_Fields(t *testing.T) {
	b, err := EncodeRegions([]domain.Region{{
		ID:        "r-1",
		Center:    domain.GeoPoint{Lat: 43.263, Lon: -2.935},
		Radius:    150,
		Note:      "office",
		EventType: domain.OnExit,
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{`"identifier":"r-1"`, `"coordinate":{"lat":43.263,"lon":-2.935}`, `"eventType":"on-exit"`, `"note":"office"`} {
		if !strings.Contains(string(b), want) {
			t.Errorf("expected %s in %s", want, b)
		}
	}
}

func TestDecodeRegions(t *testing.T) {
	raw := `[{"identifier":"a","coordinate":{"lat":1,"lon":2},"radius":10,"note":"n","eventType":"on-entry"}]`
	regions, err := DecodeRegions([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regions) != 1 || regions[0].ID != "a" || regions[0].EventType != domain.OnEntry || regions[0].Center.Lon != 2 {
		t.Errorf("unexpected regions %+v", regions)
	}
}

func TestDecodeRegions_Empty(t *testing.T) {
	for _, in := range []string{"", "null"} {
		regions, err := DecodeRegions([]byte(in))
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", in, err)
		}
		if regions == nil || len(regions) != 0 {
			t.Errorf("%q: expected empty list, got %+v", in, regions)
		}
	}
}

func TestDecodeRegions_Corrupt(t *testing.T) {
	if _, err := DecodeRegions([]byte("{not json")); err == nil {
		t.Fatal("expected error")
	}
}

func TestStore_LoadMissingKeyIsEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	client.EXPECT().
		Do(gomock.Any(), mock.Match("GET", DefaultKey)).
		Return(mock.Result(mock.ValkeyNil()))

	regions, err := NewWithClient(client, "").Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if regions == nil || len(regions) != 0 {
		t.Errorf("expected empty list, got %+v", regions)
	}
}

func TestStore_LoadDecodesArray(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	client.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "regions-test")).
		Return(mock.Result(mock.ValkeyString(`[{"identifier":"a","coordinate":{"lat":1,"lon":2},"radius":10,"eventType":"on-exit"}]`)))

	regions, err := NewWithClient(client, "regions-test").Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regions) != 1 || regions[0].ID != "a" || regions[0].EventType != domain.OnExit {
		t.Errorf("unexpected regions %+v", regions)
	}
}

func TestStore_LoadError(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	client.EXPECT().
		Do(gomock.Any(), mock.Match("GET", DefaultKey)).
		Return(mock.ErrorResult(errors.New("connection refused")))

	if _, err := NewWithClient(client, "").Load(context.Background()); err == nil || !strings.Contains(err.Error(), DefaultKey) {
		t.Fatalf("expected error naming the key, got %v", err)
	}
}

func TestStore_SaveWritesWholeArray(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	want := `[{"identifier":"r-1","coordinate":{"lat":1,"lon":2},"radius":10,"note":"","eventType":"on-entry","created_at":"0001-01-01T00:00:00Z"}]`
	client.EXPECT().
		Do(gomock.Any(), mock.Match("SET", DefaultKey, want)).
		Return(mock.Result(mock.ValkeyString("OK")))

	err := NewWithClient(client, "").Save(context.Background(), []domain.Region{{
		ID:        "r-1",
		Center:    domain.GeoPoint{Lat: 1, Lon: 2},
		Radius:    10,
		EventType: domain.OnEntry,
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStore_SaveNilWritesEmptyArray(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	client.EXPECT().
		Do(gomock.Any(), mock.Match("SET", DefaultKey, "[]")).
		Return(mock.Result(mock.ValkeyString("OK")))

	if err := NewWithClient(client, "").Save(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
