package postgres

import (
	"strings"
	"testing"
)

func TestMigrations_Ordered(t *testing.T) {
	ms, err := Migrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ms) < 2 {
		t.Fatalf("expected at least 2 migrations, got %d", len(ms))
	}
	for i := 1; i < len(ms); i++ {
		if ms[i-1].Version >= ms[i].Version {
			t.Errorf("migrations out of order: %s before %s", ms[i-1].Version, ms[i].Version)
		}
	}
	for _, m := range ms {
		if strings.TrimSpace(m.Up) == "" || strings.TrimSpace(m.Down) == "" {
			t.Errorf("migration %s is missing an up or down script", m.Version)
		}
	}
}

func TestMigrations_CreatesEventsTable(t *testing.T) {
	ms, _ := Migrations()
	found := false
	for _, m := range ms {
		if strings.Contains(m.Up, "CREATE TABLE IF NOT EXISTS region_events") {
			found = true
		}
	}
	if !found {
		t.Error("expected a migration creating region_events")
	}
}
