package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/samirrijal/geofencing/internal/core/domain"
)

// readTrack parses a recorded track. Both a JSON array of location updates
// and JSON lines (one update per line) are accepted.
func readTrack(r io.Reader) ([]domain.LocationUpdate, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read track: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var track []domain.LocationUpdate
		if err := json.Unmarshal(data, &track); err != nil {
			return nil, fmt.Errorf("decode track: %w", err)
		}
		return track, nil
	}

	var track []domain.LocationUpdate
	sc := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var u domain.LocationUpdate
		if err := json.Unmarshal(b, &u); err != nil {
			return nil, fmt.Errorf("decode track line %d: %w", line, err)
		}
		track = append(track, u)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan track: %w", err)
	}
	return track, nil
}

// schedule returns how long to wait before publishing each point.
// Recorded timestamps are replayed scaled by speed; points without a usable
// timestamp fall back to the fixed interval.
func schedule(track []domain.LocationUpdate, speed float64, interval time.Duration) []time.Duration {
	waits := make([]time.Duration, len(track))
	for i := 1; i < len(track); i++ {
		prev, cur := track[i-1].Time, track[i].Time
		if speed <= 0 || prev.IsZero() || cur.IsZero() || !cur.After(prev) {
			waits[i] = interval
			continue
		}
		waits[i] = time.Duration(float64(cur.Sub(prev)) / speed)
	}
	return waits
}

// delay is how long to wait before publishing point i on the given pass
// (passes count from 1). Every pass after the first waits interval before
// its first point, so a looped track never publishes back to back.
func delay(waits []time.Duration, i, pass int, interval time.Duration) time.Duration {
	if i == 0 && pass > 1 {
		return interval
	}
	return waits[i]
}
