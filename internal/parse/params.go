package parse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// maxSensorIDs bounds the size of one sensor id set.
const maxSensorIDs = 1000

// Unix seconds of 0001-01-01T00:00:00Z and 9999-12-31T23:59:59Z.
const (
	minUnixSeconds = -62135596800
	maxUnixSeconds = 253402300799
)

// SensorIDs parses a single id ("4") or a comma-separated set ("1, 2,3").
// Duplicates are dropped; order of first appearance is kept.
func SensorIDs(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("sensor_id is required")
	}

	parts := strings.Split(raw, ",")
	if len(parts) > maxSensorIDs {
		return nil, fmt.Errorf("at most %d sensor ids are allowed", maxSensorIDs)
	}

	ids := make([]int64, 0, len(parts))
	seen := make(map[int64]struct{}, len(parts))
	for _, p := range parts {
		id, err := ID(p)
		if err != nil {
			return nil, fmt.Errorf("invalid sensor id %q", strings.TrimSpace(p))
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// ID parses a positive integer id.
func ID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// Timestamp parses a query bound given either as Unix seconds or as RFC 3339.
// An empty string yields nil. Years outside 1..9999 are rejected: the
// databases cannot store them and SQLite compares timestamps as text.
func Timestamp(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var t time.Time
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if secs < minUnixSeconds || secs > maxUnixSeconds {
			return nil, fmt.Errorf("timestamp %q is out of range", raw)
		}
		t = time.Unix(secs, 0).UTC()
	} else {
		t, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: use Unix seconds or RFC 3339", raw)
		}
		t = t.UTC()
	}

	if y := t.Year(); y < 1 || y > 9999 {
		return nil, fmt.Errorf("timestamp %q is out of range", raw)
	}
	return &t, nil
}
