// Package snowflake converts between wall-clock time and Discord's
// time-ordered 64-bit identifier space. The high 42 bits of an id hold the
// creation time in milliseconds since the Discord epoch, so ids sort by
// creation time and a timestamp can be turned into a lower-bound cursor.
package snowflake

import (
	"fmt"
	"strconv"
	"time"
)

// Epoch is the Discord epoch (2015-01-01T00:00:00Z) in Unix milliseconds.
const Epoch int64 = 1420070400000

// timestampShift is the number of low bits below the timestamp field
// (worker, process and sequence bits).
const timestampShift = 22

// FromTime returns the smallest id whose creation time is at or after t.
// The result is a lower-bound cursor, never an id of a real object.
func FromTime(t time.Time) int64 {
	ms := t.UnixMilli() - Epoch
	if ms < 0 {
		ms = 0
	}
	return ms << timestampShift
}

// FromUnixSeconds is FromTime for a Unix timestamp in (fractional) seconds.
func FromUnixSeconds(ts float64) int64 {
	ms := int64(ts*1000) - Epoch
	if ms < 0 {
		ms = 0
	}
	return ms << timestampShift
}

// Time returns the creation time encoded in id, at millisecond resolution.
func Time(id int64) time.Time {
	ms := (id >> timestampShift) + Epoch
	return time.UnixMilli(ms).UTC()
}

// UnixSeconds returns the creation time encoded in id as fractional Unix
// seconds, matching the timestamp representation used in record payloads.
func UnixSeconds(id int64) float64 {
	ms := (id >> timestampShift) + Epoch
	return float64(ms) / 1000
}

// ParseID parses the decimal string form Discord uses on the wire.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snowflake %q: %w", s, err)
	}
	return id, nil
}

// FormatID renders an id back to its wire form.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
