package primitive

import (
	"strconv"
	"strings"
	"time"
)

// Timestamp is a count of milliseconds since the Unix epoch.
type Timestamp int64

const (
	canonicalLayout = "2006-01-02T15:04:05.000Z"
	prettyLayout    = "2006-01-02 15:04:05.000 -0700"
	dateLayout      = "2006-01-02"
)

// timestamp layouts tried in order after integer milliseconds. Layouts
// without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	prettyLayout,
	"2006-01-02 15:04:05 -0700",
	dateLayout,
}

func TimestampOf(t time.Time) Timestamp {
	return Timestamp(t.UnixMilli())
}

func (t Timestamp) Milliseconds() int64 {
	return int64(t)
}

func (t Timestamp) Time() time.Time {
	return time.UnixMilli(int64(t)).UTC()
}

func (t Timestamp) Add(d Duration) Timestamp {
	return t + Timestamp(d)
}

// Sub returns the duration t-u.
func (t Timestamp) Sub(u Timestamp) Duration {
	return Duration(t - u)
}

// String returns the canonical form, an xsd:dateTime in UTC with
// millisecond precision.
func (t Timestamp) String() string {
	return t.Time().Format(canonicalLayout)
}

// Pretty formats t in loc, or in the local zone when loc is nil.
func (t Timestamp) Pretty(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.Time().In(loc).Format(prettyLayout)
}

// ParseTimestamp accepts integer milliseconds, an xsd:dateTime with optional
// fraction and zone, the Pretty form and a bare date.
func ParseTimestamp(s string) (Timestamp, error) {
	in := s
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, parseErr("timestamp", in, "empty")
	}
	if allDigits.MatchString(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, parseErr("timestamp", in, err.Error())
		}
		return Timestamp(n), nil
	}
	for _, layout := range timestampLayouts {
		tm, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return TimestampOf(tm), nil
		}
	}
	return 0, parseErr("timestamp", in, "")
}
