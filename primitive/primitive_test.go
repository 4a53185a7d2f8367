package primitive

import (
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want Duration
	}{
		{"0", 0},
		{"300000", 5 * Minute},
		{"PT5M", 5 * Minute},
		{"P1DT2H", Day + 2*Hour},
		{"PT1.5S", 1500 * Millisecond},
		{"P2W", 2 * Week},
		{"P1Y", Year},
		{"-PT30S", -30 * Second},
		{"1h 30m", Hour + 30*Minute},
		{"90 minutes", 90 * Minute},
		{"2d 4h", 2*Day + 4*Hour},
		{"-2d 4h", -(2*Day + 4*Hour)},
		{"250ms", 250 * Millisecond},
		{" 1 Week ", Week},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			assert.Equal(t, err, nil)
			assert.Equal(t, got, tt.want)
		})
	}
}

func TestParseDurationErrors(t *testing.T) {
	for _, in := range []string{"", "-", "P", "PT", "P1DT", "5 parsecs", "h5", "1.5h", "PT5X"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseDuration(in)
			if !errors.Is(err, ErrParse) {
				t.Errorf("ParseDuration(%q) err = %v, want ErrParse", in, err)
			}
		})
	}
}

func TestDurationRoundTrip(t *testing.T) {
	for _, d := range []Duration{0, 1, -1, Minute, 3*Day + 7*Millisecond, -Year} {
		got, err := ParseDuration(d.String())
		assert.Equal(t, err, nil)
		assert.Equal(t, got, d)
		got, err = ParseDuration(d.Pretty())
		assert.Equal(t, err, nil)
		assert.Equal(t, got, d)
	}
}

func TestDurationPretty(t *testing.T) {
	assert.Equal(t, (Hour + 30*Minute).Pretty(), "1h 30m")
	assert.Equal(t, Duration(0).Pretty(), "0ms")
	assert.Equal(t, (-Week - 5*Millisecond).Pretty(), "-1w 5ms")
	assert.Equal(t, DurationOf(90*time.Second), 90*Second)
	assert.Equal(t, (2 * Second).Std(), 2*time.Second)
}

func TestParseTimestamp(t *testing.T) {
	ref := TimestampOf(time.Date(2024, 3, 1, 12, 30, 15, 250e6, time.UTC))
	tests := []struct {
		in   string
		want Timestamp
	}{
		{"2024-03-01T12:30:15.250Z", ref},
		{"2024-03-01T14:30:15.250+02:00", ref},
		{"2024-03-01T12:30:15.25", ref},
		{"2024-03-01 12:30:15.250 +0000", ref},
		{"2024-03-01", TimestampOf(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))},
		{"1000", 1000},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			assert.Equal(t, err, nil)
			assert.Equal(t, got, tt.want)
		})
	}
	_, err := ParseTimestamp("yesterday")
	assert.Equal(t, errors.Is(err, ErrParse), true)
}

func TestTimestampRoundTrip(t *testing.T) {
	for _, ts := range []Timestamp{0, 1, 1709296215250, 4102444800000} {
		s := ts.String()
		got, err := ParseTimestamp(s)
		assert.Equal(t, err, nil)
		assert.Equal(t, got, ts)
		got, err = ParseTimestamp(ts.Pretty(time.FixedZone("x", 3600)))
		assert.Equal(t, err, nil)
		assert.Equal(t, got, ts)
	}
	assert.Equal(t, Timestamp(0).String(), "1970-01-01T00:00:00.000Z")
	assert.Equal(t, Timestamp(1000).Add(Second), Timestamp(2000))
	assert.Equal(t, Timestamp(5000).Sub(Timestamp(2000)), 3*Second)
}

func TestReference(t *testing.T) {
	r := NewReference("simulation", "scenario", "a:b")
	assert.Equal(t, r.String(), `simulation:scenario:a\:b`)
	assert.Equal(t, r.Name(), "a:b")
	assert.Equal(t, r.Scope().String(), "simulation:scenario")
	assert.Equal(t, r.Scope().Scope().Scope().IsZero(), true)
	p, err := ParseReference(r.String())
	assert.Equal(t, err, nil)
	assert.Equal(t, p.Equal(r), true)
	assert.Equal(t, r.Child("x").Len(), 4)
	assert.Equal(t, r.Len(), 3)

	for _, bad := range []string{"", "a::b", `a\`, ":a"} {
		_, err := ParseReference(bad)
		if !errors.Is(err, ErrParse) {
			t.Errorf("ParseReference(%q) err = %v", bad, err)
		}
	}
}

func TestSymbolCode(t *testing.T) {
	code, err := ParseSymbolCode("  SFGPU----------  ")
	assert.Equal(t, err, nil)
	assert.Equal(t, code, "SFGPU----------")
	assert.Equal(t, len(NoSymbolCode), SymbolCodeLen)
	for _, bad := range []string{"", "SFGPU", "SFGPU-----------X"} {
		_, err := ParseSymbolCode(bad)
		assert.Equal(t, errors.Is(err, ErrParse), true)
	}
}
