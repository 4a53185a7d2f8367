package primitive

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Duration is a signed span of milliseconds.
type Duration int64

const (
	Millisecond Duration = 1
	Second               = 1000 * Millisecond
	Minute               = 60 * Second
	Hour                 = 60 * Minute
	Day                  = 24 * Hour
	Week                 = 7 * Day
	Month                = 30 * Day
	Year                 = 365 * Day
)

var durationUnits = map[string]Duration{
	"ms": Millisecond, "millisecond": Millisecond, "milliseconds": Millisecond,
	"s": Second, "second": Second, "seconds": Second,
	"m": Minute, "minute": Minute, "minutes": Minute,
	"h": Hour, "hour": Hour, "hours": Hour,
	"d": Day, "day": Day, "days": Day,
	"w": Week, "week": Week, "weeks": Week,
	"y": Year, "year": Year, "years": Year,
}

var (
	isoDuration = regexp.MustCompile(`^P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)
	unitField   = regexp.MustCompile(`^(\d+)([^\d].*)$`)
	allDigits   = regexp.MustCompile(`^\d+$`)
)

// Milliseconds returns d as an integer millisecond count.
func (d Duration) Milliseconds() int64 {
	return int64(d)
}

// Std converts d to a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d) * time.Millisecond
}

func DurationOf(d time.Duration) Duration {
	return Duration(d / time.Millisecond)
}

// String returns the canonical form, the millisecond count.
func (d Duration) String() string {
	return strconv.FormatInt(int64(d), 10)
}

// Pretty returns a unit list such as "1h 30m", "-2d 4h" or "0ms".
func (d Duration) Pretty() string {
	if d == 0 {
		return "0ms"
	}
	b := &strings.Builder{}
	rem := int64(d)
	if rem < 0 {
		b.WriteByte('-')
		rem = -rem
	}
	units := []struct {
		n    Duration
		name string
	}{
		{Year, "y"}, {Week, "w"}, {Day, "d"}, {Hour, "h"},
		{Minute, "m"}, {Second, "s"}, {Millisecond, "ms"},
	}
	first := true
	for _, u := range units {
		q := rem / int64(u.n)
		if q == 0 {
			continue
		}
		rem %= int64(u.n)
		if !first {
			b.WriteByte(' ')
		}
		first = false
		b.WriteString(strconv.FormatInt(q, 10))
		b.WriteString(u.name)
	}
	return b.String()
}

// ParseDuration accepts integer milliseconds, ISO 8601 durations ("PT5M",
// "P1DT2H", "PT1.5S") and unit lists ("1h 30m", "90 minutes"). A leading '-'
// negates any of these forms.
func ParseDuration(s string) (Duration, error) {
	in := s
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimSpace(s[1:])
	}
	if s == "" {
		return 0, parseErr("duration", in, "empty")
	}
	var (
		d   Duration
		err error
	)
	switch {
	case allDigits.MatchString(s):
		var n int64
		n, err = strconv.ParseInt(s, 10, 64)
		d = Duration(n)
	case s[0] == 'P':
		d, err = parseISODuration(s)
	default:
		d, err = parseUnitDuration(s)
	}
	if err != nil {
		return 0, parseErr("duration", in, err.Error())
	}
	if neg {
		d = -d
	}
	return d, nil
}

func parseISODuration(s string) (Duration, error) {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" || strings.HasSuffix(s, "T") {
		return 0, errString("not an ISO 8601 duration")
	}
	mults := []Duration{Year, Month, Week, Day, Hour, Minute}
	var d Duration
	for i, mult := range mults {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return 0, err
		}
		d += Duration(n) * mult
	}
	if m[7] != "" {
		f, err := strconv.ParseFloat(m[7], 64)
		if err != nil {
			return 0, err
		}
		d += Duration(math.Round(f * float64(Second)))
	}
	return d, nil
}

func parseUnitDuration(s string) (Duration, error) {
	fields := strings.Fields(s)
	var d Duration
	for i := 0; i < len(fields); i++ {
		var value, unit string
		switch {
		case allDigits.MatchString(fields[i]) && i < len(fields)-1:
			value, unit = fields[i], fields[i+1]
			i++
		default:
			m := unitField.FindStringSubmatch(fields[i])
			if m == nil {
				return 0, errString("unable to parse " + strconv.Quote(fields[i]))
			}
			value, unit = m[1], m[2]
		}
		mult, ok := durationUnits[strings.ToLower(unit)]
		if !ok {
			return 0, errString("unknown unit " + strconv.Quote(unit))
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, err
		}
		d += Duration(n) * mult
	}
	return d, nil
}

type errString string

func (e errString) Error() string { return string(e) }
