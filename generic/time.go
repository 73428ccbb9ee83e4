package generic

import (
	"regexp"
	"time"
	_ "time/tzdata" // zone database for minimal images
)

// =============================================================================
// DAY - Canonical business day (the ledger bucketing key)
// =============================================================================

// DayLayout is the only accepted textual form of a Day.
const DayLayout = "2006-01-02"

var dayPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Day is a calendar date with no time-of-day and no zone.
type Day struct {
	Year  int
	Month time.Month
	Dom   int
}

// NewDay builds a Day from its parts.
func NewDay(year int, month time.Month, dom int) Day {
	return Day{Year: year, Month: month, Dom: dom}
}

// DayOf returns the calendar day of t as seen in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc != nil {
		t = t.In(loc)
	}
	return Day{Year: t.Year(), Month: t.Month(), Dom: t.Day()}
}

// ParseDay parses a YYYY-MM-DD string. Anything else, including impossible
// dates like 2025-02-30, is a ValidationError.
func ParseDay(s string) (Day, error) {
	if !dayPattern.MatchString(s) {
		return Day{}, &ValidationError{Field: "day", Message: "date must be in YYYY-MM-DD format"}
	}
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return Day{}, &ValidationError{Field: "day", Message: "date is not a valid calendar day"}
	}
	return Day{Year: t.Year(), Month: t.Month(), Dom: t.Day()}, nil
}

// MustParseDay is ParseDay for constants and tests.
func MustParseDay(s string) Day {
	d, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Day) String() string { return d.Time().Format(DayLayout) }
func (d Day) IsZero() bool   { return d.Year == 0 && d.Month == 0 && d.Dom == 0 }

// Time returns midnight UTC of the day. Only used for formatting and ordering.
func (d Day) Time() time.Time { return time.Date(d.Year, d.Month, d.Dom, 0, 0, 0, 0, time.UTC) }

func (d Day) Before(other Day) bool { return d.Time().Before(other.Time()) }
func (d Day) After(other Day) bool  { return d.Time().After(other.Time()) }
func (d Day) AddDays(n int) Day     { return DayOf(d.Time().AddDate(0, 0, n), time.UTC) }

// =============================================================================
// DATE RESOLVER
// =============================================================================

// DefaultTimezone is the civil reference zone used when a caller does not
// supply its own day.
const DefaultTimezone = "America/Los_Angeles"

// DateResolver turns "now" or a caller-supplied date into a Day.
//
// A caller-supplied date is trusted verbatim once it passes format checks.
// The client knows its own local day; the server zone only applies when the
// client is silent.
type DateResolver struct {
	Location *time.Location
	Now      func() time.Time
}

// NewDateResolver loads the named IANA zone. An empty name uses DefaultTimezone.
func NewDateResolver(zone string) (*DateResolver, error) {
	if zone == "" {
		zone = DefaultTimezone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, err
	}
	return &DateResolver{Location: loc, Now: time.Now}, nil
}

// Resolve returns the explicit day when given, otherwise today in the
// resolver's zone.
func (r *DateResolver) Resolve(explicit string) (Day, error) {
	if explicit != "" {
		return ParseDay(explicit)
	}
	return r.Today(), nil
}

// Today returns the current day in the resolver's zone.
func (r *DateResolver) Today() Day {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return DayOf(now(), r.Location)
}
