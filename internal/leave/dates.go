package leave

import (
	"time"

	dErrors "medleave/pkg/domain-errors"
)

// MaxSpanDays bounds a single absence range.
const MaxSpanDays = 90

// dateLayout is the canonical ISO calendar-date form accepted at the boundary.
const dateLayout = "2006-01-02"

// DateRange is an inclusive calendar-date interval. Both endpoints are UTC
// midnights; time-of-day never participates in comparisons.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDate parses an ISO calendar date into a UTC midnight.
func ParseDate(raw string) (time.Time, error) {
	parsed, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, dErrors.Wrap(err, dErrors.CodeValidation, "invalid date, want YYYY-MM-DD: "+raw)
	}
	return parsed, nil
}

// NewDateRange parses and validates a submission range: well-formed dates,
// start ≤ end, span ≤ MaxSpanDays.
func NewDateRange(startRaw, endRaw string) (DateRange, error) {
	start, err := ParseDate(startRaw)
	if err != nil {
		return DateRange{}, err
	}
	end, err := ParseDate(endRaw)
	if err != nil {
		return DateRange{}, err
	}
	r := DateRange{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// Validate enforces ordering and the maximum span.
func (r DateRange) Validate() error {
	if r.Start.After(r.End) {
		return dErrors.New(dErrors.CodeValidation, "start date must not be after end date")
	}
	if r.Days() > MaxSpanDays {
		return dErrors.New(dErrors.CodeValidation, "range exceeds the 90-day maximum span")
	}
	return nil
}

// Days returns the inclusive length of the range in calendar days.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Overlaps reports whether two inclusive ranges share at least one day:
// start ≤ other.end AND end ≥ other.start.
func (r DateRange) Overlaps(other DateRange) bool {
	return !r.Start.After(other.End) && !r.End.Before(other.Start)
}

// FormatDate renders a UTC midnight back to its ISO calendar-date form.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
