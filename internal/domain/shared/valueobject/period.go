package valueobject

import (
	"database/sql/driver"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/rentledger/backend/internal/domain/shared"
)

// Period is a calendar billing month (YYYY-MM)
type Period struct {
	year  int
	month time.Month
}

// NewPeriod creates a period, rejecting months outside 1..12 and years outside 1..9999
func NewPeriod(year int, month time.Month) (Period, error) {
	if year < 1 || year > 9999 {
		return Period{}, shared.NewValueError("period year %d out of range", year)
	}
	if month < time.January || month > time.December {
		return Period{}, shared.NewValueError("period month %d out of range", month)
	}
	return Period{year: year, month: month}, nil
}

// ParsePeriod parses a strict "YYYY-MM" string
func ParsePeriod(s string) (Period, error) {
	if len(s) != 7 || s[4] != '-' || !isDigits(s[:4]) || !isDigits(s[5:]) {
		return Period{}, shared.NewFormatError("invalid billing month %q, expected YYYY-MM", s)
	}
	year, _ := strconv.Atoi(s[:4])
	month, _ := strconv.Atoi(s[5:])
	p, err := NewPeriod(year, time.Month(month))
	if err != nil {
		return Period{}, shared.NewFormatError("invalid billing month %q: %s", s, err.Error())
	}
	return p, nil
}

// MustParsePeriod parses a period and panics on error
func MustParsePeriod(s string) Period {
	p, err := ParsePeriod(s)
	if err != nil {
		panic(err)
	}
	return p
}

// PeriodOf returns the UTC period containing the instant t
func PeriodOf(t time.Time) Period {
	y, m, _ := t.UTC().Date()
	return Period{year: y, month: m}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Year returns the calendar year
func (p Period) Year() int { return p.year }

// Month returns the calendar month
func (p Period) Month() time.Month { return p.month }

// IsZero returns true for the zero Period
func (p Period) IsZero() bool { return p.year == 0 }

func (p Period) index() int {
	return p.year*12 + int(p.month) - 1
}

func periodFromIndex(i int) Period {
	return Period{year: i / 12, month: time.Month(i%12 + 1)}
}

// AddMonths returns the period n months later (n may be negative)
func (p Period) AddMonths(n int) Period {
	return periodFromIndex(p.index() + n)
}

// Next returns the following month
func (p Period) Next() Period {
	return p.AddMonths(1)
}

// Compare returns -1, 0 or 1
func (p Period) Compare(other Period) int {
	switch a, b := p.index(), other.index(); {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Before reports whether p is earlier than other
func (p Period) Before(other Period) bool { return p.Compare(other) < 0 }

// After reports whether p is later than other
func (p Period) After(other Period) bool { return p.Compare(other) > 0 }

// String returns the YYYY-MM form
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.year, int(p.month))
}

// MonthsBetweenInclusive counts the months from..to, both included; 0 when to is before from
func MonthsBetweenInclusive(from, to Period) int {
	n := to.index() - from.index() + 1
	if n < 0 {
		return 0
	}
	return n
}

// PeriodRange returns count consecutive periods starting at from
func PeriodRange(from Period, count int) []Period {
	out := make([]Period, 0, max(count, 0))
	for i := 0; i < count; i++ {
		out = append(out, from.AddMonths(i))
	}
	return out
}

// SortPeriods sorts periods chronologically in place
func SortPeriods(ps []Period) {
	slices.SortFunc(ps, func(a, b Period) int { return a.Compare(b) })
}

// ParsePeriods parses a list of YYYY-MM strings, rejecting duplicates.
// The result is sorted chronologically.
func ParsePeriods(values []string) ([]Period, error) {
	out := make([]Period, 0, len(values))
	seen := make(map[Period]struct{}, len(values))
	for _, v := range values {
		p, err := ParsePeriod(v)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[p]; dup {
			return nil, shared.NewValidationError("billing month %s is listed more than once", p)
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	SortPeriods(out)
	return out, nil
}

// MarshalText implements encoding.TextMarshaler
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Value implements driver.Valuer for database storage
func (p Period) Value() (driver.Value, error) {
	return p.String(), nil
}

// Scan implements sql.Scanner for database retrieval
func (p *Period) Scan(value any) error {
	switch v := value.(type) {
	case string:
		return p.UnmarshalText([]byte(v))
	case []byte:
		return p.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into Period", value)
	}
}
