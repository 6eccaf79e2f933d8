package search

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// RangeDelimiter separates the two ends of a timestamp range
const RangeDelimiter = " - "

var ErrInvalidTime = errors.New("invalid time expression")

var layouts = []string{
	"2006-01-02",
	"01/02/2006",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// TimeParser reads absolute dates first and falls back to natural language
type TimeParser struct {
	natural *when.Parser
}

func NewTimeParser() *TimeParser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &TimeParser{natural: w}
}

// Parse resolves one expression relative to now, in now's location
func (p *TimeParser) Parse(expr string, now time.Time) (time.Time, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidTime)
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, expr, now.Location()); err == nil {
			return t, nil
		}
	}
	r, err := p.natural.Parse(expr, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidTime, expr, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, expr)
	}
	return r.Time, nil
}

// Range turns "a" into the day of a and "a - b" into the days a through b,
// both as half-open intervals.
func (p *TimeParser) Range(expr string, now time.Time) (TimeRange, error) {
	if strings.Contains(expr, RangeDelimiter) {
		parts := strings.SplitN(expr, RangeDelimiter, 2)
		start, err := p.Parse(parts[0], now)
		if err != nil {
			return TimeRange{}, err
		}
		end, err := p.Parse(parts[1], now)
		if err != nil {
			return TimeRange{}, err
		}
		return TimeRange{Start: startOfDay(start), End: startOfDay(end).AddDate(0, 0, 1)}, nil
	}
	t, err := p.Parse(expr, now)
	if err != nil {
		return TimeRange{}, err
	}
	day := startOfDay(t)
	return TimeRange{Start: day, End: day.AddDate(0, 0, 1)}, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func timestampUnset(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "0"
}
