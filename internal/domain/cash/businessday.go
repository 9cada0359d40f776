package cash

import (
	"fmt"
	"math"
	"time"
)

// OpeningTime is the time of day a business day starts.
type OpeningTime struct {
	Hour, Minute int
}

var DefaultOpeningTime = OpeningTime{Hour: 9}

// ParseOpeningTime parses "HH:MM".
func ParseOpeningTime(s string) (OpeningTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return OpeningTime{}, fmt.Errorf("opening time %q: want HH:MM", s)
	}
	return OpeningTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (o OpeningTime) String() string { return fmt.Sprintf("%02d:%02d", o.Hour, o.Minute) }

// BusinessDayStart returns the instant the business day containing now
// began. Before the opening time it is still the previous day's business.
func BusinessDayStart(now time.Time, o OpeningTime) time.Time {
	start := time.Date(now.Year(), now.Month(), now.Day(), o.Hour, o.Minute, 0, 0, now.Location())
	if now.Before(start) {
		start = start.AddDate(0, 0, -1)
	}
	return start
}

// BusinessDay is the calendar date that names the business day of now.
func BusinessDay(now time.Time, o OpeningTime) time.Time {
	s := BusinessDayStart(now, o)
	return time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
