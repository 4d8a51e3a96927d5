package billing

import (
	"fmt"
	"regexp"
	"time"
)

// Billing periods are calendar months identified as "YYYY-MM". The string
// form sorts chronologically, which is what the oldest-outstanding-charge
// ordering relies on.

var periodRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

func IsValidPeriod(period string) bool {
	return periodRe.MatchString(period)
}

func CurrentPeriod() string {
	return PeriodFromDate(time.Now())
}

func PeriodFromDate(date time.Time) string {
	return date.Format("2006-01")
}

// PeriodRange returns the inclusive start and end instants of the period.
func PeriodRange(period string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", period)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid billing period %q: %w", period, err)
	}

	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end, nil
}

func PeriodLabel(period string) string {
	start, err := time.Parse("2006-01", period)
	if err != nil {
		return period
	}
	return start.Format("Jan 2006")
}
