package analytics

import "time"

// allowedDays is the set of lookback values the API accepts.
var allowedDays = map[int]struct{}{
	1:  {},
	2:  {},
	7:  {},
	15: {},
	20: {},
}

// ValidDays reports whether days is one of the allowed lookback values
// (1, 2, 7, 15 or 20).
func ValidDays(days int) bool {
	_, ok := allowedDays[days]
	return ok
}

// Window is a calendar-date reporting range. Start and End are UTC midnights;
// both days are part of the window, so a Window built from N lookback days
// spans N+1 calendar dates.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow derives the reporting window from a lookback day count, anchored
// at now. Timestamps are stored in UTC, so the window is computed there too.
func NewWindow(days int, now time.Time) Window {
	end := truncateToDate(now.UTC())
	return Window{
		Start: end.AddDate(0, 0, -days),
		End:   end,
	}
}

// Bounds returns the half-open timestamp interval [from, to) covering the
// window, with to set to the midnight after End so the end day is included.
func (w Window) Bounds() (from, to time.Time) {
	return w.Start, w.End.AddDate(0, 0, 1)
}

// Dates returns every calendar date in the window, ascending.
func (w Window) Dates() []time.Time {
	var dates []time.Time
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// Range formats the window as a response date range.
func (w Window) Range() DateRange {
	return DateRange{
		StartDate: w.Start.Format(dateFormat),
		EndDate:   w.End.Format(dateFormat),
	}
}

const dateFormat = "2006-01-02"

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// fillDailySessions expands grouped session counts into one bucket per
// calendar date in the window, ascending, with zero counts for missing days.
func fillDailySessions(w Window, byDate map[string]int64) []DailySessions {
	dates := w.Dates()
	buckets := make([]DailySessions, 0, len(dates))
	for _, d := range dates {
		key := d.Format(dateFormat)
		buckets = append(buckets, DailySessions{
			Date:     key,
			Sessions: byDate[key],
		})
	}
	return buckets
}

// fillDailyTokens expands grouped token sums into one bucket per calendar
// date in the window, ascending, with zero sums for missing days.
func fillDailyTokens(w Window, byDate map[string]DailyTokens) []DailyTokens {
	dates := w.Dates()
	buckets := make([]DailyTokens, 0, len(dates))
	for _, d := range dates {
		key := d.Format(dateFormat)
		bucket := byDate[key]
		bucket.Date = key
		buckets = append(buckets, bucket)
	}
	return buckets
}
