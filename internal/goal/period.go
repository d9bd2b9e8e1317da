package goal

import "time"

// PeriodFor returns the monthly window anchored to the commit date: the first
// through the last calendar day of t's month, in t's location. time.Date
// normalizes month 13, so the December window rolls into January correctly.
func PeriodFor(t time.Time) (start, end time.Time) {
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	end = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location()).AddDate(0, 0, -1)
	return start, end
}
