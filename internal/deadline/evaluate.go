package deadline

import (
	"sort"
	"time"
)

// Today computes the reference date: the current calendar day in loc,
// normalized to midnight UTC so it compares exactly against parsed dates.
// Never stored; recomputed at the start of every cycle or query.
func Today(loc *time.Location) time.Time {
	now := time.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// FiresToday reports whether a record triggers a notification for ref.
//
// Normal mode: ref exactly equals deadline 1, deadline 2 or the post date
// (any one suffices). Catch-up mode: ref is on or after any of the three,
// which makes the predicate monotone in time — once true it stays true for
// every later reference date, so a day the process was offline is not
// silently lost.
func FiresToday(r Record, ref time.Time, catchUp bool) bool {
	for _, d := range []time.Time{r.Deadline1, r.Deadline2, r.PostDate} {
		if d.IsZero() {
			continue
		}
		if catchUp {
			if !d.After(ref) {
				return true
			}
		} else if d.Equal(ref) {
			return true
		}
	}
	return false
}

// AheadDeadlines collects the record's deadlines on or after ref,
// deduplicated and ascending. The post date does not participate here even
// though it does in FiresToday.
func AheadDeadlines(r Record, ref time.Time) []time.Time {
	var out []time.Time
	for _, d := range []time.Time{r.Deadline1, r.Deadline2} {
		if d.IsZero() || d.Before(ref) {
			continue
		}
		dup := false
		for _, seen := range out {
			if seen.Equal(d) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
