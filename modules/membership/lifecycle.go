package membership

import "time"

// transitions is the declarative lifecycle table. A transition absent from
// the map is invalid; terminal states have no outgoing edges, so any event
// arriving for a cancelled or expired row is a no-op by construction.
var transitions = map[Status][]Status{
	StatusPending: {StatusActive, StatusExpired},
	StatusActive:  {StatusPaused, StatusCancelled, StatusExpired},
	StatusPaused:  {StatusActive, StatusCancelled, StatusExpired},
}

// CanTransition reports whether the lifecycle allows moving from one status
// to another.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outgoing transitions.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0
}

// IsCurrent reports whether a status counts toward the one-subscription-per-
// (subscriber, creator) invariant and the tier's subscriber count.
func IsCurrent(s Status) bool {
	return s == StatusActive || s == StatusPaused
}

// NextBillingDate advances a billing anchor by one interval using calendar
// arithmetic, not fixed day counts. The anchor day is clamped to the length
// of the destination month, so a Jan 31 monthly anchor bills Feb 28 (or 29),
// and a Feb 29 yearly anchor bills Feb 28 in non-leap years. time.AddDate's
// overflow normalization (Jan 31 + 1 month = Mar 3) is exactly what this
// avoids.
func NextBillingDate(from time.Time, interval BillingInterval) time.Time {
	year, month, day := from.Date()

	switch interval {
	case IntervalYearly:
		year++
	default:
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}

	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}

	return time.Date(year, month, day,
		from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
}

// AdvanceBillingDate computes the next billing anchor for a renewal. Late
// webhook deliveries must not schedule the next charge in the past, so the
// base is whichever is later: the current anchor or now.
func AdvanceBillingDate(current *time.Time, now time.Time, interval BillingInterval) time.Time {
	base := now
	if current != nil && current.After(now) {
		base = *current
	}
	return NextBillingDate(base, interval)
}

func lastDayOfMonth(year int, month time.Month) int {
	// Day zero of the next month normalizes to this month's last day.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
