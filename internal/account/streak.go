package account

import "time"

// Streak is the persisted login-streak state of one account.
type Streak struct {
	Count       int
	Best        int
	LastLoginAt time.Time
}

// Login gap windows. A gap under keepWindow holds the streak, a gap between
// keepWindow and resetWindow extends it, anything longer resets it.
const (
	keepWindow  = 24 * time.Hour
	resetWindow = 48 * time.Hour
)

// nextStreak computes the state after a login at now. LastLoginAt always
// advances to now; Best never decreases.
func nextStreak(prev Streak, now time.Time) Streak {
	next := Streak{Best: prev.Best, LastLoginAt: now}
	switch gap := now.Sub(prev.LastLoginAt); {
	case prev.LastLoginAt.IsZero():
		next.Count = 1
	case gap >= resetWindow:
		next.Count = 1
	case gap >= keepWindow:
		next.Count = prev.Count + 1
	default:
		next.Count = prev.Count
	}
	if next.Count < 1 {
		next.Count = 1
	}
	if next.Count > next.Best {
		next.Best = next.Count
	}
	return next
}

// level derives the display level from a streak count. Not persisted.
func level(count int) int {
	return 1 + count/7
}
