package utils

import "time"

// Philippine time location (PHT, +08:00). All gateway timestamps and receipts
// are rendered in local fleet time for operators.
var phLoc = func() *time.Location {
	if loc, err := time.LoadLocation("Asia/Manila"); err == nil {
		return loc
	}
	return time.FixedZone("PHT", 8*3600)
}()

// Store seconds consistently in the DB.
func NowUnixSeconds() int64 { return time.Now().Unix() }

// Convert an epoch value in seconds to PH time.
// Returns zero time if t<=0 to let callers decide how to render.
func FromUnixSecondsPH(t int64) time.Time {
	if t <= 0 {
		return time.Time{}
	}
	return time.Unix(t, 0).In(phLoc)
}

func FormatRFC3339PH(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(phLoc).Format(time.RFC3339)
}
