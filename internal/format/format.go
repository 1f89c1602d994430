package format

import (
	"fmt"
	"time"
)

// ShortOIDLen is the abbreviated commit id length used in tables.
const ShortOIDLen = 7

// RelativeTime formats t relative to the current time.
func RelativeTime(t time.Time) string {
	return RelativeTimeFrom(t, time.Now())
}

// RelativeTimeFrom formats t relative to now. The zero time renders as "".
func RelativeTimeFrom(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < 5*time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 48*time.Hour:
		return "yesterday"
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
	return t.Format("2006-01-02")
}

// ShortOID abbreviates a commit id.
func ShortOID(oid string) string {
	if len(oid) > ShortOIDLen {
		return oid[:ShortOIDLen]
	}
	return oid
}

// ShortID abbreviates a project id for display.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
