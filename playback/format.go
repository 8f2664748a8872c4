package playback

import (
	"fmt"
	"time"
)

// FormatDuration renders d as HH:MM:SS.mmm. Zero and Unbounded render as an
// empty string, meaning the value is not known or does not apply.
func FormatDuration(d time.Duration) string {
	if d == 0 || d == Unbounded {
		return ""
	}
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	d -= seconds * time.Second
	millis := d / time.Millisecond
	return fmt.Sprintf("%s%02d:%02d:%02d.%03d", sign, hours, minutes, seconds, millis)
}
