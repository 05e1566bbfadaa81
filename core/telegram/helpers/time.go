package helpers

import "time"

// PrettyDateLayout renders dates as "Monday, 02 Jan 2006".
const PrettyDateLayout = "Monday, 02 Jan 2006"

// PrettyDate formats an optional timestamp for chat output; nil renders as "N/A".
func PrettyDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "N/A"
	}
	return t.Format(PrettyDateLayout)
}
