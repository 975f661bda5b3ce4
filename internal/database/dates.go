package database

import "time"

// GetToday returns today's date as YYYY-MM-DD.
func GetToday() string {
	return time.Now().Format("2006-01-02")
}

// Now returns the current UTC time in the format used for uploaded_at and
// indexed_at stamps.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// FormatDateDisplay formats a YYYY-MM-DD episode date for human-readable
// output, e.g. "Feb 06, 2026". Unparseable input is returned unchanged.
func FormatDateDisplay(date string) string {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return d.Format("Jan 02, 2006")
}
