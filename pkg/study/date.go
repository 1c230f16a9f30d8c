package study

import "strconv"

// InvalidDate is the display value for a raw date that cannot be formatted.
const InvalidDate = "invalid date"

// FormatStudyDate converts YYYYMMDD to DD/MM/YYYY. Month and day are range
// checked ([1,12] and [1,31]) but not validated against each other.
// Characters past the eighth are ignored.
func FormatStudyDate(raw string) string {
	if len(raw) < 8 {
		return InvalidDate
	}
	year, month, day := raw[0:4], raw[4:6], raw[6:8]
	m, err := strconv.Atoi(month)
	if err != nil {
		return InvalidDate
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return InvalidDate
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return InvalidDate
	}
	return day + "/" + month + "/" + year
}
