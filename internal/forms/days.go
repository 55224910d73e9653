package forms

import "strings"

// Weekdays are the days reports are published for, in display order.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday"}

// NormalizeDay lower-cases day and reports whether it is a report weekday.
func NormalizeDay(day string) (string, bool) {
	d := strings.ToLower(strings.TrimSpace(day))
	for _, w := range Weekdays {
		if d == w {
			return d, true
		}
	}
	return "", false
}
