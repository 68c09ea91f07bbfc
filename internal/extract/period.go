package extract

import (
	"strconv"
	"strings"
)

var monthNumbers = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4,
	"may": 5, "june": 6, "july": 7, "august": 8,
	"september": 9, "october": 10, "november": 11, "december": 12,
}

// ParseYear finds the four-digit year in a raw month value such as
// "January 2024".
func ParseYear(s string) (int, bool) {
	run := 0
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if run == 0 {
				start = i
			}
			run++
			continue
		}
		if run == 4 {
			break
		}
		run = 0
	}
	if run != 4 {
		return 0, false
	}
	year, err := strconv.Atoi(s[start : start+4])
	if err != nil || year < 1900 || year > 2200 {
		return 0, false
	}
	return year, true
}

// ParsePeriod extracts (year, month number, month name) from a raw
// month value such as "January 2024".
func ParsePeriod(s string) (year, month int, name string, ok bool) {
	year, ok = ParseYear(s)
	if !ok {
		return 0, 0, "", false
	}
	for _, tok := range strings.Fields(s) {
		if m, found := monthNumbers[strings.ToLower(tok)]; found {
			// Canonical title-case month name.
			lower := strings.ToLower(tok)
			return year, m, strings.ToUpper(lower[:1]) + lower[1:], true
		}
	}
	return 0, 0, "", false
}
