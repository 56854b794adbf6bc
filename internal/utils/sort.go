package utils

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

func SortDates(dates []time.Time, asc bool) []time.Time {
	slices.SortFunc(dates, func(a, b time.Time) int {
		if asc {
			return a.Compare(b)
		}
		return b.Compare(a)
	})
	return dates
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ParseDate accepts YYYY-MM-DD or "today".
func ParseDate(input string) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "today" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	date, err := time.Parse(time.DateOnly, input)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %s. Please use YYYY-MM-DD", input)
	}
	return date, nil
}
