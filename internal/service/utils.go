package service

import "math"

// containsString checks if a slice contains a specific string
func containsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// hasAtMostTwoDecimals reports whether a score carries at most two decimal
// places, compared with a small epsilon to absorb float representation noise
func hasAtMostTwoDecimals(score float64) bool {
	scaled := score * 100
	return math.Abs(scaled-math.Round(scaled)) < 1e-9
}
