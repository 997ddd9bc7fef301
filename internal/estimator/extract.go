package estimator

import (
	"regexp"
	"strconv"
)

// Patterns for pulling a probability out of free-form research replies,
// tried in order of specificity. Percent forms are normalized to [0,1].
var probabilityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)updated probability[:\s]+([01](?:\.\d+)?)\b`),
	regexp.MustCompile(`(?i)probability[^\d]{0,15}([01](?:\.\d+)?)\b`),
	regexp.MustCompile(`(?i)probability[^\d]{0,15}(\d{1,3}(?:\.\d+)?)\s*%`),
	regexp.MustCompile(`\b(0\.\d+)\b`),
	regexp.MustCompile(`\b(\d{1,3}(?:\.\d+)?)\s*%`),
}

var confidencePattern = regexp.MustCompile(`(?i)confidence[^\d]{0,15}(\d{1,3}(?:\.\d+)?)`)

// ExtractProbability scans a reply for a probability statement. The second
// return is false when nothing parseable was found; callers treat that as a
// hold, never as 0.
func ExtractProbability(text string) (float64, bool) {
	for i, pattern := range probabilityPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		val, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		// Percent-form patterns.
		if i == 2 || i == 4 {
			val /= 100
		}
		if val >= 0 && val <= 1 {
			return val, true
		}
	}
	return 0, false
}

func ExtractConfidence(text string) (float64, bool) {
	match := confidencePattern.FindStringSubmatch(text)
	if match == nil {
		return 0, false
	}
	val, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	// Values above 1 are read as percentages.
	if val > 1 {
		val /= 100
	}
	if val >= 0 && val <= 1 {
		return val, true
	}
	return 0, false
}
