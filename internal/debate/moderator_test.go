package debate

import (
	"strings"
	"testing"

	"preddesk/internal/config"
	"preddesk/internal/estimator"
)

func TestModerate_ConfidenceWeighted(t *testing.T) {
	finals := []estimator.Estimate{
		{Desk: "a", Probability: 0.30, Confidence: 0.6},
		{Desk: "b", Probability: 0.60, Confidence: 0.8},
	}
	value, note := Moderate(config.ModeratorPolicyConfidenceWeighted, finals)
	want := (0.30*0.6 + 0.60*0.8) / 1.4
	if diff := value - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("value=%v want %v", value, want)
	}
	if !strings.Contains(note, "a=0.3000") || !strings.Contains(note, "b=0.6000") {
		t.Fatalf("note=%q want per-desk inputs recorded", note)
	}
}

func TestModerate_EqualConfidenceClosestToHalf(t *testing.T) {
	finals := []estimator.Estimate{
		{Desk: "a", Probability: 0.20, Confidence: 0.7},
		{Desk: "b", Probability: 0.45, Confidence: 0.7},
		{Desk: "c", Probability: 0.90, Confidence: 0.7},
	}
	value, note := Moderate(config.ModeratorPolicyConfidenceWeighted, finals)
	if value != 0.45 {
		t.Fatalf("value=%v want 0.45", value)
	}
	if !strings.Contains(note, "closest to 0.5") {
		t.Fatalf("note=%q want equal-confidence rule named", note)
	}
}

func TestModerate_ConservativePull(t *testing.T) {
	finals := []estimator.Estimate{
		{Desk: "a", Probability: 0.80, Confidence: 0.5},
		{Desk: "b", Probability: 0.80, Confidence: 0.5},
	}
	value, _ := Moderate(config.ModeratorPolicyConservative, finals)
	want := 0.80*0.9 + 0.05
	if diff := value - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("value=%v want %v", value, want)
	}
}

func TestModerate_Empty(t *testing.T) {
	value, _ := Moderate(config.ModeratorPolicyConfidenceWeighted, nil)
	if value != 0 {
		t.Fatalf("value=%v want 0", value)
	}
}

func TestModerate_ZeroConfidenceFloored(t *testing.T) {
	finals := []estimator.Estimate{
		{Desk: "a", Probability: 0.40, Confidence: 0},
		{Desk: "b", Probability: 0.70, Confidence: 0.9},
	}
	value, _ := Moderate(config.ModeratorPolicyConfidenceWeighted, finals)
	if value <= 0.40 || value >= 0.70 {
		t.Fatalf("value=%v want inside (0.40, 0.70)", value)
	}
	// The floored desk barely moves the weighted result.
	if value < 0.69 {
		t.Fatalf("value=%v want dominated by the confident desk", value)
	}
}
