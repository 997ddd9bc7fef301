package estimator

import "testing"

func TestExtractProbability(t *testing.T) {
	cases := []struct {
		text string
		want float64
		ok   bool
	}{
		{"After weighing the polling data, updated probability: 0.62", 0.62, true},
		{"updated probability: 0.6", 0.6, true},
		{"I estimate the probability at 0.45 given current trends.", 0.45, true},
		{"Probability: 15%", 0.15, true},
		{"The base rate suggests roughly 0.7 here.", 0.7, true},
		{"I'd put this at 80% likely.", 0.8, true},
		{"probability of 1", 1, true},
		{"no numbers to speak of", 0, false},
		{"happened in 1998 and 2003", 0, false},
	}
	for _, tc := range cases {
		got, ok := ExtractProbability(tc.text)
		if ok != tc.ok {
			t.Fatalf("%q: ok=%v want %v", tc.text, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("%q: got=%v want %v", tc.text, got, tc.want)
		}
	}
}

func TestExtractConfidence(t *testing.T) {
	cases := []struct {
		text string
		want float64
		ok   bool
	}{
		{"confidence: 0.8", 0.8, true},
		{"My confidence is 75", 0.75, true},
		{"Confidence level around 60%", 0.6, true},
		{"no confidence statement", 0, false},
	}
	for _, tc := range cases {
		got, ok := ExtractConfidence(tc.text)
		if ok != tc.ok {
			t.Fatalf("%q: ok=%v want %v", tc.text, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("%q: got=%v want %v", tc.text, got, tc.want)
		}
	}
}

func TestReviseToward(t *testing.T) {
	own := Estimate{Desk: "a", Probability: 0.30, Confidence: 0.5}
	peers := []Estimate{{Desk: "b", Probability: 0.70, Confidence: 0.8}}

	revised := reviseToward(own, peers)
	// Half-confidence desk moves halfway to the peer mean.
	if diff := revised - 0.50; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("revised=%v want 0.50", revised)
	}

	confident := Estimate{Desk: "a", Probability: 0.30, Confidence: 1.0}
	if got := reviseToward(confident, peers); got != 0.30 {
		t.Fatalf("revised=%v want unchanged at full confidence", got)
	}

	if got := reviseToward(own, nil); got != 0.30 {
		t.Fatalf("revised=%v want unchanged with no peers", got)
	}
}

func TestClampProbability(t *testing.T) {
	if got := clampProbability(-0.2); got != 0.01 {
		t.Fatalf("got=%v want 0.01", got)
	}
	if got := clampProbability(1.5); got != 0.99 {
		t.Fatalf("got=%v want 0.99", got)
	}
	if got := clampProbability(0.42); got != 0.42 {
		t.Fatalf("got=%v want passthrough", got)
	}
}
