package calibration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"preddesk/internal/models"
	"preddesk/internal/repository"
)

type stubStore struct {
	inserted []*models.CalibrationRecord
	records  []models.CalibrationRecord
}

func (s *stubStore) InsertCalibrationRecord(ctx context.Context, item *models.CalibrationRecord) error {
	s.inserted = append(s.inserted, item)
	return nil
}

func (s *stubStore) ListCalibrationRecords(ctx context.Context, params repository.ListCalibrationParams) ([]models.CalibrationRecord, error) {
	return s.records, nil
}

func TestBrierScore(t *testing.T) {
	cases := []struct {
		p       float64
		outcome bool
		want    float64
	}{
		{1.0, true, 0},
		{0.0, false, 0},
		{0.5, true, 0.25},
		{0.5, false, 0.25},
		{1.0, false, 1},
	}
	for _, tc := range cases {
		got := BrierScore(tc.p, tc.outcome)
		if diff := got - tc.want; diff > 1e-12 || diff < -1e-12 {
			t.Fatalf("brier(%v,%v)=%v want %v", tc.p, tc.outcome, got, tc.want)
		}
	}
}

func TestScore_PersistsRecord(t *testing.T) {
	store := &stubStore{}
	acc := NewAccumulator(store, nil)

	resolvedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec, err := acc.Score(context.Background(), "m1", 0.7, map[string]float64{
		"base-rate":    0.6,
		"market-model": 0.8,
	}, true, resolvedAt)
	if err != nil {
		t.Fatalf("score err=%v", err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("inserted=%d want 1", len(store.inserted))
	}
	wantBrier := BrierScore(0.7, true)
	if rec.BrierScore != wantBrier {
		t.Fatalf("brier=%v want %v", rec.BrierScore, wantBrier)
	}
	var desks map[string]float64
	if err := json.Unmarshal(rec.DeskEstimates, &desks); err != nil {
		t.Fatalf("desk estimates payload: %v", err)
	}
	if desks["base-rate"] != 0.6 || desks["market-model"] != 0.8 {
		t.Fatalf("desks=%v want stored estimates", desks)
	}
}

func TestDeskSummary(t *testing.T) {
	mk := func(outcome bool, desks map[string]float64) models.CalibrationRecord {
		payload, _ := json.Marshal(desks)
		return models.CalibrationRecord{Outcome: outcome, DeskEstimates: payload}
	}
	store := &stubStore{records: []models.CalibrationRecord{
		mk(true, map[string]float64{"a": 1.0, "b": 0.5}),
		mk(false, map[string]float64{"a": 0.0}),
		{Outcome: true}, // empty payload, skipped
	}}
	acc := NewAccumulator(store, nil)

	summary, err := acc.DeskSummary(context.Background(), 100)
	if err != nil {
		t.Fatalf("summary err=%v", err)
	}
	a := summary["a"]
	if a.Count != 2 || a.MeanBrier != 0 {
		t.Fatalf("a=%+v want count=2 mean=0", a)
	}
	b := summary["b"]
	if b.Count != 1 || b.MeanBrier != 0.25 {
		t.Fatalf("b=%+v want count=1 mean=0.25", b)
	}
}
