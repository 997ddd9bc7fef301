package debate

import (
	"context"
	"errors"
	"testing"
	"time"

	"preddesk/internal/config"
	"preddesk/internal/estimator"
	"preddesk/internal/models"
)

// scriptedDesk negotiates with a fixed reply per round.
type scriptedDesk struct {
	name    string
	replies map[int]estimator.Reply
	err     error
}

func (d *scriptedDesk) Name() string { return d.name }

func (d *scriptedDesk) Estimate(ctx context.Context, market estimator.MarketDescriptor) (estimator.Estimate, error) {
	return estimator.Estimate{Desk: d.name}, nil
}

func (d *scriptedDesk) Critique(ctx context.Context, prompt estimator.Prompt) (estimator.Reply, error) {
	return d.reply(prompt)
}

func (d *scriptedDesk) Debate(ctx context.Context, prompt estimator.Prompt) (estimator.Reply, error) {
	return d.reply(prompt)
}

func (d *scriptedDesk) reply(prompt estimator.Prompt) (estimator.Reply, error) {
	if d.err != nil {
		return estimator.Reply{}, d.err
	}
	if r, ok := d.replies[prompt.Round]; ok {
		return r, nil
	}
	return estimator.Reply{Message: "holding"}, nil
}

// stubbornDesk cannot negotiate at all.
type stubbornDesk struct{ name string }

func (d *stubbornDesk) Name() string { return d.name }

func (d *stubbornDesk) Estimate(ctx context.Context, market estimator.MarketDescriptor) (estimator.Estimate, error) {
	return estimator.Estimate{Desk: d.name}, nil
}

func testDebateConfig() config.DebateConfig {
	return config.DebateConfig{
		DivergenceThreshold: 0.10,
		ConvergenceBand:     0.05,
		MaxRounds:           5,
		RoundTimeout:        time.Second,
		ModeratorPolicy:     config.ModeratorPolicyConfidenceWeighted,
	}
}

func floatPtr(v float64) *float64 { return &v }

func TestRun_SingleEstimatorFallback(t *testing.T) {
	m := NewMachine(testDebateConfig(), nil)
	out := m.Run(context.Background(), estimator.MarketDescriptor{ID: "m1"}, nil, []estimator.Estimate{
		{Desk: "a", Probability: 0.62, Confidence: 0.5},
	})
	if out.TerminationReason != models.TerminationSingleEstimator {
		t.Fatalf("termination=%q want %q", out.TerminationReason, models.TerminationSingleEstimator)
	}
	if out.ClosingValue != 0.62 {
		t.Fatalf("closing=%v want 0.62", out.ClosingValue)
	}
}

func TestRun_ConvergedClose(t *testing.T) {
	// Both desks move to 0.5 in the critique round; spread hits zero.
	a := &scriptedDesk{name: "a", replies: map[int]estimator.Reply{
		2: {Message: "conceding", Revised: floatPtr(0.5)},
	}}
	b := &scriptedDesk{name: "b", replies: map[int]estimator.Reply{
		2: {Message: "conceding", Revised: floatPtr(0.5)},
	}}

	m := NewMachine(testDebateConfig(), nil)
	out := m.Run(context.Background(), estimator.MarketDescriptor{ID: "m1"},
		[]estimator.Estimator{a, b},
		[]estimator.Estimate{
			{Desk: "a", Probability: 0.30, Confidence: 0.6},
			{Desk: "b", Probability: 0.70, Confidence: 0.6},
		})

	if out.TerminationReason != models.TerminationConverged {
		t.Fatalf("termination=%q want %q", out.TerminationReason, models.TerminationConverged)
	}
	if out.ClosingValue != 0.5 {
		t.Fatalf("closing=%v want 0.5", out.ClosingValue)
	}
	if out.RoundCount != 2 {
		t.Fatalf("round_count=%d want 2", out.RoundCount)
	}
	// Opening, critique, and the converged-close entry.
	if len(out.Rounds) != 3 {
		t.Fatalf("rounds=%d want 3", len(out.Rounds))
	}
	if out.Rounds[0].State != StateOpening || out.Rounds[1].State != StateCritique {
		t.Fatalf("states=%v/%v want opening/critique", out.Rounds[0].State, out.Rounds[1].State)
	}
	if out.Rounds[2].State != StateConvergedClose {
		t.Fatalf("final state=%v want converged-close", out.Rounds[2].State)
	}
}

func TestRun_ModeratedCloseAfterMaxRounds(t *testing.T) {
	// Neither desk ever moves.
	a := &scriptedDesk{name: "a"}
	b := &scriptedDesk{name: "b"}

	m := NewMachine(testDebateConfig(), nil)
	out := m.Run(context.Background(), estimator.MarketDescriptor{ID: "m1"},
		[]estimator.Estimator{a, b},
		[]estimator.Estimate{
			{Desk: "a", Probability: 0.30, Confidence: 0.6},
			{Desk: "b", Probability: 0.60, Confidence: 0.8},
		})

	if out.TerminationReason != models.TerminationMaxRoundsModerator {
		t.Fatalf("termination=%q want %q", out.TerminationReason, models.TerminationMaxRoundsModerator)
	}
	if out.RoundCount != 5 {
		t.Fatalf("round_count=%d want 5", out.RoundCount)
	}
	if out.ModeratorPolicy != config.ModeratorPolicyConfidenceWeighted {
		t.Fatalf("policy=%q want confidence-weighted", out.ModeratorPolicy)
	}
	// (0.30*0.6 + 0.60*0.8) / 1.4
	want := (0.30*0.6 + 0.60*0.8) / 1.4
	if diff := out.ClosingValue - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("closing=%v want %v", out.ClosingValue, want)
	}
	last := out.Rounds[len(out.Rounds)-1]
	if last.State != StateModeratedClose {
		t.Fatalf("final state=%v want moderated-close", last.State)
	}
}

func TestRun_ErroringDeskHolds(t *testing.T) {
	a := &scriptedDesk{name: "a", err: errors.New("desk offline")}
	b := &scriptedDesk{name: "b", replies: map[int]estimator.Reply{
		2: {Message: "meeting halfway", Revised: floatPtr(0.32)},
	}}

	cfg := testDebateConfig()
	cfg.MaxRounds = 3
	m := NewMachine(cfg, nil)
	out := m.Run(context.Background(), estimator.MarketDescriptor{ID: "m1"},
		[]estimator.Estimator{a, b},
		[]estimator.Estimate{
			{Desk: "a", Probability: 0.30, Confidence: 0.6},
			{Desk: "b", Probability: 0.70, Confidence: 0.6},
		})

	// After b concedes to 0.32 the spread is 0.02, within the band.
	if out.TerminationReason != models.TerminationConverged {
		t.Fatalf("termination=%q want converged", out.TerminationReason)
	}
	critique := out.Rounds[1]
	for _, msg := range critique.Messages {
		if msg.Desk == "a" && !msg.Held {
			t.Fatalf("erroring desk a did not hold")
		}
		if msg.Desk == "b" && msg.Held {
			t.Fatalf("revising desk b was marked held")
		}
	}
}

func TestRun_NonNegotiatorAlwaysHolds(t *testing.T) {
	a := &stubbornDesk{name: "a"}
	b := &scriptedDesk{name: "b"}

	cfg := testDebateConfig()
	cfg.MaxRounds = 3
	m := NewMachine(cfg, nil)
	out := m.Run(context.Background(), estimator.MarketDescriptor{ID: "m1"},
		[]estimator.Estimator{a, b},
		[]estimator.Estimate{
			{Desk: "a", Probability: 0.20, Confidence: 0.5},
			{Desk: "b", Probability: 0.80, Confidence: 0.5},
		})

	if out.TerminationReason != models.TerminationMaxRoundsModerator {
		t.Fatalf("termination=%q want moderated", out.TerminationReason)
	}
	for _, round := range out.Rounds[1 : len(out.Rounds)-1] {
		for _, msg := range round.Messages {
			if msg.Desk == "a" && !msg.Held {
				t.Fatalf("non-negotiator revised in round %d", round.Round)
			}
		}
	}
}
