package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"preddesk/internal/config"
	"preddesk/internal/debate"
	"preddesk/internal/edge"
	"preddesk/internal/estimator"
	"preddesk/internal/execution"
	"preddesk/internal/models"
	"preddesk/internal/risk"
)

type fixedDesk struct {
	name string
	prob float64
	conf float64
}

func (d *fixedDesk) Name() string { return d.name }

func (d *fixedDesk) Estimate(ctx context.Context, market estimator.MarketDescriptor) (estimator.Estimate, error) {
	return estimator.Estimate{Desk: d.name, Probability: d.prob, Confidence: d.conf}, nil
}

// negotiatingDesk revises to a scripted value in the given round and holds
// otherwise.
type negotiatingDesk struct {
	fixedDesk
	revisions map[int]float64
}

func (d *negotiatingDesk) reply(prompt estimator.Prompt) estimator.Reply {
	if v, ok := d.revisions[prompt.Round]; ok {
		return estimator.Reply{Message: "revising", Revised: &v}
	}
	return estimator.Reply{Message: "holding"}
}

func (d *negotiatingDesk) Critique(ctx context.Context, prompt estimator.Prompt) (estimator.Reply, error) {
	return d.reply(prompt), nil
}

func (d *negotiatingDesk) Debate(ctx context.Context, prompt estimator.Prompt) (estimator.Reply, error) {
	return d.reply(prompt), nil
}

func pipelineRiskConfig() config.RiskConfig {
	return config.RiskConfig{
		Bankroll:                   10000,
		MinEdgeThreshold:           0.05,
		MaxPositionFraction:        0.05,
		MaxConcurrentPositions:     15,
		DailyDrawdownLimitFraction: 0.02,
	}
}

func pipelineDebateConfig() config.DebateConfig {
	return config.DebateConfig{
		DivergenceThreshold: 0.10,
		ConvergenceBand:     0.05,
		MaxRounds:           3,
		RoundTimeout:        time.Second,
		ModeratorPolicy:     config.ModeratorPolicyConfidenceWeighted,
	}
}

func newPipeline(repo *stubRepo, desks []estimator.Estimator, ledger *risk.Ledger, withExecutor bool) *Pipeline {
	cfg := pipelineDebateConfig()
	fanout := estimator.NewFanout(desks, time.Second, nil)
	machine := debate.NewMachine(cfg, nil)
	gate := edge.NewGate(pipelineRiskConfig(), nil)
	var executor execution.Executor
	if withExecutor {
		executor = execution.NewPaperExecutor(repo, ledger, nil)
	}
	return New(repo, fanout, machine, gate, ledger, executor, cfg, nil)
}

func testMarket(yes, no float64) models.Market {
	return models.Market{
		ID:       "m1",
		Question: "Will it happen?",
		Category: "politics",
		YesPrice: yes,
		NoPrice:  no,
		Status:   models.MarketStatusActive,
	}
}

func TestProcessMarket_RejectedDecisionLeavesLedgerUntouched(t *testing.T) {
	repo := newStubRepo()
	ledger := risk.NewLedger(pipelineRiskConfig(), nil)
	desks := []estimator.Estimator{
		&fixedDesk{name: "a", prob: 0.56, conf: 0.6},
		&fixedDesk{name: "b", prob: 0.58, conf: 0.7},
	}
	pipe := newPipeline(repo, desks, ledger, true)

	decision, err := pipe.ProcessMarket(context.Background(), testMarket(0.55, 0.45), "cycle-1")
	if err != nil {
		t.Fatalf("process err=%v want nil", err)
	}
	if decision.Tradeable {
		t.Fatalf("tradeable=true want rejection")
	}
	if decision.RejectionReason == nil || *decision.RejectionReason != edge.ReasonInsufficientEdge {
		t.Fatalf("reason=%v want %q", decision.RejectionReason, edge.ReasonInsufficientEdge)
	}

	// A rejected market must never reach the ledger or open a position.
	snap := ledger.Snapshot()
	if !snap.Committed.IsZero() {
		t.Fatalf("committed=%s want 0", snap.Committed.String())
	}
	if snap.OpenPositions != 0 {
		t.Fatalf("open=%d want 0", snap.OpenPositions)
	}
	if len(repo.positions) != 0 {
		t.Fatalf("positions=%d want none", len(repo.positions))
	}

	if len(repo.estimates) != 2 {
		t.Fatalf("estimates=%d want 2", len(repo.estimates))
	}
	if len(repo.negotiations) != 0 {
		t.Fatalf("negotiations=%d want 0 under small divergence", len(repo.negotiations))
	}
	if len(repo.consensus) != 1 || len(repo.decisions) != 1 {
		t.Fatalf("consensus=%d decisions=%d want 1 each", len(repo.consensus), len(repo.decisions))
	}
	if len(repo.scannedIDs) != 1 || repo.scannedIDs[0] != "m1" {
		t.Fatalf("scanned=%v want [m1]", repo.scannedIDs)
	}
}

func TestProcessMarket_TradeableExecutesAndReserves(t *testing.T) {
	repo := newStubRepo()
	ledger := risk.NewLedger(pipelineRiskConfig(), nil)
	desks := []estimator.Estimator{
		&fixedDesk{name: "a", prob: 0.70, conf: 0.6},
		&fixedDesk{name: "b", prob: 0.72, conf: 0.7},
	}
	pipe := newPipeline(repo, desks, ledger, true)

	decision, err := pipe.ProcessMarket(context.Background(), testMarket(0.55, 0.45), "cycle-1")
	if err != nil {
		t.Fatalf("process err=%v want nil", err)
	}
	if !decision.Tradeable {
		t.Fatalf("tradeable=false reason=%v want trade", decision.RejectionReason)
	}
	if decision.Side == nil || *decision.Side != edge.SideYes {
		t.Fatalf("side=%v want yes", decision.Side)
	}
	if decision.HalfKellyFraction != decision.KellyFraction/2 {
		t.Fatalf("half_kelly=%v want %v", decision.HalfKellyFraction, decision.KellyFraction/2)
	}

	if len(repo.positions) != 1 {
		t.Fatalf("positions=%d want 1", len(repo.positions))
	}
	position := repo.positions[0]
	if repo.statuses[position.ID] != models.PositionStatusOpen {
		t.Fatalf("status=%q want open", repo.statuses[position.ID])
	}

	snap := ledger.Snapshot()
	wantCost := decimal.NewFromFloat(0.55).Mul(decimal.NewFromInt(int64(decision.NumContracts)))
	if snap.Committed.Cmp(wantCost) != 0 {
		t.Fatalf("committed=%s want %s", snap.Committed.String(), wantCost.String())
	}
	if snap.OpenPositions != 1 {
		t.Fatalf("open=%d want 1", snap.OpenPositions)
	}
}

func TestProcessMarket_DivergencePersistsModeratedNegotiation(t *testing.T) {
	repo := newStubRepo()
	ledger := risk.NewLedger(pipelineRiskConfig(), nil)
	// Non-negotiators hold their estimates, so the session runs to the
	// moderated close.
	desks := []estimator.Estimator{
		&fixedDesk{name: "a", prob: 0.30, conf: 0.6},
		&fixedDesk{name: "b", prob: 0.60, conf: 0.8},
	}
	pipe := newPipeline(repo, desks, ledger, true)

	decision, err := pipe.ProcessMarket(context.Background(), testMarket(0.50, 0.50), "cycle-1")
	if err != nil {
		t.Fatalf("process err=%v want nil", err)
	}

	if len(repo.negotiations) != 1 {
		t.Fatalf("negotiations=%d want 1", len(repo.negotiations))
	}
	record := repo.negotiations[0]
	if record.Converged {
		t.Fatalf("converged=true want false for moderated close")
	}
	if record.TerminationReason != models.TerminationMaxRoundsModerator {
		t.Fatalf("termination=%q want %q", record.TerminationReason, models.TerminationMaxRoundsModerator)
	}
	if record.RoundCount != 3 {
		t.Fatalf("round_count=%d want 3", record.RoundCount)
	}

	// Initial and final phase rows for both desks.
	var initial, final int
	for _, est := range repo.estimates {
		switch est.Phase {
		case models.EstimatePhaseInitial:
			initial++
		case models.EstimatePhaseFinal:
			final++
		}
	}
	if initial != 2 || final != 2 {
		t.Fatalf("initial=%d final=%d want 2 each", initial, final)
	}

	if len(repo.consensus) != 1 {
		t.Fatalf("consensus=%d want 1", len(repo.consensus))
	}
	row := repo.consensus[0]
	if row.Method != models.ConsensusMethodNegotiated {
		t.Fatalf("method=%q want %q", row.Method, models.ConsensusMethodNegotiated)
	}
	if row.NegotiationID == nil || *row.NegotiationID != record.ID {
		t.Fatalf("negotiation_id=%v want %d", row.NegotiationID, record.ID)
	}

	// (0.30*0.6 + 0.60*0.8) / 1.4 sits too close to 0.50 on either side, so
	// the gate rejects and the ledger stays untouched.
	if decision.Tradeable {
		t.Fatalf("tradeable=true want rejection")
	}
	if !ledger.Snapshot().Committed.IsZero() {
		t.Fatalf("ledger touched by rejected negotiated decision")
	}
	if len(repo.positions) != 0 {
		t.Fatalf("positions=%d want none", len(repo.positions))
	}
}

func TestProcessMarket_ConvergedNegotiationMarksRecord(t *testing.T) {
	repo := newStubRepo()
	ledger := risk.NewLedger(pipelineRiskConfig(), nil)
	desks := []estimator.Estimator{
		&negotiatingDesk{
			fixedDesk: fixedDesk{name: "a", prob: 0.30, conf: 0.6},
			revisions: map[int]float64{2: 0.46},
		},
		&negotiatingDesk{
			fixedDesk: fixedDesk{name: "b", prob: 0.60, conf: 0.8},
			revisions: map[int]float64{2: 0.46},
		},
	}
	pipe := newPipeline(repo, desks, ledger, true)

	decision, err := pipe.ProcessMarket(context.Background(), testMarket(0.50, 0.50), "cycle-1")
	if err != nil {
		t.Fatalf("process err=%v want nil", err)
	}

	if len(repo.negotiations) != 1 {
		t.Fatalf("negotiations=%d want 1", len(repo.negotiations))
	}
	record := repo.negotiations[0]
	if !record.Converged {
		t.Fatalf("converged=false want true")
	}
	if record.TerminationReason != models.TerminationConverged {
		t.Fatalf("termination=%q want %q", record.TerminationReason, models.TerminationConverged)
	}
	if record.ClosingValue != 0.46 {
		t.Fatalf("closing=%v want 0.46", record.ClosingValue)
	}

	// Consensus 0.46 against a 0.50 book leaves only a 0.04 edge on no.
	if decision.Tradeable {
		t.Fatalf("tradeable=true want rejection")
	}
	if !ledger.Snapshot().Committed.IsZero() {
		t.Fatalf("ledger touched by rejected decision")
	}
}
