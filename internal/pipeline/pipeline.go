package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"preddesk/internal/config"
	"preddesk/internal/consensus"
	"preddesk/internal/db"
	"preddesk/internal/debate"
	"preddesk/internal/edge"
	"preddesk/internal/estimator"
	"preddesk/internal/execution"
	"preddesk/internal/models"
	"preddesk/internal/repository"
	"preddesk/internal/risk"
)

// Pipeline runs one market through the full decision chain: estimator
// fan-out, divergence check, optional negotiation, consensus, edge gate,
// then hand-off to the executor. Every artifact is persisted as it is
// produced so a rejected market still leaves a full audit trail.
type Pipeline struct {
	repo     repository.Repository
	fanout   *estimator.Fanout
	machine  *debate.Machine
	gate     *edge.Gate
	ledger   *risk.Ledger
	executor execution.Executor

	debateCfg config.DebateConfig
	logger    *zap.Logger
}

func New(
	repo repository.Repository,
	fanout *estimator.Fanout,
	machine *debate.Machine,
	gate *edge.Gate,
	ledger *risk.Ledger,
	executor execution.Executor,
	debateCfg config.DebateConfig,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		repo:      repo,
		fanout:    fanout,
		machine:   machine,
		gate:      gate,
		ledger:    ledger,
		executor:  executor,
		debateCfg: debateCfg,
		logger:    logger,
	}
}

// ProcessMarket is safe to run concurrently across markets; all shared state
// sits behind the repository and the ledger.
func (p *Pipeline) ProcessMarket(ctx context.Context, market models.Market, scanCycleID string) (*models.EdgeDecision, error) {
	descriptor := estimator.MarketDescriptor{
		ID:       market.ID,
		Question: market.Question,
		Category: market.Category,
		YesPrice: market.YesPrice,
		Spread:   market.Spread,
		EndDate:  market.EndDate,
	}

	estimates, err := p.fanout.Run(ctx, descriptor)
	if err != nil {
		if errors.Is(err, estimator.ErrNoEstimates) {
			p.logger.Warn("no estimates, skipping market", zap.String("market_id", market.ID))
		}
		return nil, err
	}
	if err := p.persistEstimates(ctx, market.ID, scanCycleID, models.EstimatePhaseInitial, estimates); err != nil {
		return nil, err
	}

	divergence := consensus.Divergence(estimates)

	var result consensus.Result
	var negotiationID *uint64
	if len(estimates) >= 2 && consensus.NeedsNegotiation(divergence, p.debateCfg.DivergenceThreshold) {
		outcome := p.machine.Run(ctx, descriptor, p.fanout.Estimators(), estimates)
		record, err := p.persistNegotiation(ctx, market.ID, scanCycleID, outcome)
		if err != nil {
			return nil, err
		}
		negotiationID = &record.ID
		if err := p.persistEstimates(ctx, market.ID, scanCycleID, models.EstimatePhaseFinal, outcome.Final); err != nil {
			return nil, err
		}
		result = consensus.FromNegotiation(outcome, divergence)
	} else {
		result = consensus.FromEstimates(estimates, divergence)
	}

	consensusRow := &models.ConsensusResult{
		MarketID:      market.ID,
		ScanCycleID:   scanCycleID,
		Probability:   result.Probability,
		Method:        result.Method,
		Divergence:    result.Divergence,
		SingleSource:  result.SingleSource,
		NegotiationID: negotiationID,
	}
	if err := p.repo.InsertConsensusResult(ctx, consensusRow); err != nil {
		return nil, fmt.Errorf("persist consensus: %w", err)
	}

	gateDecision := p.gate.Evaluate(edge.Input{
		MarketID:  market.ID,
		Consensus: result.Probability,
		YesPrice:  market.YesPrice,
		NoPrice:   market.NoPrice,
	}, p.ledger.Snapshot())

	decision := &models.EdgeDecision{
		MarketID:          market.ID,
		ScanCycleID:       scanCycleID,
		ConsensusID:       &consensusRow.ID,
		ConsensusProb:     result.Probability,
		MarketPrice:       market.YesPrice,
		Side:              gateDecision.Side,
		Edge:              gateDecision.Edge,
		KellyFraction:     gateDecision.KellyFraction,
		HalfKellyFraction: gateDecision.HalfKellyFraction,
		ExpectedValue:     gateDecision.ExpectedValue,
		PositionSize:      gateDecision.PositionSize,
		NumContracts:      gateDecision.NumContracts,
		Tradeable:         gateDecision.Tradeable,
		RejectionReason:   gateDecision.RejectionReason,
	}
	if err := p.repo.InsertEdgeDecision(ctx, decision); err != nil {
		return nil, fmt.Errorf("persist decision: %w", err)
	}

	p.logger.Info("market decided",
		zap.String("market_id", market.ID),
		zap.Float64("consensus", result.Probability),
		zap.String("method", result.Method),
		zap.Float64("divergence", divergence),
		zap.String("gate", gateDecision.String()))

	if decision.Tradeable && p.executor != nil {
		entryPrice := market.YesPrice
		if decision.Side != nil && *decision.Side == edge.SideNo {
			entryPrice = market.NoPrice
		}
		if _, err := p.executor.Execute(ctx, decision, entryPrice); err != nil {
			p.logger.Warn("execution declined",
				zap.String("market_id", market.ID), zap.Error(err))
		}
	}

	if err := p.repo.MarkMarketScanned(ctx, market.ID, db.NowUTC()); err != nil {
		p.logger.Warn("failed to mark market scanned",
			zap.String("market_id", market.ID), zap.Error(err))
	}
	return decision, nil
}

// RunAll processes markets with a bounded worker pool and reports how many
// produced a tradeable decision.
func (p *Pipeline) RunAll(ctx context.Context, markets []models.Market, scanCycleID string, concurrency int) (processed, tradeable int) {
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, market := range markets {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(market models.Market) {
			defer wg.Done()
			defer func() { <-sem }()
			decision, err := p.ProcessMarket(ctx, market, scanCycleID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.logger.Warn("pipeline failed for market",
					zap.String("market_id", market.ID), zap.Error(err))
				return
			}
			processed++
			if decision != nil && decision.Tradeable {
				tradeable++
			}
		}(market)
	}
	wg.Wait()
	return processed, tradeable
}

func (p *Pipeline) persistEstimates(ctx context.Context, marketID, scanCycleID, phase string, estimates []estimator.Estimate) error {
	rows := make([]models.Estimate, 0, len(estimates))
	for _, est := range estimates {
		rows = append(rows, models.Estimate{
			MarketID:    marketID,
			ScanCycleID: scanCycleID,
			Desk:        est.Desk,
			Phase:       phase,
			Probability: est.Probability,
			Confidence:  est.Confidence,
			Rationale:   est.Rationale,
		})
	}
	if err := p.repo.InsertEstimates(ctx, rows); err != nil {
		return fmt.Errorf("persist %s estimates: %w", phase, err)
	}
	return nil
}

func (p *Pipeline) persistNegotiation(ctx context.Context, marketID, scanCycleID string, outcome debate.Outcome) (*models.NegotiationRecord, error) {
	roundsJSON, err := json.Marshal(outcome.Rounds)
	if err != nil {
		return nil, fmt.Errorf("encode rounds: %w", err)
	}
	finals := make(map[string]float64, len(outcome.Final))
	for _, est := range outcome.Final {
		finals[est.Desk] = est.Probability
	}
	finalsJSON, err := json.Marshal(finals)
	if err != nil {
		return nil, fmt.Errorf("encode final estimates: %w", err)
	}

	record := &models.NegotiationRecord{
		MarketID:          marketID,
		ScanCycleID:       scanCycleID,
		Rounds:            roundsJSON,
		FinalEstimates:    finalsJSON,
		RoundCount:        outcome.RoundCount,
		Converged:         outcome.TerminationReason == models.TerminationConverged,
		TerminationReason: outcome.TerminationReason,
		ClosingValue:      outcome.ClosingValue,
	}
	if outcome.ModeratorPolicy != "" {
		policy := outcome.ModeratorPolicy
		record.ModeratorPolicy = &policy
	}
	if err := p.repo.InsertNegotiationRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("persist negotiation: %w", err)
	}
	return record, nil
}
