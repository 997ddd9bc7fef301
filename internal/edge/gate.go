package edge

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"preddesk/internal/config"
	"preddesk/internal/risk"
)

const (
	SideYes = "yes"
	SideNo  = "no"
)

const (
	ReasonInsufficientEdge = "edge below threshold"
	ReasonDrawdownHalt     = "daily drawdown halt"
	ReasonPositionCap      = "position cap reached"
	ReasonExceedsMaxSize   = "exceeds max position size"
	ReasonNonPositiveEV    = "non-positive expected value"
	ReasonBelowOneContract = "size below one contract"
	ReasonGateFailure      = "gate failure, failing closed"
	ReasonUnpriceable      = "unpriceable market"
)

type Input struct {
	MarketID  string
	Consensus float64
	YesPrice  float64
	NoPrice   float64
}

type Decision struct {
	Side              *string
	Edge              float64
	KellyFraction     float64
	HalfKellyFraction float64
	ExpectedValue     float64
	PositionSize      decimal.Decimal
	NumContracts      int
	Tradeable         bool
	RejectionReason   *string
}

// Gate decides whether a consensus probability is worth acting on and how
// much to stake. It is pure over its inputs: it reads the ledger snapshot
// but never mutates ledger state; the reservation happens in execution.
type Gate struct {
	cfg    config.RiskConfig
	logger *zap.Logger
}

func NewGate(cfg config.RiskConfig, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{cfg: cfg, logger: logger}
}

// Evaluate never panics outward: any internal failure produces a
// non-tradeable decision.
func (g *Gate) Evaluate(in Input, snap risk.Snapshot) (decision Decision) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("edge gate panicked, failing closed",
				zap.String("market_id", in.MarketID),
				zap.Any("panic", r))
			decision = reject(Decision{}, ReasonGateFailure)
		}
	}()

	side, price, pWin := pickSide(in)
	edgeVal := pWin - price

	decision = Decision{
		Side: &side,
		Edge: edgeVal,
	}

	if price <= 0 || price >= 1 {
		return reject(decision, ReasonUnpriceable)
	}
	if edgeVal < g.cfg.MinEdgeThreshold {
		return reject(decision, ReasonInsufficientEdge)
	}

	// Binary contract: stake `price` per contract to win `1-price`.
	lossIfLose := price
	winIfWin := 1 - price
	kelly := edgeVal / lossIfLose
	ev := pWin*winIfWin - (1-pWin)*lossIfLose

	decision.KellyFraction = kelly
	decision.HalfKellyFraction = kelly / 2
	decision.ExpectedValue = ev

	bankroll := decimal.NewFromFloat(g.cfg.Bankroll)
	halfKellySize := bankroll.Mul(decimal.NewFromFloat(kelly / 2))
	maxSize := bankroll.Mul(decimal.NewFromFloat(g.cfg.MaxPositionFraction))
	size := decimal.Min(halfKellySize, maxSize)
	decision.PositionSize = size

	sizeF, _ := size.Float64()
	decision.NumContracts = int(math.Floor(sizeF / price))

	// Ledger checks in fixed priority order so rejection reasons are stable.
	if snap.Halted {
		return reject(decision, ReasonDrawdownHalt)
	}
	if snap.OpenPositions >= g.cfg.MaxConcurrentPositions {
		return reject(decision, ReasonPositionCap)
	}
	if size.GreaterThan(snap.Available) {
		return reject(decision, ReasonExceedsMaxSize)
	}

	if ev <= 0 {
		return reject(decision, ReasonNonPositiveEV)
	}
	if decision.NumContracts < 1 {
		return reject(decision, ReasonBelowOneContract)
	}

	decision.Tradeable = true
	return decision
}

func pickSide(in Input) (side string, price, pWin float64) {
	if in.Consensus > in.YesPrice {
		return SideYes, in.YesPrice, in.Consensus
	}
	return SideNo, in.NoPrice, 1 - in.Consensus
}

func reject(d Decision, reason string) Decision {
	d.Tradeable = false
	d.RejectionReason = &reason
	if d.PositionSize.IsZero() {
		d.PositionSize = decimal.Zero
	}
	return d
}

func (d Decision) String() string {
	if d.Tradeable {
		side := ""
		if d.Side != nil {
			side = *d.Side
		}
		return fmt.Sprintf("tradeable %s edge=%.4f size=%s contracts=%d",
			side, d.Edge, d.PositionSize.StringFixed(2), d.NumContracts)
	}
	reason := ""
	if d.RejectionReason != nil {
		reason = *d.RejectionReason
	}
	return fmt.Sprintf("rejected: %s", reason)
}
