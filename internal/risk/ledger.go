package risk

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"preddesk/internal/config"
)

var (
	ErrInvalidAmount     = errors.New("reserve amount must be positive")
	ErrHalted            = errors.New("ledger halted on daily drawdown")
	ErrPositionCap       = errors.New("concurrent position cap reached")
	ErrExceedsMaxSize    = errors.New("amount exceeds max position size")
	ErrInsufficientFunds = errors.New("amount exceeds available bankroll")
)

// Snapshot is a point-in-time copy of the ledger, safe to read without
// holding the lock. The edge gate consumes these.
type Snapshot struct {
	Bankroll      decimal.Decimal
	Committed     decimal.Decimal
	Available     decimal.Decimal
	OpenPositions int
	DailyPnL      decimal.Decimal
	Halted        bool
	Day           string
}

// Ledger serializes every exposure change behind one mutex. All rejections
// are sentinel errors checked with errors.Is; callers must treat any error
// from Reserve as a refusal, never retry blindly.
type Ledger struct {
	mu sync.Mutex

	bankroll         decimal.Decimal
	dayStartBankroll decimal.Decimal
	committed        decimal.Decimal
	openPositions    int
	dailyPnL         decimal.Decimal
	halted           bool
	day              string

	maxPositionFraction decimal.Decimal
	drawdownLimit       decimal.Decimal
	maxConcurrent       int

	logger *zap.Logger
	now    func() time.Time
}

func NewLedger(cfg config.RiskConfig, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	bankroll := decimal.NewFromFloat(cfg.Bankroll)
	l := &Ledger{
		bankroll:            bankroll,
		dayStartBankroll:    bankroll,
		committed:           decimal.Zero,
		dailyPnL:            decimal.Zero,
		maxPositionFraction: decimal.NewFromFloat(cfg.MaxPositionFraction),
		drawdownLimit:       decimal.NewFromFloat(cfg.DailyDrawdownLimitFraction),
		maxConcurrent:       cfg.MaxConcurrentPositions,
		logger:              logger,
		now:                 func() time.Time { return time.Now().UTC() },
	}
	l.day = l.now().Format("2006-01-02")
	return l
}

// Reserve commits exposure for one position. Checks run in a fixed priority
// order so the reported refusal is deterministic.
func (l *Ledger) Reserve(amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollIfNewDayLocked()

	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if l.halted {
		return ErrHalted
	}
	if l.openPositions >= l.maxConcurrent {
		return ErrPositionCap
	}
	if amount.GreaterThan(l.bankroll.Mul(l.maxPositionFraction)) {
		return ErrExceedsMaxSize
	}
	if l.committed.Add(amount).GreaterThan(l.bankroll) {
		return ErrInsufficientFunds
	}

	l.committed = l.committed.Add(amount)
	l.openPositions++
	return nil
}

// Release frees exposure for a closed or cancelled position.
func (l *Ledger) Release(amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.committed = l.committed.Sub(amount)
	if l.committed.IsNegative() {
		l.committed = decimal.Zero
	}
	if l.openPositions > 0 {
		l.openPositions--
	}
}

// RecordPnL applies a realized result to the bankroll and the daily total.
// Once daily losses exceed the drawdown limit the ledger halts until the
// next day rollover.
func (l *Ledger) RecordPnL(pnl decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollIfNewDayLocked()

	l.bankroll = l.bankroll.Add(pnl)
	l.dailyPnL = l.dailyPnL.Add(pnl)

	limit := l.dayStartBankroll.Mul(l.drawdownLimit).Neg()
	if !l.halted && l.dailyPnL.LessThan(limit) {
		l.halted = true
		l.logger.Warn("daily drawdown limit tripped, halting new positions",
			zap.String("daily_pnl", l.dailyPnL.StringFixed(2)),
			zap.String("limit", limit.StringFixed(2)))
	}
}

// RollDay clears the halt and the daily PnL; the cron scheduler calls it at
// midnight UTC.
func (l *Ledger) RollDay() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollDayLocked()
}

func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollIfNewDayLocked()

	return Snapshot{
		Bankroll:      l.bankroll,
		Committed:     l.committed,
		Available:     l.bankroll.Sub(l.committed),
		OpenPositions: l.openPositions,
		DailyPnL:      l.dailyPnL,
		Halted:        l.halted,
		Day:           l.day,
	}
}

// SetOpenPositions seeds the in-memory count from persisted state at boot.
func (l *Ledger) SetOpenPositions(count int, committed decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if count < 0 {
		count = 0
	}
	l.openPositions = count
	if committed.IsNegative() {
		committed = decimal.Zero
	}
	l.committed = committed
}

func (l *Ledger) rollIfNewDayLocked() {
	if l.now().Format("2006-01-02") != l.day {
		l.rollDayLocked()
	}
}

func (l *Ledger) rollDayLocked() {
	l.day = l.now().Format("2006-01-02")
	l.dailyPnL = decimal.Zero
	l.halted = false
	l.dayStartBankroll = l.bankroll
	l.logger.Info("ledger day rolled", zap.String("day", l.day))
}
