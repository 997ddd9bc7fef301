package estimator

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fixedDesk struct {
	name  string
	prob  float64
	err   error
	delay time.Duration
}

func (d *fixedDesk) Name() string { return d.name }

func (d *fixedDesk) Estimate(ctx context.Context, market MarketDescriptor) (Estimate, error) {
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return Estimate{}, ctx.Err()
		}
	}
	if d.err != nil {
		return Estimate{}, d.err
	}
	return Estimate{Desk: d.name, Probability: d.prob, Confidence: 0.5}, nil
}

func TestFanout_AllSucceedSorted(t *testing.T) {
	f := NewFanout([]Estimator{
		&fixedDesk{name: "zeta", prob: 0.7},
		&fixedDesk{name: "alpha", prob: 0.3},
	}, time.Second, nil)

	estimates, err := f.Run(context.Background(), MarketDescriptor{ID: "m1"})
	if err != nil {
		t.Fatalf("err=%v want nil", err)
	}
	if len(estimates) != 2 {
		t.Fatalf("len=%d want 2", len(estimates))
	}
	if estimates[0].Desk != "alpha" || estimates[1].Desk != "zeta" {
		t.Fatalf("order=%s,%s want alpha,zeta", estimates[0].Desk, estimates[1].Desk)
	}
}

func TestFanout_DropsFailures(t *testing.T) {
	f := NewFanout([]Estimator{
		&fixedDesk{name: "good", prob: 0.6},
		&fixedDesk{name: "bad", err: errors.New("upstream down")},
		&fixedDesk{name: "weird", prob: 1.7},
	}, time.Second, nil)

	estimates, err := f.Run(context.Background(), MarketDescriptor{ID: "m1"})
	if err != nil {
		t.Fatalf("err=%v want nil", err)
	}
	if len(estimates) != 1 || estimates[0].Desk != "good" {
		t.Fatalf("estimates=%v want only good", estimates)
	}
}

func TestFanout_TimeoutDropsSlowDesk(t *testing.T) {
	f := NewFanout([]Estimator{
		&fixedDesk{name: "fast", prob: 0.6},
		&fixedDesk{name: "slow", prob: 0.4, delay: 500 * time.Millisecond},
	}, 50*time.Millisecond, nil)

	estimates, err := f.Run(context.Background(), MarketDescriptor{ID: "m1"})
	if err != nil {
		t.Fatalf("err=%v want nil", err)
	}
	if len(estimates) != 1 || estimates[0].Desk != "fast" {
		t.Fatalf("estimates=%v want only fast", estimates)
	}
}

func TestFanout_AllFail(t *testing.T) {
	f := NewFanout([]Estimator{
		&fixedDesk{name: "a", err: errors.New("down")},
		&fixedDesk{name: "b", err: errors.New("down")},
	}, time.Second, nil)

	if _, err := f.Run(context.Background(), MarketDescriptor{ID: "m1"}); !errors.Is(err, ErrNoEstimates) {
		t.Fatalf("err=%v want ErrNoEstimates", err)
	}
}

func TestFanout_NoDesks(t *testing.T) {
	f := NewFanout(nil, time.Second, nil)
	if _, err := f.Run(context.Background(), MarketDescriptor{ID: "m1"}); !errors.Is(err, ErrNoEstimates) {
		t.Fatalf("err=%v want ErrNoEstimates", err)
	}
}
