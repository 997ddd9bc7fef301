package marketdata

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"preddesk/internal/client/venue"
	"preddesk/internal/models"
)

// PriceSink receives price updates between scans.
type PriceSink interface {
	UpdateMarketPrices(ctx context.Context, id string, yes, no, spread float64, seenAt time.Time) error
	InsertPriceTick(ctx context.Context, item *models.PriceTick) error
}

type MarketIDProvider func(ctx context.Context) ([]string, error)

type PriceStreamOptions struct {
	URL               string
	Markets           MarketIDProvider
	HeartbeatInterval time.Duration
	PingTimeout       time.Duration
	BackoffMin        time.Duration
	BackoffMax        time.Duration
	Logger            *zap.Logger
}

// PriceStream keeps stored market prices fresh between scan cycles by
// following the venue's market channel. It reconnects forever with jittered
// backoff until the context is cancelled.
type PriceStream struct {
	opts PriceStreamOptions
	sink PriceSink
}

func NewPriceStream(opts PriceStreamOptions, sink PriceSink) *PriceStream {
	if opts.URL == "" {
		opts.URL = venue.DefaultMarketWSSURL
	}
	if opts.HeartbeatInterval == 0 {
		opts.HeartbeatInterval = 20 * time.Second
	}
	if opts.PingTimeout == 0 {
		opts.PingTimeout = 5 * time.Second
	}
	if opts.BackoffMin == 0 {
		opts.BackoffMin = time.Second
	}
	if opts.BackoffMax == 0 {
		opts.BackoffMax = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &PriceStream{opts: opts, sink: sink}
}

func (s *PriceStream) Run(ctx context.Context) error {
	backoff := s.opts.BackoffMin
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		ids, err := s.opts.Markets(ctx)
		if err != nil || len(ids) == 0 {
			if err != nil {
				s.opts.Logger.Warn("price stream market list failed", zap.Error(err))
			}
			if err := sleepWithJitter(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff, s.opts.BackoffMax)
			continue
		}

		client := venue.NewWSClient(s.opts.URL)
		if err := client.Connect(ctx); err != nil {
			s.opts.Logger.Warn("price stream connect failed", zap.Error(err))
			if err := sleepWithJitter(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff, s.opts.BackoffMax)
			continue
		}
		if err := client.Subscribe(ctx, ids); err != nil {
			s.opts.Logger.Warn("price stream subscribe failed", zap.Error(err))
			_ = client.Close(websocket.StatusInternalError, "subscribe failed")
			if err := sleepWithJitter(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff, s.opts.BackoffMax)
			continue
		}

		s.opts.Logger.Info("price stream subscribed", zap.Int("markets", len(ids)))
		backoff = s.opts.BackoffMin

		err = s.consume(ctx, client)
		_ = client.Close(websocket.StatusNormalClosure, "reconnect")
		if err == nil || errors.Is(err, context.Canceled) {
			return err
		}
		if err := sleepWithJitter(ctx, backoff); err != nil {
			return err
		}
		backoff = nextBackoff(backoff, s.opts.BackoffMax)
	}
}

func (s *PriceStream) consume(ctx context.Context, client *venue.WSClient) error {
	heartbeatCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	heartbeatErr := make(chan error, 1)
	go func() {
		ticker := time.NewTicker(s.opts.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-heartbeatCtx.Done():
				heartbeatErr <- heartbeatCtx.Err()
				return
			case <-ticker.C:
				pingCtx, cancelPing := context.WithTimeout(heartbeatCtx, s.opts.PingTimeout)
				err := client.Ping(pingCtx)
				cancelPing()
				if err != nil {
					heartbeatErr <- err
					return
				}
			}
		}
	}()

	for {
		select {
		case err := <-heartbeatErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		default:
		}

		event, raw, err := client.Read(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				s.opts.Logger.Warn("price stream read failed", zap.Error(err))
			}
			return err
		}
		if venue.IsPingPayload(event, raw) {
			_ = client.Pong(ctx)
			continue
		}
		s.apply(ctx, event)
	}
}

func (s *PriceStream) apply(ctx context.Context, event venue.PriceEvent) {
	if event.EventType != "price_change" || event.Market == "" {
		return
	}
	price, ok := event.PriceValue()
	if !ok {
		return
	}
	now := time.Now().UTC()

	if err := s.sink.UpdateMarketPrices(ctx, event.Market, price, 1-price, 0, now); err != nil {
		s.opts.Logger.Warn("price update failed",
			zap.String("market_id", event.Market), zap.Error(err))
		return
	}
	if err := s.sink.InsertPriceTick(ctx, &models.PriceTick{
		MarketID:   event.Market,
		YesPrice:   price,
		Source:     "stream",
		ObservedAt: now,
	}); err != nil {
		s.opts.Logger.Warn("price tick insert failed",
			zap.String("market_id", event.Market), zap.Error(err))
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func sleepWithJitter(ctx context.Context, base time.Duration) error {
	if base <= 0 {
		return nil
	}
	jitter := time.Duration(rand.Int63n(int64(base/2) + 1))
	timer := time.NewTimer(base + jitter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
