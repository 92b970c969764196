package pacing

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/spigell/apply-pilot/internal/util"
)

const (
	defaultPerHour  = 20
	defaultMinDelay = 30 * time.Second
	defaultMaxDelay = 90 * time.Second
)

// Config controls how aggressively applications are submitted.
type Config struct {
	PerHour  int           `mapstructure:"per-hour"`
	MinDelay time.Duration `mapstructure:"min-delay"`
	MaxDelay time.Duration `mapstructure:"max-delay"`
}

// Pacer spaces out application attempts: a token bucket enforces the hourly
// budget and a jittered delay keeps the submission intervals irregular.
type Pacer struct {
	limiter  *rate.Limiter
	minDelay time.Duration
	maxDelay time.Duration

	jitter func(time.Duration) time.Duration
}

func New(cfg Config) (*Pacer, error) {
	if cfg.PerHour == 0 {
		cfg.PerHour = defaultPerHour
	}
	if cfg.PerHour < 0 {
		return nil, fmt.Errorf("applications per hour must be positive")
	}
	if cfg.MinDelay == 0 {
		cfg.MinDelay = defaultMinDelay
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	if cfg.MinDelay < 0 || cfg.MaxDelay < cfg.MinDelay {
		return nil, fmt.Errorf("invalid delay range %s..%s", cfg.MinDelay, cfg.MaxDelay)
	}

	interval := time.Hour / time.Duration(cfg.PerHour)

	return &Pacer{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		minDelay: cfg.MinDelay,
		maxDelay: cfg.MaxDelay,
		jitter: func(span time.Duration) time.Duration {
			if span <= 0 {
				return 0
			}
			return time.Duration(rand.Int63n(int64(span)))
		},
	}, nil
}

// Wait blocks until the next application may start. It honours both the
// hourly budget and the jittered inter-application delay, returning early
// when the context is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for hourly budget: %w", err)
	}

	delay := p.minDelay + p.jitter(p.maxDelay-p.minDelay)

	return util.WaitFor(ctx, delay)
}
