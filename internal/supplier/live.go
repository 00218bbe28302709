package supplier

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/bom-analyzer/internal/config"
	"github.com/sells-group/bom-analyzer/internal/metrics"
	"github.com/sells-group/bom-analyzer/internal/model"
	"github.com/sells-group/bom-analyzer/internal/normalize"
	"github.com/sells-group/bom-analyzer/internal/resilience"
	"github.com/sells-group/bom-analyzer/pkg/mouser"
	"github.com/sells-group/bom-analyzer/pkg/nexar"
)

// ErrNoSources is returned when no supplier credentials are configured.
var ErrNoSources = eris.New("supplier: no supplier API credentials configured")

// guarded wraps a Source with rate limiting, retries and a circuit breaker.
type guarded struct {
	src     Source
	limiter *rate.Limiter
	breaker *resilience.Breaker
	policy  resilience.Policy
	timeout time.Duration
}

// Live queries supplier APIs concurrently for each line.
type Live struct {
	sources []*guarded
	metrics *metrics.Metrics
}

// LiveOption configures a Live fetcher.
type LiveOption func(*liveOptions)

type liveOptions struct {
	ratePerSec map[model.Source]float64
	maxRetries int
	timeout    time.Duration
	metrics    *metrics.Metrics
}

// WithRate sets a per-source request rate.
func WithRate(src model.Source, perSec float64) LiveOption {
	return func(o *liveOptions) { o.ratePerSec[src] = perSec }
}

// WithMaxRetries sets retries after the first attempt.
func WithMaxRetries(n int) LiveOption {
	return func(o *liveOptions) { o.maxRetries = n }
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) LiveOption {
	return func(o *liveOptions) { o.timeout = d }
}

// WithMetrics records lookup metrics.
func WithMetrics(m *metrics.Metrics) LiveOption {
	return func(o *liveOptions) { o.metrics = m }
}

// NewLive creates a Live fetcher over the given sources.
func NewLive(sources []Source, opts ...LiveOption) *Live {
	o := liveOptions{ratePerSec: map[model.Source]float64{}, maxRetries: 3, timeout: 20 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	l := &Live{metrics: o.metrics}
	for _, src := range sources {
		name := src.Name()
		rps := o.ratePerSec[name]
		if rps <= 0 {
			rps = 5
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		breaker := resilience.NewBreaker(5, 30*time.Second)
		breaker.OnStateChange = func(from, to resilience.BreakerState) {
			zap.L().Warn("supplier: circuit state change",
				zap.String("source", string(name)),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			o.metrics.SetBreakerState(string(name), int(to))
		}
		l.sources = append(l.sources, &guarded{
			src:     src,
			limiter: rate.NewLimiter(rate.Limit(rps), burst),
			breaker: breaker,
			policy:  resilience.NewPolicy(o.maxRetries),
			timeout: o.timeout,
		})
	}
	return l
}

// NewLiveFromConfig builds Mouser and Nexar sources from whichever
// credentials are configured.
func NewLiveFromConfig(cfg config.SuppliersConfig, m *metrics.Metrics) (*Live, error) {
	var sources []Source
	opts := []LiveOption{
		WithMaxRetries(cfg.MaxRetries),
		WithMetrics(m),
	}
	if cfg.TimeoutSecs > 0 {
		opts = append(opts, WithTimeout(time.Duration(cfg.TimeoutSecs)*time.Second))
	}
	if cfg.Mouser.Key != "" {
		sources = append(sources, NewMouserSource(mouser.NewClient(cfg.Mouser.Key, mouser.WithBaseURL(cfg.Mouser.BaseURL))))
		opts = append(opts, WithRate(model.SourceMouser, cfg.Mouser.RatePerSec))
	}
	if cfg.Nexar.ClientID != "" && cfg.Nexar.ClientSecret != "" {
		sources = append(sources, NewNexarSource(nexar.NewClient(cfg.Nexar.ClientID, cfg.Nexar.ClientSecret,
			nexar.WithBaseURL(cfg.Nexar.BaseURL),
			nexar.WithTokenURL(cfg.Nexar.TokenURL),
		)))
		opts = append(opts, WithRate(model.SourceNexar, cfg.Nexar.RatePerSec))
	}
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	return NewLive(sources, opts...), nil
}

// Sources implements Fetcher.
func (l *Live) Sources() []model.Source {
	out := make([]model.Source, len(l.sources))
	for i, g := range l.sources {
		out[i] = g.src.Name()
	}
	return out
}

// Fetch queries every source concurrently. Results keep source order.
func (l *Live) Fetch(ctx context.Context, line model.BOMLine) []normalize.Raw {
	out := make([]normalize.Raw, len(l.sources))
	g, gCtx := errgroup.WithContext(ctx)
	for i, src := range l.sources {
		g.Go(func() error {
			out[i] = l.fetchOne(gCtx, src, line.PartNumber)
			return nil // failures are carried in the Raw
		})
	}
	_ = g.Wait()
	return out
}

func (l *Live) fetchOne(ctx context.Context, g *guarded, partNumber string) normalize.Raw {
	name := g.src.Name()
	raw := normalize.Raw{Source: name, PartNumber: partNumber}
	start := time.Now()

	policy := g.policy
	policy.OnRetry = func(attempt int, err error) {
		l.metrics.Retry(string(name))
		resilience.LogRetries(string(name), partNumber)(attempt, err)
	}

	body, err := resilience.Retry(ctx, policy, func(ctx context.Context) ([]byte, error) {
		waitStart := time.Now()
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "supplier: rate limiter")
		}
		l.metrics.ObserveRateLimitWait(string(name), time.Since(waitStart))

		return resilience.Call(ctx, g.breaker, func(ctx context.Context) ([]byte, error) {
			callCtx, cancel := context.WithTimeout(ctx, g.timeout)
			defer cancel()
			return g.src.Search(callCtx, partNumber)
		})
	})

	outcome := "ok"
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		outcome = "circuit_open"
	case err != nil:
		outcome = "error"
		zap.L().Warn("supplier: lookup failed",
			zap.String("source", string(name)),
			zap.String("part_number", partNumber),
			zap.Error(err),
		)
	}
	l.metrics.ObserveLookup(string(name), outcome, time.Since(start))

	raw.Body = body
	raw.Err = err
	return raw
}
