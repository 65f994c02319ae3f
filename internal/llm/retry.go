package llm

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/abhisek/threatlab/internal/logging"
)

type retrying struct {
	Provider
	cfg   RetryConfig
	log   *zap.SugaredLogger
	sleep func(context.Context, time.Duration) error
}

// WithRetry retries rate limits and outages with capped exponential
// backoff. A reply that fails validation is retried once. Truncation and
// auth failures are returned immediately.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &retrying{Provider: p, cfg: cfg, log: logging.Component("llm"), sleep: sleepCtx}
}

func (r *retrying) Generate(ctx context.Context, req Request) (*Response, error) {
	if r.cfg.Budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Budget)
		defer cancel()
	}
	var err error
	invalidSeen := false
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		var resp *Response
		resp, err = r.Provider.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}

		kind, ok := KindOf(err)
		if ok {
			switch kind {
			case KindTruncated, KindAuth:
				return nil, err
			case KindInvalidResponse:
				if invalidSeen {
					return nil, err
				}
				invalidSeen = true
			}
		}
		if attempt == r.cfg.MaxAttempts-1 {
			break
		}

		wait := r.delay(attempt, err)
		r.log.Infow("retrying llm request",
			"provider", r.Name(),
			"purpose", req.Purpose,
			"attempt", attempt+1,
			"wait", wait,
			logging.FieldError, err,
		)
		if serr := r.sleep(ctx, wait); serr != nil {
			return nil, serr
		}
	}
	return nil, err
}

func (r *retrying) delay(attempt int, err error) time.Duration {
	var e *Error
	if errors.As(err, &e) && e.RetryAfter > 0 {
		return e.RetryAfter
	}
	d := r.cfg.InitialWait
	for range attempt {
		d = time.Duration(float64(d) * r.cfg.Multiplier)
		if d >= r.cfg.MaxWait {
			d = r.cfg.MaxWait
			break
		}
	}
	// +/-20% jitter
	return d + time.Duration((rand.Float64()*0.4-0.2)*float64(d))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
