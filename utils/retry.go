package utils

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/mosim-go/mmuadapter/logging"
)

const (
	// DefaultRetryInitialWait is the wait after the first failed attempt.
	DefaultRetryInitialWait = time.Second
	// DefaultRetryMaxWait caps the wait between two attempts.
	DefaultRetryMaxWait = 30 * time.Second
	// DefaultRetryFactor is the factor by which the wait grows after every failed attempt.
	DefaultRetryFactor = 2
)

// ExponentialRetry calls a function until it succeeds or the context is cancelled, waiting an
// exponentially growing interval between attempts.
type ExponentialRetry struct {
	Clock   clock.Clock
	Logger  logging.Logger
	Name    string
	Initial time.Duration
	Max     time.Duration
	Factor  int
}

// NewExponentialRetry returns a retry policy with the default intervals.
func NewExponentialRetry(clk clock.Clock, logger logging.Logger, name string) *ExponentialRetry {
	return &ExponentialRetry{
		Clock:   clk,
		Logger:  logger,
		Name:    name,
		Initial: DefaultRetryInitialWait,
		Max:     DefaultRetryMaxWait,
		Factor:  DefaultRetryFactor,
	}
}

// Run calls fun and retries with exponentially increasing waits from Initial to a maximum of Max.
// returns nil if completed successfully
// returns the context error if ctx is cancelled.
func (er *ExponentialRetry) Run(ctx context.Context, fun func(context.Context) error) error {
	var wait time.Duration
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fun(ctx)
		if err == nil {
			er.Logger.Debugf("%s succeeded after %d attempt(s)", er.Name, attempt)
			return nil
		}

		wait = er.NextWait(wait)
		er.Logger.Warnw("attempt failed, retrying", "name", er.Name, "attempt", attempt, "wait", wait.String(), "error", err)

		timer := er.Clock.Timer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// NextWait returns the wait following lastWait. A zero lastWait yields the initial wait.
func (er *ExponentialRetry) NextWait(lastWait time.Duration) time.Duration {
	if lastWait <= 0 {
		return er.Initial
	}

	factor := er.Factor
	if factor < 1 {
		factor = 1
	}
	nextWait := lastWait * time.Duration(factor)
	if er.Max > 0 && nextWait > er.Max {
		return er.Max
	}
	return nextWait
}
