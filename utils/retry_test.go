package utils

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"github.com/mosim-go/mmuadapter/logging"
)

func TestNextWait(t *testing.T) {
	er := NewExponentialRetry(clock.New(), logging.NewTestLogger(t), "test")
	test.That(t, er.NextWait(0), test.ShouldEqual, time.Second)
	test.That(t, er.NextWait(time.Second), test.ShouldEqual, 2*time.Second)
	test.That(t, er.NextWait(16*time.Second), test.ShouldEqual, 30*time.Second)
	test.That(t, er.NextWait(30*time.Second), test.ShouldEqual, 30*time.Second)

	er.Max = 0
	test.That(t, er.NextWait(time.Hour), test.ShouldEqual, 2*time.Hour)
}

func TestExponentialRetry(t *testing.T) {
	t.Run("succeeds immediately", func(t *testing.T) {
		er := NewExponentialRetry(clock.NewMock(), logging.NewTestLogger(t), "register")
		calls := 0
		err := er.Run(context.Background(), func(context.Context) error {
			calls++
			return nil
		})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, calls, test.ShouldEqual, 1)
	})

	t.Run("retries until success", func(t *testing.T) {
		mockClock := clock.NewMock()
		er := NewExponentialRetry(mockClock, logging.NewTestLogger(t), "register")
		calls := atomic.NewInt32(0)
		errCh := make(chan error, 1)
		go func() {
			errCh <- er.Run(context.Background(), func(context.Context) error {
				if calls.Inc() < 3 {
					return errors.New("register unreachable")
				}
				return nil
			})
		}()

		testutils.WaitForAssertion(t, func(tb testing.TB) {
			tb.Helper()
			mockClock.Add(er.Max)
			test.That(tb, calls.Load(), test.ShouldEqual, int32(3))
		})
		test.That(t, <-errCh, test.ShouldBeNil)
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		er := NewExponentialRetry(clock.NewMock(), logging.NewTestLogger(t), "register")
		calls := atomic.NewInt32(0)
		errCh := make(chan error, 1)
		go func() {
			errCh <- er.Run(ctx, func(context.Context) error {
				calls.Inc()
				return errors.New("register unreachable")
			})
		}()

		testutils.WaitForAssertion(t, func(tb testing.TB) {
			tb.Helper()
			test.That(tb, calls.Load(), test.ShouldEqual, int32(1))
		})
		cancel()
		test.That(t, <-errCh, test.ShouldBeError, context.Canceled)
	})
}
