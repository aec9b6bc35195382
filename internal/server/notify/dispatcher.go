package notify

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophstamp/internal/logging"
)

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 15 * time.Second

// Dispatcher sends codes in the background so the request that issued the
// code does not wait for the mail relay. Failures are logged and reported to
// OnResult; they never reach the caller.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	log      logging.Logger
	wg       sync.WaitGroup

	// OnResult, when set, is called after every attempt.
	OnResult func(err error)
}

func NewDispatcher(n Notifier, timeout time.Duration, log logging.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{notifier: n, timeout: timeout, log: log.With("module", "dispatcher")}
}

// Dispatch returns immediately. The delivery runs detached from ctx's
// cancellation but keeps its values.
func (d *Dispatcher) Dispatch(ctx context.Context, destination, code string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		err := d.notifier.SendOTP(sendCtx, destination, code)
		if err != nil {
			d.log.Error(sendCtx, "otp delivery failed", "destination", maskAddress(destination), "error", err)
		} else {
			d.log.Debug(sendCtx, "otp delivered", "destination", maskAddress(destination))
		}
		if d.OnResult != nil {
			d.OnResult(err)
		}
	}()
}

// Wait blocks until all in-flight deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
