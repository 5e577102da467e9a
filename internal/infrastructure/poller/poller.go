package poller

import (
	"context"
	"time"
)

// Poller runs one fetch function on a fixed interval in its own goroutine.
// Fetches never overlap: the next tick is only observed after fn returned.
type Poller struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Start calls fn once right away and then every interval until Stop is
// called or ctx is done.
func Start(ctx context.Context, interval time.Duration, fn func(context.Context)) *Poller {
	ctx, cancel := context.WithCancel(ctx)
	p := &Poller{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(p.done)
		Run(ctx, interval, fn)
	}()

	return p
}

// Stop cancels the poller and waits for the running fetch, if any, to return.
func (p *Poller) Stop() {
	p.cancel()
	<-p.done
}

// Done is closed once the poller goroutine exited.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Run is the blocking form of Start.
func Run(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	if ctx.Err() != nil {
		return
	}
	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			fn(ctx)
		}
	}
}
