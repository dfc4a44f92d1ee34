// gate.go: Package gate serializes access to the inference engine. The
// interpreter runs single threaded, so at most one request may hold the
// gate at a time and everyone else is turned away immediately instead of
// queueing.
package gate

import (
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/kawakawa0804/umi-no-me-web2/internal/logging"
)

// Gate is a non-blocking single-slot admission gate.
type Gate struct {
	sem      *semaphore.Weighted
	inFlight atomic.Int64
	logger   *slog.Logger
}

// New creates a gate with a single slot.
func New() *Gate {
	logger := logging.ForService("gate")
	if logger == nil {
		logger = slog.Default()
	}

	return &Gate{
		sem:    semaphore.NewWeighted(1),
		logger: logger,
	}
}

// TryAcquire claims the slot without waiting. It returns false when another
// request already holds it, callers translate that into a busy response.
func (g *Gate) TryAcquire() bool {
	if !g.sem.TryAcquire(1) {
		return false
	}
	g.inFlight.Add(1)
	return true
}

// Release frees the slot claimed by TryAcquire. Releasing a gate that is
// not held is logged and ignored so a double release in a request handler
// cannot take the service down.
func (g *Gate) Release() {
	for {
		held := g.inFlight.Load()
		if held <= 0 {
			g.logger.Warn("release without matching acquire")
			return
		}
		if g.inFlight.CompareAndSwap(held, held-1) {
			break
		}
	}
	g.sem.Release(1)
}

// InFlight reports whether an inference currently holds the gate.
func (g *Gate) InFlight() int64 {
	return g.inFlight.Load()
}
