package checker

import (
	"context"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/time/rate"

	"github.com/August26/bridgecheck-go/internal/model"
)

// ProbeResult is the liveness verdict for one endpoint.
type ProbeResult struct {
	Alive     bool
	Attempts  int
	LatencyMs int64
	LastErr   error
}

// Prober checks that a TCP endpoint accepts connections. No bytes are
// exchanged; the handshake alone is the signal.
type Prober struct {
	Dialer      proxy.ContextDialer
	Timeout     time.Duration // per attempt
	MaxAttempts int
	Backoff     time.Duration
	Limiter     *rate.Limiter // optional, shared by all workers
}

// Probe never returns an error; every failure collapses to Alive=false.
func (p *Prober) Probe(ctx context.Context, ep model.Endpoint) ProbeResult {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var res ProbeResult
	for attempt := 1; attempt <= attempts; attempt++ {
		res.Attempts = attempt

		latency, err := p.probeOnce(ctx, ep)
		if err == nil {
			res.Alive = true
			res.LatencyMs = latency.Milliseconds()
			res.LastErr = nil
			return res
		}
		res.LastErr = err

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return res
		case <-time.After(p.Backoff):
		}
	}
	return res
}

func (p *Prober) probeOnce(ctx context.Context, ep model.Endpoint) (time.Duration, error) {
	if p.Limiter != nil {
		if err := p.Limiter.Wait(ctx); err != nil {
			return 0, err
		}
	}

	dialCtx := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	start := time.Now()
	conn, err := p.Dialer.DialContext(dialCtx, "tcp", ep.Address())
	if err != nil {
		return 0, err
	}
	_ = conn.Close()
	return time.Since(start), nil
}
