package checker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/August26/bridgecheck-go/internal/model"
	"github.com/August26/bridgecheck-go/internal/parser"
)

// EndpointProber is satisfied by *Prober; tests substitute their own.
type EndpointProber interface {
	Probe(ctx context.Context, ep model.Endpoint) ProbeResult
}

// Sink receives working bridge lines. Only the batch collector calls it.
type Sink interface {
	WriteLine(line string) error
}

// Observer is told about every finished line. A nil Observer is a no-op.
type Observer interface {
	Start(name string, total int)
	Observe(v model.Verdict)
	Finish()
}

type BatchOptions struct {
	Name      string
	Transport model.Transport
	Workers   int
	Prober    EndpointProber
	Sink      Sink             // optional
	Observer  Observer         // optional
	Resolver  model.IPResolver // optional, counts working bridges per country
	Log       *slog.Logger
}

// RunBatch extracts and probes every line on a bounded worker pool.
// Verdicts flow back over a channel to a single collector, which owns the
// result slice and the sink. The working set comes back in completion order.
func RunBatch(ctx context.Context, lines []string, opts BatchOptions) model.SourceResult {
	out := model.SourceResult{
		Name:      opts.Name,
		Transport: opts.Transport,
		Total:     len(lines),
	}
	if len(lines) == 0 {
		return out
	}

	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(lines) {
		workers = len(lines)
	}

	jobs := make(chan string)
	resultsCh := make(chan model.Verdict, workers)
	wg := &sync.WaitGroup{}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for line := range jobs {
				resultsCh <- checkLine(ctx, line, opts)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, line := range lines {
			jobs <- line
		}
	}()

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	if opts.Observer != nil {
		opts.Observer.Start(opts.Name, len(lines))
		defer opts.Observer.Finish()
	}

	var latencySum int64
	sinkFailed := false
	for v := range resultsCh {
		if opts.Observer != nil {
			opts.Observer.Observe(v)
		}
		if !v.Alive {
			log.Debug("bridge not working",
				"source", opts.Name,
				"line", v.Line,
				"parsed", v.Parsed,
				"attempts", v.Attempts,
				"err", v.Error,
			)
			continue
		}

		out.Working++
		out.WorkingLines = append(out.WorkingLines, v.Line)
		latencySum += v.LatencyMs
		log.Debug("bridge working",
			"source", opts.Name,
			"endpoint", v.Endpoint.Address(),
			"latency_ms", v.LatencyMs,
			"attempts", v.Attempts,
		)

		if opts.Sink != nil && !sinkFailed {
			if err := opts.Sink.WriteLine(v.Line); err != nil {
				// keep scanning; the report still carries the counts
				log.Error("failed to write working bridge", "source", opts.Name, "err", err)
				sinkFailed = true
			}
		}

		if opts.Resolver != nil {
			if info, err := opts.Resolver.Lookup(v.Endpoint.Host); err == nil && info.Country != "" {
				if out.Countries == nil {
					out.Countries = map[string]int{}
				}
				out.Countries[info.Country]++
			}
		}
	}

	if out.Working > 0 {
		out.AvgLatencyMs = float64(latencySum) / float64(out.Working)
	}
	return out
}

// checkLine runs extraction and probing for one line. A panic anywhere in
// here marks only this line as not working.
func checkLine(ctx context.Context, line string, opts BatchOptions) (v model.Verdict) {
	v = model.Verdict{Line: line, Transport: opts.Transport}
	if v.Transport == "" || v.Transport == model.TransportAuto {
		v.Transport = parser.InferTransport(line)
	}

	defer func() {
		if r := recover(); r != nil {
			v.Alive = false
			v.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	ep, err := parser.Extract(line, v.Transport)
	if err != nil {
		v.Error = err.Error()
		return v
	}
	v.Parsed = true
	v.Endpoint = ep

	res := opts.Prober.Probe(ctx, ep)
	v.Alive = res.Alive
	v.Attempts = res.Attempts
	v.LatencyMs = res.LatencyMs
	if res.LastErr != nil && !res.Alive {
		v.Error = res.LastErr.Error()
	}
	return v
}
