package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/August26/bridgecheck-go/internal/analytics"
	"github.com/August26/bridgecheck-go/internal/checker"
	"github.com/August26/bridgecheck-go/internal/model"
	"github.com/August26/bridgecheck-go/internal/notify"
	"github.com/August26/bridgecheck-go/internal/output"
	"github.com/August26/bridgecheck-go/internal/parser"
)

// ErrStorageUnavailable fails the whole run: nothing could be persisted.
var ErrStorageUnavailable = errors.New("output storage unavailable")

const reportDocxName = "bridge_report.docx"

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]string, error)
}

type Notifier interface {
	SendDocument(ctx context.Context, path, caption string) error
}

// Runner sequences fetch, scan and persist for every active source, then
// archives and delivers the results.
type Runner struct {
	Cfg      model.Config
	Fetcher  Fetcher
	Prober   checker.EndpointProber
	Observer checker.Observer // optional
	Notifier Notifier         // optional
	Log      *slog.Logger
	Now      func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.New(slog.DiscardHandler)
}

// Run returns an error only when output storage is unusable: the output
// directory cannot be created or no active source got a writable file.
// Source-level failures are recorded in the report as empty results.
func (r *Runner) Run(ctx context.Context) (model.RunReport, error) {
	log := r.logger()
	startedAt := r.now()
	start := time.Now()

	dir := r.Cfg.ResolvedOutputDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return model.RunReport{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	sources := r.Cfg.ActiveSources()
	log.Info("run started",
		"context", r.Cfg.Context,
		"sources", len(sources),
		"output_dir", dir,
		"workers", r.Cfg.MaxWorkers,
	)

	results := make([]model.SourceResult, 0, len(sources))
	var files []string
	for _, src := range sources {
		res := r.processSource(ctx, src, dir)
		results = append(results, res)
		if res.OutputFile != "" {
			files = append(files, res.OutputFile)
		}
	}

	report := analytics.Compute(results, startedAt, time.Since(start))
	if len(sources) > 0 && len(files) == 0 {
		return report, fmt.Errorf("%w: no output file could be created in %s", ErrStorageUnavailable, dir)
	}
	r.publish(ctx, &report, dir, files)

	log.Info("run finished",
		"total", report.TotalAll,
		"working", report.WorkingAll,
		"health_pct", report.HealthPct,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

func (r *Runner) processSource(ctx context.Context, src model.Source, dir string) model.SourceResult {
	log := r.logger().With("source", src.Name())
	log.Info("scanning bridges", "url", src.URL, "input_file", src.InputFile)

	lines, err := r.load(ctx, src)
	if err != nil {
		log.Warn("failed to fetch bridges", "err", err)
	}

	path := filepath.Join(dir, filepath.Base(src.OutputFile))
	sink, sinkErr := output.CreateFileSink(path)
	if sinkErr != nil {
		log.Error("failed to create output file", "path", path, "err", sinkErr)
	}

	opts := checker.BatchOptions{
		Name:      src.Name(),
		Transport: src.Type,
		Workers:   r.Cfg.MaxWorkers,
		Prober:    r.Prober,
		Observer:  r.Observer,
		Resolver:  r.Cfg.Resolver,
		Log:       log,
	}
	if sink != nil {
		opts.Sink = sink
	}

	res := checker.RunBatch(ctx, lines, opts)

	if sink != nil {
		if err := sink.Close(); err != nil {
			log.Error("failed to close output file", "path", path, "err", err)
		}
		res.OutputFile = path
	}
	if err != nil {
		res.FetchError = err.Error()
	}

	log.Info("source finished",
		"total", res.Total,
		"working", res.Working,
		"health_pct", analytics.HealthPct(res.Working, res.Total),
	)
	return res
}

func (r *Runner) load(ctx context.Context, src model.Source) ([]string, error) {
	if src.InputFile != "" {
		return parser.LoadFromFile(src.InputFile)
	}
	if r.Fetcher == nil {
		return nil, errors.New("no fetcher configured")
	}
	return r.Fetcher.Fetch(ctx, src.URL)
}

// publish writes the optional report document and archive, then hands the
// archive to the notifier. Failures here are logged only.
func (r *Runner) publish(ctx context.Context, report *model.RunReport, dir string, files []string) {
	log := r.logger()

	if r.Cfg.ReportDocx {
		path := filepath.Join(dir, reportDocxName)
		if err := output.WriteReportDocx(path, *report); err != nil {
			log.Error("failed to write report document", "path", path, "err", err)
		} else {
			files = append(files, path)
		}
	}

	if r.Cfg.Archive {
		path := filepath.Join(dir, "bridges_"+report.StartedAt.UTC().Format("20060102_150405")+".zip")
		if err := output.WriteArchive(path, files); err != nil {
			log.Error("failed to write archive", "path", path, "err", err)
		} else {
			report.ArchivePath = path
			log.Info("archive written", "path", path, "files", len(files))
		}
	}

	if r.Notifier == nil {
		return
	}
	if report.ArchivePath == "" {
		log.Warn("notification skipped", "reason", "no archive")
		return
	}
	err := r.Notifier.SendDocument(ctx, report.ArchivePath, notify.Caption(report.StartedAt))
	switch {
	case errors.Is(err, notify.ErrNotConfigured):
		log.Warn("notification skipped", "reason", err.Error())
	case err != nil:
		log.Error("failed to send notification", "err", err)
	default:
		log.Info("notification sent", "archive", report.ArchivePath)
	}
}
