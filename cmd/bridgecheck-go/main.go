package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"golang.org/x/time/rate"

	"github.com/August26/bridgecheck-go/internal/checker"
	"github.com/August26/bridgecheck-go/internal/config"
	"github.com/August26/bridgecheck-go/internal/fetch"
	"github.com/August26/bridgecheck-go/internal/geo"
	"github.com/August26/bridgecheck-go/internal/logging"
	"github.com/August26/bridgecheck-go/internal/model"
	"github.com/August26/bridgecheck-go/internal/notify"
	"github.com/August26/bridgecheck-go/internal/output"
	"github.com/August26/bridgecheck-go/internal/progress"
	"github.com/August26/bridgecheck-go/internal/runner"
)

// inputList collects repeated -input type=path flags.
type inputList []string

func (l *inputList) String() string     { return strings.Join(*l, ",") }
func (l *inputList) Set(v string) error { *l = append(*l, v); return nil }

func main() {
	cfg := model.DefaultConfig()
	if v := os.Getenv("BRIDGECHECK_CONTEXT"); v != "" {
		cfg.Context = v
	}
	cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")

	var (
		configPath  string
		summaryPath string
		format      string
		inputs      inputList
		flagCfg     = cfg
	)

	flag.StringVar(&configPath, "config", "", "optional path to YAML config")
	flag.StringVar(&flagCfg.Context, "context", cfg.Context, "execution context: selects sources and output dir (e.g. local | ci)")
	flag.StringVar(&flagCfg.OutputDir, "output-dir", cfg.OutputDir, "directory for working_<type>.txt files")
	flag.IntVar(&flagCfg.MaxWorkers, "workers", cfg.MaxWorkers, "number of concurrent workers")
	flag.DurationVar(&flagCfg.ConnectTimeout, "timeout", cfg.ConnectTimeout, "TCP connect timeout per attempt")
	flag.IntVar(&flagCfg.MaxAttempts, "retries", cfg.MaxAttempts, "connect attempts per bridge (min 1)")
	flag.DurationVar(&flagCfg.Backoff, "backoff", cfg.Backoff, "wait between attempts")
	flag.Float64Var(&flagCfg.DialRate, "dial-rate", cfg.DialRate, "max connect attempts per second, 0 = unlimited")
	flag.DurationVar(&flagCfg.FetchTimeout, "fetch-timeout", cfg.FetchTimeout, "timeout for downloading a bridge list")
	flag.StringVar(&flagCfg.SOCKS5, "socks5", cfg.SOCKS5, "optional SOCKS5 proxy host:port for probes and downloads")
	flag.StringVar(&flagCfg.GeoIPDB, "geoip-db", cfg.GeoIPDB, "optional MaxMind .mmdb for per-country stats")
	flag.BoolVar(&flagCfg.Archive, "archive", cfg.Archive, "bundle output files into a zip")
	flag.BoolVar(&flagCfg.ReportDocx, "report-docx", cfg.ReportDocx, "write a .docx health report (added to the archive)")
	flag.BoolVar(&flagCfg.Progress, "progress", cfg.Progress, "show a progress bar per source")
	flag.BoolVar(&flagCfg.Verbose, "verbose", cfg.Verbose, "enable debug logs")
	flag.Var(&inputs, "input", "scan a local file instead of the remote lists: [type=]path (repeatable)")
	flag.StringVar(&summaryPath, "summary", "", "optional path to write the run summary (json/csv)")
	flag.StringVar(&format, "format", "json", "summary format: json | csv")

	flag.Parse()

	log := logging.NewLogger(os.Stderr, flagCfg.Verbose)

	if configPath != "" {
		loaded, err := config.Load(configPath, cfg)
		if err != nil {
			log.Error("failed to load config", "err", err, "path", configPath)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg = applyFlags(cfg, flagCfg)

	if len(inputs) > 0 {
		sources, err := sourcesFromInputs(inputs)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg.Sources = sources
	}
	if err := config.Validate(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		cfg.Archive = true
	}

	log.Info("starting bridgecheck-go",
		"context", cfg.Context,
		"sources", len(cfg.ActiveSources()),
		"workers", cfg.MaxWorkers,
		"timeout", cfg.ConnectTimeout.String(),
		"attempts", cfg.MaxAttempts,
		"socks5", cfg.SOCKS5 != "",
	)

	dialer, err := checker.NewDialer(cfg.SOCKS5, cfg.ConnectTimeout)
	if err != nil {
		log.Error("failed to build dialer", "err", err)
		os.Exit(1)
	}

	prober := &checker.Prober{
		Dialer:      dialer,
		Timeout:     cfg.ConnectTimeout,
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     cfg.Backoff,
	}
	if cfg.DialRate > 0 {
		burst := int(cfg.DialRate)
		if burst < 1 {
			burst = 1
		}
		prober.Limiter = rate.NewLimiter(rate.Limit(cfg.DialRate), burst)
	}

	if cfg.GeoIPDB != "" {
		db, err := geo.Open(cfg.GeoIPDB)
		if err != nil {
			log.Warn("geoip disabled", "err", err)
		} else {
			defer db.Close()
			cfg.Resolver = db
		}
	}

	r := &runner.Runner{
		Cfg:     cfg,
		Fetcher: fetch.NewClient(dialer, cfg.FetchTimeout),
		Prober:  prober,
		Log:     log,
		Notifier: &notify.Telegram{
			Token:  cfg.TelegramToken,
			ChatID: cfg.TelegramChatID,
		},
	}
	if cfg.Progress {
		r.Observer = progress.NewBar(os.Stderr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := r.Run(ctx)
	if err != nil {
		log.Error("run failed", "err", err)
		os.Exit(1)
	}

	output.PrintReport(os.Stdout, report)

	if summaryPath != "" {
		if err := output.WriteSummary(summaryPath, format, report); err != nil {
			log.Error("failed to write summary", "err", err, "path", summaryPath)
		} else {
			log.Info("summary written",
				"path", summaryPath,
				"format", format,
			)
		}
	}
}

// applyFlags copies flags the user actually set on top of file config.
func applyFlags(cfg, flagCfg model.Config) model.Config {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "context":
			cfg.Context = flagCfg.Context
		case "output-dir":
			cfg.OutputDir = flagCfg.OutputDir
			cfg.OutputDirs = nil
		case "workers":
			cfg.MaxWorkers = flagCfg.MaxWorkers
		case "timeout":
			cfg.ConnectTimeout = flagCfg.ConnectTimeout
		case "retries":
			cfg.MaxAttempts = flagCfg.MaxAttempts
		case "backoff":
			cfg.Backoff = flagCfg.Backoff
		case "dial-rate":
			cfg.DialRate = flagCfg.DialRate
		case "fetch-timeout":
			cfg.FetchTimeout = flagCfg.FetchTimeout
		case "socks5":
			cfg.SOCKS5 = flagCfg.SOCKS5
		case "geoip-db":
			cfg.GeoIPDB = flagCfg.GeoIPDB
		case "archive":
			cfg.Archive = flagCfg.Archive
		case "report-docx":
			cfg.ReportDocx = flagCfg.ReportDocx
		}
	})
	cfg.Progress = flagCfg.Progress
	cfg.Verbose = flagCfg.Verbose
	return cfg
}

// sourcesFromInputs turns "obfs4=bridges.txt" or "bridges.txt" into sources.
func sourcesFromInputs(inputs []string) ([]model.Source, error) {
	sources := make([]model.Source, 0, len(inputs))
	for _, in := range inputs {
		typ, path, ok := strings.Cut(in, "=")
		if !ok {
			typ, path = "", in
		}
		t, valid := model.ParseTransport(typ)
		if !valid {
			return nil, errors.New("-input: unknown transport " + typ)
		}
		sources = append(sources, model.Source{
			Type:       t,
			InputFile:  path,
			OutputFile: "working_" + string(t) + ".txt",
		})
	}
	return sources, nil
}
