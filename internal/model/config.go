package model

import (
	"runtime"
	"time"
)

type GeoInfo struct {
	Country string
	City    string
}

type IPResolver interface {
	Lookup(ip string) (GeoInfo, error)
}

// Source is one remote bridge list.
type Source struct {
	Type       Transport `yaml:"type"`
	URL        string    `yaml:"url"`
	InputFile  string    `yaml:"input_file"`  // read from disk instead of URL when set
	OutputFile string    `yaml:"output_file"` // base name, joined with the output dir
	Contexts   []string  `yaml:"contexts"`    // empty = every execution context
}

// Name is the label used in logs and the report.
func (s Source) Name() string {
	return string(s.Type)
}

type Config struct {
	Sources        []Source
	Context        string // execution context, e.g. "local" or "ci"
	OutputDir      string
	OutputDirs     map[string]string // per-context override of OutputDir
	MaxWorkers     int
	ConnectTimeout time.Duration
	MaxAttempts    int
	Backoff        time.Duration
	DialRate       float64 // dial attempts per second across all workers, 0 = unlimited
	FetchTimeout   time.Duration
	SOCKS5         string // optional upstream proxy host:port for probes and fetches
	GeoIPDB        string
	Archive        bool
	ReportDocx     bool
	Progress       bool
	Verbose        bool
	TelegramToken  string
	TelegramChatID string
	Resolver       IPResolver
}

// DefaultWorkers is min(100, NumCPU*10).
func DefaultWorkers() int {
	n := runtime.NumCPU() * 10
	if n > 100 {
		n = 100
	}
	if n < 1 {
		n = 1
	}
	return n
}

// DefaultSources are the public Tor-Bridges-Collector lists.
func DefaultSources() []Source {
	return []Source{
		{
			Type:       TransportObfs4,
			URL:        "https://raw.githubusercontent.com/scriptzteam/Tor-Bridges-Collector/main/bridges-obfs4",
			OutputFile: "working_obfs4.txt",
		},
		{
			Type:       TransportWebtunnel,
			URL:        "https://raw.githubusercontent.com/scriptzteam/Tor-Bridges-Collector/main/bridges-webtunnel",
			OutputFile: "working_webtunnel.txt",
		},
		{
			Type:       TransportVanilla,
			URL:        "https://github.com/scriptzteam/Tor-Bridges-Collector/raw/refs/heads/main/bridges-vanilla",
			OutputFile: "working_vanilla.txt",
		},
	}
}

func DefaultConfig() Config {
	return Config{
		Sources:        DefaultSources(),
		Context:        "local",
		OutputDir:      ".",
		MaxWorkers:     DefaultWorkers(),
		ConnectTimeout: 10 * time.Second,
		MaxAttempts:    2,
		Backoff:        500 * time.Millisecond,
		FetchTimeout:   15 * time.Second,
	}
}

// ResolvedOutputDir applies the per-context override.
func (c Config) ResolvedOutputDir() string {
	if d, ok := c.OutputDirs[c.Context]; ok && d != "" {
		return d
	}
	if c.OutputDir == "" {
		return "."
	}
	return c.OutputDir
}

// ActiveSources returns the sources enabled for the current execution context.
func (c Config) ActiveSources() []Source {
	var out []Source
	for _, s := range c.Sources {
		if len(s.Contexts) == 0 {
			out = append(out, s)
			continue
		}
		for _, ctx := range s.Contexts {
			if ctx == c.Context {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
