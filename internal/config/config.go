package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/August26/bridgecheck-go/internal/model"
)

// File mirrors the YAML config. Pointer fields distinguish "unset" from zero.
type File struct {
	Context        *string           `yaml:"context"`
	OutputDir      *string           `yaml:"output_dir"`
	OutputDirs     map[string]string `yaml:"output_dirs"`
	MaxWorkers     *int              `yaml:"max_workers"`
	ConnectTimeout *time.Duration    `yaml:"connect_timeout"`
	MaxRetries     *int              `yaml:"max_retries"`
	Backoff        *time.Duration    `yaml:"backoff"`
	DialRate       *float64          `yaml:"dial_rate"`
	FetchTimeout   *time.Duration    `yaml:"fetch_timeout"`
	SOCKS5         *string           `yaml:"socks5"`
	GeoIPDB        *string           `yaml:"geoip_db"`
	Archive        *bool             `yaml:"archive"`
	ReportDocx     *bool             `yaml:"report_docx"`
	Sources        []model.Source    `yaml:"sources"`
}

// Load reads a YAML config file and applies it on top of base.
func Load(path string, base model.Config) (model.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, base)
}

func Parse(data []byte, base model.Config) (model.Config, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return base, fmt.Errorf("parse config: %w", err)
	}

	cfg := base
	if f.Context != nil {
		cfg.Context = *f.Context
	}
	if f.OutputDir != nil {
		cfg.OutputDir = *f.OutputDir
	}
	if len(f.OutputDirs) > 0 {
		cfg.OutputDirs = f.OutputDirs
	}
	if f.MaxWorkers != nil {
		cfg.MaxWorkers = *f.MaxWorkers
	}
	if f.ConnectTimeout != nil {
		cfg.ConnectTimeout = *f.ConnectTimeout
	}
	if f.MaxRetries != nil {
		cfg.MaxAttempts = *f.MaxRetries
	}
	if f.Backoff != nil {
		cfg.Backoff = *f.Backoff
	}
	if f.DialRate != nil {
		cfg.DialRate = *f.DialRate
	}
	if f.FetchTimeout != nil {
		cfg.FetchTimeout = *f.FetchTimeout
	}
	if f.SOCKS5 != nil {
		cfg.SOCKS5 = *f.SOCKS5
	}
	if f.GeoIPDB != nil {
		cfg.GeoIPDB = *f.GeoIPDB
	}
	if f.Archive != nil {
		cfg.Archive = *f.Archive
	}
	if f.ReportDocx != nil {
		cfg.ReportDocx = *f.ReportDocx
	}
	if len(f.Sources) > 0 {
		cfg.Sources = f.Sources
	} else {
		cfg.Sources = append([]model.Source(nil), base.Sources...)
	}

	if err := Validate(&cfg); err != nil {
		return base, err
	}
	return cfg, nil
}

// Validate normalizes transport names and checks the ranges that matter.
func Validate(cfg *model.Config) error {
	if cfg.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be >= 1, got %d", cfg.MaxWorkers)
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive, got %s", cfg.ConnectTimeout)
	}
	for i := range cfg.Sources {
		s := &cfg.Sources[i]
		t, ok := model.ParseTransport(string(s.Type))
		if !ok {
			return fmt.Errorf("source %d: unknown transport %q", i, s.Type)
		}
		s.Type = t
		if s.URL == "" && s.InputFile == "" {
			return fmt.Errorf("source %d (%s): url or input_file is required", i, s.Type)
		}
		if s.OutputFile == "" {
			s.OutputFile = "working_" + string(s.Type) + ".txt"
		}
	}
	return nil
}
