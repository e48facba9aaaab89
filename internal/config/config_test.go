package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/August26/bridgecheck-go/internal/model"
)

const sampleYAML = `
context: ci
output_dirs:
  ci: ./out
max_workers: 20
connect_timeout: 3s
max_retries: 4
backoff: 250ms
dial_rate: 50
archive: true
sources:
  - type: obfs4
    url: https://example.org/obfs4
  - type: WebTunnel
    url: https://example.org/webtunnel
    output_file: wt.txt
    contexts: [local]
  - type: auto
    input_file: mixed.txt
    contexts: [ci]
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML), model.DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.Context != "ci" || cfg.MaxWorkers != 20 || cfg.MaxAttempts != 4 {
		t.Fatalf("scalars not applied: %#v", cfg)
	}
	if cfg.ConnectTimeout != 3*time.Second || cfg.Backoff != 250*time.Millisecond {
		t.Fatalf("durations not applied: %v %v", cfg.ConnectTimeout, cfg.Backoff)
	}
	if cfg.DialRate != 50 || !cfg.Archive {
		t.Fatalf("rate/archive not applied: %#v", cfg)
	}
	// untouched defaults survive
	if cfg.FetchTimeout != 15*time.Second {
		t.Fatalf("fetch timeout default lost: %v", cfg.FetchTimeout)
	}

	if cfg.Sources[0].OutputFile != "working_obfs4.txt" {
		t.Fatalf("default output file: %q", cfg.Sources[0].OutputFile)
	}
	if cfg.Sources[1].Type != model.TransportWebtunnel {
		t.Fatalf("transport not normalized: %q", cfg.Sources[1].Type)
	}
	if cfg.ResolvedOutputDir() != "./out" {
		t.Fatalf("output dir: %q", cfg.ResolvedOutputDir())
	}

	var active []model.Transport
	for _, s := range cfg.ActiveSources() {
		active = append(active, s.Type)
	}
	want := []model.Transport{model.TransportObfs4, model.TransportAuto}
	if !reflect.DeepEqual(active, want) {
		t.Fatalf("active sources %v want %v", active, want)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []string{
		"max_workers: 0",
		"sources:\n  - type: meek\n    url: https://x",
		"sources:\n  - type: obfs4",
		"connect_timeout: -1s",
		"max_workers: [",
	}
	for _, c := range cases {
		if _, err := Parse([]byte(c), model.DefaultConfig()); err == nil {
			t.Fatalf("expected error for %q", c)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("max_workers: 7\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path, model.DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.MaxWorkers != 7 || len(cfg.Sources) != 3 {
		t.Fatalf("bad config: %#v", cfg)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), model.DefaultConfig()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
