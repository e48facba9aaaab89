package output

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/August26/bridgecheck-go/internal/model"
)

func TestFileSink_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "working_obfs4.txt")
	if err := os.WriteFile(path, []byte("stale line\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sink, err := CreateFileSink(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := sink.WriteLine(fmt.Sprintf("obfs4 10.0.0.%d:443 cert=x", i)); err != nil {
				t.Errorf("write: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Fatalf("output must be newline terminated")
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != 50 {
		t.Fatalf("got %d lines want 50", len(lines))
	}
	for _, l := range lines {
		if l == "stale line" {
			t.Fatalf("file was not truncated")
		}
		if !strings.HasPrefix(l, "obfs4 10.0.0.") {
			t.Fatalf("interleaved write: %q", l)
		}
	}
}

func sampleReport() model.RunReport {
	return model.RunReport{
		Sources: []model.SourceResult{
			{Name: "obfs4", Total: 10, Working: 4, AvgLatencyMs: 120, Countries: map[string]int{"DE": 3, "NL": 1}},
			{Name: "webtunnel", Total: 0, Working: 0, FetchError: "boom"},
		},
		TotalAll:   10,
		WorkingAll: 4,
		HealthPct:  40,
		Duration:   1500 * time.Millisecond,
		StartedAt:  time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, sampleReport())
	out := buf.String()

	for _, want := range []string{"BRIDGE TYPE", "OBFS4", "WEBTUNNEL", "40.0%", "0.0%", "OVERALL", "DE=3 NL=1", "Execution Time: 1.50 seconds"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}

func TestPrintReport_EmptyRun(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, model.RunReport{})
	if !strings.Contains(buf.String(), "OVERALL") || !strings.Contains(buf.String(), "0.0%") {
		t.Fatalf("unexpected report:\n%s", buf.String())
	}
}

func TestWriteSummary_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	if err := WriteSummary(path, "json", sampleReport()); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got runSummary
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Total != 10 || got.Working != 4 || len(got.Sources) != 2 {
		t.Fatalf("bad summary: %#v", got)
	}
	if got.Sources[1].HealthPct != 0 || got.Sources[1].FetchError != "boom" {
		t.Fatalf("bad source summary: %#v", got.Sources[1])
	}
}

func TestWriteSummary_CSVAndUnknown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary.csv")
	if err := WriteSummary(path, "csv", sampleReport()); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, _ := os.ReadFile(path)
	if n := strings.Count(string(data), "\n"); n != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", n)
	}

	if err := WriteSummary(filepath.Join(dir, "x"), "xml", sampleReport()); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestWriteArchive(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "working_obfs4.txt")
	b := filepath.Join(dir, "working_vanilla.txt")
	os.WriteFile(a, []byte("obfs4 1.2.3.4:80 cert=x\n"), 0o644)
	os.WriteFile(b, []byte("1.2.3.4:9001 FP\n"), 0o644)

	zipPath := filepath.Join(dir, "bridges.zip")
	err := WriteArchive(zipPath, []string{a, b, filepath.Join(dir, "missing.txt")})
	if err != nil {
		t.Fatalf("archive: %v", err)
	}

	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "working_obfs4.txt" || names[1] != "working_vanilla.txt" {
		t.Fatalf("unexpected entries: %v", names)
	}
}

func TestWriteReportDocx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.docx")
	if err := WriteReportDocx(path, sampleReport()); err != nil {
		t.Fatalf("docx: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Fatalf("docx not written: %v", err)
	}
}
