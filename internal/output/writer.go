package output

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/August26/bridgecheck-go/internal/analytics"
	"github.com/August26/bridgecheck-go/internal/model"
)

// FileSink writes working bridge lines to one file, one per line.
// WriteLine is safe for concurrent use and flushes before returning.
type FileSink struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *bufio.Writer
}

// CreateFileSink truncates (or creates) path.
func CreateFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return &FileSink{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

func (s *FileSink) Path() string { return s.path }

func (s *FileSink) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.WriteString(line + "\n"); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

// PrintReport prints the per-source health table.
func PrintReport(w io.Writer, r model.RunReport) {
	line := strings.Repeat("=", 64)
	sep := strings.Repeat("-", 64)

	fmt.Fprintln(w)
	fmt.Fprintln(w, line)

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BRIDGE TYPE\t| TOTAL\t| WORKING\t| HEALTH\t| AVG LAT(ms)")
	for _, s := range r.Sources {
		lat := "-"
		if s.AvgLatencyMs > 0 {
			lat = fmt.Sprintf("%.0f", s.AvgLatencyMs)
		}
		fmt.Fprintf(tw, "%s\t| %d\t| %d\t| %.1f%%\t| %s\n",
			strings.ToUpper(s.Name),
			s.Total,
			s.Working,
			analytics.HealthPct(s.Working, s.Total),
			lat,
		)
	}
	fmt.Fprintf(tw, "%s\t| %d\t| %d\t| %.1f%%\t|\n",
		"OVERALL",
		r.TotalAll,
		r.WorkingAll,
		r.HealthPct,
	)
	tw.Flush()

	fmt.Fprintln(w, sep)
	if countries := mergeCountries(r.Sources); len(countries) > 0 {
		fmt.Fprintf(w, "Working bridges by country: %s\n", countries)
	}
	fmt.Fprintf(w, "Execution Time: %.2f seconds\n", r.Duration.Seconds())
	fmt.Fprintln(w, line)
}

// mergeCountries renders "DE=3 NL=2 US=1", most bridges first.
func mergeCountries(sources []model.SourceResult) string {
	merged := map[string]int{}
	for _, s := range sources {
		for cc, n := range s.Countries {
			merged[cc] += n
		}
	}
	keys := make([]string, 0, len(merged))
	for cc := range merged {
		keys = append(keys, cc)
	}
	sort.Slice(keys, func(i, j int) bool {
		if merged[keys[i]] != merged[keys[j]] {
			return merged[keys[i]] > merged[keys[j]]
		}
		return keys[i] < keys[j]
	})
	parts := make([]string, 0, len(keys))
	for _, cc := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", cc, merged[cc]))
	}
	return strings.Join(parts, " ")
}

type sourceSummary struct {
	Type         string         `json:"type"`
	Total        int            `json:"total"`
	Working      int            `json:"working"`
	HealthPct    float64        `json:"health_pct"`
	AvgLatencyMs float64        `json:"avg_latency_ms"`
	OutputFile   string         `json:"output_file,omitempty"`
	Countries    map[string]int `json:"countries,omitempty"`
	FetchError   string         `json:"fetch_error,omitempty"`
}

type runSummary struct {
	StartedAt  string          `json:"started_at"`
	DurationMs int64           `json:"duration_ms"`
	Total      int             `json:"total"`
	Working    int             `json:"working"`
	HealthPct  float64         `json:"health_pct"`
	Sources    []sourceSummary `json:"sources"`
}

// WriteSummary writes the run report to a file in json or csv format.
func WriteSummary(path string, format string, r model.RunReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch format {
	case "json":
		return writeJSON(f, r)
	case "csv":
		return writeCSV(f, r)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func summarize(r model.RunReport) runSummary {
	out := runSummary{
		StartedAt:  r.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
		DurationMs: r.Duration.Milliseconds(),
		Total:      r.TotalAll,
		Working:    r.WorkingAll,
		HealthPct:  r.HealthPct,
	}
	for _, s := range r.Sources {
		out.Sources = append(out.Sources, sourceSummary{
			Type:         s.Name,
			Total:        s.Total,
			Working:      s.Working,
			HealthPct:    analytics.HealthPct(s.Working, s.Total),
			AvgLatencyMs: s.AvgLatencyMs,
			OutputFile:   s.OutputFile,
			Countries:    s.Countries,
			FetchError:   s.FetchError,
		})
	}
	return out
}

func writeJSON(w io.Writer, r model.RunReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summarize(r))
}

// writeCSV writes one row per source (country breakdown is not included).
func writeCSV(w io.Writer, r model.RunReport) error {
	cw := csv.NewWriter(w)

	header := []string{
		"type",
		"total",
		"working",
		"health_pct",
		"avg_latency_ms",
		"output_file",
		"fetch_error",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, s := range summarize(r).Sources {
		row := []string{
			s.Type,
			fmt.Sprintf("%d", s.Total),
			fmt.Sprintf("%d", s.Working),
			fmt.Sprintf("%.1f", s.HealthPct),
			fmt.Sprintf("%.1f", s.AvgLatencyMs),
			s.OutputFile,
			s.FetchError,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
