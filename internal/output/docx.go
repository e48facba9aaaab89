package output

import (
	"fmt"
	"strings"

	"github.com/gingfrederik/docx"

	"github.com/August26/bridgecheck-go/internal/analytics"
	"github.com/August26/bridgecheck-go/internal/model"
)

// WriteReportDocx renders the health report as a Word document.
func WriteReportDocx(path string, r model.RunReport) error {
	f := docx.NewFile()

	titleRun := f.AddParagraph().AddText("Bridge Scan Report")
	titleRun.Size(20)

	meta := f.AddParagraph().AddText(fmt.Sprintf("Started: %s | Duration: %.2f s",
		r.StartedAt.UTC().Format("2006-01-02 15:04:05 UTC"), r.Duration.Seconds()))
	meta.Size(10)
	meta.Color("808080")
	f.AddParagraph() // spacer

	for _, s := range r.Sources {
		head := f.AddParagraph().AddText(strings.ToUpper(s.Name))
		head.Size(16)

		f.AddParagraph().AddText(fmt.Sprintf("Total: %d | Working: %d | Health: %.1f%%",
			s.Total, s.Working, analytics.HealthPct(s.Working, s.Total)))
		if s.AvgLatencyMs > 0 {
			f.AddParagraph().AddText(fmt.Sprintf("Average connect latency: %.0f ms", s.AvgLatencyMs))
		}
		if s.FetchError != "" {
			run := f.AddParagraph().AddText("Fetch failed: " + s.FetchError)
			run.Color("C00000")
		}
		if c := mergeCountries([]model.SourceResult{s}); c != "" {
			f.AddParagraph().AddText("Countries: " + c)
		}
	}

	f.AddParagraph().AddText("--------------------------------------------------")
	overall := f.AddParagraph().AddText(fmt.Sprintf("OVERALL: %d / %d working (%.1f%%)",
		r.WorkingAll, r.TotalAll, r.HealthPct))
	overall.Size(14)

	return f.Save(path)
}
