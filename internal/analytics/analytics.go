package analytics

import (
	"time"

	"github.com/August26/bridgecheck-go/internal/model"
)

// HealthPct is working/total*100, or 0 when total is 0.
func HealthPct(working, total int) float64 {
	if total <= 0 {
		return 0
	}
	return (float64(working) / float64(total)) * 100.0
}

// Compute builds the run report from per-source results.
func Compute(sources []model.SourceResult, startedAt time.Time, totalDuration time.Duration) model.RunReport {
	report := model.RunReport{
		Sources:   sources,
		StartedAt: startedAt,
		Duration:  totalDuration,
	}

	for _, s := range sources {
		report.TotalAll += s.Total
		report.WorkingAll += s.Working
	}
	report.HealthPct = HealthPct(report.WorkingAll, report.TotalAll)

	return report
}
