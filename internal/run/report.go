package run

import (
	"fmt"
	"sort"
	"time"
)

// Report は人間向けのラン結果レポートを整形する
func (r *Result) Report() string {
	verdict := "VALID"
	if !r.Valid {
		verdict = "INVALID"
	}

	report := fmt.Sprintf(`
================================================================================
                         RUN REPORT: %s
================================================================================

VERDICT: %s

RUN SUMMARY
-----------
  Build:          %s
  Workload:       %s
  Duration:       %v
  History Ops:    %d

TRAFFIC METRICS
---------------
  Total Ops:      %d
  OK:             %d
  Failed:         %d
  Unknown:        %d
  Throughput:     %.1f ops/s
  Avg Latency:    %v
  P99 Latency:    %v

FAULT STATISTICS
----------------
  Faults Applied: %d
  Anomalies:      %d

CHECKER RESULTS
---------------
`,
		r.RunID,
		verdict,
		r.Build,
		r.Workload,
		r.Duration.Round(time.Millisecond),
		r.Ops,
		r.Metrics.TotalOps,
		r.Metrics.OKOps,
		r.Metrics.FailedOps,
		r.Metrics.InfoOps,
		r.Metrics.Throughput,
		r.Metrics.AverageLatency.Round(time.Microsecond),
		r.Metrics.P99Latency.Round(time.Microsecond),
		r.Metrics.Faults,
		r.Metrics.Anomalies,
	)

	for _, res := range r.Verdict.Results {
		status := "valid"
		if !res.Valid {
			status = "INVALID"
		}
		report += fmt.Sprintf("  %-24s %s\n", res.Name+":", status)
		keys := make([]string, 0, len(res.Details))
		for k := range res.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			report += fmt.Sprintf("    %-22s %v\n", k+":", res.Details[k])
		}
	}

	report += "\n================================================================================"

	return report
}
