package checker

import (
	"sort"
	"time"

	"gauntlet/internal/history"
)

// PerfChecker はヒストリの完全性とレイテンシ統計を検査する
// 全ての invoke に完了レコードが揃っていることが valid の条件
type PerfChecker struct{}

// NewPerfChecker は新しいPerfCheckerを作成する
func NewPerfChecker() *PerfChecker {
	return &PerfChecker{}
}

// Name はチェッカ名を返す
func (c *PerfChecker) Name() string {
	return "perf"
}

// Check は完了レコードの集計とレイテンシ分布を報告する
func (c *PerfChecker) Check(ops []history.Op) Result {
	client := history.ClientOps(ops)
	pairs := history.MatchPairs(client)
	incomplete := history.Incomplete(client)

	var okCount, failCount, infoCount int
	latencies := make([]time.Duration, 0, len(pairs))
	for _, p := range pairs {
		switch p.Completion.Type {
		case history.OK:
			okCount++
		case history.Fail:
			failCount++
		case history.Info:
			infoCount++
		}
		latencies = append(latencies, p.Completion.Time.Sub(p.Invoke.Time))
	}

	details := map[string]any{
		"ok-count":      okCount,
		"fail-count":    failCount,
		"info-count":    infoCount,
		"nemesis-count": len(history.NemesisOps(ops)),
	}
	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		var total time.Duration
		for _, l := range latencies {
			total += l
		}
		details["latency-mean-ms"] = float64(total.Microseconds()) / float64(len(latencies)) / 1000
		details["latency-p95-ms"] = float64(latencies[len(latencies)*95/100].Microseconds()) / 1000
		details["latency-max-ms"] = float64(latencies[len(latencies)-1].Microseconds()) / 1000
	}
	if len(incomplete) > 0 {
		details["incomplete-count"] = len(incomplete)
	}

	return Result{
		Name:    c.Name(),
		Valid:   len(incomplete) == 0,
		Details: details,
	}
}
