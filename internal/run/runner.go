package run

import (
	"context"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"gauntlet/internal/checker"
	"gauntlet/internal/events"
	"gauntlet/internal/logger"
	"gauntlet/internal/metrics"
	"gauntlet/internal/phase"
)

// Result はラン1回の最終結果
type Result struct {
	RunID    string           `json:"run_id"`
	Build    string           `json:"build"`
	Workload string           `json:"workload"`
	Valid    bool             `json:"valid"`
	Verdict  checker.Verdict  `json:"verdict"`
	Metrics  metrics.Snapshot `json:"metrics"`
	Ops      int              `json:"ops"`
	Duration time.Duration    `json:"duration"`
}

// Runner は組み立て済みのテストを実行する
type Runner struct {
	test *Test
}

// NewRunner は新しいRunnerを作成する
func NewRunner(t *Test) *Runner {
	return &Runner{test: t}
}

// Run はセットアップ→フェーズ実行→検査→ティアダウンを行う
// セットアップの失敗はランの中断で、負荷もフォールトも開始
// されない。検査はフェーズ完了後に必ず走る
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	t := r.test
	start := time.Now()
	logger.Info("runner", "run %s starting: build=%s workload=%s nodes=%d",
		t.ID, t.Build.ID, t.Workload.Name, t.Options.Nodes)

	for _, node := range t.DB.Nodes() {
		if err := t.OS.Setup(ctx, node); err != nil {
			return nil, errors.Wrapf(err, "os setup on %s", node)
		}
	}
	if err := t.DB.Setup(ctx); err != nil {
		return nil, err
	}

	var errs *multierror.Error
	teardown := func() {
		if err := t.DB.Teardown(ctx); err != nil {
			logger.Warn("runner", "teardown failed: %v", err)
			errs = multierror.Append(errs, err)
		}
	}

	composer, err := phase.NewComposer(phase.Config{
		Workload:    t.Workload,
		Nemesis:     t.Nemesis,
		Schedule:    t.Schedule,
		History:     t.History,
		Metrics:     t.Metrics,
		Bus:         t.Bus,
		RunID:       t.ID,
		Nodes:       t.DB.Nodes(),
		Concurrency: t.Options.Concurrency,
		Rate:        t.Options.Rate,
		TimeLimit:   t.Options.TimeLimit,
		SettlePause: t.Options.SettlePause,
	})
	if err != nil {
		teardown()
		return nil, err
	}

	if err := composer.Run(ctx); err != nil {
		teardown()
		return nil, errors.Wrap(err, "phase execution")
	}
	teardown()

	ops := t.History.Ops()
	verdict, checkErr := checker.Aggregate(ops, t.Checkers...)
	if checkErr != nil {
		logger.Error("runner", "checker failure: %v", checkErr)
		errs = multierror.Append(errs, checkErr)
	}

	if t.Bus != nil {
		t.Bus.Publish(events.NewRunCompletedEvent(t.ID, verdict.Valid))
	}

	result := &Result{
		RunID:    t.ID,
		Build:    t.Build.ID,
		Workload: t.Workload.Name,
		Valid:    verdict.Valid,
		Verdict:  verdict,
		Metrics:  t.Metrics.Snapshot(),
		Ops:      len(ops),
		Duration: time.Since(start),
	}
	logger.Info("runner", "run %s finished: valid=%t ops=%d duration=%v",
		t.ID, result.Valid, result.Ops, result.Duration.Round(time.Millisecond))
	return result, errs.ErrorOrNil()
}
