package run

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"gauntlet/internal/checker"
	"gauntlet/internal/cluster"
	"gauntlet/internal/db"
	"gauntlet/internal/events"
	"gauntlet/internal/history"
	"gauntlet/internal/metrics"
	"gauntlet/internal/nemesis"
	"gauntlet/internal/workload"
)

// Test はラン1回ぶんの組み立て済みコラボレータ一式
// Assemble が返した時点では何も開始されていない
type Test struct {
	ID      string
	Options Options
	Build   db.Build

	Cluster  *cluster.Cluster
	OS       db.OS
	DB       db.Db
	Workload *workload.Workload
	Nemesis  *nemesis.Nemesis
	Schedule *nemesis.Schedule
	History  *history.History
	Metrics  *metrics.Metrics
	Bus      *events.Bus
	Checkers []checker.Checker
}

// Assemble は設定からテスト一式を組み立てる
// 純粋な配線のみで、ノードの起動や負荷の開始は行わない
func Assemble(opts Options) (*Test, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}

	build, err := db.ResolvePatch(opts.Patch)
	if err != nil {
		return nil, err
	}

	clusterCfg := cluster.Config{
		ReplicationInterval: opts.ReplicationInterval,
		MaxSkew:             opts.MaxSkew,
		UnionSets:           build.UnionSets,
	}
	c := cluster.New(clusterCfg)
	if err := c.CreateNodes(opts.Nodes, "node"); err != nil {
		return nil, errors.Wrap(err, "create nodes")
	}

	w, err := workload.DefaultRegistry().Resolve(opts.Workload, workload.Options{
		Cluster:     c,
		Rate:        opts.Rate,
		OpsPerKey:   opts.OpsPerKey,
		Concurrency: opts.Concurrency,
		TimeLimit:   opts.TimeLimit,
		Seed:        opts.Seed,
	})
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	h := history.New()
	m := metrics.New()
	bus := events.NewBus()

	act := nemesis.NewClusterActuator(c)
	nem := nemesis.New(act, act)
	nem.SetRecorder(h)
	nem.SetMetrics(m)
	nem.SetEventBus(id, bus)

	checkers := append([]checker.Checker{checker.NewPerfChecker()}, w.Checkers...)

	return &Test{
		ID:       id,
		Options:  opts,
		Build:    build,
		Cluster:  c,
		OS:       db.SimOS{},
		DB:       db.NewSimDB(build, c),
		Workload: w,
		Nemesis:  nem,
		Schedule: nemesis.NewSchedule(opts.Unit),
		History:  h,
		Metrics:  m,
		Bus:      bus,
		Checkers: checkers,
	}, nil
}
