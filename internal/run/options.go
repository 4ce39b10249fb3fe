package run

import (
	"fmt"
	"strings"
	"time"

	multierror "github.com/hashicorp/go-multierror"

	"gauntlet/internal/db"
	"gauntlet/internal/workload"
)

// Options はラン1回ぶんの設定
// ゼロ値は不正で、DefaultOptions から始めて上書きする
type Options struct {
	Patch    string `yaml:"patch" json:"patch"`
	Workload string `yaml:"workload" json:"workload"`

	Rate        float64       `yaml:"rate" json:"rate"`
	OpsPerKey   int           `yaml:"ops_per_key" json:"ops_per_key"`
	Concurrency int           `yaml:"concurrency" json:"concurrency"`
	Nodes       int           `yaml:"nodes" json:"nodes"`
	TimeLimit   time.Duration `yaml:"time_limit" json:"time_limit"`

	// Unit はフォールトスケジュールの時間単位
	Unit time.Duration `yaml:"unit" json:"unit"`
	// SettlePause はヒール後の収束待ち時間
	SettlePause time.Duration `yaml:"settle_pause" json:"settle_pause"`

	ReplicationInterval time.Duration `yaml:"replication_interval" json:"replication_interval"`
	MaxSkew             time.Duration `yaml:"max_skew" json:"max_skew"`

	// Seed が0のときは組み立て時に時刻から採番される
	Seed int64 `yaml:"seed" json:"seed"`
}

// DefaultOptions は標準設定を返す
func DefaultOptions() Options {
	return Options{
		Patch:               "default",
		Workload:            "reg",
		Rate:                10,
		OpsPerKey:           100,
		Concurrency:         5,
		Nodes:               5,
		TimeLimit:           60 * time.Second,
		Unit:                time.Second,
		SettlePause:         10 * time.Second,
		ReplicationInterval: 50 * time.Millisecond,
		MaxSkew:             2 * time.Second,
	}
}

// Validate は設定を検査し、全ての違反をまとめて返す
// クラスタの構築より前に呼ばれ、不正な設定でのプロビジョニング
// を防ぐ
func (o Options) Validate() error {
	var errs *multierror.Error

	if _, err := db.ResolvePatch(o.Patch); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("--patch: %w", err))
	}
	known := workload.DefaultRegistry().Names()
	if !contains(known, o.Workload) {
		errs = multierror.Append(errs, fmt.Errorf(
			"--workload: %q is not one of: %s", o.Workload, strings.Join(known, ", ")))
	}
	if o.Rate <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("--rate: must be positive, got %v", o.Rate))
	}
	if o.OpsPerKey < 1 {
		errs = multierror.Append(errs, fmt.Errorf("--ops-per-key: must be at least 1, got %d", o.OpsPerKey))
	}
	if o.Concurrency < 1 {
		errs = multierror.Append(errs, fmt.Errorf("--concurrency: must be at least 1, got %d", o.Concurrency))
	}
	if o.Nodes < 2 {
		errs = multierror.Append(errs, fmt.Errorf("--nodes: need at least 2 to partition, got %d", o.Nodes))
	}
	// time-limit は0以下も合法（メインフェーズが即終了する）

	return errs.ErrorOrNil()
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
