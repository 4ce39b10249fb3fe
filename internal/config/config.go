package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gauntlet/internal/run"
)

// FileConfig は設定ファイルの構造
// 時間の項目は "30s" のような duration 文字列で書く
type FileConfig struct {
	Run RunConfig `yaml:"run" json:"run"`
}

// RunConfig はラン設定
type RunConfig struct {
	Preset   string `yaml:"preset" json:"preset"`
	Patch    string `yaml:"patch" json:"patch"`
	Workload string `yaml:"workload" json:"workload"`

	Rate        float64 `yaml:"rate" json:"rate"`
	OpsPerKey   int     `yaml:"ops_per_key" json:"ops_per_key"`
	Concurrency int     `yaml:"concurrency" json:"concurrency"`
	Nodes       int     `yaml:"nodes" json:"nodes"`
	TimeLimit   string  `yaml:"time_limit" json:"time_limit"`

	Unit        string `yaml:"unit" json:"unit"`
	SettlePause string `yaml:"settle_pause" json:"settle_pause"`

	ReplicationInterval string `yaml:"replication_interval" json:"replication_interval"`
	MaxSkew             string `yaml:"max_skew" json:"max_skew"`

	Seed int64 `yaml:"seed" json:"seed"`
}

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// ToOptions はFileConfigをrun.Optionsに変換する
// 省略された項目はデフォルト（プリセット適用後）のまま残る
func (f *FileConfig) ToOptions() (run.Options, error) {
	rc := f.Run

	opts := run.DefaultOptions()
	if rc.Preset != "" {
		var err error
		opts, err = run.ApplyPreset(rc.Preset, opts)
		if err != nil {
			return opts, err
		}
	}

	if rc.Patch != "" {
		opts.Patch = rc.Patch
	}
	if rc.Workload != "" {
		opts.Workload = rc.Workload
	}
	if rc.Rate > 0 {
		opts.Rate = rc.Rate
	}
	if rc.OpsPerKey > 0 {
		opts.OpsPerKey = rc.OpsPerKey
	}
	if rc.Concurrency > 0 {
		opts.Concurrency = rc.Concurrency
	}
	if rc.Nodes > 0 {
		opts.Nodes = rc.Nodes
	}
	if rc.Seed != 0 {
		opts.Seed = rc.Seed
	}

	durations := []struct {
		raw   string
		field string
		dst   *time.Duration
	}{
		{rc.TimeLimit, "time_limit", &opts.TimeLimit},
		{rc.Unit, "unit", &opts.Unit},
		{rc.SettlePause, "settle_pause", &opts.SettlePause},
		{rc.ReplicationInterval, "replication_interval", &opts.ReplicationInterval},
		{rc.MaxSkew, "max_skew", &opts.MaxSkew},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return opts, fmt.Errorf("invalid %s: %w", d.field, err)
		}
		*d.dst = parsed
	}

	return opts, nil
}
