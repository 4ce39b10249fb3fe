// Package main is the entry point for gauntlet.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gauntlet/internal/api"
	"gauntlet/internal/config"
	"gauntlet/internal/db"
	"gauntlet/internal/logger"
	"gauntlet/internal/run"
	"gauntlet/internal/workload"
)

var version = "dev"

// errInvalidVerdict はラン自体は完走したが検査が不合格のとき
// に返る。終了コード1に対応する（実行エラーは2）
var errInvalidVerdict = errors.New("verdict: invalid")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, errInvalidVerdict) {
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "gauntlet",
		Short:         "分散KVクラスタの正当性検査ハーネス",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logger.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logger.Default.SetLevel(level)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"ログレベル (debug, info, warn, error)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newWorkloadsCmd())
	root.AddCommand(newPatchesCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		configFile string
		preset     string

		patch       string
		workloadArg string
		rate        float64
		opsPerKey   int
		concurrency int
		nodes       int
		timeLimit   time.Duration
		unit        time.Duration
		settlePause time.Duration
		seed        int64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "ラン1回を実行して判定を出す",
		RunE: func(cmd *cobra.Command, args []string) error {
			// 優先順: デフォルト → プリセット → 設定ファイル →
			// 明示されたフラグ
			opts := run.DefaultOptions()
			if preset != "" {
				var err error
				opts, err = run.ApplyPreset(preset, opts)
				if err != nil {
					return err
				}
			}
			if configFile != "" {
				cfg, err := config.LoadFile(configFile)
				if err != nil {
					return err
				}
				opts, err = cfg.ToOptions()
				if err != nil {
					return err
				}
			}
			applyFlagOverrides(cmd.Flags(), &opts, flagValues{
				patch: patch, workload: workloadArg, rate: rate,
				opsPerKey: opsPerKey, concurrency: concurrency, nodes: nodes,
				timeLimit: timeLimit, unit: unit, settlePause: settlePause,
				seed: seed,
			})

			test, err := run.Assemble(opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			result, err := run.NewRunner(test).Run(ctx)
			if err != nil {
				return err
			}
			fmt.Println(result.Report())
			if !result.Valid {
				return errInvalidVerdict
			}
			return nil
		},
	}

	defaults := run.DefaultOptions()
	cmd.Flags().StringVar(&configFile, "config", "", "設定ファイルパス (YAML/JSON)")
	cmd.Flags().StringVar(&preset, "preset", "",
		fmt.Sprintf("プリセット名 (%v)", run.PresetNames()))
	cmd.Flags().StringVar(&patch, "patch", defaults.Patch, "対象クラスタのパッチ名")
	cmd.Flags().StringVar(&workloadArg, "workload", defaults.Workload, "ワークロード名")
	cmd.Flags().Float64Var(&rate, "rate", defaults.Rate, "ワーカーごとの操作レート (ops/s)")
	cmd.Flags().IntVar(&opsPerKey, "ops-per-key", defaults.OpsPerKey, "キーあたりの期待操作数")
	cmd.Flags().IntVar(&concurrency, "concurrency", defaults.Concurrency, "クライアントワーカー数")
	cmd.Flags().IntVar(&nodes, "nodes", defaults.Nodes, "ノード数")
	cmd.Flags().DurationVar(&timeLimit, "time-limit", defaults.TimeLimit, "メインフェーズの時間制限")
	cmd.Flags().DurationVar(&unit, "unit", defaults.Unit, "フォールトスケジュールの時間単位")
	cmd.Flags().DurationVar(&settlePause, "settle-pause", defaults.SettlePause, "ヒール後の収束待ち時間")
	cmd.Flags().Int64Var(&seed, "seed", 0, "乱数シード (0で自動)")
	return cmd
}

// flagValues は run コマンドのフラグ値の束
type flagValues struct {
	patch       string
	workload    string
	rate        float64
	opsPerKey   int
	concurrency int
	nodes       int
	timeLimit   time.Duration
	unit        time.Duration
	settlePause time.Duration
	seed        int64
}

// applyFlagOverrides は明示されたフラグだけを設定に上書きする
// プリセットや設定ファイル由来の値はフラグ未指定なら残る
func applyFlagOverrides(flags *pflag.FlagSet, opts *run.Options, v flagValues) {
	if flags.Changed("patch") {
		opts.Patch = v.patch
	}
	if flags.Changed("workload") {
		opts.Workload = v.workload
	}
	if flags.Changed("rate") {
		opts.Rate = v.rate
	}
	if flags.Changed("ops-per-key") {
		opts.OpsPerKey = v.opsPerKey
	}
	if flags.Changed("concurrency") {
		opts.Concurrency = v.concurrency
	}
	if flags.Changed("nodes") {
		opts.Nodes = v.nodes
	}
	if flags.Changed("time-limit") {
		opts.TimeLimit = v.timeLimit
	}
	if flags.Changed("unit") {
		opts.Unit = v.unit
	}
	if flags.Changed("settle-pause") {
		opts.SettlePause = v.settlePause
	}
	if flags.Changed("seed") {
		opts.Seed = v.seed
	}
}

func newWorkloadsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "workloads",
		Short: "利用可能なワークロードを表示",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range workload.DefaultRegistry().Names() {
				fmt.Println(name)
			}
		},
	}
}

func newPatchesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patches",
		Short: "利用可能なパッチを表示",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range db.PatchNames() {
				build, err := db.ResolvePatch(name)
				if err != nil {
					return err
				}
				fmt.Printf("%-10s %s\n", name, build.ID)
			}
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "APIサーバーモードで起動",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return api.NewServer(addr).Start(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "サーバーアドレス (例: :8080)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "バージョンを表示",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gauntlet version %s\n", version)
		},
	}
}
