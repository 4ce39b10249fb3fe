package phase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"gauntlet/internal/events"
	"gauntlet/internal/gen"
	"gauntlet/internal/history"
	"gauntlet/internal/logger"
	"gauntlet/internal/metrics"
	"gauntlet/internal/nemesis"
	"gauntlet/internal/workload"
)

// フェーズ名
const (
	PhaseMain   = "main"
	PhaseHeal   = "heal"
	PhaseSettle = "settle"
	PhaseFinal  = "final"
)

// DefaultSettlePause はセトルフェーズの標準待機時間
const DefaultSettlePause = 10 * time.Second

// Config はコンポーザの設定
type Config struct {
	Workload *workload.Workload
	Nemesis  *nemesis.Nemesis
	Schedule *nemesis.Schedule
	History  *history.History
	Metrics  *metrics.Metrics
	Bus      *events.Bus
	RunID    string

	// Nodes はクライアントをラウンドロビンで接続する先
	Nodes []string

	Concurrency int
	Rate        float64
	TimeLimit   time.Duration
	SettlePause time.Duration
}

// Composer は main → heal → settle → final の4フェーズを
// 順に実行する
type Composer struct {
	cfg     Config
	clients []workload.Client
}

// NewComposer は新しいコンポーザを作成する
func NewComposer(cfg Config) (*Composer, error) {
	if cfg.Workload == nil {
		return nil, fmt.Errorf("composer requires a workload")
	}
	if cfg.History == nil {
		return nil, fmt.Errorf("composer requires a history")
	}
	if cfg.Concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be at least 1, got %d", cfg.Concurrency)
	}
	if len(cfg.Nodes) == 0 {
		return nil, fmt.Errorf("composer requires target nodes")
	}
	if cfg.SettlePause <= 0 {
		cfg.SettlePause = DefaultSettlePause
	}
	return &Composer{cfg: cfg}, nil
}

// Run は全フェーズを順に実行する
// ヒールとセトルはメインフェーズの打ち切りに関係なく必ず走る
func (c *Composer) Run(ctx context.Context) error {
	if err := c.openClients(ctx); err != nil {
		return err
	}
	defer c.closeClients()

	if err := c.runMain(ctx); err != nil {
		return err
	}
	c.runHeal(ctx)
	if err := c.runSettle(ctx); err != nil {
		return err
	}
	return c.runFinal(ctx)
}

func (c *Composer) openClients(ctx context.Context) error {
	c.clients = make([]workload.Client, c.cfg.Concurrency)
	for i := range c.clients {
		cl, err := c.cfg.Workload.NewClient(i)
		if err != nil {
			c.closeClients()
			return fmt.Errorf("create client %d: %w", i, err)
		}
		c.clients[i] = cl
		node := c.cfg.Nodes[i%len(c.cfg.Nodes)]
		if err := cl.Open(ctx, node); err != nil {
			c.closeClients()
			return fmt.Errorf("open client %d against %s: %w", i, node, err)
		}
	}
	return nil
}

func (c *Composer) closeClients() {
	for i, cl := range c.clients {
		if cl == nil {
			continue
		}
		if err := cl.Close(); err != nil {
			logger.Warn("phase", "failed to close client %d: %v", i, err)
		}
		c.clients[i] = nil
	}
}

func (c *Composer) announce(phase string) {
	logger.Info("phase", "phase started: %s", phase)
	if c.cfg.Bus != nil {
		c.cfg.Bus.Publish(events.NewPhaseStartedEvent(c.cfg.RunID, phase))
	}
}

// runMain はクライアント負荷とフォールトスケジュールを
// 並行に走らせる。打ち切りは時間制限のみで、スケジュールの
// 進行状況には依存しない。時間制限が0以下なら何も発行せず
// 即座に終わる
func (c *Composer) runMain(ctx context.Context) error {
	c.announce(PhaseMain)

	issueCtx, cancel := context.WithTimeout(ctx, c.cfg.TimeLimit)
	defer cancel()

	staggered := gen.NewStaggered(c.cfg.Workload.Generator, c.cfg.Rate)

	g, gctx := errgroup.WithContext(ctx)
	if c.cfg.Nemesis != nil && c.cfg.Schedule != nil {
		g.Go(func() error {
			c.cfg.Schedule.Run(issueCtx, c.cfg.Nemesis)
			return nil
		})
	}
	for i := range c.clients {
		process := i
		g.Go(func() error {
			// 発行は issueCtx で打ち切り、実行中の操作は
			// 親コンテキストのまま完了まで走らせる
			c.workerLoop(gctx, issueCtx, process, staggered)
			return nil
		})
	}
	return g.Wait()
}

// runHeal は分断を無条件に1回解消する
// 失敗はアノマリとして記録済みなので判定には影響させない
func (c *Composer) runHeal(ctx context.Context) {
	c.announce(PhaseHeal)
	if c.cfg.Nemesis == nil {
		return
	}
	if err := c.cfg.Nemesis.Heal(ctx); err != nil {
		logger.Warn("phase", "heal did not converge: %v", err)
	}
}

// runSettle はレプリケーションの追いつきを待つ
func (c *Composer) runSettle(ctx context.Context) error {
	c.announce(PhaseSettle)

	timer := time.NewTimer(c.cfg.SettlePause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// runFinal は検証読み取りをフォールトなしで流す
// ジェネレータは有限で、尽きたら終わる
func (c *Composer) runFinal(ctx context.Context) error {
	c.announce(PhaseFinal)

	staggered := gen.NewStaggered(c.cfg.Workload.Final, c.cfg.Rate)

	g, gctx := errgroup.WithContext(ctx)
	for i := range c.clients {
		process := i
		g.Go(func() error {
			c.workerLoop(gctx, ctx, process, staggered)
			return nil
		})
	}
	return g.Wait()
}

// workerLoop は1プロセスぶんの発行・実行・記録のループ
func (c *Composer) workerLoop(ctx, issueCtx context.Context, process int, g gen.ProcessGenerator) {
	cl := c.clients[process]
	for {
		op, ok := g.NextFor(issueCtx, process)
		if !ok {
			return
		}
		inv := c.cfg.History.Append(op)
		done := c.invoke(ctx, cl, inv)
		done = c.cfg.History.Append(done)
		c.recordOutcome(inv, done)
	}
}

// invoke はクライアント呼び出しをパニックから隔離する
// クライアントが落ちても invoke レコードは結果不明として
// 必ず閉じる
func (c *Composer) invoke(ctx context.Context, cl workload.Client, inv history.Op) (done history.Op) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("phase", "client panicked on process %d: %v", inv.Process, r)
			done = inv.Completion(history.Info, inv.Value, fmt.Errorf("client panicked: %v", r))
		}
	}()
	return cl.Invoke(ctx, inv)
}

func (c *Composer) recordOutcome(inv, done history.Op) {
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.RecordOp(string(done.Type), done.Time.Sub(inv.Time))
	}
	if c.cfg.Bus != nil {
		c.cfg.Bus.Publish(events.NewOpCompletedEvent(
			c.cfg.RunID, done.Process, done.F, string(done.Type)))
	}
}
