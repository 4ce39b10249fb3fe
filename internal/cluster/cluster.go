// Package cluster provides the simulated multi-node storage cluster.
package cluster

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"gauntlet/internal/logger"
	"gauntlet/internal/node"
)

// Config はクラスタの設定
type Config struct {
	ReplicationInterval time.Duration // レプリケーション間隔
	MaxSkew             time.Duration // クロックスクランブルの最大オフセット
	UnionSets           bool          // 集合値を和集合でマージする
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		ReplicationInterval: 50 * time.Millisecond,
		MaxSkew:             2 * time.Second,
		UnionSets:           false,
	}
}

// Cluster は複数のノードとノード間到達性を管理する
type Cluster struct {
	config Config

	mu          sync.RWMutex
	nodes       map[string]*node.Node
	order       []string
	blocked     map[string]map[string]bool
	partitioned bool

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New は新しいクラスタを作成する
func New(config Config) *Cluster {
	return &Cluster{
		config:  config,
		nodes:   make(map[string]*node.Node),
		blocked: make(map[string]map[string]bool),
	}
}

// AddNode はクラスタにノードを追加する
func (c *Cluster) AddNode(n *node.Node) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.nodes[n.ID()]; exists {
		return errors.Errorf("node %s already exists in cluster", n.ID())
	}

	c.nodes[n.ID()] = n
	c.order = append(c.order, n.ID())
	return nil
}

// CreateNodes は指定された数のノードを作成してクラスタに追加する
func (c *Cluster) CreateNodes(count int, prefix string) error {
	for i := 0; i < count; i++ {
		n := node.New(fmt.Sprintf("%s-%d", prefix, i+1))
		if err := c.AddNode(n); err != nil {
			return err
		}
	}
	logger.Info("", "created %d nodes with prefix %q", count, prefix)
	return nil
}

// GetNode はノードIDでノードを取得する
func (c *Cluster) GetNode(id string) (*node.Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n, exists := c.nodes[id]
	return n, exists
}

// Nodes は追加順に全ノードを返す
func (c *Cluster) Nodes() []*node.Node {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*node.Node, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.nodes[id])
	}
	return out
}

// NodeIDs は追加順に全ノードIDを返す
func (c *Cluster) NodeIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Size はクラスタ内のノード数を返す
func (c *Cluster) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nodes)
}

// RunningCount は実行中のノード数を返す
func (c *Cluster) RunningCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := 0
	for _, n := range c.nodes {
		if n.Status() == node.StatusRunning {
			count++
		}
	}
	return count
}

// StartAll は全ノードとレプリケーションループを起動する
func (c *Cluster) StartAll(ctx context.Context) error {
	if c.running.Swap(true) {
		return errors.New("cluster is already running")
	}

	for _, n := range c.Nodes() {
		if err := n.Start(); err != nil {
			c.running.Store(false)
			return errors.Wrapf(err, "failed to start node %s", n.ID())
		}
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.replicationLoop(ctx)

	logger.Info("", "cluster started (nodes: %d)", c.Size())
	return nil
}

// StopAll は全ノードとレプリケーションループを停止する
func (c *Cluster) StopAll() error {
	if !c.running.Swap(false) {
		return nil
	}

	c.cancel()
	c.wg.Wait()

	for _, n := range c.Nodes() {
		if n.Status() == node.StatusRunning {
			_ = n.Stop()
		}
	}

	logger.Info("", "cluster stopped")
	return nil
}

// replicationLoop は到達可能なノード間でエントリを伝播し続ける
func (c *Cluster) replicationLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.ReplicationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.replicate()
		}
	}
}

// replicate は1ラウンドぶんのレプリケーションを実行する
func (c *Cluster) replicate() {
	nodes := c.Nodes()
	for _, src := range nodes {
		if src.Status() != node.StatusRunning {
			continue
		}
		entries := src.Entries()
		for _, dst := range nodes {
			if src == dst || !c.Reachable(src.ID(), dst.ID()) {
				continue
			}
			for key, e := range entries {
				dst.MergeEntry(key, e, c.config.UnionSets)
			}
		}
	}
}

// Reachable は2ノード間の到達性を返す
func (c *Cluster) Reachable(a, b string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.blocked[a][b]
}

// Partition はクラスタを過半数側と少数側に分断する
// 既に分断中の場合はそのまま
func (c *Cluster) Partition() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.order) < 2 {
		return errors.New("cluster is too small to partition")
	}
	if c.partitioned {
		return nil
	}

	minority := c.order[:len(c.order)/2]
	isMinority := make(map[string]bool, len(minority))
	for _, id := range minority {
		isMinority[id] = true
	}

	for _, a := range c.order {
		for _, b := range c.order {
			if isMinority[a] != isMinority[b] {
				c.block(a, b)
			}
		}
	}
	c.partitioned = true

	logger.Warn("nemesis", "partitioned cluster: %v | %v", minority, c.order[len(c.order)/2:])
	return nil
}

// Heal は全ての分断を解消する
func (c *Cluster) Heal() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.blocked = make(map[string]map[string]bool)
	c.partitioned = false

	logger.Info("nemesis", "healed cluster partitions")
	return nil
}

// Partitioned は分断中かどうかを返す
func (c *Cluster) Partitioned() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.partitioned
}

// block は一方向の到達性を遮断する
// 呼び出し側でロックを保持していること
func (c *Cluster) block(a, b string) {
	if c.blocked[a] == nil {
		c.blocked[a] = make(map[string]bool)
	}
	c.blocked[a][b] = true
}

// ScrambleClocks は全ノードのクロックオフセットをランダムに変更する
// オフセットは ±MaxSkew の範囲
func (c *Cluster) ScrambleClocks() error {
	maxSkew := c.config.MaxSkew
	if maxSkew <= 0 {
		return errors.New("cluster has no configured clock skew")
	}

	for _, n := range c.Nodes() {
		offset := time.Duration(rand.Int63n(int64(2*maxSkew))) - maxSkew
		n.SetClockOffset(offset)
		logger.Warn("nemesis", "scrambled clock on %s: offset %v", n.ID(), offset)
	}
	return nil
}
