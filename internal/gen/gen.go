package gen

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"golang.org/x/time/rate"

	"gauntlet/internal/history"
)

// Generator は操作の遅延シーケンスを表す
// Next は次の invoke レコードを返し、シーケンスが尽きたか
// コンテキストがキャンセルされたら ok=false を返す
// 複数ワーカーからの並行呼び出しに対して安全であること
type Generator interface {
	Next(ctx context.Context) (history.Op, bool)
}

// ProcessGenerator はワーカー（プロセス）ごとに操作を払い出す
type ProcessGenerator interface {
	NextFor(ctx context.Context, process int) (history.Op, bool)
}

// Staggered はプロセスごとの最小発行間隔を強制するラッパー
// 同一プロセスの連続する操作は最低 1/hz 秒の間隔を空ける
// （発行間隔の下限であって、完了間隔やグローバルな上限ではない）
type Staggered struct {
	inner Generator
	limit rate.Limit

	mu       sync.Mutex
	limiters map[int]*rate.Limiter
}

// NewStaggered は新しいStaggeredを作成する
func NewStaggered(inner Generator, hz float64) *Staggered {
	return &Staggered{
		inner:    inner,
		limit:    rate.Limit(hz),
		limiters: make(map[int]*rate.Limiter),
	}
}

// limiter はプロセス専用のレートリミッタを返す
func (s *Staggered) limiter(process int) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	lim, ok := s.limiters[process]
	if !ok {
		lim = rate.NewLimiter(s.limit, 1)
		s.limiters[process] = lim
	}
	return lim
}

// NextFor は発行間隔を守ったうえで次の操作を返す
func (s *Staggered) NextFor(ctx context.Context, process int) (history.Op, bool) {
	if err := s.limiter(process).Wait(ctx); err != nil {
		return history.Op{}, false
	}

	op, ok := s.inner.Next(ctx)
	if !ok {
		return history.Op{}, false
	}
	op.Process = process
	return op, true
}

// RegisterMix はレジスタ操作（read/write/cas）の無限シーケンス
type RegisterMix struct {
	mu   sync.Mutex
	rng  *rand.Rand
	keys int
}

// NewRegisterMix は新しいRegisterMixを作成する
// キー空間のサイズは keys で、操作は一様ランダムに選ばれる
func NewRegisterMix(keys int, seed int64) *RegisterMix {
	if keys < 1 {
		keys = 1
	}
	return &RegisterMix{
		rng:  rand.New(rand.NewSource(seed)),
		keys: keys,
	}
}

// Next は次のレジスタ操作を返す
func (g *RegisterMix) Next(ctx context.Context) (history.Op, bool) {
	select {
	case <-ctx.Done():
		return history.Op{}, false
	default:
	}

	g.mu.Lock()
	key := fmt.Sprintf("r%d", g.rng.Intn(g.keys))
	kind := g.rng.Intn(3)
	v1 := g.rng.Intn(5)
	v2 := g.rng.Intn(5)
	g.mu.Unlock()

	switch kind {
	case 0:
		return history.Invocation(0, "read", key, nil), true
	case 1:
		return history.Invocation(0, "write", key, v1), true
	default:
		return history.Invocation(0, "cas", key, []int{v1, v2}), true
	}
}

// SetAdds は一意な要素を追加し続ける無限シーケンス
type SetAdds struct {
	mu   sync.Mutex
	key  string
	next int
}

// NewSetAdds は新しいSetAddsを作成する
func NewSetAdds(key string) *SetAdds {
	return &SetAdds{key: key}
}

// Next は次のadd操作を返す。要素は単調増加で重複しない
func (g *SetAdds) Next(ctx context.Context) (history.Op, bool) {
	select {
	case <-ctx.Done():
		return history.Op{}, false
	default:
	}

	g.mu.Lock()
	elem := g.next
	g.next++
	g.mu.Unlock()

	return history.Invocation(0, "add", g.key, elem), true
}

// FinalReads は各キーを1回ずつ読む有限シーケンス
// 最終フェーズの検証読み取りに使う
type FinalReads struct {
	mu   sync.Mutex
	f    string
	keys []string
	pos  int
}

// NewFinalReads はレジスタキー用のFinalReadsを作成する
func NewFinalReads(keys int) *FinalReads {
	ks := make([]string, 0, keys)
	for i := 0; i < keys; i++ {
		ks = append(ks, fmt.Sprintf("r%d", i))
	}
	return &FinalReads{f: "read", keys: ks}
}

// NewFinalSetRead は集合キーを1回読むFinalReadsを作成する
func NewFinalSetRead(key string) *FinalReads {
	return &FinalReads{f: "read-set", keys: []string{key}}
}

// Next は次の読み取り操作を返し、全キーを読み終えたら尽きる
func (g *FinalReads) Next(ctx context.Context) (history.Op, bool) {
	select {
	case <-ctx.Done():
		return history.Op{}, false
	default:
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pos >= len(g.keys) {
		return history.Op{}, false
	}
	key := g.keys[g.pos]
	g.pos++
	return history.Invocation(0, g.f, key, nil), true
}
