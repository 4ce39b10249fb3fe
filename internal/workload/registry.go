package workload

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"gauntlet/internal/checker"
	"gauntlet/internal/cluster"
	"gauntlet/internal/gen"
)

// ErrUnknownWorkload は未登録のワークロード名を表す
var ErrUnknownWorkload = errors.New("unknown workload")

// SetKey は set ワークロードが使う単一の集合キー
const SetKey = "s0"

// Options はワークロード構築時に渡される設定
// OpsPerKey の解釈はワークロード側に委ねられる
type Options struct {
	Cluster     *cluster.Cluster
	Rate        float64
	OpsPerKey   int
	Concurrency int
	TimeLimit   time.Duration
	Seed        int64
}

// keySpace は期待操作数とキーあたり操作数からキー数を見積もる
func (o Options) keySpace() int {
	if o.OpsPerKey < 1 {
		return 1
	}
	expected := o.Rate * float64(o.Concurrency) * o.TimeLimit.Seconds()
	keys := int(expected) / o.OpsPerKey
	if keys < 1 {
		keys = 1
	}
	return keys
}

// Factory はオプションからワークロードを組み立てる
type Factory func(opts Options) (*Workload, error)

// Registry はワークロード名とファクトリの対応表
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry は空のレジストリを作成する
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register はファクトリを登録する。同名の再登録はエラー
func (r *Registry) Register(name string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("workload %q already registered", name)
	}
	r.factories[name] = f
	return nil
}

// Names は登録済みワークロード名をソートして返す
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve は名前からワークロードを組み立てる
// 未登録の名前には登録済み一覧を含むエラーを返す
func (r *Registry) Resolve(name string, opts Options) (*Workload, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.Wrapf(ErrUnknownWorkload,
			"%q (known: %s)", name, strings.Join(r.Names(), ", "))
	}
	return f(opts)
}

// DefaultRegistry は組み込みワークロードを登録したレジストリを返す
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register("reg", NewRegister)
	_ = r.Register("set", NewSet)
	return r
}

// NewRegister はキーごとの線形化可能レジスタを検査する
// ワークロードを作成する
func NewRegister(opts Options) (*Workload, error) {
	if opts.Cluster == nil {
		return nil, errors.New("register workload requires a cluster")
	}
	keys := opts.keySpace()
	return &Workload{
		Name:      "reg",
		Generator: gen.NewRegisterMix(keys, opts.Seed),
		Final:     gen.NewFinalReads(keys),
		NewClient: NewSimFactory(opts.Cluster),
		Checkers:  []checker.Checker{checker.NewRegisterChecker()},
	}, nil
}

// NewSet は add-only 集合の要素保存を検査するワークロードを
// 作成する
func NewSet(opts Options) (*Workload, error) {
	if opts.Cluster == nil {
		return nil, errors.New("set workload requires a cluster")
	}
	return &Workload{
		Name:      "set",
		Generator: gen.NewSetAdds(SetKey),
		Final:     gen.NewFinalSetRead(SetKey),
		NewClient: NewSimFactory(opts.Cluster),
		Checkers:  []checker.Checker{checker.NewSetChecker(SetKey)},
	}, nil
}
