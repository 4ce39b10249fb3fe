package node

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"gauntlet/internal/logger"
)

// Status はノードの状態を表す
type Status int

const (
	StatusStopped Status = iota
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusRunning:
		return "running"
	default:
		return "unknown"
	}
}

// ErrNotRunning はノードが稼働していないときの操作エラー
var ErrNotRunning = errors.New("node is not running")

// Entry はタイムスタンプ付きの値
// Stamp はそのノードの（スキューされた）クロックで打刻される
type Entry struct {
	Value any
	Stamp int64
}

// Node はシミュレートされたストレージノードを表す
// 書き込みはローカルクロックで打刻され、レプリケーション時の
// 衝突解決に使われる
type Node struct {
	id string

	mu     sync.RWMutex
	status Status
	offset time.Duration
	store  map[string]Entry
}

// New は新しいノードを作成する
func New(id string) *Node {
	return &Node{
		id:     id,
		status: StatusStopped,
		store:  make(map[string]Entry),
	}
}

// ID はノードIDを返す
func (n *Node) ID() string {
	return n.id
}

// Start はノードを起動する
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.status == StatusRunning {
		return errors.Errorf("node %s is already running", n.id)
	}
	n.status = StatusRunning

	logger.Debug(n.id, "node started")
	return nil
}

// Stop はノードを停止する
func (n *Node) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.status == StatusStopped {
		return errors.Errorf("node %s is already stopped", n.id)
	}
	n.status = StatusStopped

	logger.Debug(n.id, "node stopped")
	return nil
}

// Status はノードの現在のステータスを返す
func (n *Node) Status() Status {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.status
}

// SetClockOffset はノードのクロックオフセットを設定する
func (n *Node) SetClockOffset(d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.offset = d
}

// ClockOffset は現在のクロックオフセットを返す
func (n *Node) ClockOffset() time.Duration {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.offset
}

// now はスキューされたローカルクロックを返す
// 呼び出し側でロックを保持していること
func (n *Node) now() int64 {
	return time.Now().Add(n.offset).UnixNano()
}

// Read はキーに対応する値を返す
func (n *Node) Read(key string) (any, bool, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.status != StatusRunning {
		return nil, false, errors.WithStack(ErrNotRunning)
	}

	e, ok := n.store[key]
	if !ok {
		return nil, false, nil
	}
	return e.Value, true, nil
}

// Write はキーに値を書き込む
// 打刻はローカルクロックで行われるため、クロックスキュー下では
// 古い書き込みが新しい書き込みに勝つことがある
func (n *Node) Write(key string, value any) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.status != StatusRunning {
		return errors.WithStack(ErrNotRunning)
	}

	n.store[key] = Entry{Value: value, Stamp: n.now()}
	return nil
}

// CAS はローカルの現在値が old のときのみ new を書き込む
// 交換が行われたかどうかを返す
func (n *Node) CAS(key string, old, new any) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.status != StatusRunning {
		return false, errors.WithStack(ErrNotRunning)
	}

	e, ok := n.store[key]
	if !ok || e.Value != old {
		return false, nil
	}
	n.store[key] = Entry{Value: new, Stamp: n.now()}
	return true, nil
}

// SetAdd はキーの集合に要素を追加する
// 集合はノードローカルに read-modify-write で更新される
func (n *Node) SetAdd(key string, elem int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.status != StatusRunning {
		return errors.WithStack(ErrNotRunning)
	}

	cur := n.store[key]
	set := copySet(cur.Value)
	set[elem] = struct{}{}
	n.store[key] = Entry{Value: set, Stamp: n.now()}
	return nil
}

// SetRead はキーの集合の要素を返す
func (n *Node) SetRead(key string) ([]int, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.status != StatusRunning {
		return nil, errors.WithStack(ErrNotRunning)
	}

	e, ok := n.store[key]
	if !ok {
		return nil, nil
	}
	return SetElements(e.Value), nil
}

// Entries はストアのコピーを返す（レプリケーション用）
func (n *Node) Entries() map[string]Entry {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make(map[string]Entry, len(n.store))
	for k, e := range n.store {
		out[k] = e
	}
	return out
}

// MergeEntry はレプリケーションで受け取ったエントリを取り込む
// unionSets が真のとき、両辺が集合なら和集合をとる。それ以外は
// タイムスタンプの大きい側が勝つ（last-write-wins）
func (n *Node) MergeEntry(key string, incoming Entry, unionSets bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.status != StatusRunning {
		return
	}

	cur, ok := n.store[key]
	if !ok {
		n.store[key] = incoming
		return
	}

	if unionSets {
		curSet, curIs := cur.Value.(map[int]struct{})
		inSet, inIs := incoming.Value.(map[int]struct{})
		if curIs && inIs {
			merged := make(map[int]struct{}, len(curSet)+len(inSet))
			for e := range curSet {
				merged[e] = struct{}{}
			}
			for e := range inSet {
				merged[e] = struct{}{}
			}
			stamp := cur.Stamp
			if incoming.Stamp > stamp {
				stamp = incoming.Stamp
			}
			n.store[key] = Entry{Value: merged, Stamp: stamp}
			return
		}
	}

	if incoming.Stamp > cur.Stamp {
		n.store[key] = incoming
	}
}

// Size はストア内のキー数を返す
func (n *Node) Size() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.store)
}

// copySet は集合値のコピーを返す
// 集合でない値や未設定は空集合として扱う
func copySet(v any) map[int]struct{} {
	out := make(map[int]struct{})
	if set, ok := v.(map[int]struct{}); ok {
		for e := range set {
			out[e] = struct{}{}
		}
	}
	return out
}

// SetElements は集合値をソート済みスライスに変換する
func SetElements(v any) []int {
	set, ok := v.(map[int]struct{})
	if !ok {
		return nil
	}
	out := make([]int, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sort.Ints(out)
	return out
}
