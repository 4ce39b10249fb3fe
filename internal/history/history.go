package history

import (
	"sync"
	"time"
)

// OpType は操作レコードの種別を表す
type OpType string

const (
	// Invoke は操作の発行を表す
	Invoke OpType = "invoke"
	// OK は操作の正常完了を表す
	OK OpType = "ok"
	// Fail は操作の確定失敗を表す（クラスタに適用されていない）
	Fail OpType = "fail"
	// Info は結果不明の完了またはネメシスイベントを表す
	Info OpType = "info"
)

// NemesisProcess はネメシスアクター専用のプロセスID
const NemesisProcess = -1

// Op はヒストリの1レコードを表す
// クライアント操作とネメシスイベントの両方に使われる
type Op struct {
	Index   int       `json:"index"`
	Process int       `json:"process"`
	Type    OpType    `json:"type"`
	F       string    `json:"f"`
	Key     string    `json:"key,omitempty"`
	Value   any       `json:"value,omitempty"`
	Err     string    `json:"error,omitempty"`
	Time    time.Time `json:"time"`
}

// Invocation はクライアント操作の invoke レコードを作成する
func Invocation(process int, f, key string, value any) Op {
	return Op{
		Process: process,
		Type:    Invoke,
		F:       f,
		Key:     key,
		Value:   value,
		Time:    time.Now(),
	}
}

// NemesisOp はネメシスイベントの info レコードを作成する
func NemesisOp(f string) Op {
	return Op{
		Process: NemesisProcess,
		Type:    Info,
		F:       f,
		Time:    time.Now(),
	}
}

// Completion は invoke に対応する完了レコードを作成する
func (op Op) Completion(t OpType, value any, err error) Op {
	done := op
	done.Type = t
	done.Value = value
	done.Time = time.Now()
	if err != nil {
		done.Err = err.Error()
	} else {
		done.Err = ""
	}
	return done
}

// IsNemesis はネメシスイベントかどうかを返す
func (op Op) IsNemesis() bool {
	return op.Process == NemesisProcess
}

// History は完了済み操作の追記専用レコード
// 全ワーカーとネメシスからの並行追記に対して安全
type History struct {
	mu  sync.Mutex
	ops []Op
}

// New は新しいヒストリを作成する
func New() *History {
	return &History{
		ops: make([]Op, 0, 1024),
	}
}

// Append はレコードを追記し、インデックスを割り当てて返す
func (h *History) Append(op Op) Op {
	h.mu.Lock()
	defer h.mu.Unlock()

	op.Index = len(h.ops)
	if op.Time.IsZero() {
		op.Time = time.Now()
	}
	h.ops = append(h.ops, op)
	return op
}

// Ops は全レコードのコピーを返す
func (h *History) Ops() []Op {
	h.mu.Lock()
	defer h.mu.Unlock()

	ops := make([]Op, len(h.ops))
	copy(ops, h.ops)
	return ops
}

// Len はレコード数を返す
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.ops)
}

// Complete は全ての invoke に同一プロセスの完了レコードが
// あるかどうかを返す
func Complete(ops []Op) bool {
	return len(Incomplete(ops)) == 0
}

// Incomplete は完了レコードのない invoke を返す
func Incomplete(ops []Op) []Op {
	pending := make(map[int]Op)
	for _, op := range ops {
		if op.IsNemesis() {
			continue
		}
		switch op.Type {
		case Invoke:
			pending[op.Process] = op
		case OK, Fail, Info:
			delete(pending, op.Process)
		}
	}

	var incomplete []Op
	for _, op := range pending {
		incomplete = append(incomplete, op)
	}
	return incomplete
}

// Pairs は invoke と完了レコードの対を返す
// 完了のない invoke は含まれない
type Pair struct {
	Invoke     Op
	Completion Op
}

// MatchPairs は invoke / 完了の対応を組み立てる
func MatchPairs(ops []Op) []Pair {
	pending := make(map[int]Op)
	var pairs []Pair

	for _, op := range ops {
		if op.IsNemesis() {
			continue
		}
		switch op.Type {
		case Invoke:
			pending[op.Process] = op
		case OK, Fail, Info:
			if inv, ok := pending[op.Process]; ok {
				pairs = append(pairs, Pair{Invoke: inv, Completion: op})
				delete(pending, op.Process)
			}
		}
	}
	return pairs
}

// ClientOps はネメシスイベントを除いたレコードを返す
func ClientOps(ops []Op) []Op {
	var out []Op
	for _, op := range ops {
		if !op.IsNemesis() {
			out = append(out, op)
		}
	}
	return out
}

// NemesisOps はネメシスイベントのみを返す
func NemesisOps(ops []Op) []Op {
	var out []Op
	for _, op := range ops {
		if op.IsNemesis() {
			out = append(out, op)
		}
	}
	return out
}
