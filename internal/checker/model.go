package checker

import (
	"sort"
	"time"

	"gauntlet/internal/history"
)

// Model は逐次仕様を表す
// Step は state に input/output を適用できるかどうかと、
// 適用後の状態を返す
type Model struct {
	Init  func() any
	Step  func(state any, input, output history.Op) (bool, any)
	Equal func(a, b any) bool
}

// Operation は invoke と完了を対にした検査単位
// Maybe は適用されたかどうか不明な操作（info 完了または
// 完了レコードなし）を表し、線形化時に落としてもよい
type Operation struct {
	Input  history.Op
	Output history.Op
	Call   time.Time
	Return time.Time
	Maybe  bool
}

// PartitionByKey はクライアント操作をキーごとの Operation 列に
// 組み立てる。fail 完了は適用されていないので除外し、結果不明の
// 読み取りは状態を制約しないのでこれも除外する
func PartitionByKey(ops []history.Op) map[string][]Operation {
	client := history.ClientOps(ops)
	byKey := make(map[string][]Operation)

	add := func(key string, o Operation) {
		byKey[key] = append(byKey[key], o)
	}

	for _, p := range history.MatchPairs(client) {
		switch p.Completion.Type {
		case history.OK:
			add(p.Invoke.Key, Operation{
				Input:  p.Invoke,
				Output: p.Completion,
				Call:   p.Invoke.Time,
				Return: p.Completion.Time,
			})
		case history.Info:
			if p.Invoke.F == "read" || p.Invoke.F == "read-set" {
				continue
			}
			add(p.Invoke.Key, Operation{
				Input: p.Invoke,
				Call:  p.Invoke.Time,
				Maybe: true,
			})
		}
	}

	for _, inv := range history.Incomplete(client) {
		if inv.F == "read" || inv.F == "read-set" {
			continue
		}
		add(inv.Key, Operation{Input: inv, Call: inv.Time, Maybe: true})
	}

	for key := range byKey {
		sort.Slice(byKey[key], func(i, j int) bool {
			return byKey[key][i].Call.Before(byKey[key][j].Call)
		})
	}
	return byKey
}
