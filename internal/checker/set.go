package checker

import (
	"sort"

	"github.com/google/go-cmp/cmp"

	"gauntlet/internal/history"
)

// SetChecker は add-only 集合のヒストリを検査する
// 確認済み（ok）の要素は最終読み取りに全て現れ、一度も
// 追加を試みていない要素は現れてはならない
type SetChecker struct {
	key string
}

// NewSetChecker は指定キーの集合チェッカを作成する
func NewSetChecker(key string) *SetChecker {
	return &SetChecker{key: key}
}

// Name はチェッカ名を返す
func (c *SetChecker) Name() string {
	return "set"
}

// Check は確認済み・試行済み・最終読み取りの3集合を突き合わせる
func (c *SetChecker) Check(ops []history.Op) Result {
	client := history.ClientOps(ops)

	acked := make(map[int]bool)
	attempted := make(map[int]bool)
	var final []int
	haveFinal := false

	for _, p := range history.MatchPairs(client) {
		if p.Invoke.Key != c.key {
			continue
		}
		switch p.Invoke.F {
		case "add":
			elem, ok := p.Invoke.Value.(int)
			if !ok {
				continue
			}
			attempted[elem] = true
			if p.Completion.Type == history.OK {
				acked[elem] = true
			}
		case "read-set":
			if p.Completion.Type != history.OK {
				continue
			}
			if elems, ok := p.Completion.Value.([]int); ok {
				final = elems
				haveFinal = true
			}
		}
	}
	for _, inv := range history.Incomplete(client) {
		if inv.Key != c.key || inv.F != "add" {
			continue
		}
		if elem, ok := inv.Value.(int); ok {
			attempted[elem] = true
		}
	}

	if !haveFinal {
		return Result{
			Name:    c.Name(),
			Valid:   false,
			Details: map[string]any{"error": "no final read observed"},
		}
	}

	inFinal := make(map[int]bool, len(final))
	for _, e := range final {
		inFinal[e] = true
	}

	var lost, unexpected, recovered []int
	for e := range acked {
		if !inFinal[e] {
			lost = append(lost, e)
		}
	}
	for _, e := range final {
		if !attempted[e] {
			unexpected = append(unexpected, e)
		} else if !acked[e] {
			recovered = append(recovered, e)
		}
	}
	sort.Ints(lost)
	sort.Ints(unexpected)
	sort.Ints(recovered)

	details := map[string]any{
		"acked-count":     len(acked),
		"attempted-count": len(attempted),
		"final-count":     len(final),
		"recovered-count": len(recovered),
	}
	if len(lost) > 0 {
		details["lost"] = lost
		details["diff"] = cmp.Diff(sortedKeys(acked), intersect(final, acked))
	}
	if len(unexpected) > 0 {
		details["unexpected"] = unexpected
	}

	return Result{
		Name:    c.Name(),
		Valid:   len(lost) == 0 && len(unexpected) == 0,
		Details: details,
	}
}

func sortedKeys(s map[int]bool) []int {
	out := make([]int, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	sort.Ints(out)
	return out
}

// intersect は elems のうち s に含まれるものをソートして返す
func intersect(elems []int, s map[int]bool) []int {
	var out []int
	for _, e := range elems {
		if s[e] {
			out = append(out, e)
		}
	}
	sort.Ints(out)
	return out
}
