package checker

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Linearizable は操作列がモデルに対して線形化可能かどうかを
// Wing-Gong 探索で判定する。確定完了（ok）の操作は全て
// 線形化順に現れる必要があり、Maybe の操作は任意の位置に
// 置くことも完全に落とすこともできる
func Linearizable(m Model, ops []Operation) bool {
	if len(ops) == 0 {
		return true
	}
	s := &searcher{
		m:       m,
		ops:     ops,
		used:    make([]bool, len(ops)),
		visited: make(map[string]bool),
	}
	return s.search(m.Init())
}

type searcher struct {
	m       Model
	ops     []Operation
	used    []bool
	visited map[string]bool
}

// minReturn は未線形化の確定操作のうち最も早い完了時刻を返す
// 確定操作が残っていなければ ok=false
func (s *searcher) minReturn() (time.Time, bool) {
	var min time.Time
	found := false
	for i, op := range s.ops {
		if s.used[i] || op.Maybe {
			continue
		}
		if !found || op.Return.Before(min) {
			min = op.Return
			found = true
		}
	}
	return min, found
}

// stateKey は探索済み判定のための指紋
func (s *searcher) stateKey(state any) string {
	var b strings.Builder
	for i := range s.ops {
		if s.used[i] {
			b.WriteString(strconv.Itoa(i))
			b.WriteByte(',')
		}
	}
	b.WriteByte('|')
	fmt.Fprintf(&b, "%v", state)
	return b.String()
}

func (s *searcher) search(state any) bool {
	minRet, haveCertain := s.minReturn()
	if !haveCertain {
		// 残りは Maybe のみ。全て落とした解釈が成立する
		return true
	}

	key := s.stateKey(state)
	if s.visited[key] {
		return false
	}
	s.visited[key] = true

	for i, op := range s.ops {
		if s.used[i] || op.Call.After(minRet) {
			continue
		}

		if legal, next := s.m.Step(state, op.Input, op.Output); legal {
			s.used[i] = true
			if s.search(next) {
				return true
			}
			s.used[i] = false
		}

		if op.Maybe {
			// 適用されなかった解釈も試す
			s.used[i] = true
			if s.search(state) {
				return true
			}
			s.used[i] = false
		}
	}
	return false
}
