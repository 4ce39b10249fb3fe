package checker

import (
	"testing"
	"time"

	"gauntlet/internal/history"
)

// record はテスト用ヒストリを組み立てるヘルパー
type record struct {
	process int
	typ     history.OpType
	f       string
	key     string
	value   any
}

func buildHistory(recs []record) []history.Op {
	base := time.Now()
	ops := make([]history.Op, 0, len(recs))
	for i, r := range recs {
		ops = append(ops, history.Op{
			Index:   i,
			Process: r.process,
			Type:    r.typ,
			F:       r.f,
			Key:     r.key,
			Value:   r.value,
			Time:    base.Add(time.Duration(i) * time.Millisecond),
		})
	}
	return ops
}

func TestRegisterCheckerValidHistory(t *testing.T) {
	ops := buildHistory([]record{
		{0, history.Invoke, "write", "r0", 1},
		{0, history.OK, "write", "r0", 1},
		{1, history.Invoke, "read", "r0", nil},
		{1, history.OK, "read", "r0", 1},
	})

	res := NewRegisterChecker().Check(ops)
	if !res.Valid {
		t.Errorf("expected valid result, got %+v", res)
	}
	if res.Details["keys-checked"] != 1 {
		t.Errorf("expected 1 key checked, got %v", res.Details["keys-checked"])
	}
}

func TestRegisterCheckerDetectsViolation(t *testing.T) {
	ops := buildHistory([]record{
		{0, history.Invoke, "write", "r0", 1},
		{0, history.OK, "write", "r0", 1},
		{0, history.Invoke, "write", "r0", 2},
		{0, history.OK, "write", "r0", 2},
		{1, history.Invoke, "read", "r0", nil},
		{1, history.OK, "read", "r0", 1},
	})

	res := NewRegisterChecker().Check(ops)
	if res.Valid {
		t.Error("stale read should make the result invalid")
	}
	violations, ok := res.Details["violations"].([]string)
	if !ok || len(violations) != 1 || violations[0] != "r0" {
		t.Errorf("expected violation on r0, got %v", res.Details["violations"])
	}
}

func TestRegisterCheckerKeysAreIndependent(t *testing.T) {
	// r0 は違反、r1 は正常。違反は r0 だけに報告される
	ops := buildHistory([]record{
		{0, history.Invoke, "write", "r0", 1},
		{0, history.OK, "write", "r0", 1},
		{0, history.Invoke, "write", "r0", 2},
		{0, history.OK, "write", "r0", 2},
		{1, history.Invoke, "read", "r0", nil},
		{1, history.OK, "read", "r0", 1},
		{2, history.Invoke, "write", "r1", 7},
		{2, history.OK, "write", "r1", 7},
		{3, history.Invoke, "read", "r1", nil},
		{3, history.OK, "read", "r1", 7},
	})

	res := NewRegisterChecker().Check(ops)
	if res.Valid {
		t.Error("expected invalid result")
	}
	violations, _ := res.Details["violations"].([]string)
	if len(violations) != 1 || violations[0] != "r0" {
		t.Errorf("expected only r0 to be flagged, got %v", violations)
	}
}

func TestRegisterCheckerIgnoresFailedOps(t *testing.T) {
	// fail の cas は適用されていないので状態に影響しない
	ops := buildHistory([]record{
		{0, history.Invoke, "write", "r0", 1},
		{0, history.OK, "write", "r0", 1},
		{1, history.Invoke, "cas", "r0", []int{9, 3}},
		{1, history.Fail, "cas", "r0", []int{9, 3}},
		{0, history.Invoke, "read", "r0", nil},
		{0, history.OK, "read", "r0", 1},
	})

	res := NewRegisterChecker().Check(ops)
	if !res.Valid {
		t.Errorf("failed cas should not affect the state: %+v", res)
	}
}

func TestSetCheckerValid(t *testing.T) {
	ops := buildHistory([]record{
		{0, history.Invoke, "add", "s", 0},
		{0, history.OK, "add", "s", 0},
		{1, history.Invoke, "add", "s", 1},
		{1, history.Info, "add", "s", 1},
		{0, history.Invoke, "read-set", "s", nil},
		{0, history.OK, "read-set", "s", []int{0, 1}},
	})

	res := NewSetChecker("s").Check(ops)
	if !res.Valid {
		t.Errorf("expected valid result, got %+v", res)
	}
	if res.Details["recovered-count"] != 1 {
		t.Errorf("info add present in final read should count as recovered, got %v",
			res.Details["recovered-count"])
	}
}

func TestSetCheckerDetectsLostElement(t *testing.T) {
	ops := buildHistory([]record{
		{0, history.Invoke, "add", "s", 0},
		{0, history.OK, "add", "s", 0},
		{1, history.Invoke, "add", "s", 1},
		{1, history.OK, "add", "s", 1},
		{0, history.Invoke, "read-set", "s", nil},
		{0, history.OK, "read-set", "s", []int{0}},
	})

	res := NewSetChecker("s").Check(ops)
	if res.Valid {
		t.Error("acked element missing from final read should be invalid")
	}
	lost, _ := res.Details["lost"].([]int)
	if len(lost) != 1 || lost[0] != 1 {
		t.Errorf("expected element 1 lost, got %v", lost)
	}
}

func TestSetCheckerDetectsUnexpectedElement(t *testing.T) {
	ops := buildHistory([]record{
		{0, history.Invoke, "add", "s", 0},
		{0, history.OK, "add", "s", 0},
		{0, history.Invoke, "read-set", "s", nil},
		{0, history.OK, "read-set", "s", []int{0, 99}},
	})

	res := NewSetChecker("s").Check(ops)
	if res.Valid {
		t.Error("element never attempted should be invalid")
	}
	unexpected, _ := res.Details["unexpected"].([]int)
	if len(unexpected) != 1 || unexpected[0] != 99 {
		t.Errorf("expected element 99 unexpected, got %v", unexpected)
	}
}

func TestSetCheckerRequiresFinalRead(t *testing.T) {
	ops := buildHistory([]record{
		{0, history.Invoke, "add", "s", 0},
		{0, history.OK, "add", "s", 0},
	})

	res := NewSetChecker("s").Check(ops)
	if res.Valid {
		t.Error("missing final read should be invalid")
	}
}

func TestPerfCheckerCompleteHistory(t *testing.T) {
	ops := buildHistory([]record{
		{0, history.Invoke, "write", "r0", 1},
		{0, history.OK, "write", "r0", 1},
		{1, history.Invoke, "read", "r0", nil},
		{1, history.Fail, "read", "r0", nil},
	})

	res := NewPerfChecker().Check(ops)
	if !res.Valid {
		t.Errorf("complete history should be valid, got %+v", res)
	}
	if res.Details["ok-count"] != 1 || res.Details["fail-count"] != 1 {
		t.Errorf("unexpected counts: %+v", res.Details)
	}
}

func TestPerfCheckerIncompleteHistoryIsInvalid(t *testing.T) {
	ops := buildHistory([]record{
		{0, history.Invoke, "write", "r0", 1},
	})

	res := NewPerfChecker().Check(ops)
	if res.Valid {
		t.Error("invoke without completion should make perf invalid")
	}
	if res.Details["incomplete-count"] != 1 {
		t.Errorf("expected 1 incomplete op, got %v", res.Details["incomplete-count"])
	}
}

type panicChecker struct{}

func (panicChecker) Name() string              { return "panics" }
func (panicChecker) Check([]history.Op) Result { panic("boom") }

func TestAggregateAllValid(t *testing.T) {
	ops := buildHistory([]record{
		{0, history.Invoke, "write", "r0", 1},
		{0, history.OK, "write", "r0", 1},
	})

	verdict, err := Aggregate(ops, NewPerfChecker(), NewRegisterChecker())
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !verdict.Valid {
		t.Errorf("expected valid verdict, got %+v", verdict)
	}
	if len(verdict.Results) != 2 {
		t.Errorf("expected 2 results, got %d", len(verdict.Results))
	}
}

func TestAggregatePanicIsIsolated(t *testing.T) {
	ops := buildHistory([]record{
		{0, history.Invoke, "write", "r0", 1},
		{0, history.OK, "write", "r0", 1},
	})

	verdict, err := Aggregate(ops, panicChecker{}, NewRegisterChecker())
	if err == nil {
		t.Error("expected panic to surface as error")
	}
	if verdict.Valid {
		t.Error("panicking checker should make the verdict invalid")
	}
	if len(verdict.Results) != 2 {
		t.Fatalf("both results must be present, got %d", len(verdict.Results))
	}
	reg := verdict.Result("linearizable-register")
	if reg == nil || !reg.Valid {
		t.Errorf("register checker should still run: %+v", reg)
	}
}
