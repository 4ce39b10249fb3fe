package gen

import (
	"context"
	"testing"
	"time"

	"gauntlet/internal/history"
)

func TestStaggeredSpacing(t *testing.T) {
	// rate 20Hz → 最小間隔 50ms
	g := NewStaggered(NewRegisterMix(5, 1), 20)

	ctx := context.Background()
	var times []time.Time
	for i := 0; i < 4; i++ {
		_, ok := g.NextFor(ctx, 0)
		if !ok {
			t.Fatal("generator exhausted unexpectedly")
		}
		times = append(times, time.Now())
	}

	// 許容誤差を見込んで45ms以上の間隔を要求する
	for i := 1; i < len(times); i++ {
		gap := times[i].Sub(times[i-1])
		if gap < 45*time.Millisecond {
			t.Errorf("issuance gap %v below minimum spacing", gap)
		}
	}
}

func TestStaggeredIndependentProcesses(t *testing.T) {
	// 別プロセスの発行は互いの間隔に影響しない
	g := NewStaggered(NewRegisterMix(5, 1), 1)

	ctx := context.Background()
	start := time.Now()
	for p := 0; p < 5; p++ {
		if _, ok := g.NextFor(ctx, p); !ok {
			t.Fatal("generator exhausted unexpectedly")
		}
	}

	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("first ops across processes should not wait, took %v", elapsed)
	}
}

func TestStaggeredCancellation(t *testing.T) {
	g := NewStaggered(NewRegisterMix(5, 1), 0.5)

	ctx, cancel := context.WithCancel(context.Background())
	if _, ok := g.NextFor(ctx, 0); !ok {
		t.Fatal("first op should issue immediately")
	}

	cancel()
	if _, ok := g.NextFor(ctx, 0); ok {
		t.Error("expected exhaustion after context cancellation")
	}
}

func TestStaggeredAssignsProcess(t *testing.T) {
	g := NewStaggered(NewRegisterMix(5, 1), 100)

	op, ok := g.NextFor(context.Background(), 7)
	if !ok {
		t.Fatal("generator exhausted unexpectedly")
	}
	if op.Process != 7 {
		t.Errorf("expected process 7, got %d", op.Process)
	}
	if op.Type != history.Invoke {
		t.Errorf("expected invoke op, got %s", op.Type)
	}
}

func TestRegisterMixShape(t *testing.T) {
	g := NewRegisterMix(3, 42)

	fs := make(map[string]bool)
	for i := 0; i < 100; i++ {
		op, ok := g.Next(context.Background())
		if !ok {
			t.Fatal("register mix should be infinite")
		}
		fs[op.F] = true

		switch op.F {
		case "read":
			if op.Value != nil {
				t.Errorf("read should carry nil value, got %v", op.Value)
			}
		case "write":
			if _, isInt := op.Value.(int); !isInt {
				t.Errorf("write should carry int value, got %T", op.Value)
			}
		case "cas":
			pair, isPair := op.Value.([]int)
			if !isPair || len(pair) != 2 {
				t.Errorf("cas should carry [old new] pair, got %v", op.Value)
			}
		default:
			t.Errorf("unexpected op %q", op.F)
		}
	}

	for _, f := range []string{"read", "write", "cas"} {
		if !fs[f] {
			t.Errorf("expected %s ops in 100 samples", f)
		}
	}
}

func TestSetAddsUnique(t *testing.T) {
	g := NewSetAdds("s")

	seen := make(map[int]bool)
	for i := 0; i < 50; i++ {
		op, ok := g.Next(context.Background())
		if !ok {
			t.Fatal("set adds should be infinite")
		}
		elem := op.Value.(int)
		if seen[elem] {
			t.Fatalf("duplicate element %d", elem)
		}
		seen[elem] = true
	}
}

func TestFinalReadsFinite(t *testing.T) {
	g := NewFinalReads(3)

	count := 0
	for {
		op, ok := g.Next(context.Background())
		if !ok {
			break
		}
		if op.F != "read" {
			t.Errorf("expected read op, got %s", op.F)
		}
		count++
		if count > 10 {
			t.Fatal("final reads should be finite")
		}
	}

	if count != 3 {
		t.Errorf("expected 3 final reads, got %d", count)
	}
}

func TestFinalSetRead(t *testing.T) {
	g := NewFinalSetRead("s")

	op, ok := g.Next(context.Background())
	if !ok {
		t.Fatal("expected one read")
	}
	if op.F != "read-set" || op.Key != "s" {
		t.Errorf("unexpected op: %+v", op)
	}

	if _, ok := g.Next(context.Background()); ok {
		t.Error("expected exhaustion after single read")
	}
}

func TestGeneratorContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := NewRegisterMix(3, 1).Next(ctx); ok {
		t.Error("expected register mix to stop on cancelled context")
	}
	if _, ok := NewSetAdds("s").Next(ctx); ok {
		t.Error("expected set adds to stop on cancelled context")
	}
	if _, ok := NewFinalReads(2).Next(ctx); ok {
		t.Error("expected final reads to stop on cancelled context")
	}
}
