package node

import (
	"errors"
	"testing"
	"time"
)

func TestStartStop(t *testing.T) {
	n := New("n1")

	if n.Status() != StatusStopped {
		t.Errorf("expected status stopped, got %v", n.Status())
	}

	if err := n.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if n.Status() != StatusRunning {
		t.Errorf("expected status running, got %v", n.Status())
	}

	if err := n.Start(); err == nil {
		t.Error("expected error starting a running node")
	}

	if err := n.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if err := n.Stop(); err == nil {
		t.Error("expected error stopping a stopped node")
	}
}

func TestReadWrite(t *testing.T) {
	n := New("n1")
	_ = n.Start()

	if err := n.Write("x", 42); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	v, ok, err := n.Read("x")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !ok || v != 42 {
		t.Errorf("expected (42, true), got (%v, %v)", v, ok)
	}

	_, ok, err = n.Read("missing")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if ok {
		t.Error("expected missing key to be absent")
	}
}

func TestOpsOnStoppedNode(t *testing.T) {
	n := New("n1")

	if err := n.Write("x", 1); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
	if _, _, err := n.Read("x"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
	if _, err := n.CAS("x", 1, 2); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
	if err := n.SetAdd("s", 1); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
}

func TestCAS(t *testing.T) {
	n := New("n1")
	_ = n.Start()
	_ = n.Write("x", 1)

	swapped, err := n.CAS("x", 1, 2)
	if err != nil {
		t.Fatalf("cas failed: %v", err)
	}
	if !swapped {
		t.Error("expected cas to succeed on matching value")
	}

	swapped, err = n.CAS("x", 1, 3)
	if err != nil {
		t.Fatalf("cas failed: %v", err)
	}
	if swapped {
		t.Error("expected cas to fail on stale value")
	}

	v, _, _ := n.Read("x")
	if v != 2 {
		t.Errorf("expected value 2, got %v", v)
	}
}

func TestSetAddRead(t *testing.T) {
	n := New("n1")
	_ = n.Start()

	for _, e := range []int{3, 1, 2, 1} {
		if err := n.SetAdd("s", e); err != nil {
			t.Fatalf("set add failed: %v", err)
		}
	}

	got, err := n.SetRead("s")
	if err != nil {
		t.Fatalf("set read failed: %v", err)
	}
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestClockOffsetAffectsStamps(t *testing.T) {
	n1 := New("n1")
	n2 := New("n2")
	_ = n1.Start()
	_ = n2.Start()

	// n1のクロックを大きく進める
	n1.SetClockOffset(time.Hour)

	_ = n1.Write("x", "old-but-future")
	time.Sleep(time.Millisecond)
	_ = n2.Write("x", "new")

	e1 := n1.Entries()["x"]
	e2 := n2.Entries()["x"]

	if e1.Stamp <= e2.Stamp {
		t.Error("expected skewed node's stamp to be ahead")
	}

	// LWWマージではスキューされた古い書き込みが勝つ
	n2.MergeEntry("x", e1, false)
	v, _, _ := n2.Read("x")
	if v != "old-but-future" {
		t.Errorf("expected skewed write to win merge, got %v", v)
	}
}

func TestMergeEntryLWW(t *testing.T) {
	n := New("n1")
	_ = n.Start()
	_ = n.Write("x", 1)

	cur := n.Entries()["x"]

	// 古いスタンプは無視される
	n.MergeEntry("x", Entry{Value: 99, Stamp: cur.Stamp - 1}, false)
	v, _, _ := n.Read("x")
	if v != 1 {
		t.Errorf("expected stale merge to be ignored, got %v", v)
	}

	// 新しいスタンプは勝つ
	n.MergeEntry("x", Entry{Value: 99, Stamp: cur.Stamp + 1}, false)
	v, _, _ = n.Read("x")
	if v != 99 {
		t.Errorf("expected newer merge to win, got %v", v)
	}
}

func TestMergeEntryUnion(t *testing.T) {
	n := New("n1")
	_ = n.Start()
	_ = n.SetAdd("s", 1)

	incoming := Entry{
		Value: map[int]struct{}{2: {}, 3: {}},
		Stamp: 0, // スタンプが古くても和集合には入る
	}
	n.MergeEntry("s", incoming, true)

	got, _ := n.SetRead("s")
	if len(got) != 3 {
		t.Errorf("expected union of 3 elements, got %v", got)
	}
}

func TestMergeSkippedWhenStopped(t *testing.T) {
	n := New("n1")
	n.MergeEntry("x", Entry{Value: 1, Stamp: 1}, false)

	_ = n.Start()
	if _, ok, _ := n.Read("x"); ok {
		t.Error("expected merge on stopped node to be dropped")
	}
}
