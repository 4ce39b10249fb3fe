package workload

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"gauntlet/internal/cluster"
	"gauntlet/internal/history"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	c := cluster.New(cluster.DefaultConfig())
	if err := c.CreateNodes(3, "node"); err != nil {
		t.Fatalf("CreateNodes failed: %v", err)
	}
	return Options{
		Cluster:     c,
		Rate:        10,
		OpsPerKey:   100,
		Concurrency: 5,
		TimeLimit:   60 * time.Second,
		Seed:        42,
	}
}

func TestDefaultRegistryNames(t *testing.T) {
	r := DefaultRegistry()

	names := r.Names()
	if len(names) != 2 || names[0] != "reg" || names[1] != "set" {
		t.Errorf("expected [reg set], got %v", names)
	}
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("w", NewRegister); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := r.Register("w", NewRegister); err == nil {
		t.Error("duplicate registration should fail")
	}
}

func TestResolveUnknownWorkload(t *testing.T) {
	r := DefaultRegistry()

	_, err := r.Resolve("nonsense", testOptions(t))
	if !errors.Is(err, ErrUnknownWorkload) {
		t.Errorf("expected ErrUnknownWorkload, got %v", err)
	}
	// エラーには登録済み一覧が含まれる
	if err == nil || !strings.Contains(err.Error(), "reg") {
		t.Errorf("error should list known workloads: %v", err)
	}
}

func TestResolveRegister(t *testing.T) {
	r := DefaultRegistry()

	w, err := r.Resolve("reg", testOptions(t))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if w.Name != "reg" || w.Generator == nil || w.Final == nil ||
		w.NewClient == nil || len(w.Checkers) == 0 {
		t.Errorf("incomplete workload: %+v", w)
	}
}

func TestKeySpaceScalesWithOpsPerKey(t *testing.T) {
	opts := testOptions(t)

	// 10 ops/s × 5 workers × 60s = 3000 ops → 100 ops/key → 30 keys
	if got := opts.keySpace(); got != 30 {
		t.Errorf("expected 30 keys, got %d", got)
	}

	opts.OpsPerKey = 10000
	if got := opts.keySpace(); got != 1 {
		t.Errorf("key space should bottom out at 1, got %d", got)
	}
}

func TestWorkloadRequiresCluster(t *testing.T) {
	if _, err := NewRegister(Options{}); err == nil {
		t.Error("register workload without cluster should fail")
	}
	if _, err := NewSet(Options{}); err == nil {
		t.Error("set workload without cluster should fail")
	}
}

func TestSimClientRegisterOps(t *testing.T) {
	opts := testOptions(t)
	ctx := context.Background()
	if err := opts.Cluster.StartAll(ctx); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	defer opts.Cluster.StopAll()

	factory := NewSimFactory(opts.Cluster)
	c, err := factory(0)
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	if err := c.Open(ctx, "node-1"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	done := c.Invoke(ctx, history.Invocation(0, "write", "r0", 7))
	if done.Type != history.OK {
		t.Fatalf("write should succeed, got %+v", done)
	}

	done = c.Invoke(ctx, history.Invocation(0, "read", "r0", nil))
	if done.Type != history.OK || done.Value != 7 {
		t.Errorf("read should return 7, got %+v", done)
	}

	done = c.Invoke(ctx, history.Invocation(0, "cas", "r0", []int{7, 8}))
	if done.Type != history.OK {
		t.Errorf("cas with matching precondition should succeed, got %+v", done)
	}

	done = c.Invoke(ctx, history.Invocation(0, "cas", "r0", []int{7, 9}))
	if done.Type != history.Fail {
		t.Errorf("cas with stale precondition should fail, got %+v", done)
	}
}

func TestSimClientSetOps(t *testing.T) {
	opts := testOptions(t)
	ctx := context.Background()
	if err := opts.Cluster.StartAll(ctx); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	defer opts.Cluster.StopAll()

	c, err := NewSimFactory(opts.Cluster)(1)
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	if err := c.Open(ctx, "node-2"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	for _, elem := range []int{3, 1, 2} {
		done := c.Invoke(ctx, history.Invocation(1, "add", SetKey, elem))
		if done.Type != history.OK {
			t.Fatalf("add %d should succeed, got %+v", elem, done)
		}
	}

	done := c.Invoke(ctx, history.Invocation(1, "read-set", SetKey, nil))
	if done.Type != history.OK {
		t.Fatalf("read-set should succeed, got %+v", done)
	}
	elems, ok := done.Value.([]int)
	if !ok || len(elems) != 3 || elems[0] != 1 || elems[2] != 3 {
		t.Errorf("expected sorted elements [1 2 3], got %v", done.Value)
	}
}

func TestSimClientStoppedNodeFails(t *testing.T) {
	opts := testOptions(t)
	// ノードを起動しないまま呼び出す
	c, err := NewSimFactory(opts.Cluster)(0)
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	if err := c.Open(context.Background(), "node-1"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	done := c.Invoke(context.Background(), history.Invocation(0, "write", "r0", 1))
	if done.Type != history.Fail {
		t.Errorf("write to stopped node should fail, got %+v", done)
	}
	if done.Err == "" {
		t.Error("failure should carry the node error")
	}
}

func TestSimClientOpenUnknownNode(t *testing.T) {
	opts := testOptions(t)
	c, err := NewSimFactory(opts.Cluster)(0)
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	if err := c.Open(context.Background(), "nope"); err == nil {
		t.Error("opening an unknown node should fail")
	}

	done := c.Invoke(context.Background(), history.Invocation(0, "read", "r0", nil))
	if done.Type != history.Fail {
		t.Errorf("invoke before open should fail, got %+v", done)
	}
}

func TestSimClientCancelledContextIsInfo(t *testing.T) {
	opts := testOptions(t)
	c, err := NewSimFactory(opts.Cluster)(0)
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	if err := c.Open(context.Background(), "node-1"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := c.Invoke(ctx, history.Invocation(0, "write", "r0", 1))
	if done.Type != history.Info {
		t.Errorf("cancelled invoke should be info, got %+v", done)
	}
}
