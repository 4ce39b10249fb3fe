package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestRecordOp(t *testing.T) {
	m := New()

	m.RecordOp("ok", 10*time.Millisecond)
	m.RecordOp("fail", 20*time.Millisecond)
	m.RecordOp("info", 30*time.Millisecond)

	snap := m.Snapshot()
	if snap.TotalOps != 3 {
		t.Errorf("expected 3 total ops, got %d", snap.TotalOps)
	}
	if snap.OKOps != 1 {
		t.Errorf("expected 1 ok op, got %d", snap.OKOps)
	}
	if snap.FailedOps != 1 {
		t.Errorf("expected 1 failed op, got %d", snap.FailedOps)
	}
	if snap.InfoOps != 1 {
		t.Errorf("expected 1 info op, got %d", snap.InfoOps)
	}
	if snap.AverageLatency != 20*time.Millisecond {
		t.Errorf("expected 20ms average latency, got %v", snap.AverageLatency)
	}
}

func TestRecordFaultAndAnomaly(t *testing.T) {
	m := New()

	m.RecordFault("partition-start")
	m.RecordFault("clock-scramble")
	m.RecordAnomaly()

	snap := m.Snapshot()
	if snap.Faults != 2 {
		t.Errorf("expected 2 faults, got %d", snap.Faults)
	}
	if snap.Anomalies != 1 {
		t.Errorf("expected 1 anomaly, got %d", snap.Anomalies)
	}
}

func TestP99Latency(t *testing.T) {
	m := New()

	for i := 1; i <= 100; i++ {
		m.RecordOp("ok", time.Duration(i)*time.Millisecond)
	}

	p99 := m.P99Latency()
	if p99 < 99*time.Millisecond {
		t.Errorf("expected p99 >= 99ms, got %v", p99)
	}
}

func TestEmptyMetrics(t *testing.T) {
	m := New()

	snap := m.Snapshot()
	if snap.TotalOps != 0 {
		t.Errorf("expected 0 total ops, got %d", snap.TotalOps)
	}
	if snap.AverageLatency != 0 {
		t.Errorf("expected 0 average latency, got %v", snap.AverageLatency)
	}
	if snap.P99Latency != 0 {
		t.Errorf("expected 0 p99 latency, got %v", snap.P99Latency)
	}
}

func TestConcurrentRecording(t *testing.T) {
	m := New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RecordOp("ok", time.Millisecond)
			}
		}()
	}
	wg.Wait()

	if m.TotalOps() != 1000 {
		t.Errorf("expected 1000 ops, got %d", m.TotalOps())
	}
}

func TestRegistryGather(t *testing.T) {
	m := New()
	m.RecordOp("ok", time.Millisecond)
	m.RecordFault("partition-start")

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}

	for _, want := range []string{"gauntlet_ops_total", "gauntlet_faults_total", "gauntlet_op_latency_seconds"} {
		if !names[want] {
			t.Errorf("expected metric family %s to be registered", want)
		}
	}
}
