package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics は1ランぶんの操作メトリクスを収集する
type Metrics struct {
	totalOps       atomic.Uint64
	okOps          atomic.Uint64
	failedOps      atomic.Uint64
	infoOps        atomic.Uint64
	faults         atomic.Uint64
	anomalies      atomic.Uint64
	totalLatencyNs atomic.Uint64

	mu                sync.RWMutex
	startTime         time.Time
	latencies         []time.Duration
	maxLatencySamples int

	registry    *prometheus.Registry
	opsTotal    *prometheus.CounterVec
	faultsTotal *prometheus.CounterVec
	latencyHist prometheus.Histogram
}

// New は新しいメトリクスを作成する
// prometheus コレクタはラン専用のレジストリに登録される
func New() *Metrics {
	m := &Metrics{
		startTime:         time.Now(),
		latencies:         make([]time.Duration, 0, 1000),
		maxLatencySamples: 1000,
		registry:          prometheus.NewRegistry(),
	}

	m.opsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gauntlet_ops_total",
		Help: "Completed client operations by outcome.",
	}, []string{"outcome"})
	m.faultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gauntlet_faults_total",
		Help: "Nemesis fault events by fault name.",
	}, []string{"fault"})
	m.latencyHist = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gauntlet_op_latency_seconds",
		Help:    "Client operation latency.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
	})

	m.registry.MustRegister(m.opsTotal, m.faultsTotal, m.latencyHist)
	return m
}

// Registry はランのprometheusレジストリを返す
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordOp は完了したクライアント操作を記録する
func (m *Metrics) RecordOp(outcome string, latency time.Duration) {
	m.totalOps.Add(1)
	m.totalLatencyNs.Add(uint64(latency.Nanoseconds()))

	switch outcome {
	case "ok":
		m.okOps.Add(1)
	case "fail":
		m.failedOps.Add(1)
	default:
		m.infoOps.Add(1)
	}

	m.opsTotal.WithLabelValues(outcome).Inc()
	m.latencyHist.Observe(latency.Seconds())

	m.mu.Lock()
	if len(m.latencies) < m.maxLatencySamples {
		m.latencies = append(m.latencies, latency)
	}
	m.mu.Unlock()
}

// RecordFault はネメシスのフォールトイベントを記録する
func (m *Metrics) RecordFault(fault string) {
	m.faults.Add(1)
	m.faultsTotal.WithLabelValues(fault).Inc()
}

// RecordAnomaly はラン内の異常（フォールト適用失敗など）を記録する
func (m *Metrics) RecordAnomaly() {
	m.anomalies.Add(1)
}

// TotalOps は完了した操作数を返す
func (m *Metrics) TotalOps() uint64 {
	return m.totalOps.Load()
}

// Anomalies は記録された異常数を返す
func (m *Metrics) Anomalies() uint64 {
	return m.anomalies.Load()
}

// AverageLatency は平均レイテンシを返す
func (m *Metrics) AverageLatency() time.Duration {
	total := m.totalOps.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.totalLatencyNs.Load() / total)
}

// P99Latency はP99レイテンシを返す（サンプルベース）
func (m *Metrics) P99Latency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.latencies) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	idx := int(float64(len(sorted)) * 0.99)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Throughput は開始からの平均ops/secを返す
func (m *Metrics) Throughput() float64 {
	elapsed := time.Since(m.startTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.totalOps.Load()) / elapsed
}

// Snapshot はメトリクスのスナップショット
type Snapshot struct {
	TotalOps       uint64        `json:"total_ops"`
	OKOps          uint64        `json:"ok_ops"`
	FailedOps      uint64        `json:"failed_ops"`
	InfoOps        uint64        `json:"info_ops"`
	Faults         uint64        `json:"faults"`
	Anomalies      uint64        `json:"anomalies"`
	Throughput     float64       `json:"throughput"`
	AverageLatency time.Duration `json:"average_latency"`
	P99Latency     time.Duration `json:"p99_latency"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Snapshot は現在のメトリクスのスナップショットを返す
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		TotalOps:       m.totalOps.Load(),
		OKOps:          m.okOps.Load(),
		FailedOps:      m.failedOps.Load(),
		InfoOps:        m.infoOps.Load(),
		Faults:         m.faults.Load(),
		Anomalies:      m.anomalies.Load(),
		Throughput:     m.Throughput(),
		AverageLatency: m.AverageLatency(),
		P99Latency:     m.P99Latency(),
		Elapsed:        time.Since(m.startTime),
	}
}
