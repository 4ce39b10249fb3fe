package nemesis

import (
	"context"

	retry "github.com/avast/retry-go"
	"github.com/pkg/errors"

	"gauntlet/internal/events"
	"gauntlet/internal/history"
	"gauntlet/internal/logger"
	"gauntlet/internal/metrics"
)

// Fault は注入可能なフォールトの名前を表す
type Fault string

const (
	FaultPartitionStart Fault = "partition-start"
	FaultPartitionStop  Fault = "partition-stop"
	FaultClockScramble  Fault = "clock-scramble"
)

// PartitionActuator はネットワーク分断を操作するアクチュエータ
// 各呼び出しはフォールトが実際に適用/解消されるまでブロックする
type PartitionActuator interface {
	StartPartition(ctx context.Context) error
	StopPartition(ctx context.Context) error
}

// ClockActuator はクロックを操作するアクチュエータ
// Scramble は冪等で、最後のスクランブル以外の状態を持たない
type ClockActuator interface {
	ScrambleClocks(ctx context.Context) error
}

// Nemesis はフォールト名を2つのアクチュエータに振り分ける
// 同時に存在するアクチュエータは分断用とクロック用のちょうど2つ
type Nemesis struct {
	partition PartitionActuator
	clock     ClockActuator

	runID    string
	recorder *history.History
	bus      *events.Bus
	metrics  *metrics.Metrics
}

// New は新しいNemesisを作成する
func New(partition PartitionActuator, clock ClockActuator) *Nemesis {
	return &Nemesis{
		partition: partition,
		clock:     clock,
	}
}

// SetRecorder はフォールトイベントの記録先ヒストリを設定する
func (n *Nemesis) SetRecorder(h *history.History) {
	n.recorder = h
}

// SetEventBus はイベントバスを設定する
func (n *Nemesis) SetEventBus(runID string, bus *events.Bus) {
	n.runID = runID
	n.bus = bus
}

// SetMetrics はメトリクスを設定する
func (n *Nemesis) SetMetrics(m *metrics.Metrics) {
	n.metrics = m
}

// Apply はフォールトを適用し、ヒストリに info レコードを残す
// アクチュエータの失敗はランレベルの異常として記録され、
// エラーは呼び出し側に返るがスケジュールを止めるべきではない
func (n *Nemesis) Apply(ctx context.Context, fault Fault) error {
	var err error
	switch fault {
	case FaultPartitionStart:
		err = n.partition.StartPartition(ctx)
	case FaultPartitionStop:
		err = n.partition.StopPartition(ctx)
	case FaultClockScramble:
		err = n.clock.ScrambleClocks(ctx)
	default:
		err = errors.Errorf("unknown fault %q", fault)
	}

	n.record(fault, err)

	if err != nil {
		logger.Warn("nemesis", "fault %s failed: %v", fault, err)
		return errors.Wrapf(err, "fault %s", fault)
	}

	logger.Info("nemesis", "applied fault %s", fault)
	return nil
}

// Heal は分断解消を無条件に1回発行する
// スケジュールがどのステップで打ち切られていても必ず呼ばれ、
// ヒストリにはちょうど1つの partition-stop レコードが残る
// 一時的な失敗はリトライし、尽きた場合は異常として報告する
func (n *Nemesis) Heal(ctx context.Context) error {
	err := retry.Do(
		func() error { return n.partition.StopPartition(ctx) },
		retry.Attempts(5),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)

	n.record(FaultPartitionStop, err)

	if err != nil {
		logger.Error("nemesis", "heal failed after retries: %v", err)
		return errors.Wrap(err, "heal")
	}

	logger.Info("nemesis", "heal issued partition-stop")
	return nil
}

// record はフォールトの結果をヒストリ・メトリクス・イベントに反映する
func (n *Nemesis) record(fault Fault, err error) {
	if n.recorder != nil {
		op := history.NemesisOp(string(fault))
		if err != nil {
			op.Err = err.Error()
		}
		n.recorder.Append(op)
	}

	if err != nil {
		if n.metrics != nil {
			n.metrics.RecordAnomaly()
		}
		if n.bus != nil {
			n.bus.Publish(events.NewFaultFailedEvent(n.runID, string(fault), err))
		}
		return
	}

	if n.metrics != nil {
		n.metrics.RecordFault(string(fault))
	}
	if n.bus != nil {
		n.bus.Publish(events.NewFaultInjectedEvent(n.runID, string(fault)))
	}
}
