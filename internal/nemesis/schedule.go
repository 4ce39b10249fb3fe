package nemesis

import (
	"context"
	"sync"
	"time"
)

// StepKind はスケジュールステップの種別
type StepKind int

const (
	StepSleep StepKind = iota
	StepFault
)

// Step はスケジュールの1ステップ
type Step struct {
	Kind  StepKind
	Pause time.Duration
	Fault Fault
}

// DefaultUnit はスケジュールの標準時間単位
// 各スリープはこの5倍の長さになる
const DefaultUnit = time.Second

// pausesPerStep はスリープステップの単位数（固定、設定不可）
const pausesPerStep = 5

// Schedule は8ステップを繰り返す決定的な無限フォールトスケジュール
//
//	sleep → partition-start → sleep → clock-scramble →
//	sleep → partition-stop → sleep → clock-scramble → （先頭へ）
//
// 純粋に時間駆動であり、クライアントの進行とは無関係に進む
type Schedule struct {
	unit time.Duration

	mu  sync.Mutex
	pos int
}

// NewSchedule は新しいスケジュールを作成する
// unit が0以下なら DefaultUnit を使う
func NewSchedule(unit time.Duration) *Schedule {
	if unit <= 0 {
		unit = DefaultUnit
	}
	return &Schedule{unit: unit}
}

// cycle は1周期ぶんのステップを返す
func (s *Schedule) cycle() [8]Step {
	pause := Step{Kind: StepSleep, Pause: pausesPerStep * s.unit}
	return [8]Step{
		pause,
		{Kind: StepFault, Fault: FaultPartitionStart},
		pause,
		{Kind: StepFault, Fault: FaultClockScramble},
		pause,
		{Kind: StepFault, Fault: FaultPartitionStop},
		pause,
		{Kind: StepFault, Fault: FaultClockScramble},
	}
}

// Next は次のステップを返す。シーケンスは尽きず周期的に繰り返す
func (s *Schedule) Next() Step {
	s.mu.Lock()
	defer s.mu.Unlock()

	cycle := s.cycle()
	step := cycle[s.pos%len(cycle)]
	s.pos++
	return step
}

// Run はスケジュールを消費してネメシスに供給し続ける
// 打ち切りはコンテキストのキャンセルのみで、どのステップの
// 途中であっても停止する。その時点で適用中のフォールトの解消は
// ヒールフェーズの責務であり、ここでは保証しない
func (s *Schedule) Run(ctx context.Context, n *Nemesis) {
	for {
		step := s.Next()

		switch step.Kind {
		case StepSleep:
			timer := time.NewTimer(step.Pause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		case StepFault:
			if ctx.Err() != nil {
				return
			}
			// アクチュエータの失敗はApply内で記録済み。続行する
			_ = n.Apply(ctx, step.Fault)
		}
	}
}
