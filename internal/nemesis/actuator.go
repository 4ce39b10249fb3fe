package nemesis

import (
	"context"

	"gauntlet/internal/cluster"
)

// ClusterActuator はシミュレートされたクラスタに対する
// 分断・クロック両アクチュエータの実装
type ClusterActuator struct {
	cluster *cluster.Cluster
}

// NewClusterActuator は新しいClusterActuatorを作成する
func NewClusterActuator(c *cluster.Cluster) *ClusterActuator {
	return &ClusterActuator{cluster: c}
}

// StartPartition はクラスタを分断する
func (a *ClusterActuator) StartPartition(_ context.Context) error {
	return a.cluster.Partition()
}

// StopPartition は分断を解消する
func (a *ClusterActuator) StopPartition(_ context.Context) error {
	return a.cluster.Heal()
}

// ScrambleClocks は全ノードのクロックをスクランブルする
func (a *ClusterActuator) ScrambleClocks(_ context.Context) error {
	return a.cluster.ScrambleClocks()
}

var (
	_ PartitionActuator = (*ClusterActuator)(nil)
	_ ClockActuator     = (*ClusterActuator)(nil)
)
