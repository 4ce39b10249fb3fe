package workload

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"gauntlet/internal/cluster"
	"gauntlet/internal/history"
	"gauntlet/internal/node"
)

// simLatency はクライアント呼び出し1回あたりの擬似ネットワーク遅延
const simLatency = 500 * time.Microsecond

// SimClient は Open で1ノードに束縛されるクラスタ接続
type SimClient struct {
	cluster *cluster.Cluster
	node    *node.Node
}

// NewSimFactory はシミュレートされたクラスタ向けの
// クライアントファクトリを返す
func NewSimFactory(c *cluster.Cluster) ClientFactory {
	return func(_ int) (Client, error) {
		if c.Size() == 0 {
			return nil, errors.New("cluster has no nodes")
		}
		return &SimClient{cluster: c}, nil
	}
}

// Open は指定ノードに接続する
func (c *SimClient) Open(_ context.Context, node string) error {
	n, ok := c.cluster.GetNode(node)
	if !ok {
		return errors.Errorf("unknown node %q", node)
	}
	c.node = n
	return nil
}

// Invoke は操作をノードに適用して完了レコードを返す
// 遅延中にコンテキストが切れた場合は結果不明（info）になる
func (c *SimClient) Invoke(ctx context.Context, op history.Op) history.Op {
	if c.node == nil {
		return op.Completion(history.Fail, op.Value, errors.New("client not opened"))
	}

	select {
	case <-ctx.Done():
		return op.Completion(history.Info, op.Value, ctx.Err())
	case <-time.After(simLatency):
	}

	switch op.F {
	case "read":
		v, _, err := c.node.Read(op.Key)
		if err != nil {
			return op.Completion(history.Fail, nil, err)
		}
		return op.Completion(history.OK, v, nil)

	case "write":
		if err := c.node.Write(op.Key, op.Value); err != nil {
			return op.Completion(history.Fail, op.Value, err)
		}
		return op.Completion(history.OK, op.Value, nil)

	case "cas":
		pair, ok := op.Value.([]int)
		if !ok || len(pair) != 2 {
			return op.Completion(history.Fail, op.Value,
				fmt.Errorf("malformed cas arguments: %v", op.Value))
		}
		swapped, err := c.node.CAS(op.Key, pair[0], pair[1])
		if err != nil {
			return op.Completion(history.Fail, op.Value, err)
		}
		if !swapped {
			return op.Completion(history.Fail, op.Value, nil)
		}
		return op.Completion(history.OK, op.Value, nil)

	case "add":
		elem, ok := op.Value.(int)
		if !ok {
			return op.Completion(history.Fail, op.Value,
				fmt.Errorf("malformed add element: %v", op.Value))
		}
		if err := c.node.SetAdd(op.Key, elem); err != nil {
			return op.Completion(history.Fail, op.Value, err)
		}
		return op.Completion(history.OK, op.Value, nil)

	case "read-set":
		elems, err := c.node.SetRead(op.Key)
		if err != nil {
			return op.Completion(history.Fail, nil, err)
		}
		return op.Completion(history.OK, elems, nil)

	default:
		return op.Completion(history.Fail, nil,
			errors.Errorf("unknown operation %q", op.F))
	}
}

// Close は接続を閉じる。シミュレーションでは解放する資源はない
func (c *SimClient) Close() error {
	c.node = nil
	return nil
}
