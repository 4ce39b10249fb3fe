package workload

import (
	"context"

	"gauntlet/internal/checker"
	"gauntlet/internal/gen"
	"gauntlet/internal/history"
)

// Client は単一ワーカーが保持するクラスタ接続
// Open で1ノードに束縛されてから使われる。Invoke は invoke
// レコードを受け取り、必ず完了レコード（ok / fail / info）を返す
type Client interface {
	Open(ctx context.Context, node string) error
	Invoke(ctx context.Context, op history.Op) history.Op
	Close() error
}

// ClientFactory はワーカー（プロセス）ごとの未接続クライアントを作る
type ClientFactory func(process int) (Client, error)

// Workload は負荷・最終読み取り・クライアント・チェッカを
// ひとまとめにした検査単位
type Workload struct {
	Name string

	// Generator は主フェーズの操作列（無限でよい）
	Generator gen.Generator

	// Final は最終フェーズの検証読み取り列（有限）
	Final gen.Generator

	// NewClient はワーカーごとの接続を開く
	NewClient ClientFactory

	// Checkers は記録されたヒストリに適用される
	Checkers []checker.Checker
}
