package db

import (
	"context"

	retry "github.com/avast/retry-go"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"gauntlet/internal/cluster"
	"gauntlet/internal/logger"
)

// OS はノードのOSレベルの準備を行うコラボレータ
// Db のセットアップより前にノードごとに1回呼ばれる
type OS interface {
	Setup(ctx context.Context, node string) error
}

// Db はテスト対象クラスタのライフサイクルを管理するコラボレータ
// Setup の失敗はラン全体の中断であり、クライアント/ネメシスの
// 活動は一切開始されない
type Db interface {
	Setup(ctx context.Context) error
	Teardown(ctx context.Context) error
	Nodes() []string
}

// SimOS はシミュレーション用のOSコラボレータ
// 実ノードのプロビジョニングは行わない
type SimOS struct{}

// Setup はノードの準備を行う（シミュレーションではログのみ）
func (SimOS) Setup(_ context.Context, node string) error {
	logger.Debug(node, "os setup complete")
	return nil
}

// SimDB はシミュレートされたクラスタを対象とするDbコラボレータ
type SimDB struct {
	build   Build
	cluster *cluster.Cluster
}

// NewSimDB は新しいSimDBを作成する
func NewSimDB(build Build, c *cluster.Cluster) *SimDB {
	return &SimDB{build: build, cluster: c}
}

// Setup はクラスタを起動する（一時的な失敗はリトライ）
func (d *SimDB) Setup(ctx context.Context) error {
	logger.Info("", "setting up cluster build %s (%s)", d.build.Name, d.build.ID)

	err := retry.Do(
		func() error { return d.cluster.StartAll(ctx) },
		retry.Attempts(3),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return errors.Wrapf(err, "db setup failed for build %s", d.build.ID)
	}
	return nil
}

// Teardown はクラスタを停止する
func (d *SimDB) Teardown(_ context.Context) error {
	var result *multierror.Error
	if err := d.cluster.StopAll(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "cluster teardown"))
	}
	return result.ErrorOrNil()
}

// Nodes は対象ノードのIDを返す
func (d *SimDB) Nodes() []string {
	return d.cluster.NodeIDs()
}

// Cluster は対象クラスタを返す
func (d *SimDB) Cluster() *cluster.Cluster {
	return d.cluster
}
