package db

import (
	"sort"

	"github.com/pkg/errors"
)

// Build はテスト対象クラスタのビルドを識別する不変レコード
type Build struct {
	Name      string // パッチテーブル上の名前
	ID        string // バージョンタグまたはコミットハッシュ
	UnionSets bool   // 集合値を和集合でマージするビルドか
}

// ErrUnknownPatch は未登録のパッチ名に対するエラー
var ErrUnknownPatch = errors.New("unknown patch")

// patches はパッチ名からビルド識別子への静的テーブル
// 参照のみで変更されない
var patches = map[string]Build{
	"default": {Name: "default", ID: "v1.4.2", UnionSets: true},
	"lww":     {Name: "lww", ID: "v1.4.2-lww", UnionSets: false},
	"legacy":  {Name: "legacy", ID: "9f31c07", UnionSets: false},
}

// ResolvePatch はパッチ名からビルドを取得する
func ResolvePatch(name string) (Build, error) {
	b, ok := patches[name]
	if !ok {
		return Build{}, errors.Wrapf(ErrUnknownPatch, "%q (known: %v)", name, PatchNames())
	}
	return b, nil
}

// PatchNames は登録済みのパッチ名をソートして返す
func PatchNames() []string {
	names := make([]string, 0, len(patches))
	for name := range patches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
