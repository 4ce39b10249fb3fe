package run

import (
	"sort"
	"time"

	"github.com/pkg/errors"
)

// ErrUnknownPreset は未登録のプリセット名に対するエラー
var ErrUnknownPreset = errors.New("unknown preset")

// presets は名前付きの設定変換。いずれも DefaultOptions を
// 起点に上書きする
var presets = map[string]func(Options) Options{
	// quick は開発中の確認用に全体を短縮する
	"quick": func(o Options) Options {
		o.TimeLimit = 20 * time.Second
		o.Unit = 500 * time.Millisecond
		o.SettlePause = 3 * time.Second
		o.Concurrency = 3
		o.Nodes = 3
		return o
	},
	// long は本番相当の長時間ラン
	"long": func(o Options) Options {
		o.TimeLimit = 5 * time.Minute
		o.Concurrency = 10
		return o
	},
	// skew-heavy はクロックスクランブルの影響を強調する
	"skew-heavy": func(o Options) Options {
		o.MaxSkew = 10 * time.Second
		o.Unit = 500 * time.Millisecond
		return o
	},
}

// ApplyPreset はプリセットを適用した設定を返す
func ApplyPreset(name string, o Options) (Options, error) {
	f, ok := presets[name]
	if !ok {
		return o, errors.Wrapf(ErrUnknownPreset, "%q (known: %v)", name, PresetNames())
	}
	return f(o), nil
}

// PresetNames は登録済みのプリセット名をソートして返す
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
