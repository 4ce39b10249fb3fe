// Package gen はワーカーが消費する操作ジェネレータを提供する。
//
// ジェネレータは無限（メインフェーズの負荷）にも有限（最終フェーズの
// 検証読み取り）にもなる。Staggered はプロセスごとの最小発行間隔
// （1/rate 秒）を強制するラッパーで、全ワーカーが共有して使う。
package gen
