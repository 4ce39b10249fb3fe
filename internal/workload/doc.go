// Package workload は検査単位（ワークロード）の定義と解決を提供する
//
// ワークロードは主フェーズのジェネレータ、最終フェーズの検証
// 読み取り、クライアントファクトリ、チェッカをひとまとめにした
// もので、名前でレジストリから解決される。組み込みは reg
// （線形化可能レジスタ）と set（add-only 集合）の2つ
package workload
