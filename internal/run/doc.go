// Package run はラン全体の組み立てと実行を提供する
//
// Options を検証して Assemble がコラボレータ一式（クラスタ、
// ワークロード、ネメシス、ヒストリ、チェッカ）を配線し、
// Runner がセットアップ→フェーズ実行→検査→ティアダウンの
// 順に進めて Result を返す。名前付きプリセットと人間向けの
// レポート整形も持つ
package run
