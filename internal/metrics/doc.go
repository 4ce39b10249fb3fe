// Package metrics はランごとの操作・フォールトメトリクスを収集する。
//
// カウンタ類はパフォーマンスチェッカーと最終レポートの入力になるほか、
// ラン専用の prometheus レジストリにも登録され、ステータスサーバーの
// /metrics から取得できる。
package metrics
