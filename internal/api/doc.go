// Package api はラン状態を公開するHTTP APIを提供する
//
// JSONエンドポイント（ステータス、ノード一覧、最終結果、
// ラン開始）、WebSocketによるイベント配信、/metrics での
// Prometheusレジストリ公開を持つ
package api
