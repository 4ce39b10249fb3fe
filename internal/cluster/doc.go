// Package cluster はシミュレートされたレプリケーション付きの
// マルチノードクラスタを提供する。
//
// ノード間の到達性は対称な遮断行列で管理され、ネメシスの
// partition-start / partition-stop がこれを操作する。レプリケーションは
// 非同期のプッシュ型で、到達可能なノード間でのみエントリが伝播する。
// クロックスクランブルは各ノードのローカルクロックに ±MaxSkew の
// ランダムなオフセットを与える。
package cluster
