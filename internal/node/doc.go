// Package node はシミュレートされた単一のストレージノードを提供する。
//
// 各ノードは独立したローカルクロック（オフセット付き）を持ち、
// 書き込みをそのクロックで打刻する。エントリはクラスタの
// レプリケーションループによってノード間でマージされ、衝突は
// last-write-wins（または集合なら和集合）で解決される。
//
// クロックスキューとパーティションの組み合わせにより、
// 線形化可能性の違反を意図的に起こせるテスト対象として機能する。
package node
