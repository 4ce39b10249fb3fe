// Package checker は記録されたヒストリの検査を提供する
//
// 各チェッカはヒストリ全体を受け取って独立に合否を判定し、
// Aggregate が全結果を最終判定にまとめる。レジスタの線形化
// 可能性、add-only 集合の要素保存、ヒストリの完全性と
// レイテンシ統計を検査できる
package checker
