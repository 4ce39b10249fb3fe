// Package db はテスト対象クラスタのライフサイクルコラボレータと
// パッチテーブルを提供する。
//
// パッチテーブルは人間向けの名前から不変のビルド識別子への
// 静的な対応表で、CLI検証の段階で参照される。SimDB は
// internal/cluster のシミュレーションを対象とする実装だが、
// 実クラスタ向けの実装も同じインターフェースで差し替えられる。
package db
