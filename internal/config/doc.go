// Package config はYAML/JSON設定ファイルの読み込みを提供する
package config
