// Package history は1回のテストランで発行・完了した全操作の記録を提供する。
//
// ヒストリは追記専用で、クライアントワーカーとネメシスアクターの
// 並行追記に対して安全である。チェッカーに渡される唯一の成果物であり、
// 全ての invoke には同一プロセスの ok/fail/info 完了レコードが
// 対応していなければランは不完全とみなされる。
package history
