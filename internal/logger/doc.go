// Package logger はテストラン全体で使うロギング機能を提供する。
//
// logrus をバックエンドとし、どのワーカー/ネメシスプロセスが
// 出力したかを process フィールドで区別できるようにしている。
//
// # 使用例
//
//	logger.Info("worker-3", "invoked %s on %s", op.F, node)
//	logger.Warn("nemesis", "partition-start failed: %v", err)
package logger
