package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger はプロセスタグ付きのスレッドセーフなロガー
type Logger struct {
	log *logrus.Logger
}

// Default はデフォルトのロガー
var Default = New(os.Stdout, logrus.InfoLevel)

// New は新しいロガーを作成する
func New(out io.Writer, level logrus.Level) *Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	return &Logger{log: log}
}

// ParseLevel は文字列からログレベルをパースする
func ParseLevel(s string) (logrus.Level, error) {
	return logrus.ParseLevel(strings.ToLower(s))
}

// SetLevel はログレベルを設定する
func (l *Logger) SetLevel(level logrus.Level) {
	l.log.SetLevel(level)
}

// SetOutput は出力先を設定する
func (l *Logger) SetOutput(out io.Writer) {
	l.log.SetOutput(out)
}

// entry はプロセスタグ付きのエントリを返す
// process が空文字列の場合はタグなし
func (l *Logger) entry(process string) *logrus.Entry {
	if process == "" {
		return logrus.NewEntry(l.log)
	}
	return l.log.WithField("process", process)
}

// Debug はデバッグログを出力する
func (l *Logger) Debug(process string, format string, args ...any) {
	l.entry(process).Debugf(format, args...)
}

// Info は情報ログを出力する
func (l *Logger) Info(process string, format string, args ...any) {
	l.entry(process).Infof(format, args...)
}

// Warn は警告ログを出力する
func (l *Logger) Warn(process string, format string, args ...any) {
	l.entry(process).Warnf(format, args...)
}

// Error はエラーログを出力する
func (l *Logger) Error(process string, format string, args ...any) {
	l.entry(process).Errorf(format, args...)
}

// グローバル関数（デフォルトロガーを使用）

// Debug はデバッグログを出力する
func Debug(process string, format string, args ...any) {
	Default.Debug(process, format, args...)
}

// Info は情報ログを出力する
func Info(process string, format string, args ...any) {
	Default.Info(process, format, args...)
}

// Warn は警告ログを出力する
func Warn(process string, format string, args ...any) {
	Default.Warn(process, format, args...)
}

// Error はエラーログを出力する
func Error(process string, format string, args ...any) {
	Default.Error(process, format, args...)
}

// SetLevel はデフォルトロガーのログレベルを設定する
func SetLevel(level logrus.Level) {
	Default.SetLevel(level)
}
