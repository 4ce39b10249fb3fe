// Package phase はラン全体のフェーズ進行を提供する
//
// メイン（負荷＋フォールトスケジュール）、ヒール（分断の
// 無条件解消）、セトル（収束待ち）、ファイナル（検証読み取り）
// の4フェーズを固定順で実行する。実行中の操作は時間制限を
// 越えても完了まで走り、ヒストリには必ず完了レコードが残る
package phase
