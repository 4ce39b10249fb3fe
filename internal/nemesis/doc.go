// Package nemesis はクラスタへのフォールト注入と解消を担うアクターを提供する。
//
// フォールトは分断制御とクロック制御の2系統のアクチュエータに
// 閉じた列挙でディスパッチされる。スケジュールは8ステップの
// 決定的な周期列で、単独で交互にフォールトを注入する（分断と
// クロックスキューを同時には起こさない）。これにより障害モードの
// 切り分けを保ちつつ、1ランの中で各障害からの回復を繰り返し試せる。
//
// # 使用例
//
//	n := nemesis.New(part, clock)
//	n.SetRecorder(hist)
//	sched := nemesis.NewSchedule(time.Second)
//	go sched.Run(ctx, n)
package nemesis
