// Package audit は認証イベントの監査記録を非同期に保存します。
//
// 構成:
// - Asynq のキュー "audit" にイベントを投入（Manager.Enqueue）
// - ワーカーがイベントを Redis に保存（Store.Save、キー: audit:<id>）
// - 保存期間は AUDIT_RETENTION_HOURS（既定30日）
//
// 記録されるのはログイン結果とログアウトのみで、パスワードは含みません。
// 投入に失敗しても認証処理の結果は変わりません。
package audit
