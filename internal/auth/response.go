package auth

import (
	"github.com/yourusername/authgate/internal/backend"
)

// Success は成功レスポンスの共通エンベロープです。
type Success struct {
	Result any `json:"result"`
}

// ErrorBody はクライアントに返すエラー内容です。
type ErrorBody struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Failure は失敗レスポンスの共通エンベロープです。
type Failure struct {
	Error ErrorBody `json:"error"`
}

var (
	errInvalidRequest = ErrorBody{
		Name:    "invalid-request",
		Message: "username-or-email と password を JSON で送ってください",
	}
	errInvalidCredentials = ErrorBody{
		Name:    "invalid-credentials",
		Message: "ユーザー名またはパスワードが正しくありません",
	}
	errBackendUnavailable = ErrorBody{
		Name:    "backend-unavailable",
		Message: "認証サービスに接続できませんでした",
	}
	errSessionEncode = ErrorBody{
		Name:    "session-encode-failed",
		Message: "セッションの作成に失敗しました",
	}
	errSessionSave = ErrorBody{
		Name:    "session-save-failed",
		Message: "セッションの保存に失敗しました",
	}
	errNotLoggedIn = ErrorBody{
		Name:    "not-logged-in",
		Message: "ログインしていません",
	}
)

// アカウントの存在有無が推測できる種別は invalid-credentials にまとめる
var concealedBackendErrors = map[string]bool{
	"invalid-credentials": true,
	"user-not-found":      true,
	"invalid-username":    true,
	"invalid-password":    true,
	"wrong-password":      true,
}

func success(result any) Success {
	return Success{Result: result}
}

func failure(body ErrorBody) Failure {
	return Failure{Error: body}
}

func fromBackendError(err *backend.Error) ErrorBody {
	if concealedBackendErrors[err.Name] {
		return errInvalidCredentials
	}
	return ErrorBody{
		Name:    err.Name,
		Message: err.Message,
	}
}
