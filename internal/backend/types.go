// Package backend は認証バックエンド（資格情報の検証とセッション発行を行うリモートサービス）のクライアントです。
package backend

import (
	"fmt"
)

// Session はログイン成功時にバックエンドが返すセッション情報です。
type Session struct {
	SessionID string `json:"session-id"`
	UserID    int64  `json:"user-id"`
}

// Error はバックエンドが明示的に返した失敗（資格情報の誤り、アカウントのロックなど）です。
type Error struct {
	Name    string `json:"name"`
	Message string `json:"message"`

	// Status はバックエンドが返したHTTPステータスです。
	Status int `json:"-"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "backend: " + e.Name
	}
	return fmt.Sprintf("backend: %s: %s", e.Name, e.Message)
}

// TransportError はバックエンドに到達できない、またはプロトコル上の異常を表します。
// 資格情報の誤りとは区別されます。
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
