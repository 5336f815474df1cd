// Package token はクライアント側に保存するセッショントークンのエンコード/デコードを提供します。
//
// トークンはバックエンドが発行したセッションIDとユーザーIDの組だけを持ち、
// 署名・暗号化はセッションストア側（identity パッケージ）が担います。
package token

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrMalformed は保存済みペイロードが正しいトークンとして読めない場合のエラーです。
var ErrMalformed = errors.New("token: malformed payload")

// Token はクライアントに保持させるセッション情報です。
type Token struct {
	SessionID string `json:"session-id"`
	UserID    int64  `json:"user-id"`
}

// EncodeError はトークンをペイロードに変換できなかったことを表します。
type EncodeError struct {
	Reason string
	Err    error
}

func (e *EncodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token: cannot encode: %s: %v", e.Reason, e.Err)
	}
	return "token: cannot encode: " + e.Reason
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Validate はトークンがエンコード可能な値かどうかを検証します。
func (t Token) Validate() error {
	switch {
	case t.SessionID == "":
		return errors.New("session id is empty")
	case !utf8.ValidString(t.SessionID):
		// 不正なUTF-8はJSON化で置換文字に潰れ、異なるIDが同じペイロードになる
		return errors.New("session id is not valid UTF-8")
	case t.UserID <= 0:
		return fmt.Errorf("user id %d is not positive", t.UserID)
	}
	return nil
}

// Encode はトークンを正規形のJSON文字列に変換します。
func Encode(t Token) (string, error) {
	if err := t.Validate(); err != nil {
		return "", &EncodeError{Reason: "invalid token", Err: err}
	}
	data, err := json.Marshal(t)
	if err != nil {
		return "", &EncodeError{Reason: "marshal failed", Err: err}
	}
	return string(data), nil
}

// Decode はペイロードをトークンに戻します。
// 未知のフィールド、欠けたフィールド、正規形でない表現はすべて ErrMalformed になります。
func Decode(payload string) (Token, error) {
	if strings.TrimSpace(payload) == "" {
		return Token{}, ErrMalformed
	}

	dec := json.NewDecoder(strings.NewReader(payload))
	dec.DisallowUnknownFields()

	var t Token
	if err := dec.Decode(&t); err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := t.Validate(); err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	// 再エンコードした結果と一致するものだけを受け付ける
	canonical, err := json.Marshal(t)
	if err != nil || !bytes.Equal(canonical, []byte(payload)) {
		return Token{}, fmt.Errorf("%w: non-canonical encoding", ErrMalformed)
	}
	return t, nil
}
