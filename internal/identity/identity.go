// Package identity はクライアントごとの認証状態をセッションクッキーに保存するアダプターです。
package identity

import (
	"errors"
	"fmt"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/authgate/internal/token"
)

const (
	// CookieName はセッションクッキーの名前です。
	CookieName = "ag_session"

	sessionKeyIdentity = "identity"
	sessionKeyToken    = "token"
)

// State はセッションの読み書きに必要な操作です。sessions.Session が実装しています。
type State interface {
	Get(key any) any
	Set(key any, val any)
	Clear()
	Options(sessions.Options)
	Save() error
}

// Store は1クライアント分の認証状態を覚える/思い出す/忘れる操作を提供します。
type Store struct {
	state State
}

// New は State を包んだ Store を返します。
func New(state State) *Store {
	return &Store{state: state}
}

// FromContext はリクエストのセッションから Store を作ります。
// sessions ミドルウェアが登録されている必要があります。
func FromContext(c *gin.Context) *Store {
	return New(sessions.Default(c))
}

// Remember は識別名とトークンのペイロードを保存します。既存の状態は上書きされます。
func (s *Store) Remember(identity, payload string) error {
	if identity == "" {
		return errors.New("identity: empty identity")
	}
	if payload == "" {
		return errors.New("identity: empty payload")
	}
	s.state.Clear()
	s.state.Set(sessionKeyIdentity, identity)
	s.state.Set(sessionKeyToken, payload)
	if err := s.state.Save(); err != nil {
		return fmt.Errorf("identity: save session: %w", err)
	}
	return nil
}

// Identity は保存されている識別名を返します。
// トークンが読めない場合は未ログインとして扱います。
func (s *Store) Identity() (string, bool) {
	name, ok := s.state.Get(sessionKeyIdentity).(string)
	if !ok || name == "" {
		return "", false
	}
	if _, ok := s.Recall(); !ok {
		return "", false
	}
	return name, true
}

// Recall は保存されているトークンをデコードして返します。
func (s *Store) Recall() (token.Token, bool) {
	payload, ok := s.state.Get(sessionKeyToken).(string)
	if !ok || payload == "" {
		return token.Token{}, false
	}
	t, err := token.Decode(payload)
	if err != nil {
		return token.Token{}, false
	}
	return t, true
}

// Forget は認証状態を消去し、クッキーを失効させます。何も無い場合も安全に呼べます。
func (s *Store) Forget() error {
	s.state.Clear()
	s.state.Options(sessions.Options{
		Path:   "/",
		MaxAge: -1,
	})
	if err := s.state.Save(); err != nil {
		return fmt.Errorf("identity: clear session: %w", err)
	}
	return nil
}
