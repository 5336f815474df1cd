package identity

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/hkdf"
)

const (
	hashKeyInfo  = "authgate session signing key"
	blockKeyInfo = "authgate session encryption key"
)

// CookieOptions はセッションクッキーの属性を返します。
func CookieOptions(maxAge int, secure bool) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// DeriveKeys は秘密値から署名鍵（64バイト）と暗号化鍵（AES-256用32バイト）を導出します。
func DeriveKeys(secret string) (hashKey, blockKey []byte, err error) {
	if secret == "" {
		return nil, nil, errors.New("identity: session secret is empty")
	}
	hashKey = make([]byte, 64)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hashKeyInfo)), hashKey); err != nil {
		return nil, nil, fmt.Errorf("identity: derive signing key: %w", err)
	}
	blockKey = make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(blockKeyInfo)), blockKey); err != nil {
		return nil, nil, fmt.Errorf("identity: derive encryption key: %w", err)
	}
	return hashKey, blockKey, nil
}

// NewCookieStore は署名・暗号化されたクッキーストアを作成します。
func NewCookieStore(secret string, opts sessions.Options) (sessions.Store, error) {
	hashKey, blockKey, err := DeriveKeys(secret)
	if err != nil {
		return nil, err
	}
	store := cookie.NewStore(hashKey, blockKey)
	store.Options(opts)
	return store, nil
}

// Middleware はセッションを各リクエストに結び付けるミドルウェアを返します。
func Middleware(store sessions.Store) gin.HandlerFunc {
	return sessions.Sessions(CookieName, store)
}
