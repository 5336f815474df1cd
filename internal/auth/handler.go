// Package auth はログイン/ログアウトのHTTPハンドラーを提供します。
//
// 資格情報の検証はバックエンドに委譲し、成功した場合のみバックエンドが発行した
// セッションIDとユーザーIDをクライアントのセッションクッキーに保存します。
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/authgate/internal/audit"
	"github.com/yourusername/authgate/internal/backend"
	"github.com/yourusername/authgate/internal/identity"
	"github.com/yourusername/authgate/internal/metrics"
	"github.com/yourusername/authgate/internal/token"
)

// Backend は資格情報を検証してセッションを発行するバックエンドです。*backend.Pool が実装します。
type Backend interface {
	Login(ctx context.Context, nameOrEmail, password, address string) (*backend.Session, error)
}

// IdentityStore はクライアントの認証状態を保持します。*identity.Store が実装します。
type IdentityStore interface {
	Remember(identity, payload string) error
	Identity() (string, bool)
	Forget() error
}

// Auditor は監査イベントを受け取ります。*audit.Manager が実装します。
type Auditor interface {
	Enqueue(ctx context.Context, event audit.Event) (string, error)
}

// Options は Handler の任意の依存です。
type Options struct {
	Auditor Auditor
	Metrics *metrics.AuthMetrics
	Logger  *slog.Logger
}

// Handler はログイン/ログアウト処理をまとめた構造体です。
type Handler struct {
	backend     Backend
	auditor     Auditor
	metrics     *metrics.AuthMetrics
	logger      *slog.Logger
	identityFor func(c *gin.Context) IdentityStore
}

// NewHandler は Handler を作成します。
func NewHandler(b Backend, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		backend: b,
		auditor: opts.Auditor,
		metrics: opts.Metrics,
		logger:  logger.With("component", "auth"),
		identityFor: func(c *gin.Context) IdentityStore {
			return identity.FromContext(c)
		},
	}
}

// LoginRequest はログインAPIのリクエストボディです。
// 空文字の検証はバックエンドの責務なので、ここではフィールドの有無だけを確認します。
type LoginRequest struct {
	UsernameOrEmail *string `json:"username-or-email" binding:"required"`
	Password        *string `json:"password" binding:"required"`
}

// LogValue はパスワードをログに出さないための slog.LogValuer 実装です。
func (r LoginRequest) LogValue() slog.Value {
	name := ""
	if r.UsernameOrEmail != nil {
		name = *r.UsernameOrEmail
	}
	return slog.GroupValue(
		slog.String("username_or_email", name),
		slog.String("password", "[REDACTED]"),
	)
}

// LoginOutput はログイン成功時のレスポンスです。
type LoginOutput struct {
	LoggedIn int64 `json:"logged-in"`
	Success  bool  `json:"success"`
}

// LogoutOutput はログアウト成功時のレスポンスです。
type LogoutOutput struct {
	LoggedOut string `json:"logged-out"`
	Success   bool   `json:"success"`
}

// Login は POST /api/v0/auth/login のハンドラーです。
func (h *Handler) Login(c *gin.Context) {
	h.logger.InfoContext(c.Request.Context(), "API v0 /auth/login")

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.DebugContext(c.Request.Context(), "rejecting malformed login request", "error", err)
		h.metrics.IncLogin("invalid_request")
		c.JSON(http.StatusBadRequest, failure(errInvalidRequest))
		return
	}

	status, body := h.login(c.Request.Context(), req, c.ClientIP(), h.identityFor(c))
	c.JSON(status, body)
}

// Logout は POST /api/v0/auth/logout のハンドラーです。
func (h *Handler) Logout(c *gin.Context) {
	h.logger.InfoContext(c.Request.Context(), "API v0 /auth/logout")

	status, body := h.logout(c.Request.Context(), h.identityFor(c), c.ClientIP())
	c.JSON(status, body)
}

func (h *Handler) login(ctx context.Context, req LoginRequest, address string, store IdentityStore) (int, any) {
	name, password := *req.UsernameOrEmail, *req.Password
	h.logger.DebugContext(ctx, "trying to log in", "request", req)

	event := audit.NewEvent(audit.KindLogin, audit.OutcomeSuccess)
	event.Identifier = name
	event.Address = address

	started := time.Now()
	session, err := h.backend.Login(ctx, name, password, address)
	if err == nil && session == nil {
		err = &backend.TransportError{Op: "decode", Err: errors.New("empty session")}
	}
	if err != nil {
		var apiErr *backend.Error
		if errors.As(err, &apiErr) {
			h.logger.DebugContext(ctx, "failed login attempt", "backend_error", apiErr.Name)
			h.metrics.ObserveBackend(string(audit.OutcomeRejected), time.Since(started))
			h.finishLogin(ctx, event, audit.OutcomeRejected, apiErr.Name)
			return http.StatusUnauthorized, failure(fromBackendError(apiErr))
		}

		h.logger.WarnContext(ctx, "backend login call failed", "error", err)
		h.metrics.ObserveBackend(string(audit.OutcomeBackendUnavailable), time.Since(started))
		h.finishLogin(ctx, event, audit.OutcomeBackendUnavailable, "")
		return http.StatusBadGateway, failure(errBackendUnavailable)
	}
	h.metrics.ObserveBackend(string(audit.OutcomeSuccess), time.Since(started))
	h.logger.DebugContext(ctx, "login succeeded, beginning session", "user_id", session.UserID)

	payload, err := token.Encode(token.Token{
		SessionID: session.SessionID,
		UserID:    session.UserID,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode session token", "user_id", session.UserID, "error", err)
		event.UserID = session.UserID
		h.finishLogin(ctx, event, audit.OutcomeSessionError, "encode")
		return http.StatusInternalServerError, failure(errSessionEncode)
	}

	if err := store.Remember(name, payload); err != nil {
		h.logger.ErrorContext(ctx, "failed to save session", "user_id", session.UserID, "error", err)
		event.UserID = session.UserID
		h.finishLogin(ctx, event, audit.OutcomeSessionError, "save")
		return http.StatusInternalServerError, failure(errSessionSave)
	}

	event.UserID = session.UserID
	h.finishLogin(ctx, event, audit.OutcomeSuccess, "")
	return http.StatusOK, success(LoginOutput{
		LoggedIn: session.UserID,
		Success:  true,
	})
}

func (h *Handler) logout(ctx context.Context, store IdentityStore, address string) (int, any) {
	event := audit.NewEvent(audit.KindLogout, audit.OutcomeSuccess)
	event.Address = address

	name, ok := store.Identity()
	if !ok {
		h.logger.DebugContext(ctx, "cannot logout, no session cookie")
		h.metrics.IncLogout(string(audit.OutcomeNotLoggedIn))
		event.Outcome = audit.OutcomeNotLoggedIn
		h.record(ctx, event)
		return http.StatusUnauthorized, failure(errNotLoggedIn)
	}

	h.logger.DebugContext(ctx, "logging out user", "identity", name)
	event.Identifier = name

	// バックエンド側のセッションは失効させない。ローカルのトークンだけを破棄する。
	if err := store.Forget(); err != nil {
		h.logger.ErrorContext(ctx, "failed to clear session", "error", err)
		h.metrics.IncLogout(string(audit.OutcomeSessionError))
		event.Outcome = audit.OutcomeSessionError
		h.record(ctx, event)
		return http.StatusInternalServerError, failure(errSessionSave)
	}

	h.metrics.IncLogout(string(audit.OutcomeSuccess))
	h.record(ctx, event)
	return http.StatusOK, success(LogoutOutput{
		LoggedOut: name,
		Success:   true,
	})
}

func (h *Handler) finishLogin(ctx context.Context, event audit.Event, outcome audit.Outcome, reason string) {
	event.Outcome = outcome
	event.Reason = reason
	h.metrics.IncLogin(string(outcome))
	h.record(ctx, event)
}

func (h *Handler) record(ctx context.Context, event audit.Event) {
	if h.auditor == nil {
		return
	}
	if _, err := h.auditor.Enqueue(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "failed to enqueue audit event", "event_id", event.ID, "error", err)
	}
}
