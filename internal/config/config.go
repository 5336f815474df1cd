// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// minSessionSecretLength は SESSION_SECRET に要求する最小文字数です。
const minSessionSecretLength = 32

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// ログ設定
	LogLevel  string // debug, info, warn, error
	LogFormat string // text, json

	// セッション設定
	SessionSecret          string // クッキー署名・暗号化鍵の元になる秘密値
	SessionSecretEphemeral bool   // 起動時に生成した一時的な秘密値かどうか
	SessionMaxAgeSeconds   int    // セッションクッキーの有効期間（秒）

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// 認証バックエンド設定
	BackendURL            string // 認証バックエンドのベースURL
	BackendMaxConns       int    // バックエンドへの同時接続数の上限
	BackendTimeoutSeconds int    // バックエンド呼び出しのタイムアウト（秒）

	// 監査ログ設定
	AuditRedisURL       string // 監査イベント用Redis接続URL（空なら無効）
	AuditRetentionHours int    // 監査レコードの保持時間
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	config := &Config{
		// サーバー設定
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		// ログ設定
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		// セッション設定
		SessionSecret:        getEnv("SESSION_SECRET", ""),
		SessionMaxAgeSeconds: getEnvAsInt("SESSION_MAX_AGE_SECONDS", 7*24*60*60),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		// 認証バックエンド設定
		BackendURL:            getEnv("BACKEND_URL", "http://127.0.0.1:2747"),
		BackendMaxConns:       getEnvAsInt("BACKEND_MAX_CONNS", 16),
		BackendTimeoutSeconds: getEnvAsInt("BACKEND_TIMEOUT_SECONDS", 10),

		// 監査ログ設定
		AuditRedisURL:       getEnv("AUDIT_REDIS_URL", ""),
		AuditRetentionHours: getEnvAsInt("AUDIT_RETENTION_HOURS", 24*30),
	}

	// ローカル開発では秘密値が無ければ起動ごとに生成する
	if config.SessionSecret == "" && config.GinMode != "release" {
		secret, err := randomSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		config.SessionSecret = secret
		config.SessionSecretEphemeral = true
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if len(c.SessionSecret) < minSessionSecretLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters", minSessionSecretLength)
	}
	if strings.TrimSpace(c.BackendURL) == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	if c.BackendMaxConns <= 0 {
		return fmt.Errorf("BACKEND_MAX_CONNS must be positive")
	}
	if c.BackendTimeoutSeconds <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT_SECONDS must be positive")
	}
	if c.SessionMaxAgeSeconds <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE_SECONDS must be positive")
	}

	// 本番環境では厳格にチェックする
	if c.GinMode == "release" {
		if c.CORSAllowedOrigins == "" {
			return fmt.Errorf("CORS_ALLOWED_ORIGINS is required in release mode")
		}
	}

	return nil
}

// BackendTimeout はバックエンド呼び出しのタイムアウトを返します。
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.BackendTimeoutSeconds) * time.Second
}

// AuditRetention は監査レコードの保持期間を返します。
func (c *Config) AuditRetention() time.Duration {
	if c.AuditRetentionHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.AuditRetentionHours) * time.Hour
}

// AllowedOrigins は CORS 許可オリジンを配列で返します。
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
