package main

import (
	"fmt"
	"log/slog"

	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/authgate/internal/audit"
	"github.com/yourusername/authgate/internal/config"
)

// setupAudit は監査イベントのキューと保存先を構成します。
// AUDIT_REDIS_URL が空の場合は nil を返します。
func setupAudit(cfg *config.Config, logger *slog.Logger) (*audit.Manager, error) {
	if cfg.AuditRedisURL == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.AuditRedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse AUDIT_REDIS_URL: %w", err)
	}

	redisClient := redis.NewClient(opt)
	store := audit.NewStore(redisClient, cfg.AuditRetention())
	manager, err := audit.NewManager(cfg.AuditRedisURL, store, logger)
	if err != nil {
		_ = redisClient.Close()
		return nil, err
	}
	return manager, nil
}
