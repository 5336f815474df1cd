package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	taskTypeAudit = "auth:audit"
	queueAudit    = "audit"
)

// Manager は監査イベントの投入と保存ワーカーを管理します。
type Manager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	store  *Store
	logger *slog.Logger
}

// NewManager は Manager を初期化します。
func NewManager(redisURL string, store *Store, logger *slog.Logger) (*Manager, error) {
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				queueAudit: 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	manager := &Manager{
		client: client,
		server: server,
		mux:    mux,
		store:  store,
		logger: logger.With("component", "audit"),
	}
	mux.HandleFunc(taskTypeAudit, manager.handleAuditTask)
	return manager, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			m.logger.Error("asynq server stopped with error", "error", err)
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown() error {
	m.server.Shutdown()
	return m.client.Close()
}

// Enqueue はイベントをキューに投入し、タスクIDを返します。
func (m *Manager) Enqueue(ctx context.Context, event Event) (string, error) {
	if event.ID == "" {
		return "", fmt.Errorf("event.ID is required")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return "", err
	}

	task := asynq.NewTask(taskTypeAudit, body, asynq.Queue(queueAudit))
	info, err := m.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

func (m *Manager) handleAuditTask(ctx context.Context, task *asynq.Task) error {
	var event Event
	if err := json.Unmarshal(task.Payload(), &event); err != nil {
		// 壊れたペイロードは再試行しても直らない
		return fmt.Errorf("decode audit event: %v: %w", err, asynq.SkipRetry)
	}
	if event.ID == "" {
		return fmt.Errorf("missing id in audit event: %w", asynq.SkipRetry)
	}

	if err := m.store.Save(ctx, &event); err != nil {
		m.logger.WarnContext(ctx, "failed to save audit event", "event_id", event.ID, "error", err)
		return err
	}
	return nil
}
