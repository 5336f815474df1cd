package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	eventKeyPrefix    = "audit:"
	identityKeyPrefix = "audit:identity:"

	// recentLimit は識別名ごとに保持する最新イベントIDの件数です。
	recentLimit = 50
)

// Store は監査イベントを Redis に保存します。
type Store struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewStore は Store を作成します。
func NewStore(rdb redis.Cmdable, ttl time.Duration) *Store {
	return &Store{
		rdb: rdb,
		ttl: ttl,
	}
}

// Get はイベントを取得します。存在しない場合は nil を返します。
func (s *Store) Get(ctx context.Context, id string) (*Event, error) {
	if id == "" {
		return nil, fmt.Errorf("event id is required")
	}
	data, err := s.rdb.Get(ctx, eventKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// Save はイベントを保存し、識別名ごとの最新一覧に追加します。
func (s *Store) Save(ctx context.Context, event *Event) error {
	if event == nil {
		return fmt.Errorf("event is nil")
	}
	if event.ID == "" {
		return fmt.Errorf("event id is required")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, eventKey(event.ID), payload, s.ttl)
	if event.Identifier != "" {
		key := identityKey(event.Identifier)
		pipe.LPush(ctx, key, event.ID)
		pipe.LTrim(ctx, key, 0, recentLimit-1)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Recent は識別名に関する最新のイベントを新しい順に返します。期限切れのものは除かれます。
func (s *Store) Recent(ctx context.Context, identifier string, limit int) ([]Event, error) {
	if identifier == "" {
		return nil, fmt.Errorf("identifier is required")
	}
	if limit <= 0 || limit > recentLimit {
		limit = recentLimit
	}
	ids, err := s.rdb.LRange(ctx, identityKey(identifier), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(ids))
	for _, id := range ids {
		event, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if event != nil {
			events = append(events, *event)
		}
	}
	return events, nil
}

func eventKey(id string) string {
	return eventKeyPrefix + id
}

func identityKey(identifier string) string {
	return identityKeyPrefix + identifier
}
