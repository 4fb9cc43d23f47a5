package redis

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"gameshow-quiz-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	statusKey      = "quiz:live:status"
	leaderboardKey = "quiz:live:leaderboard"
)

// SnapshotPublisher mirrors engine snapshots into TTL'd Redis keys so
// external dashboards can read live status and standings. Publishing is
// best-effort: errors are logged and never surface to game operations.
type SnapshotPublisher struct {
	client  *redis.Client
	ttl     time.Duration
	timeout time.Duration
}

func NewSnapshotPublisher(client *redis.Client, ttl time.Duration) *SnapshotPublisher {
	return &SnapshotPublisher{
		client:  client,
		ttl:     ttl,
		timeout: 2 * time.Second,
	}
}

// PublishSnapshot implements engine.Notifier.
func (p *SnapshotPublisher) PublishSnapshot(snap domain.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	status, err := json.Marshal(snap.Status)
	if err != nil {
		log.Printf("snapshot publish: marshal status: %v", err)
		return
	}
	board, err := json.Marshal(snap.Leaderboard)
	if err != nil {
		log.Printf("snapshot publish: marshal leaderboard: %v", err)
		return
	}

	pipe := p.client.Pipeline()
	pipe.Set(ctx, statusKey, status, p.ttl)
	pipe.Set(ctx, leaderboardKey, board, p.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("snapshot publish: %v", err)
	}
}
