package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"podclip-backend/internal/models"
)

const ProcessVideoQueue = "queue:process-video"

// releaseScript deletes the lock only while it still carries our token, so a
// worker whose lock expired cannot free a lock another worker now holds.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisQueue struct {
	redis *redis.Client
	name  string
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{redis: client, name: ProcessVideoQueue}
}

// Enqueue appends a job ID to the tail of the queue.
func (q *RedisQueue) Enqueue(ctx context.Context, jobID uuid.UUID) error {
	if err := q.redis.RPush(ctx, q.name, jobID.String()).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", jobID, err)
	}
	return nil
}

// EnqueueAfter pushes the job once d has elapsed. A job lost to a restart in
// the meantime is picked up again by boot recovery.
func (q *RedisQueue) EnqueueAfter(jobID uuid.UUID, d time.Duration) {
	time.AfterFunc(d, func() {
		if err := q.Enqueue(context.Background(), jobID); err != nil {
			log.Printf("Delayed enqueue of job %s failed: %v", jobID, err)
		}
	})
}

// Dequeue blocks up to timeout for the next job ID. ok is false on timeout.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (uuid.UUID, bool, error) {
	result, err := q.redis.BLPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to pop from %s: %w", q.name, err)
	}
	if len(result) < 2 {
		return uuid.Nil, false, nil
	}

	jobID, err := uuid.Parse(result[1])
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("malformed job id %q in %s: %w", result[1], q.name, err)
	}
	return jobID, true, nil
}

// Len reports how many job IDs are waiting.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.redis.LLen(ctx, q.name).Result()
}

// AcquireUserLock takes the per-user processing lock. The returned token
// must be handed back to ReleaseUserLock.
func (q *RedisQueue) AcquireUserLock(ctx context.Context, userID uuid.UUID, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	locked, err := q.redis.SetNX(ctx, UserLockKey(userID), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lock for user %s: %w", userID, err)
	}
	if !locked {
		return "", false, nil
	}
	return token, true, nil
}

func (q *RedisQueue) ReleaseUserLock(ctx context.Context, userID uuid.UUID, token string) error {
	if err := releaseScript.Run(ctx, q.redis, []string{UserLockKey(userID)}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release lock for user %s: %w", userID, err)
	}
	return nil
}

// Publish pushes a message to the user's update channel. Delivery is best
// effort; failures are logged and dropped.
func (q *RedisQueue) Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal update for user %s: %v", userID, err)
		return
	}
	if err := q.redis.Publish(ctx, UpdatesChannel(userID), data).Err(); err != nil {
		log.Printf("Failed to publish update for user %s: %v", userID, err)
	}
}

func UserLockKey(userID uuid.UUID) string {
	return "user_lock:" + userID.String()
}

// UpdatesChannel is the pub/sub channel the websocket hub subscribes to.
func UpdatesChannel(userID uuid.UUID) string {
	return "user_updates:" + userID.String()
}
