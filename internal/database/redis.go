package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClients keeps the blocking queue traffic and the pub/sub subscriptions
// on separate connections.
type RedisClients struct {
	Queue  *redis.Client
	PubSub *redis.Client
}

func NewRedisClients(redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	queueClient, err := dialRedis(ctx, opt, "queue")
	if err != nil {
		return nil, err
	}

	pubsubOpt := *opt
	pubsubClient, err := dialRedis(ctx, &pubsubOpt, "pubsub")
	if err != nil {
		queueClient.Close()
		return nil, err
	}

	return &RedisClients{
		Queue:  queueClient,
		PubSub: pubsubClient,
	}, nil
}

func dialRedis(ctx context.Context, opt *redis.Options, role string) (*redis.Client, error) {
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis (%s): %w", role, err)
	}
	return client, nil
}

func (r *RedisClients) Close() {
	r.Queue.Close()
	r.PubSub.Close()
}
