package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "todo:"

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func userKey(id string) string         { return keyPrefix + "user:" + id }
func userEmailKey(email string) string { return keyPrefix + "user:email:" + email }
func taskKey(id string) string         { return keyPrefix + "task:" + id }
func userTasksKey(userID string) string {
	return keyPrefix + "user:" + userID + ":tasks"
}
