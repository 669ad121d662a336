package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// TopicChannel is the pub/sub channel carrying change notifications for a topic.
func TopicChannel(topic string) string {
	return fmt.Sprintf("changes:%s", topic)
}

func SessionMessagesTopic(sessionID string) string {
	return fmt.Sprintf("session:%s:msgs", sessionID)
}

func SessionFilesTopic(sessionID string) string {
	return fmt.Sprintf("session:%s:files", sessionID)
}

func UserSessionsTopic(userID string) string {
	return fmt.Sprintf("user:%s:sessions", userID)
}

const ProfilesTopic = "profiles"

// RevokedTokenKey holds a revoked access token id until the token expires.
func RevokedTokenKey(tokenID string) string {
	return fmt.Sprintf("revoked:%s", tokenID)
}
