package redis

import (
	"context"
	"time"
)

// TokenDenyList remembers revoked access token ids until they would have expired.
type TokenDenyList struct {
	client *Client
}

func NewTokenDenyList(client *Client) *TokenDenyList {
	return &TokenDenyList{client: client}
}

func (d *TokenDenyList) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, RevokedTokenKey(tokenID), "1", ttl).Err()
}

func (d *TokenDenyList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, RevokedTokenKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
