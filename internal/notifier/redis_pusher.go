package notifier

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisPusher 用 redis 的发布订阅实现推送通道，
// websocket 网关按用户订阅同一个频道做扇出
type RedisPusher struct {
	client *redis.Client
}

func NewRedisPusher(client *redis.Client) *RedisPusher {
	return &RedisPusher{client: client}
}

func (p *RedisPusher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}
