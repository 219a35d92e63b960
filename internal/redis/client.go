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

// SignalChannel names the pub/sub channel two screen-share peers rendezvous
// on for a session code.
func SignalChannel(code string) string {
	return fmt.Sprintf("signal:%s", code)
}

// CamSignalChannel names the channel for the phone-camera flow of a code.
func CamSignalChannel(code string) string {
	return fmt.Sprintf("signalcam:%s", code)
}
