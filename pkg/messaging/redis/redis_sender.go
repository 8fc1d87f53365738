// Package redis delivers execution reports over Redis pub/sub.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/quantbed/tickbook/pkg/messaging"
)

// Options represents configuration options for the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

var defaultOptions = &Options{
	Addr:    "localhost:6379",
	Channel: "tickbook.reports",
}

// SetDefaultOptions sets the default options for Redis connections
func SetDefaultOptions(options *Options) {
	defaultOptions = options
}

// NewClient creates a Redis client using the default options
func NewClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     defaultOptions.Addr,
		Password: defaultOptions.Password,
		DB:       defaultOptions.DB,
	})
}

// ReportSender implements messaging.ReportSender by publishing each
// report as JSON on a pub/sub channel. Pub/sub is fire-and-forget: a
// report published with no subscriber listening is gone, which is fine
// for a live feed and wrong for anything needing durability.
type ReportSender struct {
	client  *redis.Client
	channel string
}

// NewReportSender creates a Redis report sender on the default channel.
func NewReportSender(client *redis.Client) *ReportSender {
	return NewReportSenderOnChannel(client, defaultOptions.Channel)
}

// NewReportSenderOnChannel creates a Redis report sender on an explicit
// channel.
func NewReportSenderOnChannel(client *redis.Client, channel string) *ReportSender {
	return &ReportSender{client: client, channel: channel}
}

// SendReport publishes one report message.
func (s *ReportSender) SendReport(ctx context.Context, msg *messaging.ReportMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal report message: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish report to Redis: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *ReportSender) Close() error {
	return s.client.Close()
}

// Ensure ReportSender implements messaging.ReportSender
var _ messaging.ReportSender = (*ReportSender)(nil)

// Subscribe opens a subscription on the report channel and returns a
// receive function plus a closer. Intended for tools and tests; a
// production consumer should prefer the Kafka feed.
func Subscribe(ctx context.Context, client *redis.Client, channel string) (func() (*messaging.ReportMessage, error), func() error) {
	sub := client.Subscribe(ctx, channel)
	recv := func() (*messaging.ReportMessage, error) {
		m, err := sub.ReceiveMessage(ctx)
		if err != nil {
			return nil, err
		}
		var msg messaging.ReportMessage
		if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
			return nil, fmt.Errorf("decode report message: %w", err)
		}
		return &msg, nil
	}
	return recv, sub.Close
}
