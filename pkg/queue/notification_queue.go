// Package queue dispatches swap notifications through a Redis stream so
// that delivery survives API restarts and can be retried.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"bookswap/internal/util"
)

// Delivery is one notification waiting to be persisted for a user.
type Delivery struct {
	UserID  string
	Message string
	Attempt int
}

// RedisNotificationQueue publishes notifications to a Redis stream and runs
// consumer-group workers that hand them to a delivery function.
type RedisNotificationQueue struct {
	client       *redis.Client
	stream       string
	group        string
	consumerBase string
	maxRetries   int
	block        time.Duration
	claimIdle    time.Duration
	retryDelay   time.Duration
	maxLen       int64
	readCount    int64
	once         sync.Once
}

// NotificationQueueConfig configures the stream and its consumers.
// Zero values fall back to sane defaults.
type NotificationQueueConfig struct {
	Client     *redis.Client
	Stream     string
	Group      string
	Consumer   string
	MaxRetries int
	Block      time.Duration
	ClaimIdle  time.Duration
	RetryDelay time.Duration
	MaxLen     int64
	ReadCount  int64
}

// NewRedisNotificationQueue validates config and builds the queue.
func NewRedisNotificationQueue(cfg NotificationQueueConfig) (*RedisNotificationQueue, error) {
	if cfg.Client == nil {
		return nil, errors.New("redis client required")
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		stream = "bookswap:notifications"
	}
	group := strings.TrimSpace(cfg.Group)
	if group == "" {
		group = "notifiers"
	}
	consumer := strings.TrimSpace(cfg.Consumer)
	if consumer == "" {
		consumer = util.NewID()
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	block := cfg.Block
	if block <= 0 {
		block = 5 * time.Second
	}
	claimIdle := cfg.ClaimIdle
	if claimIdle <= 0 {
		claimIdle = 30 * time.Second
	}
	retryDelay := cfg.RetryDelay
	if retryDelay < 0 {
		retryDelay = 0
	}
	maxLen := cfg.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	readCount := cfg.ReadCount
	if readCount <= 0 {
		readCount = 10
	}
	return &RedisNotificationQueue{
		client:       cfg.Client,
		stream:       stream,
		group:        group,
		consumerBase: consumer,
		maxRetries:   maxRetries,
		block:        block,
		claimIdle:    claimIdle,
		retryDelay:   retryDelay,
		maxLen:       maxLen,
		readCount:    readCount,
	}, nil
}

// Notify enqueues a notification for the user.
func (q *RedisNotificationQueue) Notify(ctx context.Context, userID, message string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("user id required")
	}
	if strings.TrimSpace(message) == "" {
		return errors.New("message required")
	}
	return q.add(ctx, Delivery{UserID: userID, Message: message})
}

func (q *RedisNotificationQueue) add(ctx context.Context, d Delivery) error {
	return q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: q.maxLen,
		Approx: true,
		Values: map[string]any{
			"user_id": d.UserID,
			"message": d.Message,
			"attempt": strconv.Itoa(d.Attempt),
		},
	}).Err()
}

// Start launches consumer goroutines that pass deliveries to deliver.
// A failing delivery is requeued with an incremented attempt counter and
// dropped once it exceeds the retry budget. Consumers stop when ctx ends.
func (q *RedisNotificationQueue) Start(ctx context.Context, concurrency int, deliver func(context.Context, Delivery) error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	q.ensureGroup(ctx)
	for i := 0; i < concurrency; i++ {
		consumer := q.consumerBase + "-" + strconv.Itoa(i)
		go q.consumeLoop(ctx, consumer, deliver)
	}
}

func (q *RedisNotificationQueue) ensureGroup(ctx context.Context) {
	q.once.Do(func() {
		err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "$").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			slog.Warn("notification group create failed", "stream", q.stream, "error", err)
		}
	})
}

func (q *RedisNotificationQueue) consumeLoop(ctx context.Context, consumer string, deliver func(context.Context, Delivery) error) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if msgs, err := q.claimStale(ctx, consumer); err == nil {
			for _, msg := range msgs {
				q.handleMessage(ctx, msg, deliver)
			}
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: consumer,
			Streams:  []string{q.stream, ">"},
			Count:    q.readCount,
			Block:    q.block,
		}).Result()
		if err != nil {
			continue
		}
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				q.handleMessage(ctx, msg, deliver)
			}
		}
	}
}

func (q *RedisNotificationQueue) claimStale(ctx context.Context, consumer string) ([]redis.XMessage, error) {
	res, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: consumer,
		MinIdle:  q.claimIdle,
		Start:    "0-0",
		Count:    q.readCount,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (q *RedisNotificationQueue) handleMessage(ctx context.Context, msg redis.XMessage, deliver func(context.Context, Delivery) error) {
	d := decodeDelivery(msg)
	if d.UserID == "" || d.Message == "" {
		q.ackAndDel(ctx, msg.ID)
		return
	}
	if err := deliver(ctx, d); err == nil {
		q.ackAndDel(ctx, msg.ID)
		return
	} else if d.Attempt+1 >= q.maxRetries {
		slog.Error("notification dropped after retries",
			"user", d.UserID, "attempts", d.Attempt+1, "error", err)
		q.ackAndDel(ctx, msg.ID)
		return
	}
	if q.retryDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(q.retryDelay):
		}
	}
	_ = q.requeueAndAck(ctx, msg.ID, Delivery{UserID: d.UserID, Message: d.Message, Attempt: d.Attempt + 1})
}

func (q *RedisNotificationQueue) ackAndDel(ctx context.Context, msgID string) {
	_, _ = q.client.XAck(ctx, q.stream, q.group, msgID).Result()
	_, _ = q.client.XDel(ctx, q.stream, msgID).Result()
}

func (q *RedisNotificationQueue) requeueAndAck(ctx context.Context, msgID string, d Delivery) error {
	pipe := q.client.TxPipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: q.maxLen,
		Approx: true,
		Values: map[string]any{
			"user_id": d.UserID,
			"message": d.Message,
			"attempt": strconv.Itoa(d.Attempt),
		},
	})
	pipe.XAck(ctx, q.stream, q.group, msgID)
	pipe.XDel(ctx, q.stream, msgID)
	_, err := pipe.Exec(ctx)
	return err
}

func decodeDelivery(msg redis.XMessage) Delivery {
	d := Delivery{}
	d.UserID, _ = msg.Values["user_id"].(string)
	d.Message, _ = msg.Values["message"].(string)
	if raw, ok := msg.Values["attempt"].(string); ok {
		if n, err := strconv.Atoi(raw); err == nil {
			d.Attempt = n
		}
	}
	return d
}
