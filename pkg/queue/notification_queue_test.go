package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestNotifyValidatesInput(t *testing.T) {
	q, ctx, _ := newNotificationQueue(t)
	if err := q.Notify(ctx, "", "hello"); err == nil {
		t.Fatal("expected error for empty user id")
	}
	if err := q.Notify(ctx, "u1", "  "); err == nil {
		t.Fatal("expected error for empty message")
	}
}

func TestNotifyEnqueuesDelivery(t *testing.T) {
	q, ctx, _ := newNotificationQueue(t)

	if err := q.Notify(ctx, "u1", "Your swap with Bob is confirmed! Contact: bob@example.com"); err != nil {
		t.Fatalf("notify: %v", err)
	}

	msg := readOne(t, q, ctx, "consumer-1")
	d := decodeDelivery(msg)
	if d.UserID != "u1" {
		t.Errorf("user = %s, want u1", d.UserID)
	}
	if d.Attempt != 0 {
		t.Errorf("attempt = %d, want 0", d.Attempt)
	}
}

func TestRequeueAndAckIncrementsAttempt(t *testing.T) {
	q, ctx, _ := newNotificationQueue(t)

	if err := q.Notify(ctx, "u1", "hello"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	msg := readOne(t, q, ctx, "consumer-1")

	d := decodeDelivery(msg)
	if err := q.requeueAndAck(ctx, msg.ID, Delivery{UserID: d.UserID, Message: d.Message, Attempt: d.Attempt + 1}); err != nil {
		t.Fatalf("requeue and ack: %v", err)
	}

	pending, err := q.client.XPending(ctx, q.stream, q.group).Result()
	if err != nil {
		t.Fatalf("xpending: %v", err)
	}
	if pending.Count != 0 {
		t.Fatalf("expected no pending messages, got %d", pending.Count)
	}

	requeued := readOne(t, q, ctx, "consumer-2")
	got := decodeDelivery(requeued)
	if got.Attempt != 1 {
		t.Errorf("attempt = %d, want 1", got.Attempt)
	}
	if got.Message != "hello" {
		t.Errorf("message = %q", got.Message)
	}
}

func TestRequeueAndAckFailureKeepsPendingMessage(t *testing.T) {
	q, ctx, _ := newNotificationQueue(t)

	if err := q.Notify(ctx, "u1", "hello"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	msg := readOne(t, q, ctx, "consumer-1")

	canceledCtx, cancel := context.WithCancel(ctx)
	cancel()
	if err := q.requeueAndAck(canceledCtx, msg.ID, Delivery{UserID: "u1", Message: "hello", Attempt: 1}); err == nil {
		t.Fatal("expected requeueAndAck to fail on canceled context")
	}

	pending, err := q.client.XPending(ctx, q.stream, q.group).Result()
	if err != nil {
		t.Fatalf("xpending: %v", err)
	}
	if pending.Count != 1 {
		t.Fatalf("expected original message to remain pending, got %d", pending.Count)
	}
}

func TestHandleMessageDeliversAndAcks(t *testing.T) {
	q, ctx, _ := newNotificationQueue(t)

	if err := q.Notify(ctx, "u1", "hello"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	msg := readOne(t, q, ctx, "consumer-1")

	var delivered []Delivery
	q.handleMessage(ctx, msg, func(_ context.Context, d Delivery) error {
		delivered = append(delivered, d)
		return nil
	})

	if len(delivered) != 1 || delivered[0].UserID != "u1" {
		t.Fatalf("delivered = %+v", delivered)
	}
	pending, err := q.client.XPending(ctx, q.stream, q.group).Result()
	if err != nil {
		t.Fatalf("xpending: %v", err)
	}
	if pending.Count != 0 {
		t.Fatalf("expected message acked, got %d pending", pending.Count)
	}
}

func newNotificationQueue(t *testing.T) (*RedisNotificationQueue, context.Context, *miniredis.Miniredis) {
	t.Helper()

	redisSrv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: redisSrv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	q, err := NewRedisNotificationQueue(NotificationQueueConfig{
		Client:     client,
		Stream:     "test:notifications",
		Group:      "test-group",
		Consumer:   "consumer",
		RetryDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	ctx := context.Background()
	q.ensureGroup(ctx)
	return q, ctx, redisSrv
}

func readOne(t *testing.T, q *RedisNotificationQueue, ctx context.Context, consumer string) redis.XMessage {
	t.Helper()
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: consumer,
		Streams:  []string{q.stream, ">"},
		Count:    1,
		Block:    0,
	}).Result()
	if err != nil {
		t.Fatalf("readgroup: %v", err)
	}
	if len(streams) != 1 || len(streams[0].Messages) != 1 {
		t.Fatalf("expected one message, got %+v", streams)
	}
	return streams[0].Messages[0]
}
