package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestQueue(t *testing.T) (*RedisQueue, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisQueue(client), client
}

func TestQueueReserveAck(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	if err := q.Enqueue(ctx, PendingActivityKey, `{"event":"login.success"}`); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	got, err := q.Reserve(ctx, PendingActivityKey, ProcessingActivityKey, DefaultVisibilityTimeout)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if got != `{"event":"login.success"}` {
		t.Fatalf("reserved %q", got)
	}

	// While reserved the event sits in processing, not pending.
	if _, err := q.Reserve(ctx, PendingActivityKey, ProcessingActivityKey, DefaultVisibilityTimeout); !errors.Is(err, redis.Nil) {
		t.Fatalf("second reserve err = %v, want redis.Nil", err)
	}

	if err := q.Ack(ctx, ProcessingActivityKey, got); err != nil {
		t.Fatalf("ack: %v", err)
	}

	moved, err := q.RequeueExpired(ctx, ProcessingActivityKey, PendingActivityKey, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("requeue expired: %v", err)
	}
	if len(moved) != 0 {
		t.Fatalf("requeued %v after ack", moved)
	}
}

func TestQueueFIFOOrder(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	for _, v := range []string{"a", "b", "c"} {
		if err := q.Enqueue(ctx, PendingActivityKey, v); err != nil {
			t.Fatalf("enqueue %s: %v", v, err)
		}
	}
	for _, want := range []string{"a", "b", "c"} {
		got, err := q.Reserve(ctx, PendingActivityKey, ProcessingActivityKey, DefaultVisibilityTimeout)
		if err != nil {
			t.Fatalf("reserve: %v", err)
		}
		if got != want {
			t.Fatalf("reserved %q, want %q", got, want)
		}
	}
}

func TestQueueRequeueExpired(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	if err := q.Enqueue(ctx, PendingActivityKey, "event-1"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := q.Reserve(ctx, PendingActivityKey, ProcessingActivityKey, time.Millisecond); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	// Not yet expired.
	moved, err := q.RequeueExpired(ctx, ProcessingActivityKey, PendingActivityKey, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if len(moved) != 0 {
		t.Fatalf("requeued early: %v", moved)
	}

	moved, err = q.RequeueExpired(ctx, ProcessingActivityKey, PendingActivityKey, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if len(moved) != 1 || moved[0] != "event-1" {
		t.Fatalf("moved = %v, want [event-1]", moved)
	}

	got, err := q.Reserve(ctx, PendingActivityKey, ProcessingActivityKey, DefaultVisibilityTimeout)
	if err != nil {
		t.Fatalf("reserve after requeue: %v", err)
	}
	if got != "event-1" {
		t.Fatalf("reserved %q, want event-1", got)
	}
}

func TestQueueMetrics(t *testing.T) {
	q, client := newTestQueue(t)
	ctx := context.Background()

	for _, v := range []string{"a", "b", "c"} {
		if err := q.Enqueue(ctx, PendingActivityKey, v); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	if _, err := q.Reserve(ctx, PendingActivityKey, ProcessingActivityKey, DefaultVisibilityTimeout); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	metrics := NewMetricsService(client)
	qm, err := metrics.Queue(ctx)
	if err != nil {
		t.Fatalf("queue metrics: %v", err)
	}
	if qm.Pending != 2 || qm.Processing != 1 {
		t.Fatalf("metrics = %+v, want pending=2 processing=1", qm)
	}
}

func TestWorkerHeartbeatRoundTrip(t *testing.T) {
	_, client := newTestQueue(t)
	ctx := context.Background()

	hb := WorkerHeartbeat{
		WorkerID:    "host:1:abc",
		Hostname:    "host",
		Concurrency: 2,
		Status:      "idle",
		StartedAt:   time.Now(),
	}
	hb.UpdateRuntimeStats()
	if err := SaveHeartbeat(ctx, client, hb); err != nil {
		t.Fatalf("save heartbeat: %v", err)
	}

	workers, err := NewMetricsService(client).Workers(ctx)
	if err != nil {
		t.Fatalf("workers: %v", err)
	}
	if len(workers) != 1 {
		t.Fatalf("workers = %d, want 1", len(workers))
	}
	if workers[0].WorkerID != "host:1:abc" || workers[0].Status != "idle" {
		t.Fatalf("worker = %+v", workers[0])
	}
	if workers[0].UpdatedAt.IsZero() {
		t.Fatalf("updated_at not set on save")
	}
}
