package core

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Activity event names recorded by the API.
const (
	EventLoginSuccess    = "login.success"
	EventLoginFailure    = "login.failure"
	EventCustomerCreated = "customer.created"
	EventCustomerDeleted = "customer.deleted"
	EventUserCreated     = "user.created"
	EventUserUpdated     = "user.updated"
	EventUserDeactivated = "user.deactivated"
	EventCodeCreated     = "partnership_code.created"
	EventCodeDeactivated = "partnership_code.deactivated"
)

// ActivityEvent is the queue payload for one audit entry.
type ActivityEvent struct {
	Event      string         `json:"event"`
	Actor      string         `json:"actor,omitempty"`   // acting account email, empty for anonymous
	Subject    string         `json:"subject,omitempty"` // affected entity (id or email)
	Detail     map[string]any `json:"detail,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// ActivityRecorder enqueues events for the worker to persist. Recording is
// best-effort: a queue failure is logged and never fails the request.
type ActivityRecorder struct {
	queue Queue
}

func NewActivityRecorder(queue Queue) *ActivityRecorder {
	return &ActivityRecorder{queue: queue}
}

func (r *ActivityRecorder) Record(ctx context.Context, ev ActivityEvent) {
	if r == nil || r.queue == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("activity marshal failed event=%s: %v", ev.Event, err)
		return
	}
	if err := r.queue.Enqueue(ctx, PendingActivityKey, string(payload)); err != nil {
		log.Printf("activity enqueue failed event=%s: %v", ev.Event, err)
	}
}
