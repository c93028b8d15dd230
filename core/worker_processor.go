package core

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ErrMalformedActivity marks payloads that can never be processed; the worker
// acks and drops them instead of retrying.
var ErrMalformedActivity = errors.New("malformed activity payload")

// ActivityProcessor consumes queued activity events and persists them.
type ActivityProcessor struct {
	repo ActivityRepository
}

func NewActivityProcessor(repo ActivityRepository) *ActivityProcessor {
	return &ActivityProcessor{repo: repo}
}

// Process decodes one queue payload and inserts the audit row. A decode
// failure is terminal; an insert failure is retryable.
func (p *ActivityProcessor) Process(ctx context.Context, payload string) error {
	if strings.TrimSpace(payload) == "" {
		return ErrMalformedActivity
	}

	var ev ActivityEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ErrMalformedActivity
	}
	if ev.Event == "" {
		return ErrMalformedActivity
	}

	return p.repo.Insert(ctx, ev)
}
