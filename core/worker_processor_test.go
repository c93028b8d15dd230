package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestActivityProcessorInsertsEvent(t *testing.T) {
	repo := &memActivityRepo{}
	p := NewActivityProcessor(repo)

	payload := `{"event":"customer.created","actor":"gokhan@kampus.com","subject":"12","occurred_at":"2026-08-19T10:00:00Z"}`
	if err := p.Process(context.Background(), payload); err != nil {
		t.Fatalf("process: %v", err)
	}

	entries, _ := repo.ListRecent(context.Background(), 10)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Event != EventCustomerCreated || e.Actor != "gokhan@kampus.com" || e.Subject != "12" {
		t.Fatalf("entry = %+v", e)
	}
	want := time.Date(2026, time.August, 19, 10, 0, 0, 0, time.UTC)
	if !e.OccurredAt.Equal(want) {
		t.Fatalf("occurred_at = %v, want %v", e.OccurredAt, want)
	}
}

func TestActivityProcessorMalformed(t *testing.T) {
	p := NewActivityProcessor(&memActivityRepo{})
	for _, payload := range []string{"", "   ", "not json", `{"actor":"x"}`} {
		if err := p.Process(context.Background(), payload); !errors.Is(err, ErrMalformedActivity) {
			t.Fatalf("payload %q: err = %v, want ErrMalformedActivity", payload, err)
		}
	}
}

func TestActivityProcessorInsertFailureIsRetryable(t *testing.T) {
	repo := &memActivityRepo{insertErr: errors.New("connection refused")}
	p := NewActivityProcessor(repo)

	err := p.Process(context.Background(), `{"event":"login.success"}`)
	if err == nil {
		t.Fatalf("expected insert error")
	}
	if errors.Is(err, ErrMalformedActivity) {
		t.Fatalf("insert failure classified as malformed")
	}
}
