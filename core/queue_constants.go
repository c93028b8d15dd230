package core

import "time"

// Queue keys and the default visibility timeout for the activity pipeline.
const (
	PendingActivityKey    = "pending_activity"
	ProcessingActivityKey = "processing_activity"
	// DefaultVisibilityTimeout is how long a worker may hold an event before
	// the reclaimer hands it back to pending.
	DefaultVisibilityTimeout = 30 * time.Second
)
