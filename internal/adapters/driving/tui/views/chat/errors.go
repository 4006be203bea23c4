package chat

import "errors"

// Error definitions for the chat view.
var (
	// ErrNoAnswerService indicates that no answer service was provided.
	ErrNoAnswerService = errors.New("answer service is required")

	// ErrStreamClosed indicates the answer stream ended without a terminal event.
	ErrStreamClosed = errors.New("answer stream closed unexpectedly")
)
