package chat

import "errors"

var (
	// ErrValidation marks malformed or incomplete requests.
	ErrValidation = errors.New("invalid chat request")
	// ErrForbidden marks access to another user's private resources.
	ErrForbidden = errors.New("chat belongs to another user")
	// ErrNotFound marks missing chats or streams.
	ErrNotFound = errors.New("chat not found")
	// ErrQuotaExceeded marks a user over their daily message ceiling.
	ErrQuotaExceeded = errors.New("daily message quota exceeded")
	// ErrStreamingDisabled marks resumption attempts when no stream
	// persistence is configured.
	ErrStreamingDisabled = errors.New("resumable streams disabled")
)
