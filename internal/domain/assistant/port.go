package assistant

import (
	"context"
	"errors"
)

// ErrQuotaExceeded indicates the assistant provider returned a quota or
// rate-limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("assistant quota exceeded")

// Client port for the conversational model behind the chat endpoint.
type Client interface {
	Reply(ctx context.Context, digest, message string) (string, error)
}
