package identity

import "context"

// User is the resolved caller identity.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Resolver port. Any error from the underlying provider is treated
// uniformly as an auth failure by callers; provider detail is never
// surfaced.
type Resolver interface {
	ResolveCaller(ctx context.Context) (User, error)
}
