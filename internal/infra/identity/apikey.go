package identity

import (
	"context"
	"errors"

	domain "github.com/ahmad9059/sehatscan/internal/domain/identity"
	"github.com/ahmad9059/sehatscan/internal/middleware"
)

// ContextResolver resolves the caller from the request context
// populated by the API-key auth middleware. Callers translate any
// error into a uniform auth failure; the reason is deliberately not
// detailed further.
type ContextResolver struct{}

var _ domain.Resolver = ContextResolver{}

func (ContextResolver) ResolveCaller(ctx context.Context) (domain.User, error) {
	uid := middleware.GetUserFromContext(ctx)
	if uid == "" {
		return domain.User{}, errors.New("no authenticated caller")
	}
	return domain.User{ID: uid}, nil
}
