// Package currentuser carries the authenticated principal of the request being
// served. The principal travels inside the request context, so every call that
// receives that context (services, repositories, persistence hooks) can read it
// without it being passed explicitly, and concurrent requests never see each
// other's principal.
package currentuser

import (
	"context"
	"time"
)

// Principal is the identity a request acts as.
type Principal struct {
	ID            uint
	Username      string
	Email         string
	IsStaff       bool
	IsActive      bool
	DateJoined    time.Time
	Authenticated bool
}

// Anonymous is the principal of a request that presented no credentials.
func Anonymous() Principal {
	return Principal{}
}

func (p Principal) IsAuthenticated() bool {
	return p.Authenticated && p.ID != 0
}

type ctxKeyPrincipal struct{}

// With returns a copy of ctx in which p is the current principal.
func With(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKeyPrincipal{}, p)
}

// Without returns a copy of ctx with no current principal.
func Without(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKeyPrincipal{}, nil)
}

// From returns the current principal. When none was installed it returns the
// anonymous principal and false; it never fails.
func From(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Anonymous(), false
	}
	p, ok := ctx.Value(ctxKeyPrincipal{}).(Principal)
	if !ok {
		return Anonymous(), false
	}
	return p, true
}

// ID returns the id of the authenticated principal in ctx, or nil.
func ID(ctx context.Context) *uint {
	p, ok := From(ctx)
	if !ok || !p.IsAuthenticated() {
		return nil
	}
	id := p.ID
	return &id
}
