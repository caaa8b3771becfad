package auth

import (
	"context"

	"user-service/internal/domain"
)

type principalKey struct{}

// WithPrincipal attaches p to ctx. A context that already carries a
// principal is returned unchanged.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	if p == nil {
		return ctx
	}
	if _, ok := PrincipalFromContext(ctx); ok {
		return ctx
	}
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal set by the gate, if any.
func PrincipalFromContext(ctx context.Context) (*domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*domain.Principal)
	return p, ok && p != nil
}
