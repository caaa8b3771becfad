package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"user-service/internal/domain"
)

const bearerPrefix = "Bearer "

// SubjectExtractor is satisfied by *TokenCodec.
type SubjectExtractor interface {
	ExtractSubject(token string) (string, error)
}

// PrincipalResolver is satisfied by *IdentityResolver.
type PrincipalResolver interface {
	Resolve(ctx context.Context, username string) (*domain.Principal, error)
}

// Outcome labels a gate decision for metrics.
type Outcome string

const (
	OutcomeAnonymous     Outcome = "anonymous"
	OutcomeAuthenticated Outcome = "authenticated"
	OutcomeRejected      Outcome = "rejected"
)

// Recorder observes gate outcomes.
type Recorder interface {
	RecordAuth(ctx context.Context, outcome Outcome, reason string)
}

// Gate establishes the request principal from the Authorization header.
type Gate struct {
	tokens     SubjectExtractor
	identities PrincipalResolver
	recorder   Recorder
}

func NewGate(tokens SubjectExtractor, identities PrincipalResolver, recorder Recorder) *Gate {
	return &Gate{tokens: tokens, identities: identities, recorder: recorder}
}

// Authenticate returns ctx carrying the resolved principal. A request without
// a bearer token passes through anonymously. Every rejection wraps
// ErrUnauthenticated.
func (g *Gate) Authenticate(ctx context.Context, authorization string) (context.Context, error) {
	token, ok := bearerToken(authorization)
	if !ok {
		g.record(ctx, OutcomeAnonymous, "")
		return ctx, nil
	}

	subject, err := g.tokens.ExtractSubject(token)
	if err != nil {
		return ctx, g.reject(ctx, "token", err)
	}

	if existing, ok := PrincipalFromContext(ctx); ok {
		if existing.Username() != subject {
			return ctx, g.reject(ctx, "subject", errors.New("principal already set for another subject"))
		}
		g.record(ctx, OutcomeAuthenticated, "")
		return ctx, nil
	}

	principal, err := g.identities.Resolve(ctx, subject)
	if err != nil {
		return ctx, g.reject(ctx, "resolve", err)
	}
	if principal.Username() != subject {
		return ctx, g.reject(ctx, "subject", errors.New("resolved username does not match token subject"))
	}
	if !principal.User.Active() {
		return ctx, g.reject(ctx, "inactive", errors.New("account is not active"))
	}

	g.record(ctx, OutcomeAuthenticated, "")
	return WithPrincipal(ctx, principal), nil
}

func (g *Gate) reject(ctx context.Context, reason string, cause error) error {
	g.record(ctx, OutcomeRejected, reason)
	return fmt.Errorf("%w: %s: %w", ErrUnauthenticated, reason, cause)
}

func (g *Gate) record(ctx context.Context, outcome Outcome, reason string) {
	if g.recorder != nil {
		g.recorder.RecordAuth(ctx, outcome, reason)
	}
}

func bearerToken(header string) (string, bool) {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}
