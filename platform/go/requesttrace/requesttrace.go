// Package requesttrace records who triggered a unit of work so logs can be correlated across
// the API, partner webhooks and the background reconciliation worker.
package requesttrace

import (
	"context"
	"errors"

	"go.uber.org/zap"

	platformauth "github.com/zenGate-Global/rentboard/platform/go/auth"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

type contextKey struct{}

// Origin says where work came from.
type Origin string

const (
	OriginPrincipal Origin = "principal"
	OriginPartner   Origin = "partner"
	OriginWorker    Origin = "worker"
	OriginAnonymous Origin = "anonymous"
)

// Trace identifies the actor and correlation id of a request or task. PrincipalID is set for
// OriginPrincipal, Platform for partner and worker traffic.
type Trace struct {
	Origin      Origin
	PrincipalID string
	Platform    rental.Platform
	ID          string
}

// ForPrincipal traces an authenticated landlord request.
func ForPrincipal(p platformauth.Principal, requestID string) (Trace, error) {
	if p.ID == "" {
		return Trace{}, errors.New("principal id is required to trace a request")
	}
	return Trace{Origin: OriginPrincipal, PrincipalID: p.ID, ID: requestID}, nil
}

// ForPartner traces an inbound marketplace call such as a webhook.
func ForPartner(platform rental.Platform, requestID string) Trace {
	return Trace{Origin: OriginPartner, Platform: platform, ID: requestID}
}

// ForTask traces background processing of a queued webhook task.
func ForTask(platform rental.Platform, taskID string) Trace {
	return Trace{Origin: OriginWorker, Platform: platform, ID: taskID}
}

// Anonymous traces unauthenticated requests such as feed crawls.
func Anonymous(requestID string) Trace {
	return Trace{Origin: OriginAnonymous, ID: requestID}
}

// Into stores t on ctx.
func Into(ctx context.Context, t Trace) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// From returns the trace stored on ctx.
func From(ctx context.Context) (Trace, bool) {
	if ctx == nil {
		return Trace{}, false
	}
	t, ok := ctx.Value(contextKey{}).(Trace)
	return t, ok
}

// FromOrAnonymous returns the stored trace, or an anonymous one.
func FromOrAnonymous(ctx context.Context) Trace {
	if t, ok := From(ctx); ok {
		return t
	}
	return Anonymous("")
}

// Actor renders the trace for the "actor" log field.
func (t Trace) Actor() string {
	switch t.Origin {
	case OriginPrincipal:
		return "principal:" + t.PrincipalID
	case OriginPartner, OriginWorker:
		return string(t.Origin) + ":" + string(t.Platform)
	default:
		return string(OriginAnonymous)
	}
}

// Fields returns the zap fields that tag log lines with this trace.
func (t Trace) Fields() []zap.Field {
	fields := []zap.Field{zap.String("actor", t.Actor())}
	if t.ID != "" {
		fields = append(fields, zap.String("trace_id", t.ID))
	}
	return fields
}
