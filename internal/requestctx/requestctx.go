// Package requestctx carries per-request identity and client attributes from
// the HTTP edge into the core, the same way database.GetTx carries a
// transaction: as an explicit value on the context parameter, never as global
// state.
package requestctx

import (
	"context"
	"time"
)

// RequestContext is the authenticated caller plus the request attributes the
// policy evaluator and the audit trail consume. Pointer fields distinguish
// "attribute absent" from a false/zero value; absent attributes make
// attribute-gated policies not match rather than match negatively.
type RequestContext struct {
	// PrincipalID is the authenticated principal, or "bootstrap" for the
	// seal control plane.
	PrincipalID   string
	PrincipalName string
	Roles         []string
	// SessionID identifies the token used for this request.
	SessionID string

	RemoteAddr        string
	NetworkZone       string
	UserAgent         string
	DeviceFingerprint string
	GeoCountry        string
	DeviceCompliant   *bool
	RiskScore         *int

	// CorrelationID is the request id echoed in responses and recorded in
	// every audit entry this request produces.
	CorrelationID string
	ReceivedAt    time.Time

	// Bootstrap marks authentication via the bootstrap credential rather
	// than a principal token.
	Bootstrap bool
}

type ctxKey struct{}

// With returns a context carrying rc.
func With(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// From extracts the request context, if one was attached at the edge.
func From(ctx context.Context) (*RequestContext, bool) {
	rc, ok := ctx.Value(ctxKey{}).(*RequestContext)
	return rc, ok
}

// Principal returns the principal id, or empty when no request context is
// attached (background jobs).
func Principal(ctx context.Context) string {
	if rc, ok := From(ctx); ok {
		return rc.PrincipalID
	}
	return ""
}

// Correlation returns the correlation id, or empty for background jobs.
func Correlation(ctx context.Context) string {
	if rc, ok := From(ctx); ok {
		return rc.CorrelationID
	}
	return ""
}
