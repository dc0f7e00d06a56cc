package locale

import "context"

type ctxKey struct{}

// HeaderName is the internal request header used to forward the resolved
// locale from the edge proxy to the origin. It is never exposed to clients.
const HeaderName = "x-locale"

// NewContext returns a copy of ctx carrying the resolved locale. The value is
// owned by the request that created it and is read-only downstream.
func NewContext(ctx context.Context, code Locale) context.Context {
	return context.WithValue(ctx, ctxKey{}, code)
}

// FromContext returns the locale attached to ctx, or ok=false when the
// request never went through the resolution middleware.
func FromContext(ctx context.Context) (Locale, bool) {
	code, ok := ctx.Value(ctxKey{}).(Locale)
	return code, ok
}
