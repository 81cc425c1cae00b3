package querycache

import "context"

type extraTagsContextKey struct{}

type inFlightContextKey struct{}

// WithExtraTags attaches additional invalidation tags to the context; the
// next cached calls on that context store their entries with the derived
// tags plus these. Useful when a call site depends on a domain the static
// tag table cannot express, such as a playlist or session scope.
func WithExtraTags(ctx context.Context, tags ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(tags) == 0 {
		return ctx
	}

	combined := dedupeTags(append(extraTagsFromContext(ctx), tags...))
	return context.WithValue(ctx, extraTagsContextKey{}, combined)
}

func extraTagsFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	if tags, ok := ctx.Value(extraTagsContextKey{}).([]string); ok {
		return append([]string(nil), tags...)
	}
	return nil
}

// mergeTags appends extras to the derived tags, dropping duplicates while
// preserving order.
func mergeTags(derived, extra []string) []string {
	if len(extra) == 0 {
		return derived
	}
	merged := make([]string, 0, len(derived)+len(extra))
	merged = append(merged, derived...)
	merged = append(merged, extra...)
	return dedupeTags(merged)
}

func dedupeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// markInFlight records that key is being computed in this call chain. The
// set travels on the context into compute functions, so a nested cached call
// for the same key can be detected and failed instead of recursing or
// waiting on itself.
func markInFlight(ctx context.Context, key string) context.Context {
	prev, _ := ctx.Value(inFlightContextKey{}).(map[string]struct{})
	next := make(map[string]struct{}, len(prev)+1)
	for k := range prev {
		next[k] = struct{}{}
	}
	next[key] = struct{}{}
	return context.WithValue(ctx, inFlightContextKey{}, next)
}

func inFlight(ctx context.Context, key string) bool {
	set, _ := ctx.Value(inFlightContextKey{}).(map[string]struct{})
	_, ok := set[key]
	return ok
}
