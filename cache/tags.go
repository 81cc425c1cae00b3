package cache

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/phonoteca/go-query-cache/internal/cachestore"
)

// ErrUnknownOperation reports a cached call whose operation was never
// registered with the tag table. An entry stored without tags could never be
// invalidated, so the call fails instead.
var ErrUnknownOperation = errors.New("operation has no registered tags")

// ErrTagPlaceholder reports a tag template whose placeholder cannot be
// resolved from the call's arguments.
var ErrTagPlaceholder = errors.New("unresolvable tag placeholder")

// MatchTag reports whether tag matches pattern under segment-prefix rules:
// the pattern must equal the tag or a colon-delimited prefix of it. Tag
// "a:b:c" matches patterns "a", "a:b", and "a:b:c"; it does not match
// "a:b:d", nor the plain string prefix "a:b:cc". An empty pattern matches
// nothing.
//
// This is the same predicate the store applies during invalidation sweeps.
func MatchTag(tag, pattern string) bool {
	return cachestore.MatchTag(tag, pattern)
}

// TagValue formats a string for embedding in a tag the same way template
// expansion does: ':' characters are replaced so a value never introduces
// segment boundaries. Write paths use it to build invalidation patterns that
// match derived tags exactly, e.g. "track:" + TagValue(id).
func TagValue(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// TagTable is the default TagResolver: a static table from operation name to
// tag templates, registered once at startup. A template is either a literal
// tag ("tracks") or contains placeholders populated from the call's
// arguments: "{id}" expands to the keyword argument id, "{0}" to the first
// positional argument, so "track:{id}" yields "track:42".
//
// This is configuration, not computation; the table never inspects result
// values.
type TagTable struct {
	mu    sync.RWMutex
	rules map[string][]string
}

// NewTagTable creates an empty tag table.
func NewTagTable() *TagTable {
	return &TagTable{rules: make(map[string][]string)}
}

// Register binds an operation name to its tag templates, replacing any
// previous binding. Operation names are normalized like key operations so
// read call sites and the table agree.
func (t *TagTable) Register(op string, templates ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rules[normalizeOp(op)] = append([]string(nil), templates...)
}

// TagsFor expands the operation's templates against the given arguments.
// The result preserves template order with duplicates removed.
func (t *TagTable) TagsFor(op string, args []any, kwargs map[string]any) ([]string, error) {
	t.mu.RLock()
	templates, ok := t.rules[normalizeOp(op)]
	t.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}

	tags := make([]string, 0, len(templates))
	seen := make(map[string]struct{}, len(templates))
	for _, tpl := range templates {
		tag, err := expandTemplate(tpl, args, kwargs)
		if err != nil {
			return nil, fmt.Errorf("operation %q: %w", op, err)
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags, nil
}

// expandTemplate replaces every {ref} in tpl with the referenced argument.
func expandTemplate(tpl string, args []any, kwargs map[string]any) (string, error) {
	if !strings.ContainsRune(tpl, '{') {
		return tpl, nil
	}

	var b strings.Builder
	rest := tpl
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("%w: unterminated %q", ErrTagPlaceholder, tpl)
		}
		b.WriteString(rest[:open])

		ref := rest[open+1 : open+end]
		val, err := resolveRef(ref, args, kwargs)
		if err != nil {
			return "", err
		}
		b.WriteString(val)
		rest = rest[open+end+1:]
	}
	return b.String(), nil
}

// resolveRef looks a placeholder reference up: all-digit references are
// positional indexes, anything else names a keyword argument.
func resolveRef(ref string, args []any, kwargs map[string]any) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", ErrTagPlaceholder)
	}
	if idx, err := strconv.Atoi(ref); err == nil {
		if idx < 0 || idx >= len(args) {
			return "", fmt.Errorf("%w: positional {%d} with %d args", ErrTagPlaceholder, idx, len(args))
		}
		return tagSegment(args[idx])
	}
	v, ok := kwargs[ref]
	if !ok {
		return "", fmt.Errorf("%w: no keyword argument %q", ErrTagPlaceholder, ref)
	}
	return tagSegment(v)
}

// tagSegment formats a primitive argument for embedding in a tag. Expanded
// values never contribute ':' characters; segment boundaries come from the
// template alone.
func tagSegment(v any) (string, error) {
	if v == nil {
		return "nil", nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return TagValue(rv.String()), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "nil", nil
		}
		return tagSegment(rv.Elem().Interface())
	default:
		return "", fmt.Errorf("%w: cannot embed %s in a tag", ErrTagPlaceholder, rv.Kind())
	}
}
