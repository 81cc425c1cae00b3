package cache

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// MaxKeyLength bounds the byte length of generated keys. When the encoded
// argument section would push a key past this limit it is replaced by its
// xxhash digest, keeping the operation prefix readable and the key
// deterministic.
const MaxKeyLength = 512

// ErrUnsupportedArg reports an argument for which no deterministic encoding
// exists: maps, structs, funcs, channels, and anything else whose
// representation depends on iteration order or identity. Such arguments
// would silently break key equality, so the call fails instead of degrading
// to an always-miss key.
var ErrUnsupportedArg = errors.New("unsupported cache key argument")

// defaultKeyBuilder implements KeyBuilder for the primitive argument kinds
// the cache accepts: numbers, strings, booleans, nil, and nested slices of
// these. Everything else is rejected with ErrUnsupportedArg.
//
// The encoding disambiguates types (the int 1 and the string "1" never
// collide, strings are quoted so embedded separators cannot forge extra
// segments) and sorts keyword arguments by name, so call sites passing the
// same logical arguments in any keyword order agree on one key.
type defaultKeyBuilder struct{}

// NewKeyBuilder creates the default key builder.
func NewKeyBuilder() KeyBuilder {
	return &defaultKeyBuilder{}
}

// BuildKey builds a key of the form
//
//	operation::arg1::arg2::name1=v1::name2=v2
//
// with the operation name normalized to snake_case, positional arguments in
// call order, and keyword arguments sorted by name.
func (b *defaultKeyBuilder) BuildKey(op string, args []any, kwargs map[string]any) (string, error) {
	op = normalizeOp(op)
	if op == "" {
		return "", errors.New("empty operation name")
	}

	parts := make([]string, 0, 1+len(args)+len(kwargs))
	parts = append(parts, op)

	for i, arg := range args {
		enc, err := b.encodeArg(arg)
		if err != nil {
			return "", fmt.Errorf("arg %d: %w", i, err)
		}
		parts = append(parts, enc)
	}

	if len(kwargs) > 0 {
		names := make([]string, 0, len(kwargs))
		for name := range kwargs {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			enc, err := b.encodeArg(kwargs[name])
			if err != nil {
				return "", fmt.Errorf("kwarg %q: %w", name, err)
			}
			parts = append(parts, name+"="+enc)
		}
	}

	key := strings.Join(parts, KeySeparator)
	if len(key) > MaxKeyLength {
		key = op + KeySeparator + b.digest(parts[1:])
	}
	return key, nil
}

// encodeArg serializes a single argument, unwrapping interfaces and non-nil
// pointers first.
func (b *defaultKeyBuilder) encodeArg(v any) (string, error) {
	if v == nil {
		return "nil", nil
	}
	return b.encodeValue(reflect.ValueOf(v))
}

// encodeValue dispatches on reflection kind so named types with primitive
// underlying kinds (status enums, id types) encode like their base type.
func (b *defaultKeyBuilder) encodeValue(rv reflect.Value) (string, error) {
	switch rv.Kind() {
	case reflect.String:
		return strconv.Quote(rv.String()), nil

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

	case reflect.Pointer:
		if rv.IsNil() {
			return "nil", nil
		}
		return b.encodeValue(rv.Elem())

	case reflect.Interface:
		if rv.IsNil() {
			return "nil", nil
		}
		return b.encodeValue(rv.Elem())

	case reflect.Slice:
		if rv.IsNil() {
			return "nil", nil
		}
		fallthrough

	case reflect.Array:
		elems := make([]string, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			enc, err := b.encodeValue(rv.Index(i))
			if err != nil {
				return "", fmt.Errorf("index %d: %w", i, err)
			}
			elems[i] = enc
		}
		return "[" + strings.Join(elems, ",") + "]", nil

	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedArg, rv.Kind())
	}
}

// digest hashes the encoded argument segments into a fixed-width suffix.
func (b *defaultKeyBuilder) digest(parts []string) string {
	d := xxhash.New()
	for _, p := range parts {
		_, _ = d.WriteString(p)
		_, _ = d.WriteString(KeySeparator)
	}
	return fmt.Sprintf("xxh64:%016x", d.Sum64())
}
