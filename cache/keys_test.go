package cache

import (
	"errors"
	"strings"
	"testing"
)

func TestBuildKey(t *testing.T) {
	builder := NewKeyBuilder()

	tests := []struct {
		name   string
		op     string
		args   []any
		kwargs map[string]any
		want   string
	}{
		{
			name: "operation only",
			op:   "recent_tracks",
			want: "recent_tracks",
		},
		{
			name: "positional args",
			op:   "search_tracks",
			args: []any{"jazz", 20},
			want: `search_tracks::"jazz"::20`,
		},
		{
			name:   "kwargs sorted by name",
			op:     "search_tracks",
			kwargs: map[string]any{"q": "jazz", "limit": 20, "offset": 0},
			want:   `search_tracks::limit=20::offset=0::q="jazz"`,
		},
		{
			name:   "args and kwargs combined",
			op:     "popular_tracks",
			args:   []any{"all_time"},
			kwargs: map[string]any{"limit": 10},
			want:   `popular_tracks::"all_time"::limit=10`,
		},
		{
			name:   "method-style operation normalized",
			op:     "SearchTracks",
			kwargs: map[string]any{"q": "jazz"},
			want:   `search_tracks::q="jazz"`,
		},
		{
			name: "nil argument",
			op:   "get_track",
			args: []any{nil},
			want: "get_track::nil",
		},
		{
			name: "nested slices",
			op:   "tracks_by_ids",
			args: []any{[]any{1, 2, []any{"a", nil}}},
			want: `tracks_by_ids::[1,2,["a",nil]]`,
		},
		{
			name: "bool and float",
			op:   "list",
			args: []any{true, 1.5},
			want: "list::true::1.5",
		},
		{
			name: "whole float collapses to integer form",
			op:   "list",
			args: []any{float64(3)},
			want: "list::3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := builder.BuildKey(tt.op, tt.args, tt.kwargs)
			if err != nil {
				t.Fatalf("BuildKey() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("BuildKey() = %q, want %q", got, tt.want)
			}

			again, err := builder.BuildKey(tt.op, tt.args, tt.kwargs)
			if err != nil {
				t.Fatalf("BuildKey() second call error = %v", err)
			}
			if again != got {
				t.Errorf("BuildKey() not deterministic: %q then %q", got, again)
			}
		})
	}
}

func TestBuildKey_KwargOrderIrrelevant(t *testing.T) {
	builder := NewKeyBuilder()

	first, err := builder.BuildKey("search_tracks", nil, map[string]any{"q": "jazz", "limit": 20, "offset": 40})
	if err != nil {
		t.Fatalf("BuildKey() error = %v", err)
	}
	second, err := builder.BuildKey("search_tracks", nil, map[string]any{"offset": 40, "limit": 20, "q": "jazz"})
	if err != nil {
		t.Fatalf("BuildKey() error = %v", err)
	}

	if first != second {
		t.Errorf("keyword order changed the key: %q vs %q", first, second)
	}
}

func TestBuildKey_TypeDisambiguation(t *testing.T) {
	builder := NewKeyBuilder()

	asInt, err := builder.BuildKey("get_track", []any{1}, nil)
	if err != nil {
		t.Fatalf("BuildKey() error = %v", err)
	}
	asString, err := builder.BuildKey("get_track", []any{"1"}, nil)
	if err != nil {
		t.Fatalf("BuildKey() error = %v", err)
	}

	if asInt == asString {
		t.Errorf("int 1 and string \"1\" collided on key %q", asInt)
	}
}

func TestBuildKey_PointerDereferenced(t *testing.T) {
	builder := NewKeyBuilder()

	limit := 20
	viaPointer, err := builder.BuildKey("recent_tracks", []any{&limit}, nil)
	if err != nil {
		t.Fatalf("BuildKey() error = %v", err)
	}
	direct, err := builder.BuildKey("recent_tracks", []any{20}, nil)
	if err != nil {
		t.Fatalf("BuildKey() error = %v", err)
	}

	if viaPointer != direct {
		t.Errorf("pointer arg produced %q, value arg %q", viaPointer, direct)
	}
}

func TestBuildKey_RejectsNonPrimitives(t *testing.T) {
	builder := NewKeyBuilder()

	tests := []struct {
		name   string
		args   []any
		kwargs map[string]any
	}{
		{name: "map argument", args: []any{map[string]int{"a": 1}}},
		{name: "struct argument", args: []any{struct{ ID int }{ID: 1}}},
		{name: "func argument", args: []any{func() {}}},
		{name: "channel argument", args: []any{make(chan int)}},
		{name: "complex argument", args: []any{complex(1, 2)}},
		{name: "map nested in slice", args: []any{[]any{1, map[string]int{}}}},
		{name: "struct keyword argument", kwargs: map[string]any{"filter": struct{}{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := builder.BuildKey("search_tracks", tt.args, tt.kwargs)
			if err == nil {
				t.Fatal("BuildKey() accepted a non-primitive argument")
			}
			if !errors.Is(err, ErrUnsupportedArg) {
				t.Errorf("error = %v, want ErrUnsupportedArg", err)
			}
		})
	}
}

func TestBuildKey_EmptyOperation(t *testing.T) {
	builder := NewKeyBuilder()

	for _, op := range []string{"", "---"} {
		if _, err := builder.BuildKey(op, nil, nil); err == nil {
			t.Errorf("BuildKey(%q) accepted an empty operation name", op)
		}
	}
}

func TestBuildKey_LongArgumentsDigested(t *testing.T) {
	builder := NewKeyBuilder()

	long := strings.Repeat("x", 2*MaxKeyLength)
	key, err := builder.BuildKey("search_tracks", []any{long}, nil)
	if err != nil {
		t.Fatalf("BuildKey() error = %v", err)
	}

	if len(key) > MaxKeyLength {
		t.Errorf("digested key still %d bytes, limit %d", len(key), MaxKeyLength)
	}
	if !strings.HasPrefix(key, "search_tracks"+KeySeparator+"xxh64:") {
		t.Errorf("digested key %q lost its readable operation prefix", key)
	}

	same, err := builder.BuildKey("search_tracks", []any{long}, nil)
	if err != nil {
		t.Fatalf("BuildKey() error = %v", err)
	}
	if same != key {
		t.Errorf("digest not deterministic: %q vs %q", key, same)
	}

	other, err := builder.BuildKey("search_tracks", []any{long + "y"}, nil)
	if err != nil {
		t.Fatalf("BuildKey() error = %v", err)
	}
	if other == key {
		t.Error("different long arguments collided on one digest")
	}
}

func TestNormalizeOp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SearchTracks", "search_tracks"},
		{"search_tracks", "search_tracks"},
		{"GetByID", "get_by_id"},
		{"HTTPFetch", "http_fetch"},
		{"get track", "get_track"},
		{"get-track", "get_track"},
		{"track42", "track42"},
		{"__weird__", "weird"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := normalizeOp(tt.in); got != tt.want {
			t.Errorf("normalizeOp(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func BenchmarkBuildKey(b *testing.B) {
	builder := NewKeyBuilder()
	kwargs := map[string]any{"q": "miles davis", "limit": 20, "offset": 40}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := builder.BuildKey("search_tracks", nil, kwargs); err != nil {
			b.Fatal(err)
		}
	}
}
