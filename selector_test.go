package syncfile

import (
	"errors"
	"fmt"
	"testing"
)

func TestGlob(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"*.txt", "a.txt", true},
		{"*.txt", "dir/a.txt", false},
		{"**.txt", "dir/a.txt", true},
		{"**.txt", "a.bin", false},
		{"data/{a,b}/*", "data/a/x", true},
		{"data/{a,b}/*", "data/c/x", false},
		{"[a-c]?.bin", "b1.bin", true},
		{"[a-c]?.bin", "d1.bin", false},
		{"*.txt", "/a.txt", true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.pattern, tt.name), func(t *testing.T) {
			sel, err := Glob(tt.pattern)
			if err != nil {
				t.Fatalf("Glob(%q): %v", tt.pattern, err)
			}
			if got := sel.Match(tt.name); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestGlobInvalid(t *testing.T) {
	if _, err := Glob("[a-"); err == nil {
		t.Error("expected error for invalid pattern")
	}

	defer func() {
		if recover() == nil {
			t.Error("expected MustGlob to panic")
		}
	}()
	MustGlob("[a-")
}

func TestDepth(t *testing.T) {
	sel := Depth(2)
	tests := map[string]bool{
		"a":     true,
		"a/b":   true,
		"a/b/c": false,
		"/a/b":  true,
		"":      false,
	}
	for name, want := range tests {
		if got := sel.Match(name); got != want {
			t.Errorf("Depth(2).Match(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestComposedSelectors(t *testing.T) {
	sel := And(MustGlob("**.bin"), Not(MustGlob("tmp/**")))
	if !sel.Match("data/x.bin") {
		t.Error("expected data/x.bin to match")
	}
	if sel.Match("tmp/x.bin") {
		t.Error("expected tmp/x.bin to be excluded")
	}

	either := Or(MustGlob("*.a"), MustGlob("*.b"))
	if !either.Match("x.b") || either.Match("x.c") {
		t.Error("unexpected Or result")
	}

	if !All().Match("anything") {
		t.Error("All should match")
	}
}

func TestSelect(t *testing.T) {
	drv := newMockDriver("select")
	for _, name := range []string{"a.bin", "dir/b.bin", "dir/c.txt", "tmp/d.bin"} {
		drv.put(name, name)
	}

	names, err := Select(drv, And(MustGlob("**.bin"), Not(MustGlob("tmp/**"))))
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if fmt.Sprint(names) != "[a.bin dir/b.bin]" {
		t.Errorf("unexpected names %v", names)
	}

	all, err := Select(drv, nil)
	if err != nil || len(all) != 4 {
		t.Errorf("expected 4 names, got %v (%v)", all, err)
	}

	_, err = Select(openOnlyDriver{drv}, All())
	if !errors.Is(err, ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}
}
