package syncfile

import (
	"strings"

	"github.com/gobwas/glob"
)

// Selector decides which names returned by a CanList driver are kept by
// Select. Selectors compose with And, Or and Not.
//
// Example:
//
//	sel := syncfile.And(
//	    syncfile.MustGlob("**.parquet"),
//	    syncfile.Not(syncfile.MustGlob("tmp/**")),
//	)
//	names, err := syncfile.Select(drv, sel)
type Selector interface {
	Match(name string) bool
}

// SelectorFunc adapts a function to a Selector.
type SelectorFunc func(name string) bool

// Match calls f.
func (f SelectorFunc) Match(name string) bool { return f(name) }

// Select lists drv and returns the names sel matches, in the driver's order.
// A nil selector matches everything.
func Select(drv Driver, sel Selector) ([]string, error) {
	lister, ok := drv.(CanList)
	if !ok {
		return nil, &PathError{Op: "select", Path: "", Err: ErrNotSupported}
	}
	names, err := lister.List()
	if err != nil {
		return nil, err
	}
	if sel == nil {
		return names, nil
	}

	matched := names[:0]
	for _, name := range names {
		if sel.Match(name) {
			matched = append(matched, name)
		}
	}
	return matched, nil
}

// All returns a selector that matches every name.
func All() Selector {
	return SelectorFunc(func(string) bool { return true })
}

type globSelector struct {
	pattern string
	g       glob.Glob
}

// Glob compiles a glob pattern with '/' as the separator: "*" and "?" stay
// within one path segment and "**" crosses segments. Character classes
// ("[a-z]") and alternatives ("{a,b}") are supported.
//
//	Glob("*.txt")        // a.txt, not dir/a.txt
//	Glob("**.txt")       // a.txt and dir/a.txt
//	Glob("data/{a,b}/*") // data/a/x and data/b/y
func Glob(pattern string) (Selector, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, &PathError{Op: "glob", Path: pattern, Err: err}
	}
	return &globSelector{pattern: pattern, g: g}, nil
}

// MustGlob is like Glob but panics if the pattern is invalid.
func MustGlob(pattern string) Selector {
	sel, err := Glob(pattern)
	if err != nil {
		panic(err)
	}
	return sel
}

func (s *globSelector) Match(name string) bool {
	return s.g.Match(strings.TrimPrefix(name, "/"))
}

func (s *globSelector) String() string {
	return s.pattern
}

// Depth matches names with at most maxDepth path segments. Depth(1) keeps
// only top-level files.
func Depth(maxDepth int) Selector {
	return SelectorFunc(func(name string) bool {
		name = strings.Trim(name, "/")
		if name == "" {
			return false
		}
		return strings.Count(name, "/")+1 <= maxDepth
	})
}

// And matches only if ALL selectors match.
func And(selectors ...Selector) Selector {
	return SelectorFunc(func(name string) bool {
		for _, sel := range selectors {
			if !sel.Match(name) {
				return false
			}
		}
		return true
	})
}

// Or matches if ANY selector matches.
func Or(selectors ...Selector) Selector {
	return SelectorFunc(func(name string) bool {
		for _, sel := range selectors {
			if sel.Match(name) {
				return true
			}
		}
		return false
	})
}

// Not inverts a selector's match result.
func Not(selector Selector) Selector {
	return SelectorFunc(func(name string) bool {
		return !selector.Match(name)
	})
}
