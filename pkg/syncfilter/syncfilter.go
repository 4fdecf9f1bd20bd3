// Package syncfilter composes a root directory with an ordered list of glob
// patterns into a stateless predicate over absolute paths. It categorizes
// patterns the way pathsync's exclusion set does — literal patterns get an
// O(1) map lookup, everything else falls through to the general pattern
// matcher — but never folds case, since the core's matcher is byte-exact.
package syncfilter

import (
	"path/filepath"
	"strings"

	"github.com/paulschiretz/kitchensync/pkg/globmatch"
)

// Filter bundles a root directory with the patterns excluded relative to it.
// Evaluation is independent for every call; a Filter holds no per-path state.
type Filter struct {
	root string

	// literalFullPath holds patterns with no meta-characters and at least
	// one path separator: they can only ever match a full relative path.
	literalFullPath map[string]struct{}
	// literalBasename holds patterns with no meta-characters and no path
	// separator: by convention (mirroring .gitignore) these match any
	// basename at any depth.
	literalBasename map[string]struct{}
	// general holds every pattern that needs the full glob matcher, paired
	// with whether it should be evaluated against the basename only.
	general []generalPattern
}

type generalPattern struct {
	pattern       string
	matchBasename bool
}

// New compiles a Filter from a root directory and an ordered pattern list.
// Compilation never fails: an unparsable pattern is still accepted here;
// ValidatePatterns reports it as a BadPattern error, and Matches treats it
// as non-matching.
func New(root string, patterns []string) *Filter {
	f := &Filter{
		root:            filepath.Clean(root),
		literalFullPath: make(map[string]struct{}),
		literalBasename: make(map[string]struct{}),
	}
	for _, p := range patterns {
		clean := filepath.ToSlash(p)
		if strings.ContainsAny(clean, "*?[]{}") {
			f.general = append(f.general, generalPattern{
				pattern:       clean,
				matchBasename: !strings.Contains(clean, "/"),
			})
			continue
		}
		if strings.Contains(clean, "/") {
			f.literalFullPath[clean] = struct{}{}
		} else {
			f.literalBasename[clean] = struct{}{}
		}
	}
	return f
}

// Matches reports whether absPath should be excluded. It returns false
// (never excluded) if absPath does not lie under the Filter's root, or if no
// pattern matches the path relative to root. A malformed pattern is treated
// as non-matching for that one pattern; BadPattern is validated once,
// up-front, by ValidatePatterns — Matches itself never needs to fail.
func (f *Filter) Matches(absPath string) bool {
	rel, ok := f.relativeTo(absPath)
	if !ok {
		return false
	}
	rel = filepath.ToSlash(rel)
	base := filepath.Base(rel)

	if _, ok := f.literalFullPath[rel]; ok {
		return true
	}
	if _, ok := f.literalBasename[base]; ok {
		return true
	}
	for _, g := range f.general {
		candidate := rel
		if g.matchBasename {
			candidate = base
		}
		matched, err := globmatch.Match(g.pattern, candidate)
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// relativeTo computes absPath's path relative to root using a byte-prefix
// match of the normalized root plus a path separator, then the tail. It
// reports ok=false when absPath does not lie under root.
func (f *Filter) relativeTo(absPath string) (string, bool) {
	root := filepath.Clean(f.root)
	clean := filepath.Clean(absPath)
	if clean == root {
		return "", true
	}
	prefix := root + string(filepath.Separator)
	if !strings.HasPrefix(clean, prefix) {
		return "", false
	}
	return clean[len(prefix):], true
}

// ValidatePatterns re-checks every general (non-literal) pattern against an
// arbitrary probe string and surfaces the first BadPattern error found. The
// Sync Engine calls this once, before traversal begins, so malformed
// patterns are fatal up front rather than silently ignored mid-run.
func (f *Filter) ValidatePatterns() error {
	for _, g := range f.general {
		if _, err := globmatch.Match(g.pattern, ""); err != nil {
			return err
		}
	}
	return nil
}
