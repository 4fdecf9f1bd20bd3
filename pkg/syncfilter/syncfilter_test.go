package syncfilter

import (
	"path/filepath"
	"testing"
)

func TestFilter_Matches(t *testing.T) {
	root := filepath.FromSlash("/src")
	f := New(root, []string{"*.tmp", "node_modules", "build"})

	cases := []struct {
		path string
		want bool
	}{
		{filepath.Join(root, "a.txt"), false},
		{filepath.Join(root, "tmp.tmp"), true},
		{filepath.Join(root, "sub", "x.tmp"), true},
		{filepath.Join(root, "node_modules"), true},
		{filepath.Join(root, "sub", "node_modules"), true},
		{filepath.Join(root, "build"), true},
		{filepath.Join(root, "build-tools", "out.bin"), false},
		{filepath.Join("/other", "a.txt"), false},
	}
	for _, c := range cases {
		if got := f.Matches(c.path); got != c.want {
			t.Errorf("Matches(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestFilter_RootItself(t *testing.T) {
	root := filepath.FromSlash("/src")
	f := New(root, []string{"*.tmp"})
	if f.Matches(root) {
		t.Error("the root path itself should never match a pattern")
	}
}

func TestFilter_ValidatePatterns(t *testing.T) {
	f := New("/src", []string{"*.txt"})
	if err := f.ValidatePatterns(); err != nil {
		t.Fatalf("unexpected error for a well-formed pattern: %v", err)
	}

	bad := New("/src", []string{"[abc"})
	if err := bad.ValidatePatterns(); err == nil {
		t.Fatal("expected BadPattern error for an unclosed character class")
	}
}
