package kconfig

import (
	"flag"
	"path/filepath"
	"testing"
)

func TestResolvePath_Relative(t *testing.T) {
	got, err := ResolvePath("some/dir")
	if err != nil {
		t.Fatalf("ResolvePath: %v", err)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("ResolvePath(%q) = %q, want an absolute path", "some/dir", got)
	}
}

func TestExcludeFlags_RepeatableAndOrdered(t *testing.T) {
	var patterns []string
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Var(NewExcludeFlags(&patterns), "x", "exclude pattern")

	if err := fs.Parse([]string{"-x", "*.tmp", "-x", "node_modules"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"*.tmp", "node_modules"}
	if len(patterns) != len(want) {
		t.Fatalf("patterns = %v, want %v", patterns, want)
	}
	for i, p := range want {
		if patterns[i] != p {
			t.Errorf("patterns[%d] = %q, want %q", i, patterns[i], p)
		}
	}
}

func TestExcludeFlags_RejectsEmpty(t *testing.T) {
	var patterns []string
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Var(NewExcludeFlags(&patterns), "x", "exclude pattern")
	if err := fs.Parse([]string{"-x", ""}); err == nil {
		t.Error("expected an error for an empty exclude pattern")
	}
}
