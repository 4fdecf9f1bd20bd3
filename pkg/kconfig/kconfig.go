// Package kconfig provides small, pure helpers the CLI shim uses to turn
// raw command-line input into a syncengine.Config. It owns no flag
// parsing itself — cmd/kitchensync's flag.FlagSet does that — only the
// path and pattern normalization that sits between parsed flags and the
// engine's config struct.
package kconfig

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/paulschiretz/kitchensync/pkg/util"
)

// ResolvePath expands a leading "~" to the user's home directory, then
// makes the result absolute relative to the process's working directory.
func ResolvePath(path string) (string, error) {
	expanded, err := util.ExpandPath(path)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", path, err)
	}
	return abs, nil
}

// excludeFlags collects repeatable -x PATTERN values from the command line.
// It implements flag.Value so the CLI shim can register it directly with a
// flag.FlagSet.
type excludeFlags struct {
	patterns *[]string
}

// NewExcludeFlags returns a flag.Value that appends each -x occurrence to
// patterns, preserving the order patterns were given on the command line.
func NewExcludeFlags(patterns *[]string) interface {
	String() string
	Set(string) error
} {
	return &excludeFlags{patterns: patterns}
}

func (e *excludeFlags) String() string {
	if e.patterns == nil {
		return ""
	}
	return strings.Join(*e.patterns, ",")
}

func (e *excludeFlags) Set(value string) error {
	if value == "" {
		return fmt.Errorf("exclude pattern must not be empty")
	}
	*e.patterns = append(*e.patterns, value)
	return nil
}
