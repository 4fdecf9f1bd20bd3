// Package kserrors defines the closed set of error categories the sync core
// distinguishes, and a classifier that maps a concrete OS-level error onto one.
package kserrors

import (
	"context"
	"errors"
	"os"
	"runtime"
	"syscall"

	"github.com/paulschiretz/kitchensync/pkg/util"
)

// Kind is one of the error categories the engine reasons about. It is never a
// Go type in its own right, only a classification of an underlying error.
type Kind int

const (
	// Unknown is returned when no more specific classification applies.
	Unknown Kind = iota
	NotFound
	AccessDenied
	DiskFull
	QuotaExceeded
	Timeout
	SizeMismatch
	BadPattern
	RootInaccessible
)

var kindNames = map[Kind]string{
	Unknown:          "Unknown",
	NotFound:         "NotFound",
	AccessDenied:     "AccessDenied",
	DiskFull:         "DiskFull",
	QuotaExceeded:    "QuotaExceeded",
	Timeout:          "Timeout",
	SizeMismatch:     "SizeMismatch",
	BadPattern:       "BadPattern",
	RootInaccessible: "RootInaccessible",
}

var namesToKind = util.InvertMap(kindNames)

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// ParseKind converts the String() form back into a Kind.
func ParseKind(s string) (Kind, bool) {
	k, ok := namesToKind[s]
	return k, ok
}

// ErrTimeout is the sentinel the copy watchdog reports when a worker fails to
// make progress within the configured deadline.
var ErrTimeout = errors.New("kitchensync: copy watchdog deadline exceeded")

// ErrSizeMismatch is returned by post-copy verification when the destination's
// size does not match the source's at the time of verification.
var ErrSizeMismatch = errors.New("kitchensync: post-copy size mismatch")

// Classify inspects a concrete error returned from the filesystem or from a
// Copy/Archive call and maps it to the category the engine cares about.
// Unrecognized errors classify as Unknown, which the engine treats as a
// non-fatal, per-entry failure.
func Classify(err error) Kind {
	if err == nil {
		return Unknown
	}
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return Timeout
	case errors.Is(err, ErrSizeMismatch):
		return SizeMismatch
	case os.IsNotExist(err):
		return NotFound
	case os.IsPermission(err):
		return AccessDenied
	}

	if isDiskFull(err) {
		return DiskFull
	}
	if isQuotaExceeded(err) {
		return QuotaExceeded
	}
	return Unknown
}

// errno extracts the innermost syscall.Errno from a (possibly wrapped) error,
// the way the OS actually reports disk-full and quota conditions.
func errno(err error) (syscall.Errno, bool) {
	var e syscall.Errno
	if errors.As(err, &e) {
		return e, true
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return errno(pathErr.Err)
	}
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return errno(linkErr.Err)
	}
	return 0, false
}

func isDiskFull(err error) bool {
	e, ok := errno(err)
	if !ok {
		return false
	}
	if runtime.GOOS == "windows" {
		// ERROR_DISK_FULL = 112, ERROR_HANDLE_DISK_FULL = 39.
		return e == 112 || e == 39
	}
	return e == syscall.ENOSPC
}

func isQuotaExceeded(err error) bool {
	e, ok := errno(err)
	if !ok {
		return false
	}
	if runtime.GOOS == "windows" {
		return false
	}
	return e == syscall.EDQUOT
}
