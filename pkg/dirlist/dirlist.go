// Package dirlist returns one directory's children as a single, owned batch.
// Two implementations exist: a Windows fast path built on the batched
// FindFirstFile/FindNextFile primitive (list_windows.go), and a standard
// path built on the platform's ordinary directory iterator plus per-child
// stat (list_other.go). Both are selected at compile time via build tags and
// produce a name-sorted batch with identical semantics.
package dirlist

import "sort"

// Entry is the minimal per-child metadata record the Sync Engine compares.
// An Entry's Name never contains a path separator; it is a leaf name only.
type Entry struct {
	Name  string
	Size  int64 // bytes; 0 for directories
	MTime int64 // seconds since the Unix epoch; 0 permitted only when unavailable for a directory
	IsDir bool
}

// windowsEpochOffsetSeconds is the number of seconds between the Windows
// FILETIME epoch (1601-01-01) and the Unix epoch (1970-01-01).
const windowsEpochOffsetSeconds = 11_644_473_600

func sortByName(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
}
