//go:build !windows

package dirlist

import (
	"os"
	"path/filepath"
)

// List reads dir's children via the platform's ordinary directory iterator.
// Symbolic links are skipped outright — this removes the only natural
// source of traversal cycles. For every remaining child, size and mtime
// come from a stat of the child; a directory whose stat fails is still
// returned, with size=0, mtime=0, is_dir=true, so traversal can still
// attempt to recurse into it and report the real error at that point.
func List(dir string) ([]Entry, error) {
	children, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(children))
	for _, child := range children {
		if child.Type()&os.ModeSymlink != 0 {
			continue
		}

		if child.IsDir() {
			info, err := os.Stat(filepath.Join(dir, child.Name()))
			if err != nil {
				entries = append(entries, Entry{Name: child.Name(), IsDir: true})
				continue
			}
			entries = append(entries, Entry{
				Name:  child.Name(),
				MTime: info.ModTime().Unix(),
				IsDir: true,
			})
			continue
		}

		info, err := child.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:  child.Name(),
			Size:  info.Size(),
			MTime: info.ModTime().Unix(),
			IsDir: false,
		})
	}

	sortByName(entries)
	return entries, nil
}
