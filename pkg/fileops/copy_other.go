//go:build !windows

package fileops

// platformCopy performs the direct copy on non-Windows hosts. There is no
// native batched copy primitive to prefer here, so the buffered byte-stream
// copy is the whole implementation.
func platformCopy(src, dst string) error {
	return directCopy(src, dst)
}
