// Package fileops implements the File Operations component: archive-moving
// a file or directory out of the way before it is overwritten or deleted,
// and copying a file with a watchdog that abandons a stalled copy rather
// than risk corrupting it with a forced cancel.
package fileops

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/paulschiretz/kitchensync/pkg/kserrors"
	"github.com/paulschiretz/kitchensync/pkg/pool"
)

// ArchiveDirName is the reserved directory name that is never descended
// into, compared, or deleted as ordinary source or destination content.
const ArchiveDirName = ".kitchensync"

// copyBufferPool backs every direct-copy byte stream. 64 KiB sits
// comfortably inside the 8 KiB - 1 MiB range the copy contract allows.
var copyBufferPool = pool.NewFixedBuffer(64 * 1024)

// ArchiveTimestamp formats t as the 23-byte run-timestamp string used for
// every archive subdirectory created during one sync call. Windows
// disallows ':' in file names, so '-' separates hour, minute, and second.
func ArchiveTimestamp(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d_%02d-%02d-%02d.%03d",
		t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(),
		t.Nanosecond()/1_000_000)
}

// Archive moves the file at absPath into dirname(absPath)/.kitchensync/<timestamp>/<leafname>.
// It first verifies the file still exists — a race window against concurrent
// host modifications — and fails with a NotFound-classified error if not.
// The move is always a rename, never a copy-then-delete; a cross-filesystem
// rename failure is surfaced rather than silently falling back to a copy.
func Archive(absPath, timestamp string, preview bool) (archivedPath string, err error) {
	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return "", os.ErrNotExist
		}
		return "", err
	}

	archiveDir := filepath.Join(filepath.Dir(absPath), ArchiveDirName, timestamp)
	archivedPath = filepath.Join(archiveDir, filepath.Base(absPath))

	if preview {
		return archivedPath, nil
	}

	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", err
	}
	if err := os.Rename(absPath, archivedPath); err != nil {
		return "", err
	}
	return archivedPath, nil
}

// ArchiveDir moves an entire directory subtree that exists only at the
// destination into destRoot/.kitchensync/<timestamp>/<path-relative-to-destRoot>,
// as a single rename of the subtree root — never a recursive copy.
func ArchiveDir(absDirPath, destRoot, timestamp string, preview bool) (archivedPath string, err error) {
	if _, err := os.Stat(absDirPath); err != nil {
		if os.IsNotExist(err) {
			return "", os.ErrNotExist
		}
		return "", err
	}

	rel, err := filepath.Rel(destRoot, absDirPath)
	if err != nil {
		rel = filepath.Base(absDirPath)
	}
	archiveDir := filepath.Join(destRoot, ArchiveDirName, timestamp)
	archivedPath = filepath.Join(archiveDir, rel)

	if preview {
		return archivedPath, nil
	}

	if err := os.MkdirAll(filepath.Dir(archivedPath), 0755); err != nil {
		return "", err
	}
	if err := os.Rename(absDirPath, archivedPath); err != nil {
		return "", err
	}
	return archivedPath, nil
}

// Restore reverse-renames an archived file back into place, used to roll
// back a copy whose post-copy size verification failed.
func Restore(archivedPath, destPath string, preview bool) error {
	if preview {
		return nil
	}
	if _, err := os.Stat(archivedPath); err != nil {
		return err
	}
	return os.Rename(archivedPath, destPath)
}

// Copy copies src to dst. When timeoutSeconds is 0 it performs a direct,
// synchronous copy. Otherwise it spawns one worker goroutine to perform the
// copy and polls a mutex-protected completion flag at ~10ms intervals; if
// the deadline elapses with the worker still unfinished, the worker is
// deliberately abandoned (left to finish or never finish in the background)
// and Copy fails with a Timeout-classified error. There is no safe way to
// force-cancel a goroutine blocked in a syscall, so abandonment — not
// cancellation — is the only option that can't corrupt the partial copy.
func Copy(src, dst string, timeoutSeconds int) error {
	if timeoutSeconds <= 0 {
		return platformCopy(src, dst)
	}

	var mu sync.Mutex
	completed := false
	var workerErr error

	go func() {
		err := platformCopy(src, dst)
		mu.Lock()
		completed = true
		workerErr = err
		mu.Unlock()
	}()

	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		mu.Lock()
		done, err := completed, workerErr
		mu.Unlock()
		if done {
			return err
		}
		if time.Now().After(deadline) {
			return kserrors.ErrTimeout
		}
	}
	return kserrors.ErrTimeout
}

// directCopy streams src to dst through the fixed-size buffer pool,
// creating dst's parent directories, preserving src's permission bits, and
// finally setting dst's mtime to src's mtime. It is the whole of
// platformCopy on non-Windows hosts; the Windows platformCopy uses
// CopyFileExW and does not call it.
func directCopy(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}

	bufPtr := copyBufferPool.Get()
	defer copyBufferPool.Put(bufPtr)

	if _, err := io.CopyBuffer(dstFile, srcFile, *bufPtr); err != nil {
		dstFile.Close()
		return err
	}
	if err := dstFile.Close(); err != nil {
		return err
	}

	modTime := srcInfo.ModTime()
	return os.Chtimes(dst, modTime, modTime)
}
