//go:build windows

package fileops

import (
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32       = windows.NewLazySystemDLL("kernel32.dll")
	procCopyFileExW = kernel32.NewProc("CopyFileExW")
)

// platformCopy routes the direct copy through CopyFileExW, which gives
// better throughput and less antivirus interference than a user-space byte
// loop. It still creates dst's parent directories itself, since
// CopyFileExW fails outright if the destination directory is missing.
func platformCopy(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	srcPtr, err := windows.UTF16PtrFromString(src)
	if err != nil {
		return err
	}
	dstPtr, err := windows.UTF16PtrFromString(dst)
	if err != nil {
		return err
	}

	ret, _, callErr := procCopyFileExW.Call(
		uintptr(unsafe.Pointer(srcPtr)),
		uintptr(unsafe.Pointer(dstPtr)),
		0, // no progress callback
		0, // no callback data
		0, // no cancel flag
		0, // no flags
	)
	if ret == 0 {
		return copyFileError(dst, callErr)
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	modTime := srcInfo.ModTime()
	return os.Chtimes(dst, modTime, modTime)
}

// copyFileError converts the syscall error from CopyFileExW into a regular
// Go error the rest of the core can classify with kserrors.Classify.
func copyFileError(dst string, callErr error) error {
	if errno, ok := callErr.(windows.Errno); ok {
		return &os.PathError{Op: "CopyFileExW", Path: dst, Err: errno}
	}
	return callErr
}
