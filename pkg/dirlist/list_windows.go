//go:build windows

package dirlist

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// List opens a find handle on dir+"\*" using the native batched enumeration
// primitive (FindFirstFile/FindNextFile) and decodes every record directly,
// avoiding the per-child open+stat sequence that the standard path needs.
// This single batched call returns name, size, mtime, and type together,
// which is what makes it tens of microseconds cheaper per child than the
// generic path — and spares antivirus filters a second pass per file.
func List(dir string) ([]Entry, error) {
	pattern := dir + `\*`
	patternPtr, err := windows.UTF16PtrFromString(pattern)
	if err != nil {
		return nil, err
	}

	var data windows.Win32finddata
	handle, err := windows.FindFirstFile(patternPtr, &data)
	if err != nil {
		if err == windows.ERROR_FILE_NOT_FOUND {
			return nil, nil
		}
		return nil, err
	}
	defer windows.FindClose(handle)

	var entries []Entry
	for {
		name := windows.UTF16ToString(data.FileName[:])
		if name == "." || name == ".." {
			goto next
		}
		if data.FileAttributes&windows.FILE_ATTRIBUTE_REPARSE_POINT == 0 {
			entries = append(entries, entryFromFindData(name, &data))
		}

	next:
		if err := windows.FindNextFile(handle, &data); err != nil {
			if err == syscall.ERROR_NO_MORE_FILES {
				break
			}
			return nil, err
		}
	}

	sortByName(entries)
	return entries, nil
}

func entryFromFindData(name string, data *windows.Win32finddata) Entry {
	isDir := data.FileAttributes&windows.FILE_ATTRIBUTE_DIRECTORY != 0

	var size int64
	if !isDir {
		size = int64(data.FileSizeHigh)<<32 | int64(data.FileSizeLow)
	}

	ticks := int64(data.LastWriteTime.HighDateTime)<<32 | int64(data.LastWriteTime.LowDateTime)
	mtime := ticks/10_000_000 - windowsEpochOffsetSeconds

	return Entry{Name: name, Size: size, MTime: mtime, IsDir: isDir}
}
