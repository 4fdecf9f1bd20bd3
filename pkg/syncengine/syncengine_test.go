package syncengine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulschiretz/kitchensync/pkg/dirlist"
	"github.com/paulschiretz/kitchensync/pkg/fileops"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func read(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(b)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// S1: Initial copy with exclusion.
func TestSync_InitialCopyWithExclusion(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	write(t, filepath.Join(src, "a.txt"), "A")
	write(t, filepath.Join(src, "sub", "b.txt"), "B")
	write(t, filepath.Join(src, "tmp.tmp"), "T")

	result, err := Sync(Config{SrcRoot: src, DstRoot: dst, ExcludePatterns: []string{"*.tmp"}})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Stats.FilesCopied != 2 {
		t.Errorf("FilesCopied = %d, want 2", result.Stats.FilesCopied)
	}
	if result.Stats.DirsCreated != 1 {
		t.Errorf("DirsCreated = %d, want 1", result.Stats.DirsCreated)
	}
	if exists(filepath.Join(dst, "tmp.tmp")) {
		t.Error("tmp.tmp should have been excluded")
	}
}

// S2: Timestamp-name skip.
func TestSync_TimestampNameSkip(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	write(t, filepath.Join(src, "backup_20240115_1430.zip"), "Z")
	write(t, filepath.Join(src, "report.pdf"), "P")

	_, err := Sync(Config{SrcRoot: src, DstRoot: dst, SkipTimestamps: true})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !exists(filepath.Join(dst, "report.pdf")) {
		t.Error("report.pdf should have been copied")
	}
	if exists(filepath.Join(dst, "backup_20240115_1430.zip")) {
		t.Error("the timestamp-like file should not have been copied")
	}
}

// S3: Update with archive.
func TestSync_UpdateWithArchive(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	write(t, filepath.Join(src, "a.txt"), "NEW CONTENT")
	write(t, filepath.Join(dst, "a.txt"), "OLD")

	result, err := Sync(Config{SrcRoot: src, DstRoot: dst})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Stats.FilesUpdated != 1 {
		t.Errorf("FilesUpdated = %d, want 1", result.Stats.FilesUpdated)
	}
	if got := read(t, filepath.Join(dst, "a.txt")); got != "NEW CONTENT" {
		t.Errorf("dst a.txt = %q, want %q", got, "NEW CONTENT")
	}

	archiveDir := filepath.Join(dst, fileops.ArchiveDirName)
	runDirs, err := os.ReadDir(archiveDir)
	if err != nil || len(runDirs) != 1 {
		t.Fatalf("expected exactly one run archive dir under %s, err=%v dirs=%v", archiveDir, err, runDirs)
	}
	archived := filepath.Join(archiveDir, runDirs[0].Name(), "a.txt")
	if got := read(t, archived); got != "OLD" {
		t.Errorf("archived a.txt = %q, want %q", got, "OLD")
	}
}

// S4: Deletion with archive.
func TestSync_DeletionWithArchive(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	write(t, filepath.Join(dst, "x.txt"), "X")

	result, err := Sync(Config{SrcRoot: src, DstRoot: dst})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Stats.FilesDeleted != 1 {
		t.Errorf("FilesDeleted = %d, want 1", result.Stats.FilesDeleted)
	}
	if exists(filepath.Join(dst, "x.txt")) {
		t.Error("x.txt should have been removed from the destination")
	}

	archiveDir := filepath.Join(dst, fileops.ArchiveDirName)
	runDirs, err := os.ReadDir(archiveDir)
	if err != nil || len(runDirs) != 1 {
		t.Fatalf("expected exactly one run archive dir, err=%v dirs=%v", err, runDirs)
	}
	archived := filepath.Join(archiveDir, runDirs[0].Name(), "x.txt")
	if got := read(t, archived); got != "X" {
		t.Errorf("archived x.txt = %q, want %q", got, "X")
	}
}

// S5: Preview is inert.
func TestSync_PreviewIsInert(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	write(t, filepath.Join(src, "a.txt"), "NEW CONTENT")
	write(t, filepath.Join(dst, "a.txt"), "OLD")

	result, err := Sync(Config{SrcRoot: src, DstRoot: dst, Preview: true})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if got := read(t, filepath.Join(dst, "a.txt")); got != "OLD" {
		t.Errorf("preview must not mutate the destination, got %q", got)
	}
	if exists(filepath.Join(dst, fileops.ArchiveDirName)) {
		t.Error("preview must not create an archive directory")
	}
	if result.Stats.FilesUpdated != 1 {
		t.Errorf("FilesUpdated = %d, want 1 even in preview", result.Stats.FilesUpdated)
	}
}

// S6: .kitchensync is sacred.
func TestSync_KitchensyncIsSacred(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	write(t, filepath.Join(dst, fileops.ArchiveDirName, "old", "fake.txt"), "F")
	write(t, filepath.Join(src, "a.txt"), "A")

	result, err := Sync(Config{SrcRoot: src, DstRoot: dst, ExcludePatterns: []string{"*"}})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	fakePath := filepath.Join(dst, fileops.ArchiveDirName, "old", "fake.txt")
	if got := read(t, fakePath); got != "F" {
		t.Errorf(".kitchensync contents must be untouched, got %q", got)
	}
	if result.Stats.FilesDeleted != 0 || result.Stats.FilesCopied != 0 {
		t.Errorf("the .kitchensync directory must not be counted anywhere: %+v", result.Stats)
	}
}

// Invariant 1: idempotence.
func TestSync_Idempotence(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	write(t, filepath.Join(src, "a.txt"), "A")
	write(t, filepath.Join(src, "sub", "b.txt"), "B")

	if _, err := Sync(Config{SrcRoot: src, DstRoot: dst}); err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	second, err := Sync(Config{SrcRoot: src, DstRoot: dst})
	if err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if second.Stats.FilesCopied != 0 || second.Stats.FilesUpdated != 0 {
		t.Errorf("second run should be a no-op, got %+v", second.Stats)
	}
}

// Invariant 3: archive-then-copy atomicity. verifySize must roll a
// size-mismatched copy back to the previously archived file rather than
// leaving the truncated copy in place.
func TestVerifySize_RestoresArchiveOnSizeMismatch(t *testing.T) {
	srcDir, dst := t.TempDir(), t.TempDir()
	srcAbs := filepath.Join(srcDir, "a.txt")
	write(t, srcAbs, "NEW CONTENT")

	dstAbs := filepath.Join(dst, "a.txt")
	write(t, dstAbs, "TRUNC") // stands in for a copy that under-delivered bytes

	archivedPath := filepath.Join(dst, fileops.ArchiveDirName, "2024-01-01_00-00-00.000", "a.txt")
	write(t, archivedPath, "OLD")

	e := &engine{cfg: Config{}}
	if err := e.verifySize(srcAbs, dstAbs, archivedPath); err == nil {
		t.Fatal("expected a size-mismatch error")
	}

	if got := read(t, dstAbs); got != "OLD" {
		t.Errorf("dst should be restored from the archive, got %q", got)
	}
	if exists(archivedPath) {
		t.Error("the archived file should have been moved back into place, not left behind")
	}
}

// Invariant 3, no-archive case: with nothing to restore, the truncated copy
// must still be removed rather than left behind.
func TestVerifySize_RemovesTruncatedCopyWithNoArchive(t *testing.T) {
	srcDir, dst := t.TempDir(), t.TempDir()
	srcAbs := filepath.Join(srcDir, "a.txt")
	write(t, srcAbs, "NEW CONTENT")

	dstAbs := filepath.Join(dst, "a.txt")
	write(t, dstAbs, "TRUNC")

	e := &engine{cfg: Config{}}
	if err := e.verifySize(srcAbs, dstAbs, ""); err == nil {
		t.Fatal("expected a size-mismatch error")
	}
	if exists(dstAbs) {
		t.Error("the truncated copy should have been removed, never left in place")
	}
}

// Boundary: same-millisecond mtimes compare equal.
func TestDecide_EqualSizeAndMTime(t *testing.T) {
	now := time.Now().Unix()
	s := dirlist.Entry{Name: "a.txt", Size: 10, MTime: now}
	d := dirlist.Entry{Name: "a.txt", Size: 10, MTime: now}
	if got := decide(s, &d, true); got != ActionSkip {
		t.Errorf("decide = %v, want ActionSkip", got)
	}
}

func TestDecide_NilDest(t *testing.T) {
	s := dirlist.Entry{Name: "a.txt", Size: 10, MTime: 100}
	if got := decide(s, nil, true); got != ActionCopy {
		t.Errorf("decide = %v, want ActionCopy", got)
	}
}

func TestDecide_UseModTimeFalseNeverForcesCopy(t *testing.T) {
	s := dirlist.Entry{Name: "a.txt", Size: 10, MTime: 200}
	d := dirlist.Entry{Name: "a.txt", Size: 10, MTime: 100}
	if got := decide(s, &d, false); got != ActionSkip {
		t.Errorf("decide = %v, want ActionSkip when use_modtime is false", got)
	}
}

func TestDecide_SizeMismatchAlwaysUpdates(t *testing.T) {
	s := dirlist.Entry{Name: "a.txt", Size: 20, MTime: 100}
	d := dirlist.Entry{Name: "a.txt", Size: 10, MTime: 100}
	if got := decide(s, &d, false); got != ActionUpdate {
		t.Errorf("decide = %v, want ActionUpdate on size mismatch", got)
	}
}
