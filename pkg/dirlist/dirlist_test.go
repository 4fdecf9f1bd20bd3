package dirlist

import (
	"os"
	"path/filepath"
	"testing"
)

func TestList_SortedAndPopulated(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "b.txt"), "B")
	mustWrite(t, filepath.Join(dir, "a.txt"), "A")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	entries, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Name != "a.txt" || entries[1].Name != "b.txt" || entries[2].Name != "sub" {
		t.Errorf("entries not sorted by name: %+v", entries)
	}

	var file *Entry
	for i := range entries {
		if entries[i].Name == "a.txt" {
			file = &entries[i]
		}
	}
	if file == nil {
		t.Fatal("a.txt not found in listing")
	}
	if file.IsDir {
		t.Error("a.txt should not be reported as a directory")
	}
	if file.Size != 1 {
		t.Errorf("a.txt size = %d, want 1", file.Size)
	}
}

func TestList_EmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	entries, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries for an empty directory, want 0", len(entries))
	}
}

func TestList_NonexistentDirectory(t *testing.T) {
	if _, err := List(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected an error listing a nonexistent directory")
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
