package discovery

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindVideoFilesSortsAndFiltersExtensions(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.mp4", "a.mkv", "notes.txt", ".hidden.mp4"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("WriteFile %s: %v", name, err)
		}
	}

	files, err := FindVideoFiles(dir)
	if err != nil {
		t.Fatalf("FindVideoFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2: %v", len(files), files)
	}
	if filepath.Base(files[0]) != "a.mkv" || filepath.Base(files[1]) != "b.mp4" {
		t.Errorf("files = %v, want alphabetical [a.mkv, b.mp4]", files)
	}
}

func TestFindVideoFilesSkipsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.mp4"), []byte("x"), 0644)
	os.Mkdir(filepath.Join(dir, "sub.mp4"), 0755)

	files, err := FindVideoFiles(dir)
	if err != nil {
		t.Fatalf("FindVideoFiles: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d files, want 1 (directory entries must be skipped): %v", len(files), files)
	}
}

func TestFindVideoFilesErrorsOnEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	if _, err := FindVideoFiles(dir); err == nil {
		t.Fatal("expected an error for a directory with no video files")
	}
}

func TestFindVideoFilesErrorsOnMissingDirectory(t *testing.T) {
	if _, err := FindVideoFiles(filepath.Join(t.TempDir(), "does-not-exist")); err == nil {
		t.Fatal("expected an error for a nonexistent directory")
	}
}

func TestFindVideoFilesErrorsWhenGivenAFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-a-dir.mp4")
	os.WriteFile(path, []byte("x"), 0644)
	if _, err := FindVideoFiles(path); err == nil {
		t.Fatal("expected an error when inputDir points at a file")
	}
}
