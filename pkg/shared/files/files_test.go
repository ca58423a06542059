package files

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "copy")

	mustWrite(t, filepath.Join(src, "index.html"), "<html></html>")
	mustWrite(t, filepath.Join(src, "js", "app.js"), "var a = 1;")

	if err := CopyTree(src, dst); err != nil {
		t.Fatalf("copy failed: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dst, "js", "app.js"))
	if err != nil {
		t.Fatalf("copied file missing: %v", err)
	}
	if string(got) != "var a = 1;" {
		t.Errorf("unexpected content %q", got)
	}
}

func TestEnsureWithinRoot(t *testing.T) {
	root := t.TempDir()

	ok, err := EnsureWithinRoot(root, filepath.Join(root, "sub", "file.html"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok == "" {
		t.Fatal("expected resolved path")
	}

	if _, err := EnsureWithinRoot(root, filepath.Join(root, "..", "escape.html")); err == nil {
		t.Fatal("expected error for path escaping root")
	}
}

func TestValidateDir(t *testing.T) {
	dir := t.TempDir()
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateDir(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
	file := filepath.Join(dir, "f.txt")
	mustWrite(t, file, "x")
	if err := ValidateDir(file); err == nil {
		t.Fatal("expected error for regular file")
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
