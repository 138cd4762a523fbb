package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// Lays out a project tree with a .caisson.yml at the root.
func projectTree(t *testing.T, subdirs ...string) string {
	t.Helper()
	top := t.TempDir()
	content := "image: alpine\n"
	if err := os.WriteFile(filepath.Join(top, FileName), []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	for _, sub := range subdirs {
		if err := os.MkdirAll(filepath.Join(top, sub), 0755); err != nil {
			t.Fatalf("creating %s: %v", sub, err)
		}
	}
	return top
}

func TestFindInCurrentDir(t *testing.T) {
	top := projectTree(t)
	gotTop, rel, cfg, err := Find(top)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if gotTop != top {
		t.Fatalf("top = %q, want %q", gotTop, top)
	}
	if rel != "." {
		t.Fatalf("rel = %q, want %q", rel, ".")
	}
	if cfg.Image != "alpine" {
		t.Fatalf("Image = %q, want %q", cfg.Image, "alpine")
	}
}

func TestFindInParent(t *testing.T) {
	top := projectTree(t, "sub")
	gotTop, rel, _, err := Find(filepath.Join(top, "sub"))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if gotTop != top {
		t.Fatalf("top = %q, want %q", gotTop, top)
	}
	if rel != "sub" {
		t.Fatalf("rel = %q, want %q", rel, "sub")
	}
}

func TestFindWayUp(t *testing.T) {
	top := projectTree(t, filepath.Join("a", "b", "c", "d"))
	gotTop, rel, _, err := Find(filepath.Join(top, "a", "b", "c", "d"))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if gotTop != top {
		t.Fatalf("top = %q, want %q", gotTop, top)
	}
	if rel != filepath.Join("a", "b", "c", "d") {
		t.Fatalf("rel = %q, want %q", rel, "a/b/c/d")
	}
}

func TestFindNotFound(t *testing.T) {
	// An empty temp dir has no config anywhere up its chain that this test
	// controls, but a developer machine might have one above /tmp. Use a
	// nested dir and only assert the not-found error type when nothing was
	// planted.
	dir := t.TempDir()
	_, _, _, err := Find(dir)
	if err != nil && !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFindBadConfigPropagates(t *testing.T) {
	top := t.TempDir()
	if err := os.WriteFile(filepath.Join(top, FileName), []byte("bogus: yes\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	_, _, _, err := Find(top)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}
}
