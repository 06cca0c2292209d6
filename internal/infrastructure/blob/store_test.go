package blob

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestStore_SaveAndOpen(t *testing.T) {
	store := newTestStore(t)

	key, err := store.Save("clip.mp4", strings.NewReader("video bytes"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if key != "clip.mp4" {
		t.Errorf("Save() key = %q, want clip.mp4", key)
	}

	rc, err := store.Open("clip.mp4")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != "video bytes" {
		t.Errorf("content = %q, want %q", data, "video bytes")
	}

	size, err := store.Size("clip.mp4")
	if err != nil {
		t.Fatalf("Size() error = %v", err)
	}
	if size != int64(len("video bytes")) {
		t.Errorf("Size() = %d, want %d", size, len("video bytes"))
	}
}

func TestStore_Save_RejectsEmptyContent(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Save("empty.mp4", strings.NewReader("")); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("Save() error = %v, want ErrEmptyContent", err)
	}

	// The half-written file must not survive.
	if _, err := os.Stat(filepath.Join(store.Root(), "empty.mp4")); !os.IsNotExist(err) {
		t.Errorf("empty file left behind: %v", err)
	}
}

func TestStore_Save_RejectsCollision(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Save("clip.mp4", strings.NewReader("one")); err != nil {
		t.Fatalf("first Save() error = %v", err)
	}
	if _, err := store.Save("clip.mp4", strings.NewReader("two")); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("second Save() error = %v, want ErrAlreadyExists", err)
	}
}

func TestStore_KeyValidation(t *testing.T) {
	store := newTestStore(t)

	keys := []string{
		"",
		"../escape.mp4",
		"a/b.mp4",
		`a\b.mp4`,
		"..",
	}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			if _, err := store.Save(key, strings.NewReader("x")); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("Save(%q) error = %v, want ErrInvalidKey", key, err)
			}
			if _, err := store.Open(key); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("Open(%q) error = %v, want ErrInvalidKey", key, err)
			}
			if err := store.Delete(key); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("Delete(%q) error = %v, want ErrInvalidKey", key, err)
			}
		})
	}
}

func TestStore_Open_NotFound(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Open("missing.mp4"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open() error = %v, want ErrNotFound", err)
	}
	if _, err := store.Size("missing.mp4"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Size() error = %v, want ErrNotFound", err)
	}
}

func TestStore_Delete_Idempotent(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Save("clip.mp4", strings.NewReader("bytes")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := store.Delete("clip.mp4"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	// Second delete of the same key must succeed quietly.
	if err := store.Delete("clip.mp4"); err != nil {
		t.Errorf("repeat Delete() error = %v, want nil", err)
	}
}

func TestStore_Promote(t *testing.T) {
	temp := newTestStore(t)
	processed := newTestStore(t)

	if _, err := temp.Save("work.mp4", strings.NewReader("encoded")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	srcPath, err := temp.Path("work.mp4")
	if err != nil {
		t.Fatalf("Path() error = %v", err)
	}

	if err := processed.Promote(srcPath, "final.mp4"); err != nil {
		t.Fatalf("Promote() error = %v", err)
	}

	// Source is gone, destination readable.
	if _, err := temp.Open("work.mp4"); !errors.Is(err, ErrNotFound) {
		t.Errorf("source still present after Promote: %v", err)
	}
	rc, err := processed.Open("final.mp4")
	if err != nil {
		t.Fatalf("Open() after Promote error = %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "encoded" {
		t.Errorf("promoted content = %q, want %q", data, "encoded")
	}
}
