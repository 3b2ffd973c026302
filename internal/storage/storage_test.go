package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLayout(t *testing.T) {
	root := t.TempDir()
	s, err := New(root)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	id := "3f0c2b9e-0000-4000-8000-000000000001"
	if got, want := s.InputPath(id), filepath.Join(root, "uploads", id, "input.mp4"); got != want {
		t.Errorf("InputPath() = %s, want %s", got, want)
	}
	if got, want := s.OutputPath(id, 2), filepath.Join(root, "gifs", id, "gif_2.gif"); got != want {
		t.Errorf("OutputPath() = %s, want %s", got, want)
	}
	if got := s.GifsRoot(); got != filepath.Join(root, "gifs") {
		t.Errorf("GifsRoot() = %s", got)
	}
	for _, dir := range []string{"uploads", "gifs", "work"} {
		if info, err := os.Stat(filepath.Join(root, dir)); err != nil || !info.IsDir() {
			t.Errorf("%s not created", dir)
		}
	}
}

func TestSaveInput(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	n, err := s.SaveInput("job", strings.NewReader("video bytes"))
	if err != nil {
		t.Fatalf("SaveInput() error = %v", err)
	}
	if n != int64(len("video bytes")) {
		t.Errorf("size = %d", n)
	}
	data, err := os.ReadFile(s.InputPath("job"))
	if err != nil || string(data) != "video bytes" {
		t.Errorf("saved content = %q, %v", data, err)
	}
}

func TestDiscardInput(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveInput("job", strings.NewReader("mp4")); err != nil {
		t.Fatal(err)
	}
	if err := s.DiscardInput("job"); err != nil {
		t.Fatalf("DiscardInput() error = %v", err)
	}
	if _, err := os.Stat(s.InputDir("job")); !os.IsNotExist(err) {
		t.Errorf("input dir still present: %v", err)
	}
	if err := s.DiscardInput("never-saved"); err != nil {
		t.Errorf("DiscardInput() on missing job = %v", err)
	}
}

func TestLock_Exclusive(t *testing.T) {
	root := t.TempDir()
	s, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	lock, err := s.Lock()
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	defer lock.Unlock()

	other, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Lock(); !errors.Is(err, ErrLocked) {
		t.Errorf("second Lock() error = %v, want ErrLocked", err)
	}
}
