package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWatcherAddRemoveDirectories(t *testing.T) {
	dir := t.TempDir()

	w := New(nil, []string{".txt"}, true, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	dirs := w.Directories()
	if len(dirs) != 1 || filepath.Clean(dirs[0]) != filepath.Clean(dir) {
		t.Errorf("Directories() = %v", dirs)
	}

	// Adding the same root twice is a no-op.
	if err := w.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	if len(w.Directories()) != 1 {
		t.Errorf("after duplicate add: %v", w.Directories())
	}

	if err := w.RemoveDirectory(dir); err != nil {
		t.Fatal(err)
	}
	if len(w.Directories()) != 0 {
		t.Errorf("after remove: %v", w.Directories())
	}
}

func TestWatcherIngestsSettledFiles(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var ingested []string
	onIngest := func(path string) {
		mu.Lock()
		ingested = append(ingested, path)
		mu.Unlock()
	}

	w := New([]string{dir}, []string{".txt"}, true, onIngest, nil, WithSettle(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	doc := filepath.Join(dir, "report.txt")
	if err := os.WriteFile(doc, []byte("dropped document"), 0644); err != nil {
		t.Fatal(err)
	}
	// Filtered extension must not trigger ingestion.
	if err := os.WriteFile(filepath.Join(dir, "skip.bin"), []byte{0x1}, 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(ingested)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ingested) != 1 {
		t.Fatalf("ingested = %v, want just the txt file", ingested)
	}
	if filepath.Base(ingested[0]) != "report.txt" {
		t.Errorf("ingested %s", ingested[0])
	}
}

func TestWatcherSyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pre.md"), []byte("existing"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pre.bin"), []byte{0x1}, 0644); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var ingested []string
	w := New([]string{dir}, []string{".md"}, true, func(path string) {
		mu.Lock()
		ingested = append(ingested, path)
		mu.Unlock()
	}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	w.SyncExistingFiles()

	mu.Lock()
	defer mu.Unlock()
	if len(ingested) != 1 || filepath.Base(ingested[0]) != "pre.md" {
		t.Errorf("ingested = %v", ingested)
	}
}

func TestMatchExtension(t *testing.T) {
	cases := []struct {
		path string
		exts []string
		want bool
	}{
		{"a/b/doc.txt", []string{".txt"}, true},
		{"a/b/doc.TXT", []string{".txt"}, true},
		{"a/b/doc.txt", []string{"txt"}, true},
		{"a/b/doc.pdf", []string{".txt"}, false},
		{"a/b/doc.pdf", nil, true},
	}
	for _, tc := range cases {
		if got := matchExtension(tc.path, tc.exts); got != tc.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tc.path, tc.exts, got, tc.want)
		}
	}
}
