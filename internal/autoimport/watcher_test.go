package autoimport

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/voss/atelier/internal/coordinator"
	"github.com/voss/atelier/internal/media"
	"github.com/voss/atelier/internal/remote"
	"github.com/voss/atelier/internal/testutil"
)

// importerTestEnv sets up a drop dir, a fake remote, and an importer
// wired through a real media controller.
func importerTestEnv(t *testing.T) (string, *Importer, *testutil.FakeRemote) {
	t.Helper()
	dropDir := t.TempDir()
	fake := testutil.NewFakeRemote()
	srv := fake.Server(t)
	api := remote.NewClient(srv.URL, "", 5*time.Second)
	store := testutil.TestStore(t)
	coord := coordinator.New(api, store, 0, 0, nil, nil)
	ctrl := media.NewController(coord, nil)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return dropDir, New(ctrl, store, dropDir, "p1", logger), fake
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestSweep_ImportsAndDeduplicates(t *testing.T) {
	dropDir, imp, fake := importerTestEnv(t)
	ctx := context.Background()

	_ = os.WriteFile(filepath.Join(dropDir, "a.png"), []byte("png-a"), 0o644)
	_ = os.WriteFile(filepath.Join(dropDir, "b.mp4"), []byte("mp4-b"), 0o644)
	_ = os.WriteFile(filepath.Join(dropDir, "notes.txt"), []byte("ignore me"), 0o644)

	if err := imp.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n := fake.Calls("uploadMedia"); n != 2 {
		t.Errorf("uploads after first sweep = %d, want 2", n)
	}

	// A second sweep finds every digest in the ledger.
	if err := imp.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n := fake.Calls("uploadMedia"); n != 2 {
		t.Errorf("uploads after second sweep = %d, want 2", n)
	}

	// Same bytes under a new name are a duplicate, not a new asset.
	_ = os.WriteFile(filepath.Join(dropDir, "copy-of-a.png"), []byte("png-a"), 0o644)
	if err := imp.Sweep(ctx); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n := fake.Calls("uploadMedia"); n != 2 {
		t.Errorf("uploads after duplicate drop = %d, want 2", n)
	}
}

func TestWatch_NewFileImported(t *testing.T) {
	dropDir, imp, fake := importerTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var imported []string

	go imp.Watch(ctx, func(mediaID, path string) {
		mu.Lock()
		imported = append(imported, mediaID)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dropDir, "clip.webm"), []byte("webm-bytes"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return fake.Calls("uploadMedia") == 1
	}, "dropped file not uploaded by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(imported) == 1
	}, "expected one import callback")

	mu.Lock()
	id := imported[0]
	mu.Unlock()
	if !fake.HasMedia(id) {
		t.Errorf("media %s not on remote", id)
	}
}

func TestWatch_NewDirSwept(t *testing.T) {
	dropDir, imp, fake := importerTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go imp.Watch(ctx, nil)
	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(dropDir, "batch")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(subDir, "deep.mp3"), []byte("mp3-deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return fake.Calls("uploadMedia") >= 1
	}, "file in new subdir not uploaded by watcher")
}

func TestWatch_StartupSweep(t *testing.T) {
	dropDir, imp, fake := importerTestEnv(t)

	// Present before the watcher starts.
	_ = os.WriteFile(filepath.Join(dropDir, "early.jpg"), []byte("jpg-early"), 0o644)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go imp.Watch(ctx, nil)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return fake.Calls("uploadMedia") == 1
	}, "pre-existing file not imported by startup sweep")
}
