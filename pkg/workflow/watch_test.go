package workflow

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, dir string) <-chan []string {
	t.Helper()

	w := NewWatcher(NewFileStore(dir), zerolog.Nop())
	w.SetDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	out := make(chan []string, 4)
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx, out) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-errc)
	})

	// Give the watcher time to register the tree.
	time.Sleep(100 * time.Millisecond)
	return out
}

// receive collects reported refs until n distinct refs were seen.
func receive(t *testing.T, out <-chan []string, n int) []string {
	t.Helper()
	seen := map[string]bool{}
	var refs []string
	timeout := time.After(5 * time.Second)
	for len(refs) < n {
		select {
		case batch := <-out:
			for _, ref := range batch {
				if !seen[ref] {
					seen[ref] = true
					refs = append(refs, ref)
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for changes, got %v", refs)
		}
	}
	sort.Strings(refs)
	return refs
}

func TestWatcherReportsChangedRecords(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a/one.json", `{}`)
	out := startWatcher(t, dir)

	writeFile(t, dir, "a/one.json", `{"nodes":[]}`)
	writeFile(t, dir, "two.json", `{}`)
	writeFile(t, dir, "notes.txt", `ignored`)

	assert.Equal(t, []string{"a/one.json", "two.json"}, receive(t, out, 2))
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	dir := t.TempDir()
	out := startWatcher(t, dir)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "new"), 0o755))
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "new/three.json", `{}`)

	assert.Equal(t, []string{"new/three.json"}, receive(t, out, 1))
}

func TestWatcherIgnoresAtomicSaveTemporaries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.json", `{"nodes":[],"connections":{}}`)
	out := startWatcher(t, dir)

	store := NewFileStore(dir)
	require.NoError(t, store.Save(context.Background(), "one.json", Meta{Category: "Communication & Messaging"}))

	assert.Equal(t, []string{"one.json"}, receive(t, out, 1))
}

func TestWatcherRef(t *testing.T) {
	w := &Watcher{}
	root := filepath.FromSlash("/data/workflows")

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{path: "/data/workflows/a.json", want: "a.json", ok: true},
		{path: "/data/workflows/sub/B.JSON", want: "sub/B.JSON", ok: true},
		{path: "/data/workflows/.a.json.123.tmp", ok: false},
		{path: "/data/workflows/a.json.bak", ok: false},
		{path: "/data/workflows/.git/x.json", ok: false},
		{path: "/data/other/a.json", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := w.ref(root, filepath.FromSlash(tt.path))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
