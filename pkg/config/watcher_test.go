package config

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu    sync.Mutex
	paths map[string]int
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{paths: make(map[string]int)}
}

func (n *recordingNotifier) NotifyPathChanged(path string) {
	n.mu.Lock()
	n.paths[path]++
	n.mu.Unlock()
}

func (n *recordingNotifier) seen(path string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.paths[path] > 0
}

func TestWatcherNotifiesOnWrite(t *testing.T) {
	root := t.TempDir()
	notifier := newRecordingNotifier()

	w, err := NewWatcher(root, notifier, nil)
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(root, "blocklist.txt")
	require.NoError(t, os.WriteFile(path, []byte("phrase\n"), 0o644))

	require.Eventually(t, func() bool { return notifier.seen(path) },
		3*time.Second, 20*time.Millisecond)
}

func TestWatcherNotifiesInExistingProfileDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "palautteet"), 0o755))
	notifier := newRecordingNotifier()

	w, err := NewWatcher(root, notifier, nil)
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(root, "palautteet", "grantlist.txt")
	require.NoError(t, os.WriteFile(path, []byte("example321\n"), 0o644))

	require.Eventually(t, func() bool { return notifier.seen(path) },
		3*time.Second, 20*time.Millisecond)
}

func TestWatcherPicksUpNewProfileDir(t *testing.T) {
	root := t.TempDir()
	notifier := newRecordingNotifier()

	w, err := NewWatcher(root, notifier, nil)
	require.NoError(t, err)
	defer w.Close()

	dir := filepath.Join(root, "fresh")
	require.NoError(t, os.Mkdir(dir, 0o755))

	// The directory's create event must reach the loop before writes inside
	// it are visible, so keep rewriting until one lands.
	path := filepath.Join(dir, "blocklist.txt")
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("phrase\n"), 0o644)
		return notifier.seen(path)
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatcherDebouncesOnChange(t *testing.T) {
	root := t.TempDir()
	notifier := newRecordingNotifier()

	var calls atomic.Int64
	w, err := NewWatcher(root, notifier, nil,
		WithOnChange(func() { calls.Add(1) }),
		WithDebounce(30*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(root, "blocklist.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("two\n"), 0o644))

	require.Eventually(t, func() bool { return calls.Load() >= 1 },
		3*time.Second, 20*time.Millisecond)
}

func TestWatcherClose(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), newRecordingNotifier(), nil)
	require.NoError(t, err)
	assert.NoError(t, w.Close())
}
