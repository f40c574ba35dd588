package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bft-labs/capframe/internal/pcaptest"
	"github.com/bft-labs/capframe/pkg/sink"
	"github.com/bft-labs/capframe/pkg/state"
)

func newTestWatcher(dir, outDir string, once bool) (*Watcher, *state.FileRepository) {
	repo := state.NewFileRepository(outDir)
	conv := NewConverter(ConverterConfig{Format: sink.FormatArrow, BatchSize: 4}, nil)
	w := NewWatcher(WatcherConfig{
		Dir:       dir,
		OutputDir: outDir,
		Format:    sink.FormatArrow,
		Debounce:  50 * time.Millisecond,
		Once:      once,
	}, conv, repo, nil)
	return w, repo
}

func TestIsCapture(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"trace.pcap", true},
		{"TRACE.PCAP", true},
		{"trace.pcap.gz", true},
		{"trace.cap", true},
		{"trace.arrow", false},
		{"trace.pcap.partial", false},
		{"capframe-state.json", false},
	}
	for _, tt := range tests {
		if got := IsCapture(tt.name); got != tt.want {
			t.Errorf("IsCapture(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestWatcher_Once(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "out")
	writeCapture(t, dir, "a.pcap", pcaptest.Payloads(9, 20)...)
	writeCapture(t, dir, "b.pcap", pcaptest.Payloads(2, 20)...)
	if err := os.WriteFile(filepath.Join(dir, "broken.pcap"), []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, repo := newTestWatcher(dir, outDir, true)
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, name := range []string{"a.arrow", "b.arrow"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(outDir, "broken.arrow")); !os.IsNotExist(err) {
		t.Errorf("output for broken capture exists: %v", err)
	}

	st, err := repo.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Files) != 3 {
		t.Fatalf("state has %d entries, want 3", len(st.Files))
	}
	a, _ := st.Lookup(filepath.Join(dir, "a.pcap"))
	if a.Rows != 9 || a.Error != "" {
		t.Errorf("a.pcap entry = %+v", a)
	}
	broken, _ := st.Lookup(filepath.Join(dir, "broken.pcap"))
	if broken.Error == "" {
		t.Error("broken.pcap recorded without error")
	}

	// A second pass skips everything already recorded.
	before := a.ConvertedAt
	w2, _ := newTestWatcher(dir, outDir, true)
	if err := w2.Run(context.Background()); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	again, _ := w2.State().Lookup(filepath.Join(dir, "a.pcap"))
	if !again.ConvertedAt.Equal(before) {
		t.Error("unchanged capture converted twice")
	}
}

func TestWatcher_PicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	outDir := t.TempDir()

	w, _ := newTestWatcher(dir, outDir, false)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to subscribe.
	time.Sleep(100 * time.Millisecond)

	tmp := filepath.Join(dir, "live.tmp")
	if err := os.WriteFile(tmp, pcaptest.Capture(pcaptest.DefaultOptions(), pcaptest.Payloads(6, 32)...), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, "live.pcap")); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(outDir, "live.arrow")
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(out); err == nil {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			<-done
			t.Fatal("capture was not converted")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}

	nums, _ := readArrow(t, out)
	if len(nums) != 6 {
		t.Errorf("output rows = %d, want 6", len(nums))
	}
}

func TestWatcher_MissingDir(t *testing.T) {
	w, _ := newTestWatcher(filepath.Join(t.TempDir(), "nope"), t.TempDir(), true)
	if err := w.Run(context.Background()); err == nil {
		t.Error("Run() on missing directory succeeded")
	}
}

func TestWatcher_ForgetsRemovedCaptures(t *testing.T) {
	dir := t.TempDir()
	outDir := t.TempDir()
	writeCapture(t, dir, "a.pcap", pcaptest.Payloads(3, 20)...)
	b := writeCapture(t, dir, "b.pcap", pcaptest.Payloads(3, 20)...)

	w, repo := newTestWatcher(dir, outDir, true)
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := os.Remove(b); err != nil {
		t.Fatal(err)
	}

	w2, _ := newTestWatcher(dir, outDir, true)
	if err := w2.Run(context.Background()); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	st, err := repo.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := st.Lookup(b); ok {
		t.Error("removed capture still recorded")
	}
	if _, ok := st.Lookup(filepath.Join(dir, "a.pcap")); !ok {
		t.Error("present capture forgotten")
	}
}

type failingRepo struct{}

func (failingRepo) Load(context.Context) (state.State, error) { return state.State{}, nil }

func (failingRepo) Save(context.Context, state.State) error { return errors.New("disk full") }

func TestWatcher_PendingTimerDoesNotBlockAfterRun(t *testing.T) {
	dir := t.TempDir()
	writeCapture(t, dir, "a.pcap", pcaptest.Payloads(2, 20)...)

	conv := NewConverter(ConverterConfig{Format: sink.FormatArrow}, nil)
	w := NewWatcher(WatcherConfig{Dir: dir, OutputDir: t.TempDir(), Format: sink.FormatArrow}, conv, failingRepo{}, nil)

	// Run stops on the state write while the context is still live.
	if err := w.Run(context.Background()); err == nil {
		t.Fatal("Run() succeeded with a failing repository")
	}

	for i := 0; i < cap(w.queue); i++ {
		w.queue <- "queued.pcap"
	}

	queued := make(chan bool, 1)
	go func() { queued <- w.enqueue(context.Background(), "late.pcap") }()
	select {
	case ok := <-queued:
		if ok {
			t.Error("enqueue() accepted a path after Run returned")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue() blocked after Run returned")
	}
}
