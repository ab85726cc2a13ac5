package crawler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vnmchuo/crawl-meter/internal/metering"
)

type fakeMeter struct {
	mu        sync.Mutex
	calls     int
	stopAfter int // close done after this many decisions, 0 = never
	done      chan struct{}
	stopOnce  sync.Once
}

func newFakeMeter(stopAfter int) *fakeMeter {
	return &fakeMeter{stopAfter: stopAfter, done: make(chan struct{})}
}

func (f *fakeMeter) Decide(ctx context.Context, item string) (metering.Decision, error) {
	f.mu.Lock()
	f.calls++
	calls := f.calls
	f.mu.Unlock()
	if f.stopAfter > 0 && calls >= f.stopAfter {
		f.stopOnce.Do(func() { close(f.done) })
		return metering.Paid, nil
	}
	return metering.Free, nil
}

func (f *fakeMeter) Done() <-chan struct{} {
	return f.done
}

func TestCrawler_ProducesAllItems(t *testing.T) {
	meter := newFakeMeter(0)
	c := New(meter, []string{"https://example.com"}, 3, 20, 0)

	c.Run(context.Background())

	stats := c.Stats()
	if stats.Produced != 20 {
		t.Errorf("expected 20 items produced, got %d", stats.Produced)
	}
	if stats.Free != 20 {
		t.Errorf("expected 20 free items, got %d", stats.Free)
	}
}

func TestCrawler_StopsPromptlyOnMeterSignal(t *testing.T) {
	meter := newFakeMeter(5)
	c := New(meter, []string{"https://example.com"}, 2, 1000, 0)

	done := make(chan struct{})
	go func() {
		c.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("crawler did not stop after the meter signalled")
	}

	// In-flight items may complete, but production halts well before
	// the configured maximum.
	if got := c.Stats().Produced; got >= 1000 {
		t.Errorf("expected early stop, produced %d items", got)
	}
}

func TestCrawler_ContextCancellation(t *testing.T) {
	meter := newFakeMeter(0)
	c := New(meter, []string{"https://example.com"}, 2, 1000, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("crawler did not stop after context cancellation")
	}
}
