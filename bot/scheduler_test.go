package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunEverySkipsOverlappingTicks(t *testing.T) {
	if testing.Short() {
		t.Skip("drives a real schedule")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu        sync.Mutex
		active    int
		maxActive int
		calls     int
	)
	// Each crawl outlasts the schedule interval, so every other tick fires
	// while the previous crawl is still running.
	crawl := func() error {
		mu.Lock()
		active++
		calls++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(1200 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- runEvery(ctx, "@every 1s", crawl) }()
	time.Sleep(3500 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxActive, "crawls must never run concurrently")
	assert.GreaterOrEqual(t, calls, 2, "later ticks still run once the crawl finishes")
}
