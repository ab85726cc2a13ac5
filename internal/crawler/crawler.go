package crawler

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vnmchuo/crawl-meter/internal/metering"
)

// Meter is the slice of the metering core the crawl loop needs: a
// per-item charge decision and the stop signal it must observe.
type Meter interface {
	Decide(ctx context.Context, item string) (metering.Decision, error)
	Done() <-chan struct{}
}

type Stats struct {
	Produced int64 `json:"produced"`
	Free     int64 `json:"free"`
	Paid     int64 `json:"paid"`
}

// Crawler simulates the fetch loop: a bounded pool of workers pulling
// page URLs, fetching them with arbitrary latency and metering every
// produced result. Production halts promptly when the meter signals
// the billing cap; items already being fetched finish normally.
type Crawler struct {
	meter       Meter
	seeds       []string
	concurrency int
	maxItems    int
	maxLatency  time.Duration

	produced atomic.Int64
	free     atomic.Int64
	paid     atomic.Int64
}

func New(meter Meter, seeds []string, concurrency, maxItems int, maxLatency time.Duration) *Crawler {
	return &Crawler{
		meter:       meter,
		seeds:       seeds,
		concurrency: concurrency,
		maxItems:    maxItems,
		maxLatency:  maxLatency,
	}
}

func (c *Crawler) Stats() Stats {
	return Stats{
		Produced: c.produced.Load(),
		Free:     c.free.Load(),
		Paid:     c.paid.Load(),
	}
}

// Run blocks until all items were produced, the meter signalled stop,
// or ctx was cancelled.
func (c *Crawler) Run(ctx context.Context) {
	urls := make(chan string)

	go func() {
		defer close(urls)
		for i := 0; i < c.maxItems; i++ {
			seed := c.seeds[i%len(c.seeds)]
			url := fmt.Sprintf("%s/page/%d", seed, i/len(c.seeds)+1)
			select {
			case urls <- url:
			case <-c.meter.Done():
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < c.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for url := range urls {
				c.fetch(ctx, url)
			}
		}()
	}
	wg.Wait()
}

func (c *Crawler) fetch(ctx context.Context, url string) {
	if c.maxLatency > 0 {
		select {
		case <-time.After(time.Duration(rand.Int63n(int64(c.maxLatency)))):
		case <-ctx.Done():
			return
		}
	}
	c.produced.Add(1)

	decision, err := c.meter.Decide(ctx, url)
	if err != nil {
		log.Printf("crawler: decide failed for %s: %v", url, err)
		return
	}
	switch decision {
	case metering.Free:
		c.free.Add(1)
	case metering.Paid:
		c.paid.Add(1)
	}
}
