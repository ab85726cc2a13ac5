package metering

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vnmchuo/crawl-meter/internal/charging"
	"github.com/vnmchuo/crawl-meter/internal/ledger"
)

// ErrStopped is returned by Decide once the billing cap was reached
// and no further items should be metered.
var ErrStopped = errors.New("metering stopped: billing cap reached")

type Decision int

const (
	Free Decision = iota
	Paid
)

func (d Decision) String() string {
	if d == Free {
		return "free"
	}
	return "paid"
}

// Meter makes the free-vs-paid call for every produced item. The
// first threshold units of a period are free across all workers,
// enforced approximately through the shared ledger and the tracker's
// optimistic local count.
type Meter struct {
	store        ledger.Store
	charger      charging.Service
	tracker      *Tracker
	partitionKey string
	workerID     string
	threshold    int64
	tracer       trace.Tracer
	now          func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

func NewMeter(store ledger.Store, charger charging.Service, tracker *Tracker, partitionKey, workerID string, threshold int64, tracer trace.Tracer) *Meter {
	return &Meter{
		store:        store,
		charger:      charger,
		tracker:      tracker,
		partitionKey: partitionKey,
		workerID:     workerID,
		threshold:    threshold,
		tracer:       tracer,
		now:          time.Now,
		stop:         make(chan struct{}),
	}
}

// Done is closed when the billing cap was reached. Producers must
// observe it and stop issuing Decide calls; in-flight ones complete.
func (m *Meter) Done() <-chan struct{} {
	return m.stop
}

// Stop halts further metering; subsequent Decide calls return
// ErrStopped. Safe to call more than once.
func (m *Meter) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// Decide meters one produced item. A Free decision appends a usage
// record to the shared ledger; a Paid one invokes the external charge.
// Charge failures surface to the caller and are not retried here.
func (m *Meter) Decide(ctx context.Context, item string) (Decision, error) {
	select {
	case <-m.stop:
		return Paid, ErrStopped
	default:
	}

	ctx, span := m.tracer.Start(ctx, "metering.decide")
	defer span.End()

	n := m.tracker.Reserve()
	if n <= m.threshold {
		rec := ledger.NewUsageRecord(m.workerID, 1, m.now())
		if err := m.store.Append(ctx, m.partitionKey, rec); err != nil {
			// The item stays free locally; slight under-billing beats
			// losing the item.
			log.Printf("meter: usage append failed for %s: %v", item, err)
		}
		span.SetAttributes(
			attribute.String("decision", Free.String()),
			attribute.Int64("free_units_used", n),
		)
		return Free, nil
	}

	res, err := m.charger.Charge(ctx, charging.KindResult, 1)
	if err != nil {
		return Paid, err
	}
	if res.LimitReached {
		log.Printf("meter: billing cap reached, stopping production")
		m.Stop()
	}
	span.SetAttributes(
		attribute.String("decision", Paid.String()),
		attribute.Bool("limit_reached", res.LimitReached),
	)
	return Paid, nil
}
