package metering

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/vnmchuo/crawl-meter/internal/charging"
	"github.com/vnmchuo/crawl-meter/internal/ledger"
)

type RentalState string

const (
	RentalUnchecked RentalState = "unchecked"
	RentalPending   RentalState = "pending"
	RentalCharged   RentalState = "charged"
	RentalSkipped   RentalState = "skipped"
)

// Coordinator decides whether this worker pays the once-per-period
// rental fee. The ledger has no compare-and-append, so the claim is a
// soft lock: write a period marker, wait out the settle delay so
// concurrent claims become visible, then re-read and charge only if
// this worker's marker is still the earliest one. On any doubt
// (store failure, lost race) it skips; a missed rental charge is
// acceptable, a doubled one is not.
type Coordinator struct {
	store        ledger.Store
	charger      charging.Service
	workerID     string
	partitionKey string
	settleDelay  time.Duration
	now          func() time.Time

	// OnLimitReached, when set, is invoked if the rental charge
	// reports the billing cap. Must be set before Run starts.
	OnLimitReached func()

	mu    sync.Mutex
	state RentalState
}

func NewCoordinator(store ledger.Store, charger charging.Service, workerID, partitionKey string, settleDelay time.Duration) *Coordinator {
	return &Coordinator{
		store:        store,
		charger:      charger,
		workerID:     workerID,
		partitionKey: partitionKey,
		settleDelay:  settleDelay,
		now:          time.Now,
		state:        RentalUnchecked,
	}
}

func (c *Coordinator) State() RentalState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) setState(s RentalState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run executes the full claim cycle. It blocks for the settle delay
// when a claim was staked, so callers run it in its own goroutine.
// The returned error is non-nil only for a failed rental charge call;
// coordination failures resolve to Skipped and are just logged.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.claim(ctx) {
		return nil
	}

	select {
	case <-time.After(c.settleDelay):
	case <-ctx.Done():
		c.setState(RentalSkipped)
		return nil
	}

	return c.settle(ctx)
}

// claim transitions Unchecked -> Pending (marker staked) or Skipped.
// Returns true when a settle step is owed.
func (c *Coordinator) claim(ctx context.Context) bool {
	recs, err := c.store.ListAll(ctx, c.partitionKey)
	if err != nil {
		log.Printf("coordinator: initial listing failed, skipping rental claim: %v", err)
		c.setState(RentalSkipped)
		return false
	}

	if _, ok := authoritativeMarker(recs); ok {
		c.setState(RentalSkipped)
		return false
	}

	marker := ledger.NewPeriodMarker(c.workerID, c.now())
	if err := c.store.Append(ctx, c.partitionKey, marker); err != nil {
		log.Printf("coordinator: marker append failed, skipping rental claim: %v", err)
		c.setState(RentalSkipped)
		return false
	}

	c.setState(RentalPending)
	return true
}

// settle transitions Pending -> Charged or Skipped after the settle
// delay has elapsed.
func (c *Coordinator) settle(ctx context.Context) error {
	recs, err := c.store.ListAll(ctx, c.partitionKey)
	if err != nil {
		log.Printf("coordinator: settle listing failed, skipping rental charge: %v", err)
		c.setState(RentalSkipped)
		return nil
	}

	winner, ok := authoritativeMarker(recs)
	if !ok || winner.WorkerID != c.workerID {
		c.setState(RentalSkipped)
		return nil
	}

	res, err := c.charger.Charge(ctx, charging.KindRental, 1)
	if err != nil {
		c.setState(RentalSkipped)
		return err
	}
	if res.LimitReached && c.OnLimitReached != nil {
		c.OnLimitReached()
	}

	c.setState(RentalCharged)
	log.Printf("coordinator: rental charged for partition %s", c.partitionKey)
	return nil
}

// authoritativeMarker selects the honored period marker: lowest
// timestamp wins, ties broken by first-seen order within this single
// listing. The listing order is only stable per call, which is enough
// because both claim and settle decide from one listing each.
func authoritativeMarker(recs []ledger.Record) (ledger.Record, bool) {
	var winner ledger.Record
	found := false
	for _, rec := range recs {
		if rec.Type != ledger.RecordPeriodMarker {
			continue
		}
		if !found || rec.Timestamp.Before(winner.Timestamp) {
			winner = rec
			found = true
		}
	}
	return winner, found
}
