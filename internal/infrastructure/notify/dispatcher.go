package notify

import (
	"context"
	"hash/fnv"

	"github.com/rs/zerolog"

	"github.com/edustream/session-system/internal/metrics"
	"github.com/edustream/session-system/internal/core/domain"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Handler delivers one notification to its consumer (websocket hub, email,
// in-app feed). It runs on a dispatcher worker, never on the publisher.
type Handler func(n domain.Notification)

// Deduper suppresses repeats of the same notification kind per account.
// Optional; nil disables suppression.
type Deduper interface {
	Seen(ctx context.Context, accountID, kind string) (bool, error)
	Mark(ctx context.Context, accountID, kind string) error
}

// Dispatcher routes notifications to a fixed set of workers using consistent
// hashing on the account id, guaranteeing per-account delivery ordering.
// Publish never blocks the caller: the quota rejection path must feel
// synchronous to the user without freezing the event loop.
type Dispatcher struct {
	workers []chan domain.Notification
	handler Handler
	dedup   Deduper
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, handler Handler, dedup Deduper, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.Notification, numWorkers),
		handler: handler,
		dedup:   dedup,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.Notification, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Publish enqueues the notification for its account's worker. When the
// worker queue is full the notification is dropped and counted; read
// acknowledgement is in-memory per session and is not persisted here.
func (d *Dispatcher) Publish(n domain.Notification) {
	select {
	case d.workers[d.shardIndex(n.AccountID)] <- n:
	default:
		metrics.NotificationsDroppedTotal.Inc()
		d.log.Warn().
			Str("account_id", n.AccountID).
			Str("kind", n.Kind).
			Msg("notification dropped: worker queue full")
	}
}

// shardIndex maps an account id deterministically to a worker index.
func (d *Dispatcher) shardIndex(accountID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(accountID))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			d.deliver(ctx, id, n)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, workerID int, n domain.Notification) {
	if d.dedup != nil {
		seen, err := d.dedup.Seen(ctx, n.AccountID, n.Kind)
		if err != nil {
			d.log.Warn().Err(err).Str("account_id", n.AccountID).Msg("notification dedup check failed, delivering anyway")
		} else if seen {
			d.log.Debug().Str("account_id", n.AccountID).Str("kind", n.Kind).Msg("duplicate notification suppressed")
			return
		}
		if err := d.dedup.Mark(ctx, n.AccountID, n.Kind); err != nil {
			d.log.Warn().Err(err).Str("account_id", n.AccountID).Msg("failed to set notification dedup key")
		}
	}

	d.handler(n)
	d.log.Info().
		Str("account_id", n.AccountID).
		Str("kind", n.Kind).
		Int("worker_id", workerID).
		Msg("notification delivered")
}
