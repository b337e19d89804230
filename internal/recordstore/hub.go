package recordstore

import (
	"context"
	"log"
	"sync"
	"time"
)

// Snapshot is the full per-user view pushed to live subscribers. Consumers
// derive filtered views from it rather than receiving deltas.
type Snapshot struct {
	Jobs      []UploadJob        `json:"jobs"`
	Invoices  []Invoice          `json:"invoices"`
	Submitted []SubmittedInvoice `json:"submitted"`
}

// Hub fans out store changes to live subscribers. Writers call Notify after
// mutating a user's records; a single goroutine re-reads that user's
// collections and pushes a fresh Snapshot to every subscriber. Notifications
// for the same user coalesce while a rebuild is in flight, so subscribers
// see the newest state without a backlog of stale snapshots.
type Hub struct {
	stores Stores

	mu          sync.Mutex
	subscribers map[string]map[chan Snapshot]struct{}
	pending     map[string]struct{}

	kick chan struct{}
	stop chan struct{}
	done chan struct{}
}

func NewHub(stores Stores) *Hub {
	return &Hub{
		stores:      stores,
		subscribers: make(map[string]map[chan Snapshot]struct{}),
		pending:     make(map[string]struct{}),
		kick:        make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Stores exposes the collection bundle the hub reads from, so services
// that only receive the hub can reach the records too.
func (h *Hub) Stores() Stores {
	return h.stores
}

// Start launches the snapshot writer goroutine.
func (h *Hub) Start() {
	go h.run()
}

// Stop shuts the writer down and waits for it to drain.
func (h *Hub) Stop() {
	close(h.stop)
	<-h.done
}

// Subscribe registers a live listener for one user's records. The returned
// channel holds at most one snapshot; when the subscriber lags, older
// snapshots are dropped in favor of the newest. The cancel func removes the
// subscription. An initial snapshot is scheduled immediately.
func (h *Hub) Subscribe(userID string) (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	h.mu.Lock()
	subs, ok := h.subscribers[userID]
	if !ok {
		subs = make(map[chan Snapshot]struct{})
		h.subscribers[userID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	h.Notify(userID)

	cancel := func() {
		h.mu.Lock()
		if subs, ok := h.subscribers[userID]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(h.subscribers, userID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Notify schedules a snapshot rebuild for one user. Safe to call from any
// goroutine; repeated calls before the rebuild runs collapse into one.
func (h *Hub) Notify(userID string) {
	h.mu.Lock()
	h.pending[userID] = struct{}{}
	h.mu.Unlock()

	select {
	case h.kick <- struct{}{}:
	default:
	}
}

// SubscriberCount reports how many channels are listening for a user.
func (h *Hub) SubscriberCount(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[userID])
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.stop:
			return
		case <-h.kick:
			h.flush()
		}
	}
}

func (h *Hub) flush() {
	for {
		h.mu.Lock()
		var userID string
		found := false
		for id := range h.pending {
			userID = id
			found = true
			break
		}
		if found {
			delete(h.pending, userID)
		}
		h.mu.Unlock()
		if !found {
			return
		}
		h.push(userID)
	}
}

func (h *Hub) push(userID string) {
	h.mu.Lock()
	listening := len(h.subscribers[userID]) > 0
	h.mu.Unlock()
	if !listening {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	snap, err := h.build(ctx, userID)
	if err != nil {
		log.Printf("[ERROR] hub: snapshot rebuild for user %s failed: %v", userID, err)
		return
	}

	h.mu.Lock()
	channels := make([]chan Snapshot, 0, len(h.subscribers[userID]))
	for ch := range h.subscribers[userID] {
		channels = append(channels, ch)
	}
	h.mu.Unlock()

	for _, ch := range channels {
		select {
		case ch <- *snap:
		default:
			// Subscriber still holds an older snapshot; replace it.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- *snap:
			default:
			}
		}
	}
}

func (h *Hub) build(ctx context.Context, userID string) (*Snapshot, error) {
	jobs, err := h.stores.Jobs.ListJobs(ctx, userID, JobFilter{})
	if err != nil {
		return nil, err
	}
	invoices, err := h.stores.Invoices.ListInvoices(ctx, userID, InvoiceFilter{})
	if err != nil {
		return nil, err
	}
	submitted, err := h.stores.Submitted.ListSubmitted(ctx, userID)
	if err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = []UploadJob{}
	}
	if invoices == nil {
		invoices = []Invoice{}
	}
	if submitted == nil {
		submitted = []SubmittedInvoice{}
	}
	return &Snapshot{Jobs: jobs, Invoices: invoices, Submitted: submitted}, nil
}
