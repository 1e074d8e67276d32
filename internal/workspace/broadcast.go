package workspace

import "sync"

// Broadcaster fans out workspace-change notifications to many subscribers
// from a single producer (the debouncer). Each subscriber channel is
// bounded and lossy: a slow consumer drops events rather than blocking the
// producer, and is expected to re-scan the index on its next query.
type Broadcaster struct {
	mu   sync.Mutex
	subs []chan struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Subscribe registers a new subscriber and returns its event channel.
func (b *Broadcaster) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Publish notifies every subscriber. A subscriber whose channel is already
// full (has not drained a prior event) is skipped rather than blocked.
func (b *Broadcaster) Publish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
