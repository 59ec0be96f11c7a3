package realtime

import "sync"

// DefaultAckBatchSize is the flush threshold used when none is configured.
const DefaultAckBatchSize = 10

// Batch accumulates delivered notification ids until they are acknowledged.
type Batch struct {
	mu         sync.Mutex
	ids        []string
	threshold  int
	maxPending int
}

// NewBatch creates a batch that reports full at threshold ids. At most
// maxPending ids are kept across failed flushes; anything below threshold
// means 100 batches.
func NewBatch(threshold, maxPending int) *Batch {
	if threshold <= 0 {
		threshold = DefaultAckBatchSize
	}
	if maxPending < threshold {
		maxPending = threshold * 100
	}
	return &Batch{threshold: threshold, maxPending: maxPending}
}

// Add appends id and reports whether the batch reached its threshold.
func (b *Batch) Add(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ids = append(b.ids, id)
	return len(b.ids) >= b.threshold
}

// Take empties the batch and returns its ids.
func (b *Batch) Take() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := b.ids
	b.ids = nil
	return ids
}

// Restore puts ids from a failed flush back in front of newer ids.
// Ids beyond the pending limit are returned as overflow, oldest first.
func (b *Batch) Restore(ids []string) (overflow []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	all := append(append(make([]string, 0, len(ids)+len(b.ids)), ids...), b.ids...)
	if excess := len(all) - b.maxPending; excess > 0 {
		overflow = all[:excess]
		all = all[excess:]
	}
	b.ids = all
	return overflow
}

// Len reports the number of pending ids.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ids)
}
