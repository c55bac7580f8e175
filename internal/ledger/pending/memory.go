package pending

import (
	"context"
	"sort"
	"sync"

	"organchain/pkg/domain"
)

// InMemoryJournal keeps entries for the life of the process.
type InMemoryJournal struct {
	mu      sync.RWMutex
	entries map[domain.Address]map[string]Entry
}

func NewInMemoryJournal() *InMemoryJournal {
	return &InMemoryJournal{entries: make(map[domain.Address]map[string]Entry)}
}

func (j *InMemoryJournal) Record(_ context.Context, e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	byTx, ok := j.entries[e.Identity]
	if !ok {
		byTx = make(map[string]Entry)
		j.entries[e.Identity] = byTx
	}
	byTx[e.TxID] = e
	return nil
}

func (j *InMemoryJournal) Clear(_ context.Context, identity domain.Address, txID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.entries[identity], txID)
	if len(j.entries[identity]) == 0 {
		delete(j.entries, identity)
	}
	return nil
}

// List returns entries oldest first.
func (j *InMemoryJournal) List(_ context.Context, identity domain.Address) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]Entry, 0, len(j.entries[identity]))
	for _, e := range j.entries[identity] {
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

func sortEntries(es []Entry) {
	sort.Slice(es, func(a, b int) bool {
		if es[a].SubmittedAt.Equal(es[b].SubmittedAt) {
			return es[a].TxID < es[b].TxID
		}
		return es[a].SubmittedAt.Before(es[b].SubmittedAt)
	})
}
