package wallet

import (
	"slices"
	"sync"

	"organchain/pkg/domain"
)

const feedBuffer = 16

// Feed fans account-list updates out to backend watchers. Backends embed it
// to implement Backend.Watch. Slow watchers lose older updates, never the
// latest.
type Feed struct {
	mu       sync.Mutex
	watchers map[uint64]chan []domain.Address
	next     uint64
}

func (f *Feed) Watch() (<-chan []domain.Address, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.watchers == nil {
		f.watchers = make(map[uint64]chan []domain.Address)
	}
	id := f.next
	f.next++
	ch := make(chan []domain.Address, feedBuffer)
	f.watchers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.watchers, id)
			close(ch)
		})
	}
}

// Publish delivers accounts to every watcher without blocking.
func (f *Feed) Publish(accounts []domain.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.watchers {
		select {
		case ch <- slices.Clone(accounts):
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		ch <- slices.Clone(accounts)
	}
}
