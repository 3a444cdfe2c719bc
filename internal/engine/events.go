package engine

import (
	"sync"

	"github.com/videoteka/videoteka/internal/domain"
)

// bus fans manager events out to observers. Publishing never blocks: a
// subscriber that stops draining loses events instead of stalling a worker.
type bus struct {
	mu   sync.Mutex
	subs map[int]chan domain.Event
	next int
}

func newBus() *bus {
	return &bus{subs: make(map[int]chan domain.Event)}
}

func (b *bus) publish(ev domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *bus) subscribe(buf int) (<-chan domain.Event, func()) {
	if buf < 1 {
		buf = 64
	}
	ch := make(chan domain.Event, buf)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}
