package poller

import (
	"slices"
	"sync"

	"github.com/raykavin/upbitwatch/pkg/core"
)

// Consumer processes published events.
type Consumer func(event core.Event)

type subscription struct {
	kinds    []core.EventKind
	consumer Consumer
}

// Feed fans events out to its subscribers synchronously, in subscription
// order.
type Feed struct {
	mu            sync.RWMutex
	subscriptions []subscription
}

func NewFeed() *Feed {
	return &Feed{}
}

// Subscribe registers consumer for the given kinds, or for every kind when
// none is given.
func (f *Feed) Subscribe(consumer Consumer, kinds ...core.EventKind) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.subscriptions = append(f.subscriptions, subscription{
		kinds:    kinds,
		consumer: consumer,
	})
}

// Publish delivers event to every matching subscriber.
func (f *Feed) Publish(event core.Event) {
	f.mu.RLock()
	subscriptions := f.subscriptions
	f.mu.RUnlock()

	for _, s := range subscriptions {
		if len(s.kinds) > 0 && !slices.Contains(s.kinds, event.Kind) {
			continue
		}
		s.consumer(event)
	}
}
