// Package history keeps the most recent change events for the /alerts command.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/raykavin/upbitwatch/pkg/core"
	"github.com/raykavin/upbitwatch/pkg/logger"
	"github.com/tidwall/buntdb"
)

const DefaultCapacity = 200

// History is a fixed capacity FIFO of events stored in an in-memory BuntDB.
// Keys are zero padded sequence numbers, so key order is insertion order.
type History struct {
	lastID   int64
	capacity int
	db       *buntdb.DB
	log      logger.Logger
}

// New opens an in-memory history holding at most capacity events.
func New(capacity int, log logger.Logger) (*History, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open buntdb: %w", err)
	}

	return &History{capacity: capacity, db: db, log: log}, nil
}

func eventKey(id int64) string {
	return fmt.Sprintf("event:%019d", id)
}

// Push stores event and evicts the oldest one once capacity is exceeded.
func (h *History) Push(event core.Event) error {
	return h.db.Update(func(tx *buntdb.Tx) error {
		id := atomic.AddInt64(&h.lastID, 1)
		content, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}

		if _, _, err := tx.Set(eventKey(id), string(content), nil); err != nil {
			return fmt.Errorf("failed to store event: %w", err)
		}

		evicted := id - int64(h.capacity)
		if evicted <= 0 {
			return nil
		}
		if _, err := tx.Delete(eventKey(evicted)); err != nil && !errors.Is(err, buntdb.ErrNotFound) {
			return fmt.Errorf("failed to evict event: %w", err)
		}
		return nil
	})
}

// OnEvent implements core.EventSubscriber.
func (h *History) OnEvent(event core.Event) {
	if err := h.Push(event); err != nil && h.log != nil {
		h.log.WithError(err).Error("history: failed to record event")
	}
}

// Recent returns up to limit events, most recent first. A non-positive limit
// returns everything.
func (h *History) Recent(limit int) ([]core.Event, error) {
	events := make([]core.Event, 0)

	err := h.db.View(func(tx *buntdb.Tx) error {
		return tx.Descend("", func(_, value string) bool {
			var event core.Event
			if err := json.Unmarshal([]byte(value), &event); err != nil {
				return true
			}
			events = append(events, event)
			return limit <= 0 || len(events) < limit
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate over events: %w", err)
	}

	return events, nil
}

// Len is the number of stored events.
func (h *History) Len() int {
	var n int
	_ = h.db.View(func(tx *buntdb.Tx) error {
		var err error
		n, err = tx.Len()
		return err
	})
	return n
}

func (h *History) Capacity() int {
	return h.capacity
}

func (h *History) Close() error {
	return h.db.Close()
}
