// Package watchlist holds the token contracts under volume surveillance.
package watchlist

import (
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/StudioSol/set"
)

var (
	ErrInvalidAddress = errors.New("invalid contract address")
	ErrAlreadyWatched = errors.New("address already watched")
	ErrNotWatched     = errors.New("address not watched")
)

var addressPattern = regexp.MustCompile(`(?i)^0x[0-9a-f]{40}$`)

// ValidAddress reports whether s is 0x followed by 40 hex characters, ignoring case.
func ValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// WatchList is an insertion-ordered set of contract addresses. Membership is
// checked on the literal string, so the same contract written with a
// different case is a distinct entry.
type WatchList struct {
	mu    sync.RWMutex
	items *set.LinkedHashSetString
}

// New builds a watch-list from initial addresses. Invalid and duplicated
// entries are returned as rejected instead of failing the whole list.
func New(initial ...string) (*WatchList, []error) {
	w := &WatchList{items: set.NewLinkedHashSetString()}

	var rejected []error
	for _, address := range initial {
		if err := w.Add(address); err != nil {
			rejected = append(rejected, err)
		}
	}
	return w, rejected
}

// Add appends address at the end of the list.
func (w *WatchList) Add(address string) error {
	if !ValidAddress(address) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.items.InArray(address) {
		return fmt.Errorf("%w: %s", ErrAlreadyWatched, address)
	}
	w.items.Add(address)
	return nil
}

// Remove deletes address from the list.
func (w *WatchList) Remove(address string) error {
	if !ValidAddress(address) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.items.InArray(address) {
		return fmt.Errorf("%w: %s", ErrNotWatched, address)
	}
	w.items.Remove(address)
	return nil
}

// Contains reports whether address is watched.
func (w *WatchList) Contains(address string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.items.InArray(address)
}

// Items returns the watched addresses in insertion order.
func (w *WatchList) Items() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	items := make([]string, 0, w.items.Length())
	for address := range w.items.Iter() {
		items = append(items, address)
	}
	return items
}

func (w *WatchList) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.items.Length()
}
