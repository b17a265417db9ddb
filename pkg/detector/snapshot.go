package detector

import "github.com/StudioSol/set"

// Snapshot is the last observed state of one resource. Keys are kept in
// first-seen order and are never removed.
type Snapshot struct {
	keys   *set.LinkedHashSetString
	values map[string]float64
	latest string
}

func newSnapshot() *Snapshot {
	return &Snapshot{
		keys:   set.NewLinkedHashSetString(),
		values: make(map[string]float64),
	}
}

func (s *Snapshot) observe(key string) {
	s.keys.Add(key)
}

// Has reports whether key was ever observed.
func (s *Snapshot) Has(key string) bool {
	return s.keys.InArray(key)
}

// Len is the number of observed keys.
func (s *Snapshot) Len() int {
	return s.keys.Length()
}

// Keys returns the observed keys in first-seen order.
func (s *Snapshot) Keys() []string {
	keys := make([]string, 0, s.keys.Length())
	for key := range s.keys.Iter() {
		keys = append(keys, key)
	}
	return keys
}

// Value returns the stored scalar for key.
func (s *Snapshot) Value(key string) (float64, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Latest returns the stored most-recent identifier.
func (s *Snapshot) Latest() string {
	return s.latest
}

func (s *Snapshot) clone() *Snapshot {
	c := newSnapshot()
	for key := range s.keys.Iter() {
		c.keys.Add(key)
	}
	for key, v := range s.values {
		c.values[key] = v
	}
	c.latest = s.latest
	return c
}
