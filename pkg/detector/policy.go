package detector

import "github.com/raykavin/upbitwatch/pkg/core"

const (
	DefaultSpikeRatio = 1.5
	DefaultSpikeFloor = 1000.0
)

// Policy decides how a fresh fetch is compared with a snapshot. The set of
// policies is closed: Membership, Latest and Threshold.
type Policy interface {
	Kind() core.EventKind
	prime(s *Snapshot, fresh []core.Entity)
	diff(s *Snapshot, fresh []core.Entity) []change
}

type change struct {
	entity   core.Entity
	previous float64
}

// Membership reports every key that was never observed before, in the order
// of the fresh collection.
type Membership struct {
	EventKind core.EventKind
}

func (m Membership) Kind() core.EventKind {
	if m.EventKind == "" {
		return core.EventNewListing
	}
	return m.EventKind
}

func (Membership) prime(s *Snapshot, fresh []core.Entity) {
	for _, e := range fresh {
		s.observe(e.Key)
	}
}

func (Membership) diff(s *Snapshot, fresh []core.Entity) []change {
	var changes []change
	for _, e := range fresh {
		if s.Has(e.Key) {
			continue
		}
		s.observe(e.Key)
		changes = append(changes, change{entity: e})
	}
	return changes
}

// Latest compares only the first (most recent) entity with the stored
// identifier. Anything that arrived between two polls behind the most
// recent entity is never reported.
type Latest struct {
	EventKind core.EventKind
}

func (l Latest) Kind() core.EventKind {
	if l.EventKind == "" {
		return core.EventWalletReceive
	}
	return l.EventKind
}

func (Latest) prime(s *Snapshot, fresh []core.Entity) {
	s.latest = fresh[0].Key
	s.observe(fresh[0].Key)
}

func (Latest) diff(s *Snapshot, fresh []core.Entity) []change {
	head := fresh[0]
	if head.Key == s.latest {
		return nil
	}
	s.latest = head.Key
	s.observe(head.Key)
	return []change{{entity: head}}
}

// Threshold reports a key whose value grew past Ratio times the stored value
// and above Floor. The stored value is always replaced by the fresh one.
type Threshold struct {
	Ratio     float64
	Floor     float64
	EventKind core.EventKind
}

func (t Threshold) Kind() core.EventKind {
	if t.EventKind == "" {
		return core.EventVolumeSpike
	}
	return t.EventKind
}

func (t Threshold) ratio() float64 {
	if t.Ratio <= 0 {
		return DefaultSpikeRatio
	}
	return t.Ratio
}

func (Threshold) prime(s *Snapshot, fresh []core.Entity) {
	for _, e := range fresh {
		s.observe(e.Key)
		s.values[e.Key] = e.Value
	}
}

func (t Threshold) diff(s *Snapshot, fresh []core.Entity) []change {
	var changes []change
	for _, e := range fresh {
		stored, seen := s.values[e.Key]
		s.observe(e.Key)
		s.values[e.Key] = e.Value
		if !seen {
			continue
		}
		if e.Value > stored*t.ratio() && e.Value > t.Floor {
			changes = append(changes, change{entity: e, previous: stored})
		}
	}
	return changes
}
