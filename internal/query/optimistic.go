package query

// Snapshot captures the value a key held when a speculative write was applied.
type Snapshot struct {
	key      Key
	seq      uint64
	writes   uint64
	prev     any
	hadValue bool
	applied  bool
}

// Key returns the key the snapshot guards.
func (s *Snapshot) Key() Key {
	if s == nil {
		return nil
	}
	return s.key
}

// Applied reports whether the speculative write actually changed the cache.
func (s *Snapshot) Applied() bool {
	return s != nil && s.applied
}

// BeginOptimistic captures the current value of key and replaces it with apply's result.
// apply receives the value at this moment; returning false leaves the cache untouched.
// Each call takes a new per-key sequence number and only the latest may commit or roll back.
func (s *Store) BeginOptimistic(key Key, apply func(current any, ok bool) (any, bool)) *Snapshot {
	s.mu.Lock()
	e := s.entryLocked(key)
	e.optimisticSeq++
	e.optimisticPending++
	snap := &Snapshot{
		key:      append(Key(nil), key...),
		seq:      e.optimisticSeq,
		prev:     e.value,
		hadValue: e.hasValue,
	}
	next, ok := apply(e.value, e.hasValue)
	if !ok {
		snap.writes = e.writes
		s.mu.Unlock()
		return snap
	}
	snap.applied = true
	s.writeLocked(e, next)
	snap.writes = e.writes
	listeners := s.listenersLocked(e)
	s.mu.Unlock()
	emit(listeners, Event{Key: key, Type: EventUpdated})
	return snap
}

// Rollback restores the captured value if snap is still the latest speculative write on its key
// and nothing else has written the key since. A superseded snapshot leaves the cache alone.
func (s *Store) Rollback(snap *Snapshot) bool {
	if snap == nil {
		return false
	}
	s.mu.Lock()
	e, ok := s.entries[snap.key.String()]
	if !ok {
		s.mu.Unlock()
		return false
	}
	e.optimisticPending--
	if snap.seq != e.optimisticSeq || snap.writes != e.writes {
		s.mu.Unlock()
		return false
	}
	if !snap.applied {
		s.mu.Unlock()
		return true
	}
	if snap.hadValue {
		s.writeLocked(e, snap.prev)
	} else {
		e.value = nil
		e.hasValue = false
		e.committed = e.issued
		e.writes++
	}
	listeners := s.listenersLocked(e)
	s.mu.Unlock()
	emit(listeners, Event{Key: snap.key, Type: EventUpdated})
	return true
}

// Commit discards snap. It reports whether snap was still the latest speculative write,
// in which case the caller may overwrite key with the confirmed value.
func (s *Store) Commit(snap *Snapshot) bool {
	if snap == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[snap.key.String()]
	if !ok {
		return false
	}
	e.optimisticPending--
	return snap.seq == e.optimisticSeq
}
