package store

import (
	"context"
	"fmt"
	"sort"
)

// Snapshot is the serializable content of a site: schema records grouped by
// kind plus the data record count of each DocType.
//
// A record's name is its primary key, as on a live site. A snapshot may hold
// several records with one name (the same DocType shipped by two apps); Get
// returns the first of them and SetField updates all of them, the way
// UPDATE ... WHERE name = ? would.
type Snapshot struct {
	Records map[string][]Record `json:"records" yaml:"records"`
	Counts  map[string]int      `json:"counts,omitempty" yaml:"counts,omitempty"`
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		Records: make(map[string][]Record, len(s.Records)),
		Counts:  make(map[string]int, len(s.Counts)),
	}
	for kind, recs := range s.Records {
		cloned := make([]Record, len(recs))
		for i, r := range recs {
			cloned[i] = r.Clone()
		}
		out.Records[kind] = cloned
	}
	for kind, n := range s.Counts {
		out.Counts[kind] = n
	}
	return out
}

// MemoryStore implements Client over in-memory records.
//
// Writes apply to a working copy immediately so later reads in the same
// transaction observe them; Rollback restores the last committed state.
type MemoryStore struct {
	working   *Snapshot
	committed *Snapshot
	dirty     bool
	closed    bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreFromSnapshot(&Snapshot{})
}

// NewMemoryStoreFromSnapshot creates a MemoryStore holding a copy of snap.
func NewMemoryStoreFromSnapshot(snap *Snapshot) *MemoryStore {
	if snap.Records == nil {
		snap.Records = make(map[string][]Record)
	}
	if snap.Counts == nil {
		snap.Counts = make(map[string]int)
	}
	return &MemoryStore{
		working:   snap.Clone(),
		committed: snap.Clone(),
	}
}

// Add appends records of kind as committed state. Intended for seeding.
func (s *MemoryStore) Add(kind string, records ...Record) {
	for _, r := range records {
		s.working.Records[kind] = append(s.working.Records[kind], r.Clone())
		s.committed.Records[kind] = append(s.committed.Records[kind], r.Clone())
	}
}

// SetCount sets the data record count of kind as committed state.
func (s *MemoryStore) SetCount(kind string, n int) {
	s.working.Counts[kind] = n
	s.committed.Counts[kind] = n
}

// Snapshot returns a deep copy of the current working state.
func (s *MemoryStore) Snapshot() *Snapshot {
	return s.working.Clone()
}

// Dirty reports whether there are writes not yet committed.
func (s *MemoryStore) Dirty() bool {
	return s.dirty
}

// List returns records of kind matching all filters, ordered by name.
func (s *MemoryStore) List(ctx context.Context, kind string, filters ...Filter) ([]Record, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	var out []Record
	for _, r := range s.working.Records[kind] {
		if MatchAll(r, filters) {
			out = append(out, r.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Name() < out[j].Name()
	})
	return out, nil
}

// Get returns the first record of kind named id.
func (s *MemoryStore) Get(ctx context.Context, kind, id string) (Record, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	for _, r := range s.working.Records[kind] {
		if r.Name() == id {
			return r.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
}

// Count returns the data record count registered for kind, 0 if none.
func (s *MemoryStore) Count(ctx context.Context, kind string) (int, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	return s.working.Counts[kind], nil
}

// SetField updates field on every record of kind named id. Consolidating a
// duplicated DocType therefore moves every copy into the target module.
func (s *MemoryStore) SetField(ctx context.Context, kind, id, field string, value any) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	found := false
	for _, r := range s.working.Records[kind] {
		if r.Name() == id {
			r[field] = value
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
	}
	s.dirty = true
	return nil
}

// Commit promotes the working state to committed.
func (s *MemoryStore) Commit(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.committed = s.working.Clone()
	s.dirty = false
	return nil
}

// Rollback restores the last committed state.
func (s *MemoryStore) Rollback(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.working = s.committed.Clone()
	s.dirty = false
	return nil
}

// Close discards uncommitted writes.
func (s *MemoryStore) Close() error {
	if s.closed {
		return nil
	}
	s.working = s.committed.Clone()
	s.dirty = false
	s.closed = true
	return nil
}

func (s *MemoryStore) check(ctx context.Context) error {
	if s.closed {
		return fmt.Errorf("%w: store is closed", ErrStore)
	}
	return ctx.Err()
}
