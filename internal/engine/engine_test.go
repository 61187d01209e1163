package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/appmigrate/internal/clock"
	"github.com/danieljhkim/appmigrate/internal/hash"
	"github.com/danieljhkim/appmigrate/internal/planner"
	"github.com/danieljhkim/appmigrate/internal/store"
)

var testStart = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

// newSiteStore seeds a site where apps A={X,Y} and B={Y,Z} are consolidated
// into app C.
func newSiteStore() *store.MemoryStore {
	s := store.NewMemoryStore()
	s.Add(store.KindModuleDef,
		store.Record{"name": "Mod A", "app_name": "A"},
		store.Record{"name": "Mod B", "app_name": "B"},
		store.Record{"name": "C", "app_name": "C"},
	)
	s.Add(store.KindDocType,
		store.Record{"name": "X", "module": "Mod A", "istable": 0},
		store.Record{"name": "Y", "module": "Mod A", "istable": 0},
		store.Record{"name": "Y", "module": "Mod B", "istable": 0},
		store.Record{"name": "Z", "module": "Mod B", "istable": 0},
	)
	s.Add(store.KindDocField,
		store.Record{"name": "df-x-title", "parent": "X", "fieldname": "title", "fieldtype": "Data"},
		store.Record{"name": "df-z-title", "parent": "Z", "fieldname": "title", "fieldtype": "Data"},
	)
	s.Add(store.KindCustomField,
		store.Record{"name": "X-region", "dt": "X", "fieldname": "region", "fieldtype": "Link", "module": "Mod B"},
	)
	s.Add(store.KindPropertySetter,
		store.Record{"name": "Z-title-bold", "doc_type": "Z", "field_name": "title", "property": "bold", "module": "Mod B"},
	)
	s.SetCount("X", 1500)
	return s
}

// spyStore records write calls and can inject failures.
type spyStore struct {
	*store.MemoryStore

	setFieldCalls int
	commitCalls   int
	rollbackCalls int

	failSetFor map[string]bool
	commitErr  error
}

func newSpyStore(s *store.MemoryStore) *spyStore {
	return &spyStore{MemoryStore: s, failSetFor: make(map[string]bool)}
}

func (s *spyStore) SetField(ctx context.Context, kind, id, field string, value any) error {
	s.setFieldCalls++
	if s.failSetFor[id] {
		return fmt.Errorf("%w: injected failure for %s", store.ErrStore, id)
	}
	return s.MemoryStore.SetField(ctx, kind, id, field, value)
}

func (s *spyStore) Commit(ctx context.Context) error {
	s.commitCalls++
	if s.commitErr != nil {
		return s.commitErr
	}
	return s.MemoryStore.Commit(ctx)
}

func (s *spyStore) Rollback(ctx context.Context) error {
	s.rollbackCalls++
	return s.MemoryStore.Rollback(ctx)
}

func (s *spyStore) writes() int {
	return s.setFieldCalls + s.commitCalls + s.rollbackCalls
}

func newTestEngine(client store.Client) *Engine {
	return New(client, hash.NewSHA256Hasher(), clock.NewTickingFakeClock(testStart, time.Second), nil, Options{})
}

// generateExamplePlan plans A,B into C against client.
func generateExamplePlan(t *testing.T, client store.Client) *planner.MigrationPlan {
	t.Helper()
	plan, err := newTestEngine(client).GeneratePlan(context.Background(), &GeneratePlanRequest{
		Site:       "erp.local",
		SourceApps: []string{"A", "B"},
		TargetApp:  "C",
	})
	require.NoError(t, err)
	return plan
}
