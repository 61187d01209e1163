package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore() *MemoryStore {
	s := NewMemoryStore()
	s.Add(KindDocType,
		Record{"name": "Item", "module": "Stock", "istable": 0},
		Record{"name": "Customer", "module": "Selling", "istable": 0},
		Record{"name": "Item Price", "module": "Stock", "istable": 1},
	)
	s.SetCount("Item", 12)
	return s
}

func TestMemoryStore_ListFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	s := seededStore()

	recs, err := s.List(ctx, KindDocType)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"Customer", "Item", "Item Price"}, names(recs))

	recs, err = s.List(ctx, KindDocType, Eq("module", "Stock"), Eq("istable", 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"Item"}, names(recs))

	recs, err = s.List(ctx, "Unknown Kind")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestMemoryStore_GetAndCount(t *testing.T) {
	ctx := context.Background()
	s := seededStore()

	rec, err := s.Get(ctx, KindDocType, "Customer")
	require.NoError(t, err)
	assert.Equal(t, "Selling", rec.String("module"))

	_, err = s.Get(ctx, KindDocType, "Nope")
	assert.True(t, errors.Is(err, ErrNotFound))

	n, err := s.Count(ctx, "Item")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	n, err = s.Count(ctx, "Customer")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMemoryStore_ReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := seededStore()

	rec, err := s.Get(ctx, KindDocType, "Item")
	require.NoError(t, err)
	rec["module"] = "Mutated"

	rec, err = s.Get(ctx, KindDocType, "Item")
	require.NoError(t, err)
	assert.Equal(t, "Stock", rec.String("module"))
}

func TestMemoryStore_CommitAndRollback(t *testing.T) {
	ctx := context.Background()
	s := seededStore()

	require.NoError(t, s.SetField(ctx, KindDocType, "Item", "module", "Custom"))
	assert.True(t, s.Dirty())

	// Reads inside the transaction observe the staged write.
	rec, err := s.Get(ctx, KindDocType, "Item")
	require.NoError(t, err)
	assert.Equal(t, "Custom", rec.String("module"))

	require.NoError(t, s.Rollback(ctx))
	assert.False(t, s.Dirty())
	rec, err = s.Get(ctx, KindDocType, "Item")
	require.NoError(t, err)
	assert.Equal(t, "Stock", rec.String("module"))

	require.NoError(t, s.SetField(ctx, KindDocType, "Item", "module", "Custom"))
	require.NoError(t, s.Commit(ctx))
	require.NoError(t, s.Rollback(ctx))
	rec, err = s.Get(ctx, KindDocType, "Item")
	require.NoError(t, err)
	assert.Equal(t, "Custom", rec.String("module"))
}

func TestMemoryStore_SetFieldMissing(t *testing.T) {
	s := seededStore()
	err := s.SetField(context.Background(), KindDocType, "Ghost", "module", "X")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, s.Dirty())
}

func TestMemoryStore_DuplicateNamesShareWrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Add(KindDocType,
		Record{"name": "Item", "module": "Stock"},
		Record{"name": "Item", "module": "Selling"},
	)

	rec, err := s.Get(ctx, KindDocType, "Item")
	require.NoError(t, err)
	assert.Equal(t, "Stock", rec.String("module"), "first copy wins reads")

	require.NoError(t, s.SetField(ctx, KindDocType, "Item", "module", "Custom"))
	for _, r := range s.Snapshot().Records[KindDocType] {
		assert.Equal(t, "Custom", r.String("module"))
	}
}

func TestMemoryStore_CloseDiscardsAndRejects(t *testing.T) {
	ctx := context.Background()
	s := seededStore()
	require.NoError(t, s.SetField(ctx, KindDocType, "Item", "module", "Custom"))
	require.NoError(t, s.Close())

	_, err := s.List(ctx, KindDocType)
	assert.True(t, errors.Is(err, ErrStore))
	assert.Equal(t, "Stock", s.Snapshot().Records[KindDocType][0].String("module"))
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := seededStore().List(ctx, KindDocType)
	assert.ErrorIs(t, err, context.Canceled)
}

func names(recs []Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name()
	}
	return out
}
