package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jessedrg/cbd-boutique/internal/audit"
)

func testRun(id string, created time.Time) Run {
	return Run{
		ID:        id,
		BaseURL:   "https://cbdboutique.io",
		Total:     10,
		Indexed:   4,
		NoIndexed: 6,
		ByLocale:  map[string]audit.Counts{"es": {Index: 4, NoIndex: 6}},
		ByType:    map[string]audit.Counts{audit.TypeCategoryCity: {Index: 4, NoIndex: 6}},
		CreatedAt: created,
	}
}

func TestCursorRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	id := "run_abc123"

	cursor := encodeCursor(now, id)
	decodedTime, decodedID, err := parseCursor(cursor)
	if err != nil {
		t.Fatalf("parseCursor returned error: %v", err)
	}
	if !decodedTime.Equal(now) {
		t.Fatalf("decoded time mismatch: got %s want %s", decodedTime, now)
	}
	if decodedID != id {
		t.Fatalf("decoded id mismatch: got %s want %s", decodedID, id)
	}

	for _, bad := range []string{"nocolon", "abc:run_1", "123:"} {
		if _, _, err := parseCursor(bad); !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("parseCursor(%q) = %v, want ErrInvalidCursor", bad, err)
		}
	}
}

func TestMemoryListInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(time.Minute)
	run := testRun("run_1", time.Now().UTC())

	if err := store.Create(ctx, run); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	first, err := store.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("first List returned error: %v", err)
	}
	if len(first.Items) != 1 {
		t.Fatalf("expected 1 item on first list, got %d", len(first.Items))
	}
	if first.Cached {
		t.Fatal("first list should not be cached")
	}

	second, err := store.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("second List returned error: %v", err)
	}
	if !second.Cached {
		t.Fatal("expected second list to hit cache")
	}

	if err := store.Delete(ctx, run.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	third, err := store.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("third List returned error: %v", err)
	}
	if third.Cached {
		t.Fatal("expected cache invalidation after delete")
	}
	if len(third.Items) != 0 {
		t.Fatalf("expected empty list after delete, got %d", len(third.Items))
	}
}

func TestMemoryNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(0)
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("Get missing = %v, want sql.ErrNoRows", err)
	}
	if err := store.Delete(ctx, "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("Delete missing = %v, want sql.ErrNoRows", err)
	}
	if err := store.Create(ctx, Run{}); err == nil {
		t.Fatal("Create without id should fail")
	}
}

func setupSQLite(t *testing.T) *Store {
	t.Helper()
	store, err := OpenSQLite(context.Background(), ":memory:", time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoresPaginate(t *testing.T) {
	stores := map[string]func(t *testing.T) *Store{
		ModeMemory: func(*testing.T) *Store { return NewMemory(time.Minute) },
		ModeSQLite: setupSQLite,
	}
	for mode, open := range stores {
		t.Run(mode, func(t *testing.T) {
			ctx := context.Background()
			store := open(t)
			assert.Equal(t, mode, store.Mode())

			base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
			for i := 0; i < 5; i++ {
				require.NoError(t, store.Create(ctx, testRun(fmt.Sprintf("run_%d", i), base.Add(time.Duration(i)*time.Hour))))
			}
			// Same timestamp as run_4, ordered by id.
			require.NoError(t, store.Create(ctx, testRun("run_5", base.Add(4*time.Hour))))

			var seen []string
			cursor := ""
			for page := 0; page < 10; page++ {
				resp, err := store.List(ctx, cursor, 2)
				require.NoError(t, err)
				for _, r := range resp.Items {
					seen = append(seen, r.ID)
				}
				if resp.NextCursor == "" {
					break
				}
				cursor = resp.NextCursor
			}
			assert.Equal(t, []string{"run_5", "run_4", "run_3", "run_2", "run_1", "run_0"}, seen)

			_, err := store.List(ctx, "garbage", 2)
			assert.ErrorIs(t, err, ErrInvalidCursor)
		})
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := setupSQLite(t)

	summary := audit.Summary{
		Total:    3,
		Index:    1,
		NoIndex:  2,
		ByLocale: map[string]audit.Counts{"en": {Index: 1, NoIndex: 2}},
		ByType:   map[string]audit.Counts{audit.TypeCategory: {Index: 1}, audit.TypeTriple: {NoIndex: 2}},
	}
	run := NewRun("https://cbdboutique.io", summary, true, "  weekly check ")
	require.NoError(t, store.Create(ctx, run))

	got, err := store.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.True(t, got.CreatedAt.Equal(run.CreatedAt))
	assert.Equal(t, "weekly check", got.Note)
	assert.True(t, got.Triples)
	assert.Equal(t, 2, got.NoIndexed)
	assert.Equal(t, summary.ByType, got.ByType)

	first, err := store.List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, first.Items, 1)
	second, err := store.List(ctx, "", 10)
	require.NoError(t, err)
	assert.True(t, second.Cached)

	require.NoError(t, store.Delete(ctx, run.ID))
	_, err = store.Get(ctx, run.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.ErrorIs(t, store.Delete(ctx, run.ID), sql.ErrNoRows)

	third, err := store.List(ctx, "", 10)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Empty(t, third.Items)
}

func TestExplain(t *testing.T) {
	ctx := context.Background()

	plan, err := NewMemory(0).Explain(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeMemory, plan.(map[string]any)["mode"])

	plan, err = setupSQLite(t).Explain(ctx)
	require.NoError(t, err)
	steps := plan.(map[string]any)["plan"].([]string)
	assert.NotEmpty(t, steps)
}

func TestRebind(t *testing.T) {
	s := &Store{mode: ModeSQLite}
	assert.Equal(t, "a=? AND b=? LIMIT ?", s.rebind("a=$1 AND b=$2 LIMIT $10"))
	pg := &Store{mode: ModePostgres}
	assert.Equal(t, "a=$1", pg.rebind("a=$1"))
}
