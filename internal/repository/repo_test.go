package repository_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kjannette/chart-cache/internal/apperr"
	"github.com/kjannette/chart-cache/internal/db"
	"github.com/kjannette/chart-cache/internal/models"
	"github.com/kjannette/chart-cache/internal/repository"
	"github.com/kjannette/chart-cache/internal/testutil"
)

func record(t *testing.T, basket string, year int, ts int64, updatedAt int64) *models.ChartRecord {
	t.Helper()
	rec, err := models.NewChartRecord(basket, year, &models.ChartPayload{
		BasketID: basket,
		Data:     []models.ChartPoint{{Timestamp: ts, Prices: map[string]float64{"AAPL": 190.5}}},
	}, updatedAt)
	if err != nil {
		t.Fatalf("NewChartRecord: %v", err)
	}
	return rec
}

// exerciseStore runs the same checks against any ChartStore backend.
func exerciseStore(t *testing.T, store repository.ChartStore, basket string) {
	ctx := context.Background()

	// Missing key
	got, err := store.Get(ctx, basket, 2024)
	if err != nil {
		t.Fatalf("Get(missing): %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing key, got %+v", got)
	}

	// Insert
	first := record(t, basket, 2024, 1700000000000, 1000)
	if err := store.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err = store.Get(ctx, basket, 2024)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Payload != first.Payload || got.UpdatedAtMs != 1000 {
		t.Fatalf("unexpected record after insert: %+v", got)
	}

	// Replace in place
	second := record(t, basket, 2024, 1700086400000, 2000)
	if err := store.Upsert(ctx, second); err != nil {
		t.Fatalf("Upsert(replace): %v", err)
	}
	got, _ = store.Get(ctx, basket, 2024)
	if got.Payload != second.Payload || got.UpdatedAtMs != 2000 {
		t.Fatalf("expected replaced record, got %+v", got)
	}

	// Key isolation: other year and other basket untouched
	other := record(t, basket, 2023, 1, 3000)
	if err := store.Upsert(ctx, other); err != nil {
		t.Fatalf("Upsert(other year): %v", err)
	}
	got, _ = store.Get(ctx, basket, 2024)
	if got.UpdatedAtMs != 2000 {
		t.Fatalf("write to 2023 changed 2024: %+v", got)
	}
	if g, _ := store.Get(ctx, basket+"-x", 2024); g != nil {
		t.Fatalf("expected nil for other basket, got %+v", g)
	}
}

// ---------- SQLite ----------

func TestSQLiteChartRepo(t *testing.T) {
	store := testutil.SQLiteStore(t)
	exerciseStore(t, store, "tech-5")
}

func TestSQLiteChartRepo_InitSchemaIdempotent(t *testing.T) {
	store := testutil.SQLiteStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, record(t, "b", 2024, 1, 1)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := store.InitSchema(ctx); err != nil {
			t.Fatalf("InitSchema #%d: %v", i, err)
		}
	}
	if got, _ := store.Get(ctx, "b", 2024); got == nil {
		t.Fatal("InitSchema must not drop existing rows")
	}
}

func TestSQLiteChartRepo_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart_cache.db")
	ctx := context.Background()

	gdb, err := db.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	store := repository.NewSQLiteChartRepo(gdb)
	if err := store.InitSchema(ctx); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	rec := record(t, "energy", 2022, 5, 77)
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	store.Close()

	gdb, err = db.OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	reopened := repository.NewSQLiteChartRepo(gdb)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "energy", 2022)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Payload != rec.Payload || got.UpdatedAtMs != 77 {
		t.Fatalf("record not persisted: %+v", got)
	}
}

func TestSQLiteChartRepo_ConcurrentUpsertsSameKey(t *testing.T) {
	store := testutil.SQLiteStore(t)
	ctx := context.Background()

	const writers = 16
	recs := make([]*models.ChartRecord, writers)
	for i := range recs {
		recs[i] = record(t, "race", 2024, int64(i), int64(i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for _, rec := range recs {
		wg.Add(1)
		go func(rec *models.ChartRecord) {
			defer wg.Done()
			errs <- store.Upsert(ctx, rec)
		}(rec)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Upsert: %v", err)
		}
	}

	got, err := store.Get(ctx, "race", 2024)
	if err != nil || got == nil {
		t.Fatalf("Get after race: %v %+v", err, got)
	}
	p, err := got.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(p.Data) != 1 || p.Data[0].Timestamp != got.UpdatedAtMs {
		t.Fatalf("payload and timestamp from different writers: %+v updatedAt=%d", p.Data, got.UpdatedAtMs)
	}
}

func TestSQLiteChartRepo_ClosedStoreIsIOFailure(t *testing.T) {
	store := testutil.SQLiteStore(t)
	store.Close()

	_, err := store.Get(context.Background(), "b", 2024)
	if !errors.Is(err, apperr.ErrIO) {
		t.Fatalf("expected ErrIO from closed store, got %v", err)
	}
	err = store.Upsert(context.Background(), record(t, "b", 2024, 1, 1))
	if !errors.Is(err, apperr.ErrIO) {
		t.Fatalf("expected ErrIO from closed store, got %v", err)
	}
}

func TestOpenSQLite_BadPath(t *testing.T) {
	_, err := db.OpenSQLite(filepath.Join(t.TempDir(), "missing-dir", "chart_cache.db"))
	if err == nil {
		t.Fatal("expected error opening sqlite in a missing directory")
	}
}

// ---------- Postgres ----------

func TestPgChartRepo(t *testing.T) {
	pool := testutil.SetupPool(t)
	store := repository.NewPgChartRepo(pool)
	ctx := context.Background()

	if err := store.InitSchema(ctx); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	// Unique basket per run keeps reruns against a shared database independent.
	basket := fmt.Sprintf("test-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		pool.Exec(context.Background(), `DELETE FROM chart_cache WHERE basket_id LIKE $1`, basket+"%")
	})

	exerciseStore(t, store, basket)
}
