package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestRegistry(t *testing.T) (*Registry, *SQLiteRepository) {
	t.Helper()
	repo := NewSQLiteRepository(setupTestDB(t))
	return NewRegistry(repo), repo
}

func TestEnsureDevice_AssignsStableHandle(t *testing.T) {
	reg, repo := newTestRegistry(t)
	ctx := context.Background()

	id, err := reg.EnsureDevice(ctx, "fridge")
	if err != nil {
		t.Fatalf("EnsureDevice() error = %v", err)
	}
	if err := ValidateID(id); err != nil {
		t.Errorf("handle %q is not a UUID: %v", id, err)
	}

	again, err := reg.EnsureDevice(ctx, "fridge")
	if err != nil {
		t.Fatalf("EnsureDevice() error = %v", err)
	}
	if again != id {
		t.Errorf("second EnsureDevice() = %q, want %q", again, id)
	}

	stored, err := repo.GetByName(ctx, "fridge")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if stored.ID != id {
		t.Errorf("persisted ID = %q, want %q", stored.ID, id)
	}
}

func TestEnsureDevice_SurvivesRestart(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	first := NewRegistry(repo)
	id, err := first.EnsureDevice(ctx, "oven")
	if err != nil {
		t.Fatalf("EnsureDevice() error = %v", err)
	}

	restarted := NewRegistry(repo)
	if err := restarted.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	got, err := restarted.EnsureDevice(ctx, "oven")
	if err != nil {
		t.Fatalf("EnsureDevice() error = %v", err)
	}
	if got != id {
		t.Errorf("handle after restart = %q, want %q", got, id)
	}

	// Without a cache refresh the repository is consulted.
	cold := NewRegistry(repo)
	if got, _ := cold.EnsureDevice(ctx, "oven"); got != id {
		t.Errorf("handle from cold registry = %q, want %q", got, id)
	}
}

func TestEnsureDevice_UpdatesLastSeen(t *testing.T) {
	reg, repo := newTestRegistry(t)
	ctx := context.Background()

	start := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return start }
	id, _ := reg.EnsureDevice(ctx, "washer")

	later := start.Add(time.Hour)
	reg.now = func() time.Time { return later }
	if _, err := reg.EnsureDevice(ctx, "washer"); err != nil {
		t.Fatalf("EnsureDevice() error = %v", err)
	}

	stored, _ := repo.GetByID(ctx, id)
	if !stored.FirstSeen.Equal(start) {
		t.Errorf("FirstSeen = %v, want %v", stored.FirstSeen, start)
	}
	if !stored.LastSeen.Equal(later) {
		t.Errorf("LastSeen = %v, want %v", stored.LastSeen, later)
	}
	cached, _ := reg.GetDevice(ctx, "washer")
	if !cached.LastSeen.Equal(later) {
		t.Errorf("cached LastSeen = %v, want %v", cached.LastSeen, later)
	}
}

func TestEnsureDevice_InvalidName(t *testing.T) {
	reg, _ := newTestRegistry(t)

	for _, name := range []string{"", "  ", "a/b", "dev+", "dev#"} {
		if _, err := reg.EnsureDevice(context.Background(), name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("EnsureDevice(%q) error = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestEnsureDevice_Concurrent(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	const workers = 10
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := reg.EnsureDevice(ctx, "dishwasher")
			if err != nil {
				t.Errorf("EnsureDevice() error = %v", err)
			}
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("handles differ: %q vs %q", ids[i], ids[0])
		}
	}
}

func TestListAndDeleteDevices(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	for _, name := range []string{"oven", "fridge"} {
		if _, err := reg.EnsureDevice(ctx, name); err != nil {
			t.Fatalf("EnsureDevice(%s) error = %v", name, err)
		}
	}

	list := reg.ListDevices()
	if len(list) != 2 || list[0].Name != "fridge" || list[1].Name != "oven" {
		t.Fatalf("ListDevices() = %+v", list)
	}

	old := list[1].ID
	if err := reg.DeleteDevice(ctx, "oven"); err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}
	if _, err := reg.GetDevice(ctx, "oven"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetDevice() error = %v, want ErrDeviceNotFound", err)
	}
	fresh, _ := reg.EnsureDevice(ctx, "oven")
	if fresh == old {
		t.Error("deleted appliance got its old handle back")
	}
}
