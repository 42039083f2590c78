package audit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE audit_logs (
			id TEXT PRIMARY KEY,
			action TEXT NOT NULL,
			device TEXT NOT NULL,
			unique_id TEXT,
			source TEXT NOT NULL,
			value TEXT,
			error TEXT,
			created_at TEXT NOT NULL
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreate_FillsIDAndTimestamp(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	e := &Entry{Action: ActionEntityWrite, Device: "oven", UniqueID: "oven_4047_Setpoint", Source: "api", Value: 45.0}
	if err := repo.Create(ctx, e); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if e.ID == "" {
		t.Error("ID not generated")
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	res, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 1 || len(res.Entries) != 1 {
		t.Fatalf("List() total = %d entries = %d, want 1/1", res.Total, len(res.Entries))
	}
	got := res.Entries[0]
	if got.UniqueID != e.UniqueID {
		t.Errorf("UniqueID = %q, want %q", got.UniqueID, e.UniqueID)
	}
	if got.Value != 45.0 {
		t.Errorf("Value = %v, want 45", got.Value)
	}
	if got.Error != "" {
		t.Errorf("Error = %q, want empty", got.Error)
	}
}

func TestList_FiltersAndPages(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	seed := []Entry{
		{Action: ActionEntityWrite, Device: "oven", UniqueID: "a", Source: "api"},
		{Action: ActionWriteFailed, Device: "oven", UniqueID: "a", Source: "api", Error: "out of range"},
		{Action: ActionEntityWrite, Device: "fridge", UniqueID: "b", Source: "api"},
		{Action: ActionEntityWrite, Device: "oven", UniqueID: "c", Source: "api"},
	}
	for i := range seed {
		seed[i].CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		filter    Filter
		wantTotal int
		wantFirst string
		wantLen   int
	}{
		{"all newest first", Filter{}, 4, "c", 4},
		{"by device", Filter{Device: "fridge"}, 1, "b", 1},
		{"by action", Filter{Action: ActionWriteFailed}, 1, "a", 1},
		{"by unique id", Filter{UniqueID: "a"}, 2, "a", 2},
		{"paged", Filter{Limit: 1, Offset: 1}, 4, "b", 1},
		{"no match", Filter{Device: "washer"}, 0, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", res.Total, tt.wantTotal)
			}
			if len(res.Entries) != tt.wantLen {
				t.Fatalf("len(Entries) = %d, want %d", len(res.Entries), tt.wantLen)
			}
			if tt.wantLen > 0 && res.Entries[0].UniqueID != tt.wantFirst {
				t.Errorf("first UniqueID = %q, want %q", res.Entries[0].UniqueID, tt.wantFirst)
			}
		})
	}
}

func TestList_ClampsLimit(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	res, err := repo.List(context.Background(), Filter{Limit: 1000, Offset: -5})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Limit != maxLimit {
		t.Errorf("Limit = %d, want %d", res.Limit, maxLimit)
	}
	if res.Offset != 0 {
		t.Errorf("Offset = %d, want 0", res.Offset)
	}
	if res.Entries == nil {
		t.Error("Entries is nil, want empty slice")
	}
}
