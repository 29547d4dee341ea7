package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akazmin/ticketry/internal/ticket"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTicket(key string) ticket.Ticket {
	return ticket.Ticket{
		Key:         key,
		Summary:     "Login broken",
		Description: "Users cannot sign in",
		Status:      ticket.Some("Open"),
		Priority:    ticket.None(),
		Assignee:    ticket.Some("Dana"),
		Metadata:    map[string]string{"source": "jira"},
		CreatedAt:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestMigrationsApplied(t *testing.T) {
	s := openTestStore(t)

	applied, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations() error: %v", err)
	}
	if len(applied) == 0 {
		t.Fatal("expected at least one applied migration")
	}

	// Running migrate again must be a no-op.
	if err := s.migrate(); err != nil {
		t.Fatalf("second migrate() error: %v", err)
	}
	again, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations() error: %v", err)
	}
	if len(again) != len(applied) {
		t.Errorf("migrations reapplied: %d then %d", len(applied), len(again))
	}
}

func TestInsertAndGetTicket(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.InsertTicket(ctx, sampleTicket("PROJ-1"))
	if err != nil {
		t.Fatalf("InsertTicket() error: %v", err)
	}
	if id == 0 {
		t.Fatal("id should be assigned")
	}

	got, err := s.GetTicket(ctx, id)
	if err != nil {
		t.Fatalf("GetTicket() error: %v", err)
	}

	if got.ID != id {
		t.Errorf("ID = %d, want %d", got.ID, id)
	}
	if got.Key != "PROJ-1" || got.Summary != "Login broken" {
		t.Errorf("got %+v", got)
	}
	if !got.Status.Valid || got.Status.Value != "Open" {
		t.Errorf("Status = %+v", got.Status)
	}
	if got.Priority.Valid {
		t.Errorf("Priority = %+v, want absent", got.Priority)
	}
	if got.Metadata["source"] != "jira" {
		t.Errorf("Metadata = %v", got.Metadata)
	}
	if !got.CreatedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("CreatedAt = %v", got.CreatedAt)
	}
}

func TestIDsAreMonotonic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var prev int64
	for i := 0; i < 5; i++ {
		id, err := s.InsertTicket(ctx, sampleTicket("PROJ-1"))
		if err != nil {
			t.Fatalf("InsertTicket() error: %v", err)
		}
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d", id, prev)
		}
		prev = id
	}
}

func TestGetTicketNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetTicket(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTicket() error = %v, want ErrNotFound", err)
	}
}

func TestGetByIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id1, _ := s.InsertTicket(ctx, sampleTicket("PROJ-1"))
	id2, _ := s.InsertTicket(ctx, sampleTicket("PROJ-2"))
	id3, _ := s.InsertTicket(ctx, sampleTicket("PROJ-3"))

	// Requested order is preserved and unknown ids are skipped.
	got, err := s.GetByIDs(ctx, []int64{id3, 999, id1, id2})
	if err != nil {
		t.Fatalf("GetByIDs() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d tickets, want 3", len(got))
	}
	if got[0].ID != id3 || got[1].ID != id1 || got[2].ID != id2 {
		t.Errorf("order = [%d %d %d], want [%d %d %d]",
			got[0].ID, got[1].ID, got[2].ID, id3, id1, id2)
	}

	empty, err := s.GetByIDs(ctx, nil)
	if err != nil {
		t.Fatalf("GetByIDs(nil) error: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("got %d tickets for empty id list", len(empty))
	}
}

func TestDeleteTicket(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, _ := s.InsertTicket(ctx, sampleTicket("PROJ-1"))
	if err := s.DeleteTicket(ctx, id); err != nil {
		t.Fatalf("DeleteTicket() error: %v", err)
	}
	if _, err := s.GetTicket(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted ticket still readable: %v", err)
	}
	if err := s.DeleteTicket(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestTicketIDsAndCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id1, _ := s.InsertTicket(ctx, sampleTicket("PROJ-1"))
	id2, _ := s.InsertTicket(ctx, sampleTicket("PROJ-2"))

	ids, err := s.TicketIDs(ctx)
	if err != nil {
		t.Fatalf("TicketIDs() error: %v", err)
	}
	if len(ids) != 2 || ids[0] != id1 || ids[1] != id2 {
		t.Errorf("ids = %v, want [%d %d]", ids, id1, id2)
	}

	n, err := s.CountTickets(ctx)
	if err != nil {
		t.Fatalf("CountTickets() error: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestDuplicateKeysAllowed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id1, err := s.InsertTicket(ctx, sampleTicket("PROJ-1"))
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	id2, err := s.InsertTicket(ctx, sampleTicket("PROJ-1"))
	if err != nil {
		t.Fatalf("second insert with same key: %v", err)
	}
	if id1 == id2 {
		t.Error("re-ingesting the same key should create a new row")
	}
}
