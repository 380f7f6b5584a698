package service

import (
	"context"
	"testing"
	"time"

	"github.com/kilnworks/be-brick-ledger/internal/logger"
	"github.com/kilnworks/be-brick-ledger/internal/repository"
	"github.com/kilnworks/be-brick-ledger/internal/repository/memory"
)

func strPtr(s string) *string { return &s }

// newVendor registers a vendor owner directly in the store.
func newVendor(t *testing.T, store *memory.Store, id, name string) {
	t.Helper()
	err := store.SaveOwner(context.Background(), &repository.LedgerOwner{
		ID:        id,
		Kind:      repository.OwnerVendor,
		Name:      name,
		Active:    true,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("SaveOwner: %v", err)
	}
}

func newEmployee(t *testing.T, store *memory.Store, id, name string) {
	t.Helper()
	err := store.SaveOwner(context.Background(), &repository.LedgerOwner{
		ID:        id,
		Kind:      repository.OwnerEmployee,
		Name:      name,
		Active:    true,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("SaveOwner: %v", err)
	}
}

func newSubLedger(store *memory.Store) *SubLedgerService {
	return NewSubLedgerService(store, store, nil, nil, logger.Nop())
}

// pastDate returns a date string n days before today, so postings never trip
// the future-date rule regardless of when the tests run.
func pastDate(n int) string {
	return time.Now().AddDate(0, 0, -n).Format("2006-01-02")
}
