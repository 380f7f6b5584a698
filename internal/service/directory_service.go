package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kilnworks/be-brick-ledger/internal/apperr"
	"github.com/kilnworks/be-brick-ledger/internal/logger"
	"github.com/kilnworks/be-brick-ledger/internal/repository"
)

// DirectoryService maintains the vendor/employee directory the sub-ledgers
// reference. Loans register themselves via the loan service.
type DirectoryService struct {
	owners repository.OwnerStore
	log    *logger.Logger
}

// NewDirectoryService creates a new directory service.
func NewDirectoryService(owners repository.OwnerStore, log *logger.Logger) *DirectoryService {
	return &DirectoryService{owners: owners, log: log}
}

// RegisterOwner adds a vendor or employee to the directory.
func (s *DirectoryService) RegisterOwner(ctx context.Context, kind repository.OwnerKind, name string) (*repository.LedgerOwner, error) {
	if kind != repository.OwnerVendor && kind != repository.OwnerEmployee {
		return nil, apperr.InvalidInput("kind", "must be vendor or employee")
	}
	if name == "" {
		return nil, apperr.InvalidInput("name", "required")
	}

	owner := &repository.LedgerOwner{
		ID:        uuid.NewString(),
		Kind:      kind,
		Name:      name,
		Active:    true,
		CreatedAt: time.Now(),
	}
	if err := s.owners.SaveOwner(ctx, owner); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("owner_id", owner.ID).
		Str("kind", string(kind)).
		Str("name", name).
		Msg("Ledger owner registered")

	return owner, nil
}

// ListOwners lists directory records of one kind.
func (s *DirectoryService) ListOwners(ctx context.Context, kind repository.OwnerKind) ([]*repository.LedgerOwner, error) {
	return s.owners.ListOwners(ctx, kind)
}

// GetOwner resolves one directory record.
func (s *DirectoryService) GetOwner(ctx context.Context, id string) (*repository.LedgerOwner, error) {
	return s.owners.GetOwner(ctx, id)
}
