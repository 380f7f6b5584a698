package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kilnworks/be-brick-ledger/internal/apperr"
	"github.com/kilnworks/be-brick-ledger/internal/database"
	"github.com/kilnworks/be-brick-ledger/internal/repository"
)

// ProcurementStore is the Postgres implementation of
// repository.ProcurementStore.
type ProcurementStore struct {
	db *database.DB
}

// NewProcurementStore creates a new procurement store.
func NewProcurementStore(db *database.DB) *ProcurementStore {
	return &ProcurementStore{db: db}
}

func (s *ProcurementStore) CreateRequest(ctx context.Context, r *repository.ProcurementRequest) error {
	query := `
		INSERT INTO procurement_requests
		    (id, material, quantity, unit, vendor_id, requested_by, urgency,
		     required_by_date, current_stock, min_threshold, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::urgency, $8, $9, $10, $11::request_status, $12, $13)
	`
	err := s.db.Exec(ctx, query,
		r.ID, r.Material, r.Quantity, r.Unit, r.VendorID, r.RequestedBy, r.Urgency,
		r.RequiredByDate, r.CurrentStock, r.MinThreshold, r.Status, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrCodeInternal, "failed to create procurement request")
	}
	return nil
}

func (s *ProcurementStore) GetRequest(ctx context.Context, id string) (*repository.ProcurementRequest, error) {
	query := `
		SELECT id, material, quantity, unit, vendor_id, requested_by, urgency,
		       required_by_date, current_stock, min_threshold, status,
		       rejection_reason, approved_by, approval_date, created_at, updated_at
		FROM procurement_requests
		WHERE id = $1
	`
	r, err := scanRequest(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Newf(apperr.ErrCodeNotFound, "procurement request %q not found", id)
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to get procurement request")
	}
	return r, nil
}

func (s *ProcurementStore) ListRequests(ctx context.Context, status *repository.RequestStatus) ([]*repository.ProcurementRequest, error) {
	query := `
		SELECT id, material, quantity, unit, vendor_id, requested_by, urgency,
		       required_by_date, current_stock, min_threshold, status,
		       rejection_reason, approved_by, approval_date, created_at, updated_at
		FROM procurement_requests
		WHERE ($1::request_status IS NULL OR status = $1::request_status)
		ORDER BY created_at
	`
	rows, err := s.db.Query(ctx, query, status)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to list procurement requests")
	}
	defer rows.Close()

	var out []*repository.ProcurementRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to scan procurement request")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *ProcurementStore) UpdateRequest(ctx context.Context, r *repository.ProcurementRequest) error {
	query := `
		UPDATE procurement_requests
		SET status = $2::request_status,
		    rejection_reason = $3,
		    approved_by = $4,
		    approval_date = $5,
		    updated_at = $6
		WHERE id = $1
	`
	err := s.db.Exec(ctx, query,
		r.ID, r.Status, r.RejectionReason, r.ApprovedBy, r.ApprovalDate, r.UpdatedAt)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrCodeInternal, "failed to update procurement request")
	}
	return nil
}

func scanRequest(row pgx.Row) (*repository.ProcurementRequest, error) {
	var (
		r          repository.ProcurementRequest
		requiredBy time.Time
	)
	err := row.Scan(&r.ID, &r.Material, &r.Quantity, &r.Unit, &r.VendorID, &r.RequestedBy,
		&r.Urgency, &requiredBy, &r.CurrentStock, &r.MinThreshold, &r.Status,
		&r.RejectionReason, &r.ApprovedBy, &r.ApprovalDate, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.RequiredByDate = formatDate(requiredBy)
	return &r, nil
}

var _ repository.ProcurementStore = (*ProcurementStore)(nil)
