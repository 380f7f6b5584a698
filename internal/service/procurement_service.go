package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kilnworks/be-brick-ledger/internal/apperr"
	"github.com/kilnworks/be-brick-ledger/internal/events"
	"github.com/kilnworks/be-brick-ledger/internal/logger"
	"github.com/kilnworks/be-brick-ledger/internal/repository"
)

// ProcurementService runs the material-request approval workflow:
// Pending → Approved | Rejected, one-shot. Stock urgency is recomputed on
// every read from the snapshot taken at request time.
type ProcurementService struct {
	requests  repository.ProcurementStore
	owners    repository.OwnerStore
	publisher events.Publisher
	locks     *lockMap
	log       *logger.Logger
}

// NewProcurementService creates a new procurement service.
func NewProcurementService(
	requests repository.ProcurementStore,
	owners repository.OwnerStore,
	publisher events.Publisher,
	log *logger.Logger,
) *ProcurementService {
	return &ProcurementService{
		requests:  requests,
		owners:    owners,
		publisher: publisher,
		locks:     newLockMap(),
		log:       log,
	}
}

// CreateRequestInput describes a new material request.
type CreateRequestInput struct {
	Material       string
	Quantity       float64
	Unit           string
	VendorID       string
	RequestedBy    string
	Urgency        repository.Urgency
	RequiredByDate string
	CurrentStock   int64
	MinThreshold   int64
}

// RequestView is a request with its derived stock classification.
type RequestView struct {
	Request    *repository.ProcurementRequest
	StockLevel repository.StockLevel
}

// CreateRequest validates and records a pending request.
func (s *ProcurementService) CreateRequest(ctx context.Context, in CreateRequestInput) (*RequestView, error) {
	fields := make(map[string]string)
	if in.Material == "" {
		fields["material"] = "required"
	}
	if in.Quantity <= 0 {
		fields["quantity"] = "must be greater than zero"
	}
	if in.Unit == "" {
		fields["unit"] = "required"
	}
	if in.RequestedBy == "" {
		fields["requested_by"] = "required"
	}
	switch in.Urgency {
	case repository.UrgencyLow, repository.UrgencyMedium, repository.UrgencyHigh:
	default:
		fields["urgency"] = "must be low, medium or high"
	}
	if _, err := time.Parse("2006-01-02", in.RequiredByDate); err != nil {
		fields["required_by_date"] = "invalid date format, expected YYYY-MM-DD"
	}
	if in.CurrentStock < 0 {
		fields["current_stock"] = "must not be negative"
	}
	if in.MinThreshold <= 0 {
		fields["min_threshold"] = "must be greater than zero"
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}

	vendor, err := s.owners.GetOwner(ctx, in.VendorID)
	if err != nil {
		return nil, err
	}
	if vendor.Kind != repository.OwnerVendor {
		return nil, apperr.Newf(apperr.ErrCodeUnknownReference, "%q is not a vendor", in.VendorID)
	}

	now := time.Now()
	req := &repository.ProcurementRequest{
		ID:             uuid.NewString(),
		Material:       in.Material,
		Quantity:       in.Quantity,
		Unit:           in.Unit,
		VendorID:       in.VendorID,
		RequestedBy:    in.RequestedBy,
		Urgency:        in.Urgency,
		RequiredByDate: in.RequiredByDate,
		CurrentStock:   in.CurrentStock,
		MinThreshold:   in.MinThreshold,
		Status:         repository.RequestPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.requests.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("request_id", req.ID).
		Str("material", req.Material).
		Str("vendor_id", req.VendorID).
		Str("stock_level", string(ClassifyStock(req.CurrentStock, req.MinThreshold))).
		Msg("Procurement request created")

	return s.view(req), nil
}

// Approve moves a pending request to Approved. Terminal.
func (s *ProcurementService) Approve(ctx context.Context, id, approvedBy string) (*RequestView, error) {
	if approvedBy == "" {
		return nil, apperr.InvalidInput("approved_by", "required")
	}

	mu := s.locks.get(id)
	mu.Lock()
	defer mu.Unlock()

	req, err := s.requests.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != repository.RequestPending {
		return nil, apperr.Newf(apperr.ErrCodeAlreadyFinalized,
			"request is already %s", req.Status)
	}

	now := time.Now()
	req.Status = repository.RequestApproved
	req.ApprovedBy = &approvedBy
	req.ApprovalDate = &now
	req.UpdatedAt = now
	if err := s.requests.UpdateRequest(ctx, req); err != nil {
		return nil, err
	}

	s.publishDecision(req, approvedBy)

	s.log.Info().
		Str("request_id", id).
		Str("approved_by", approvedBy).
		Msg("Procurement request approved")

	return s.view(req), nil
}

// Reject moves a pending request to Rejected. A reason is mandatory.
func (s *ProcurementService) Reject(ctx context.Context, id, rejectedBy, reason string) (*RequestView, error) {
	if reason == "" {
		return nil, apperr.InvalidInput("rejection_reason", "required")
	}

	mu := s.locks.get(id)
	mu.Lock()
	defer mu.Unlock()

	req, err := s.requests.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != repository.RequestPending {
		return nil, apperr.Newf(apperr.ErrCodeAlreadyFinalized,
			"request is already %s", req.Status)
	}

	now := time.Now()
	req.Status = repository.RequestRejected
	req.RejectionReason = &reason
	req.UpdatedAt = now
	if err := s.requests.UpdateRequest(ctx, req); err != nil {
		return nil, err
	}

	s.publishDecision(req, rejectedBy)

	s.log.Info().
		Str("request_id", id).
		Str("rejected_by", rejectedBy).
		Msg("Procurement request rejected")

	return s.view(req), nil
}

// GetRequest returns one request with its stock classification.
func (s *ProcurementService) GetRequest(ctx context.Context, id string) (*RequestView, error) {
	req, err := s.requests.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(req), nil
}

// ListRequests lists requests, optionally filtered by status.
func (s *ProcurementService) ListRequests(ctx context.Context, status *repository.RequestStatus) ([]*RequestView, error) {
	reqs, err := s.requests.ListRequests(ctx, status)
	if err != nil {
		return nil, err
	}
	out := make([]*RequestView, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, s.view(r))
	}
	return out, nil
}

func (s *ProcurementService) view(req *repository.ProcurementRequest) *RequestView {
	return &RequestView{
		Request:    req,
		StockLevel: ClassifyStock(req.CurrentStock, req.MinThreshold),
	}
}

func (s *ProcurementService) publishDecision(req *repository.ProcurementRequest, decidedBy string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(events.TypeProcurementDecided, events.ProcurementDecided{
		RequestID:  req.ID,
		Status:     string(req.Status),
		DecidedBy:  decidedBy,
		OccurredAt: time.Now(),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("request_id", req.ID).Msg("Event publish failed")
	}
}

// ClassifyStock derives the advisory stock level from the snapshot ratio
// current/threshold: below 0.5 critical, below 1.0 low, else normal.
func ClassifyStock(currentStock, minThreshold int64) repository.StockLevel {
	if minThreshold <= 0 {
		return repository.StockNormal
	}
	ratio := decimal.NewFromInt(currentStock).Div(decimal.NewFromInt(minThreshold))
	switch {
	case ratio.LessThan(decimal.NewFromFloat(0.5)):
		return repository.StockCritical
	case ratio.LessThan(decimal.NewFromInt(1)):
		return repository.StockLow
	default:
		return repository.StockNormal
	}
}
