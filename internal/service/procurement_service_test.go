package service

import (
	"context"
	"testing"

	"github.com/kilnworks/be-brick-ledger/internal/apperr"
	"github.com/kilnworks/be-brick-ledger/internal/logger"
	"github.com/kilnworks/be-brick-ledger/internal/repository"
	"github.com/kilnworks/be-brick-ledger/internal/repository/memory"
)

func newProcurement(store *memory.Store) *ProcurementService {
	return NewProcurementService(store, store, nil, logger.Nop())
}

func validRequestInput() CreateRequestInput {
	return CreateRequestInput{
		Material:       "clay",
		Quantity:       500,
		Unit:           "kg",
		VendorID:       "v1",
		RequestedBy:    "supervisor",
		Urgency:        repository.UrgencyMedium,
		RequiredByDate: "2027-06-01",
		CurrentStock:   40,
		MinThreshold:   100,
	}
}

func TestCreateProcurementRequest(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newProcurement(store)
	newVendor(t, store, "v1", "Clay Supplier")

	view, err := svc.CreateRequest(ctx, validRequestInput())
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if view.Request.Status != repository.RequestPending {
		t.Errorf("status = %s, want pending", view.Request.Status)
	}
	if view.StockLevel != repository.StockCritical {
		t.Errorf("stock level = %s, want critical for 40/100", view.StockLevel)
	}
}

func TestCreateProcurementRequestValidation(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newProcurement(store)
	newVendor(t, store, "v1", "Clay Supplier")
	newEmployee(t, store, "e1", "Ramesh")

	mutate := []struct {
		name  string
		apply func(*CreateRequestInput)
		code  apperr.Code
	}{
		{"missing material", func(in *CreateRequestInput) { in.Material = "" }, apperr.ErrCodeValidation},
		{"zero quantity", func(in *CreateRequestInput) { in.Quantity = 0 }, apperr.ErrCodeValidation},
		{"missing unit", func(in *CreateRequestInput) { in.Unit = "" }, apperr.ErrCodeValidation},
		{"missing requester", func(in *CreateRequestInput) { in.RequestedBy = "" }, apperr.ErrCodeValidation},
		{"bad urgency", func(in *CreateRequestInput) { in.Urgency = "panic" }, apperr.ErrCodeValidation},
		{"bad date", func(in *CreateRequestInput) { in.RequiredByDate = "soon" }, apperr.ErrCodeValidation},
		{"negative stock", func(in *CreateRequestInput) { in.CurrentStock = -1 }, apperr.ErrCodeValidation},
		{"zero threshold", func(in *CreateRequestInput) { in.MinThreshold = 0 }, apperr.ErrCodeValidation},
		{"unknown vendor", func(in *CreateRequestInput) { in.VendorID = "missing" }, apperr.ErrCodeUnknownReference},
		{"vendor is an employee", func(in *CreateRequestInput) { in.VendorID = "e1" }, apperr.ErrCodeUnknownReference},
	}
	for _, tt := range mutate {
		t.Run(tt.name, func(t *testing.T) {
			in := validRequestInput()
			tt.apply(&in)
			if _, err := svc.CreateRequest(ctx, in); !apperr.IsCode(err, tt.code) {
				t.Fatalf("got %v, want %s", err, tt.code)
			}
		})
	}
}

func TestApprovalIsOneShot(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newProcurement(store)
	newVendor(t, store, "v1", "Clay Supplier")

	view, err := svc.CreateRequest(ctx, validRequestInput())
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	id := view.Request.ID

	approved, err := svc.Approve(ctx, id, "owner")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Request.Status != repository.RequestApproved {
		t.Errorf("status = %s, want approved", approved.Request.Status)
	}
	if approved.Request.ApprovedBy == nil || *approved.Request.ApprovedBy != "owner" {
		t.Errorf("ApprovedBy = %v, want owner", approved.Request.ApprovedBy)
	}
	if approved.Request.ApprovalDate == nil {
		t.Error("ApprovalDate should be set")
	}

	// Terminal: no re-approve, no reject afterwards.
	if _, err := svc.Approve(ctx, id, "owner"); !apperr.IsCode(err, apperr.ErrCodeAlreadyFinalized) {
		t.Errorf("re-approve: got %v, want ALREADY_FINALIZED", err)
	}
	if _, err := svc.Reject(ctx, id, "owner", "changed my mind"); !apperr.IsCode(err, apperr.ErrCodeAlreadyFinalized) {
		t.Errorf("reject after approve: got %v, want ALREADY_FINALIZED", err)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newProcurement(store)
	newVendor(t, store, "v1", "Clay Supplier")

	view, err := svc.CreateRequest(ctx, validRequestInput())
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	id := view.Request.ID

	if _, err := svc.Reject(ctx, id, "owner", ""); !apperr.IsCode(err, apperr.ErrCodeValidation) {
		t.Fatalf("blank reason: got %v, want VALIDATION", err)
	}

	rejected, err := svc.Reject(ctx, id, "owner", "price too high")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Request.Status != repository.RequestRejected {
		t.Errorf("status = %s, want rejected", rejected.Request.Status)
	}
	if rejected.Request.RejectionReason == nil || *rejected.Request.RejectionReason != "price too high" {
		t.Errorf("RejectionReason = %v, want the given reason", rejected.Request.RejectionReason)
	}
}

func TestApproveRequiresApprover(t *testing.T) {
	ctx := context.Background()
	svc := newProcurement(memory.New())
	if _, err := svc.Approve(ctx, "whatever", ""); !apperr.IsCode(err, apperr.ErrCodeValidation) {
		t.Fatalf("blank approver: got %v, want VALIDATION", err)
	}
}

func TestListRequestsByStatus(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newProcurement(store)
	newVendor(t, store, "v1", "Clay Supplier")

	first, err := svc.CreateRequest(ctx, validRequestInput())
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if _, err := svc.CreateRequest(ctx, validRequestInput()); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if _, err := svc.Approve(ctx, first.Request.ID, "owner"); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	pending := repository.RequestPending
	views, err := svc.ListRequests(ctx, &pending)
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if len(views) != 1 {
		t.Errorf("pending requests = %d, want 1", len(views))
	}

	views, err = svc.ListRequests(ctx, nil)
	if err != nil {
		t.Fatalf("ListRequests(nil): %v", err)
	}
	if len(views) != 2 {
		t.Errorf("all requests = %d, want 2", len(views))
	}
}

func TestClassifyStock(t *testing.T) {
	tests := []struct {
		name      string
		current   int64
		threshold int64
		want      repository.StockLevel
	}{
		{"well below half", 10, 100, repository.StockCritical},
		{"just under half", 49, 100, repository.StockCritical},
		{"exactly half", 50, 100, repository.StockLow},
		{"under threshold", 99, 100, repository.StockLow},
		{"at threshold", 100, 100, repository.StockNormal},
		{"above threshold", 150, 100, repository.StockNormal},
		{"empty stock", 0, 100, repository.StockCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyStock(tt.current, tt.threshold); got != tt.want {
				t.Errorf("ClassifyStock(%d, %d) = %s, want %s", tt.current, tt.threshold, got, tt.want)
			}
		})
	}
}
