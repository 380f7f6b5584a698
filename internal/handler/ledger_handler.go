package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kilnworks/be-brick-ledger/internal/apperr"
	"github.com/kilnworks/be-brick-ledger/internal/repository"
	"github.com/kilnworks/be-brick-ledger/internal/service"
)

// ── Directory ────────────────────────────────────────────────────────────────

// RegisterOwnerRequest adds a vendor or employee to the directory.
type RegisterOwnerRequest struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

func (h *HTTPHandler) RegisterOwner(w http.ResponseWriter, r *http.Request) {
	var req RegisterOwnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.InvalidInput("body", "invalid request body"))
		return
	}

	owner, err := h.directory.RegisterOwner(r.Context(), repository.OwnerKind(req.Kind), req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, owner)
}

func (h *HTTPHandler) ListOwners(w http.ResponseWriter, r *http.Request) {
	kind := repository.OwnerKind(r.URL.Query().Get("kind"))
	owners, err := h.directory.ListOwners(r.Context(), kind)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, owners)
}

// ── Sub-ledgers ──────────────────────────────────────────────────────────────

// AppendEntryRequest is the sub-ledger append payload.
type AppendEntryRequest struct {
	Kind           string  `json:"kind"`
	Amount         int64   `json:"amount"`
	PaymentMode    string  `json:"payment_mode"`
	SAI            *string `json:"sender_account_info"`
	RAI            *string `json:"receiver_account_info"`
	Notes          *string `json:"notes"`
	Date           string  `json:"date"`
	CreatedBy      string  `json:"created_by"`
	IdempotencyKey string  `json:"idempotency_key"`
}

func (h *HTTPHandler) AppendEntry(w http.ResponseWriter, r *http.Request) {
	var req AppendEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.InvalidInput("body", "invalid request body"))
		return
	}

	res, err := h.subLedger.AppendEntry(r.Context(), service.AppendEntryRequest{
		OwnerKind:      repository.OwnerKind(chi.URLParam(r, "kind")),
		OwnerID:        chi.URLParam(r, "ownerID"),
		Kind:           repository.EntryKind(req.Kind),
		Amount:         req.Amount,
		PaymentMode:    repository.PaymentMode(req.PaymentMode),
		SAI:            req.SAI,
		RAI:            req.RAI,
		Notes:          req.Notes,
		EntryDate:      req.Date,
		CreatedBy:      req.CreatedBy,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	h.writeJSON(w, status, res)
}

func (h *HTTPHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, balance, err := h.subLedger.Entries(r.Context(),
		repository.OwnerKind(chi.URLParam(r, "kind")), chi.URLParam(r, "ownerID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"entries":         entries,
		"running_balance": balance,
	})
}

// SettleRequest settles an owner's balance. Amount is only read for partial
// settlements.
type SettleRequest struct {
	Full           bool    `json:"full"`
	Amount         int64   `json:"amount"`
	PaymentMode    string  `json:"payment_mode"`
	SAI            *string `json:"sender_account_info"`
	RAI            *string `json:"receiver_account_info"`
	Notes          *string `json:"notes"`
	Date           string  `json:"date"`
	CreatedBy      string  `json:"created_by"`
	IdempotencyKey string  `json:"idempotency_key"`
}

func (h *HTTPHandler) Settle(w http.ResponseWriter, r *http.Request) {
	var req SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.InvalidInput("body", "invalid request body"))
		return
	}

	sreq := service.SettleRequest{
		OwnerKind:      repository.OwnerKind(chi.URLParam(r, "kind")),
		OwnerID:        chi.URLParam(r, "ownerID"),
		Amount:         req.Amount,
		PaymentMode:    repository.PaymentMode(req.PaymentMode),
		SAI:            req.SAI,
		RAI:            req.RAI,
		Notes:          req.Notes,
		EntryDate:      req.Date,
		CreatedBy:      req.CreatedBy,
		IdempotencyKey: req.IdempotencyKey,
	}

	var (
		res *service.AppendEntryResult
		err error
	)
	if req.Full {
		res, err = h.subLedger.SettleFull(r.Context(), sreq)
	} else {
		res, err = h.subLedger.SettlePartial(r.Context(), sreq)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, res)
}

func (h *HTTPHandler) RunningBalance(w http.ResponseWriter, r *http.Request) {
	var asOf *string
	if v := r.URL.Query().Get("as_of"); v != "" {
		asOf = &v
	}

	balance, err := h.subLedger.RunningBalance(r.Context(),
		repository.OwnerKind(chi.URLParam(r, "kind")), chi.URLParam(r, "ownerID"), asOf)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"running_balance": balance})
}

func (h *HTTPHandler) ExportLedger(w http.ResponseWriter, r *http.Request) {
	export, err := h.reports.ExportRange(r.Context(),
		repository.OwnerKind(chi.URLParam(r, "kind")), chi.URLParam(r, "ownerID"),
		r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, export)
}

// ── Loans ────────────────────────────────────────────────────────────────────

// CreateLoanRequest is the loan creation payload. InterestRate is an annual
// percentage.
type CreateLoanRequest struct {
	LenderName             string  `json:"lender_name"`
	LoanType               string  `json:"loan_type"`
	PrincipalAmount        int64   `json:"principal_amount"`
	InterestRate           *string `json:"interest_rate"`
	DisbursementAccountRef string  `json:"disbursement_account_ref"`
	StartDate              string  `json:"start_date"`
	CreatedBy              string  `json:"created_by"`
	IdempotencyKey         string  `json:"idempotency_key"`
}

func (h *HTTPHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.InvalidInput("body", "invalid request body"))
		return
	}

	var rate *decimal.Decimal
	if req.InterestRate != nil {
		d, err := decimal.NewFromString(*req.InterestRate)
		if err != nil {
			h.writeError(w, apperr.InvalidInput("interest_rate", "invalid decimal"))
			return
		}
		rate = &d
	}

	loan, err := h.loans.CreateLoan(r.Context(), service.CreateLoanRequest{
		LenderName:             req.LenderName,
		Type:                   repository.LoanType(req.LoanType),
		PrincipalAmount:        req.PrincipalAmount,
		InterestRate:           rate,
		DisbursementAccountRef: req.DisbursementAccountRef,
		StartDate:              req.StartDate,
		CreatedBy:              req.CreatedBy,
		IdempotencyKey:         req.IdempotencyKey,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, loan)
}

func (h *HTTPHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.loans.ListLoans(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, loans)
}

func (h *HTTPHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	view, err := h.loans.GetLoan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *HTTPHandler) RecordLoanEntry(w http.ResponseWriter, r *http.Request) {
	var req AppendEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.InvalidInput("body", "invalid request body"))
		return
	}

	res, err := h.loans.RecordEntry(r.Context(), chi.URLParam(r, "id"), service.AppendEntryRequest{
		Kind:           repository.EntryKind(req.Kind),
		Amount:         req.Amount,
		PaymentMode:    repository.PaymentMode(req.PaymentMode),
		SAI:            req.SAI,
		RAI:            req.RAI,
		Notes:          req.Notes,
		EntryDate:      req.Date,
		CreatedBy:      req.CreatedBy,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, res)
}

func (h *HTTPHandler) CloseLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.loans.CloseLoan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, loan)
}

// ── Procurement ──────────────────────────────────────────────────────────────

// CreateProcurementRequestBody is the procurement request payload.
type CreateProcurementRequestBody struct {
	Material       string  `json:"material"`
	Quantity       float64 `json:"quantity"`
	Unit           string  `json:"unit"`
	VendorID       string  `json:"vendor_id"`
	RequestedBy    string  `json:"requested_by"`
	Urgency        string  `json:"urgency"`
	RequiredByDate string  `json:"required_by_date"`
	CurrentStock   int64   `json:"current_stock"`
	MinThreshold   int64   `json:"min_threshold"`
}

func (h *HTTPHandler) CreateProcurementRequest(w http.ResponseWriter, r *http.Request) {
	var req CreateProcurementRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.InvalidInput("body", "invalid request body"))
		return
	}

	view, err := h.procurement.CreateRequest(r.Context(), service.CreateRequestInput{
		Material:       req.Material,
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		VendorID:       req.VendorID,
		RequestedBy:    req.RequestedBy,
		Urgency:        repository.Urgency(req.Urgency),
		RequiredByDate: req.RequiredByDate,
		CurrentStock:   req.CurrentStock,
		MinThreshold:   req.MinThreshold,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, view)
}

func (h *HTTPHandler) ListProcurementRequests(w http.ResponseWriter, r *http.Request) {
	var status *repository.RequestStatus
	if v := r.URL.Query().Get("status"); v != "" {
		s := repository.RequestStatus(v)
		status = &s
	}

	views, err := h.procurement.ListRequests(r.Context(), status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, views)
}

func (h *HTTPHandler) GetProcurementRequest(w http.ResponseWriter, r *http.Request) {
	view, err := h.procurement.GetRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// ApproveRequestBody names the approver.
type ApproveRequestBody struct {
	ApprovedBy string `json:"approved_by"`
}

func (h *HTTPHandler) ApproveProcurementRequest(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.InvalidInput("body", "invalid request body"))
		return
	}

	view, err := h.procurement.Approve(r.Context(), chi.URLParam(r, "id"), req.ApprovedBy)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// RejectRequestBody names the rejecter and the mandatory reason.
type RejectRequestBody struct {
	RejectedBy string `json:"rejected_by"`
	Reason     string `json:"reason"`
}

func (h *HTTPHandler) RejectProcurementRequest(w http.ResponseWriter, r *http.Request) {
	var req RejectRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.InvalidInput("body", "invalid request body"))
		return
	}

	view, err := h.procurement.Reject(r.Context(), chi.URLParam(r, "id"), req.RejectedBy, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}
