package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kilnworks/be-brick-ledger/internal/apperr"
	"github.com/kilnworks/be-brick-ledger/internal/logger"
	"github.com/kilnworks/be-brick-ledger/internal/repository"
	"github.com/kilnworks/be-brick-ledger/internal/service"
)

// HTTPHandler exposes the ledger engine over HTTP.
type HTTPHandler struct {
	accounts    *service.AccountService
	dayLedger   *service.DayLedgerService
	subLedger   *service.SubLedgerService
	loans       *service.LoanService
	procurement *service.ProcurementService
	reports     *service.ReportService
	directory   *service.DirectoryService
	log         *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(
	accounts *service.AccountService,
	dayLedger *service.DayLedgerService,
	subLedger *service.SubLedgerService,
	loans *service.LoanService,
	procurement *service.ProcurementService,
	reports *service.ReportService,
	directory *service.DirectoryService,
	log *logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		accounts:    accounts,
		dayLedger:   dayLedger,
		subLedger:   subLedger,
		loans:       loans,
		procurement: procurement,
		reports:     reports,
		directory:   directory,
		log:         log,
	}
}

// Routes registers every endpoint on r.
func (h *HTTPHandler) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", h.CreateAccount)
			r.Get("/", h.ListAccounts)
			r.Get("/{id}", h.GetAccount)
			r.Post("/{id}/deactivate", h.DeactivateAccount)
		})

		r.Route("/day-ledger", func(r chi.Router) {
			r.Get("/", h.GetDayLedger)
			r.Post("/transactions", h.PostCashTransaction)
			r.Post("/withdraw", h.Withdraw)
			r.Post("/freeze", h.FreezeDay)
		})

		r.Route("/owners", func(r chi.Router) {
			r.Post("/", h.RegisterOwner)
			r.Get("/", h.ListOwners)
		})

		r.Route("/ledgers/{kind}/{ownerID}", func(r chi.Router) {
			r.Post("/entries", h.AppendEntry)
			r.Get("/entries", h.ListEntries)
			r.Post("/settle", h.Settle)
			r.Get("/balance", h.RunningBalance)
			r.Get("/export", h.ExportLedger)
		})

		r.Route("/loans", func(r chi.Router) {
			r.Post("/", h.CreateLoan)
			r.Get("/", h.ListLoans)
			r.Get("/{id}", h.GetLoan)
			r.Post("/{id}/entries", h.RecordLoanEntry)
			r.Post("/{id}/close", h.CloseLoan)
		})

		r.Route("/procurement", func(r chi.Router) {
			r.Post("/", h.CreateProcurementRequest)
			r.Get("/", h.ListProcurementRequests)
			r.Get("/{id}", h.GetProcurementRequest)
			r.Post("/{id}/approve", h.ApproveProcurementRequest)
			r.Post("/{id}/reject", h.RejectProcurementRequest)
		})

		r.Get("/cash-book/export", h.ExportCashBook)
	})
}

// ── Accounts ─────────────────────────────────────────────────────────────────

// CreateAccountRequest is the create-account payload.
type CreateAccountRequest struct {
	AccountNumber  string `json:"account_number"`
	OpeningBalance int64  `json:"opening_balance"`
}

func (h *HTTPHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.InvalidInput("body", "invalid request body"))
		return
	}

	acct, err := h.accounts.CreateAccount(r.Context(), req.AccountNumber, req.OpeningBalance)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, acct)
}

func (h *HTTPHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.ListAccounts(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, accounts)
}

func (h *HTTPHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.accounts.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, acct)
}

func (h *HTTPHandler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.accounts.Deactivate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, acct)
}

// ── Day ledger ───────────────────────────────────────────────────────────────

// PostCashTransactionRequest is the cash posting payload.
type PostCashTransactionRequest struct {
	Date           string `json:"date"`
	Direction      string `json:"direction"`
	Amount         int64  `json:"amount"`
	AccountRef     string `json:"account_ref"`
	CounterpartRef string `json:"counterpart_ref"`
	Type           string `json:"type"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (h *HTTPHandler) PostCashTransaction(w http.ResponseWriter, r *http.Request) {
	var req PostCashTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.InvalidInput("body", "invalid request body"))
		return
	}

	res, err := h.dayLedger.PostCashTransaction(r.Context(), service.PostCashRequest{
		Date:           req.Date,
		Direction:      repository.Direction(req.Direction),
		Amount:         req.Amount,
		AccountRef:     req.AccountRef,
		CounterpartRef: req.CounterpartRef,
		TxType:         req.Type,
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

// OwnerWithdrawRequest is the owner-withdrawal payload.
type OwnerWithdrawRequest struct {
	Date           string `json:"date"`
	AccountRef     string `json:"account_ref"`
	Amount         int64  `json:"amount"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (h *HTTPHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req OwnerWithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.InvalidInput("body", "invalid request body"))
		return
	}

	res, err := h.dayLedger.Withdraw(r.Context(), service.WithdrawRequest{
		Date:           req.Date,
		AccountRef:     req.AccountRef,
		Amount:         req.Amount,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, res)
}

// FreezeDayRequest names the date to freeze.
type FreezeDayRequest struct {
	Date string `json:"date"`
}

func (h *HTTPHandler) FreezeDay(w http.ResponseWriter, r *http.Request) {
	var req FreezeDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperr.InvalidInput("body", "invalid request body"))
		return
	}

	day, err := h.dayLedger.Freeze(r.Context(), req.Date)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, day)
}

func (h *HTTPHandler) GetDayLedger(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		h.writeError(w, apperr.InvalidInput("date", "required"))
		return
	}

	view, err := h.dayLedger.Day(r.Context(), date)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *HTTPHandler) ExportCashBook(w http.ResponseWriter, r *http.Request) {
	export, err := h.reports.ExportCashBook(r.Context(),
		r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, export)
}

// ── Shared helpers ───────────────────────────────────────────────────────────

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}
	h.writeJSON(w, status, errorResponse{
		Code:    string(apperr.CodeOf(err)),
		Message: err.Error(),
		Fields:  apperr.FieldsOf(err),
	})
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Response encoding failed")
	}
}
