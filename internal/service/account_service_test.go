package service

import (
	"context"
	"testing"

	"github.com/kilnworks/be-brick-ledger/internal/apperr"
	"github.com/kilnworks/be-brick-ledger/internal/logger"
	"github.com/kilnworks/be-brick-ledger/internal/repository/memory"
)

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()
	svc := NewAccountService(memory.New(), logger.Nop())

	acct, err := svc.CreateAccount(ctx, "HDFC-001", 500000)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if acct.CurrentBalance != 500000 {
		t.Errorf("CurrentBalance = %d, want 500000", acct.CurrentBalance)
	}
	if !acct.Active {
		t.Error("new account should be active")
	}

	balance, err := svc.GetBalance(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance != 500000 {
		t.Errorf("GetBalance = %d, want 500000", balance)
	}
}

func TestCreateAccountValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewAccountService(memory.New(), logger.Nop())

	if _, err := svc.CreateAccount(ctx, "", 100); !apperr.IsCode(err, apperr.ErrCodeValidation) {
		t.Errorf("empty account number: got %v, want VALIDATION", err)
	}
	if _, err := svc.CreateAccount(ctx, "SBI-002", -1); !apperr.IsCode(err, apperr.ErrCodeValidation) {
		t.Errorf("negative opening balance: got %v, want VALIDATION", err)
	}
}

func TestCreateAccountDuplicateNumber(t *testing.T) {
	ctx := context.Background()
	svc := NewAccountService(memory.New(), logger.Nop())

	if _, err := svc.CreateAccount(ctx, "HDFC-001", 0); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	_, err := svc.CreateAccount(ctx, "HDFC-001", 0)
	if !apperr.IsCode(err, apperr.ErrCodeDuplicateAccount) {
		t.Fatalf("duplicate number: got %v, want DUPLICATE_ACCOUNT", err)
	}
}

func TestDeactivateAccount(t *testing.T) {
	ctx := context.Background()
	svc := NewAccountService(memory.New(), logger.Nop())

	acct, err := svc.CreateAccount(ctx, "HDFC-001", 1000)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	deactivated, err := svc.Deactivate(ctx, acct.ID)
	if err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if deactivated.Active {
		t.Error("account should be inactive after Deactivate")
	}

	// One-way: a second deactivation conflicts.
	if _, err := svc.Deactivate(ctx, acct.ID); !apperr.IsCode(err, apperr.ErrCodeConflict) {
		t.Errorf("second Deactivate: got %v, want CONFLICT", err)
	}

	// Deactivated accounts keep their balance and stay readable.
	balance, err := svc.GetBalance(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetBalance after deactivate: %v", err)
	}
	if balance != 1000 {
		t.Errorf("balance after deactivate = %d, want 1000", balance)
	}
}

func TestDeactivateUnknownAccount(t *testing.T) {
	ctx := context.Background()
	svc := NewAccountService(memory.New(), logger.Nop())
	if _, err := svc.Deactivate(ctx, "missing"); !apperr.IsCode(err, apperr.ErrCodeUnknownReference) {
		t.Errorf("Deactivate(missing): got %v, want UNKNOWN_REFERENCE", err)
	}
}

func TestRecreateNumberAfterDeactivate(t *testing.T) {
	ctx := context.Background()
	svc := NewAccountService(memory.New(), logger.Nop())

	first, err := svc.CreateAccount(ctx, "HDFC-001", 1000)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if _, err := svc.Deactivate(ctx, first.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	// The number is free again once its holder is inactive.
	if _, err := svc.CreateAccount(ctx, "HDFC-001", 0); err != nil {
		t.Fatalf("recreate after deactivate: %v", err)
	}

	// The active row wins the duplicate check, not the deactivated one.
	_, err = svc.CreateAccount(ctx, "HDFC-001", 0)
	if !apperr.IsCode(err, apperr.ErrCodeDuplicateAccount) {
		t.Errorf("err = %v, want DUPLICATE_ACCOUNT", err)
	}
}
