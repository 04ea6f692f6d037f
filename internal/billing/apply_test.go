package billing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"modelcast-server/internal/domain"
)

type stubExecutor struct {
	execErrs  []error
	rowVals   []any
	rowErr    error
	execCalls []string
	rowCalls  []string
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.execCalls = append(s.execCalls, query)
	if len(s.execErrs) > 0 {
		err := s.execErrs[0]
		s.execErrs = s.execErrs[1:]
		return pgconn.CommandTag{}, err
	}
	return pgconn.CommandTag{}, nil
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.rowCalls = append(s.rowCalls, query)
	return stubRow{vals: s.rowVals, err: s.rowErr}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	vals []any
	err  error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i := range dest {
		switch d := dest[i].(type) {
		case *int:
			*d = r.vals[i].(int)
		case *string:
			*d = r.vals[i].(string)
		}
	}
	return nil
}

func TestApplyPurchaseGrantsCreditsAndPlan(t *testing.T) {
	db := &stubExecutor{rowVals: []any{53, "pro"}}
	grant := domain.PlanGrant{Plan: domain.PlanPro, Credits: 50}

	res, err := ApplyPurchase(context.Background(), db, "cs_test_123", "11111111-1111-1111-1111-111111111111", grant)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Duplicate {
		t.Fatal("expected first application, got duplicate")
	}
	if res.Credits != 53 || res.Plan != domain.PlanPro {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(db.execCalls) != 1 || !strings.Contains(db.execCalls[0], "insert into credit_history") {
		t.Fatalf("expected ledger insert, got %v", db.execCalls)
	}
}

func TestApplyPurchaseDuplicateSession(t *testing.T) {
	db := &stubExecutor{execErrs: []error{&pgconn.PgError{Code: "23505"}}}
	grant := domain.PlanGrant{Plan: domain.PlanStudio, Credits: 200}

	res, err := ApplyPurchase(context.Background(), db, "cs_test_123", "11111111-1111-1111-1111-111111111111", grant)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Duplicate {
		t.Fatal("expected duplicate result")
	}
	if len(db.rowCalls) != 0 {
		t.Fatal("duplicate must not touch the profile")
	}
}

func TestApplyPurchaseCompensatesLedgerOnFailure(t *testing.T) {
	db := &stubExecutor{rowErr: errors.New("profile gone")}
	grant := domain.PlanGrant{Plan: domain.PlanPro, Credits: 50}

	_, err := ApplyPurchase(context.Background(), db, "cs_test_123", "11111111-1111-1111-1111-111111111111", grant)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(db.execCalls) != 2 {
		t.Fatalf("expected insert then compensating delete, got %d calls", len(db.execCalls))
	}
	if !strings.Contains(db.execCalls[1], "delete from credit_history") {
		t.Fatalf("second call is not the compensating delete: %s", db.execCalls[1])
	}
}

func TestApplyPurchaseMissingProfile(t *testing.T) {
	db := &stubExecutor{rowErr: pgx.ErrNoRows}
	grant := domain.PlanGrant{Plan: domain.PlanPro, Credits: 50}

	_, err := ApplyPurchase(context.Background(), db, "cs_test_123", "11111111-1111-1111-1111-111111111111", grant)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
