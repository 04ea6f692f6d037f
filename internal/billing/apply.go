package billing

import (
	"context"
	"fmt"

	"modelcast-server/internal/domain"
	"modelcast-server/internal/infra"
	"modelcast-server/internal/sqlinline"
)

// PurchaseResult reports the profile state after a purchase was applied, or
// that the purchase had already been recorded.
type PurchaseResult struct {
	Credits   int
	Plan      domain.Plan
	Duplicate bool
}

// ApplyPurchase records the purchase in the credit ledger and grants credits
// plus the plan upgrade in one logical step. The ledger's primary key is the
// checkout session id, so the synchronous confirm path and the webhook path
// dedupe against each other: whichever lands second gets Duplicate=true and
// changes nothing.
//
// When the executor can open a transaction both writes commit atomically.
// Otherwise the ledger insert is compensated on failure so a retry is not
// locked out.
func ApplyPurchase(ctx context.Context, db infra.SQLExecutor, sessionID, userID string, grant domain.PlanGrant) (PurchaseResult, error) {
	if starter, ok := db.(infra.TxStarter); ok {
		return applyInTx(ctx, starter, sessionID, userID, grant)
	}

	if _, err := db.Exec(ctx, sqlinline.QInsertCreditLedger, sessionID, userID, grant.Credits, string(grant.Plan)); err != nil {
		if infra.IsUniqueViolation(err) {
			return PurchaseResult{Duplicate: true}, nil
		}
		return PurchaseResult{}, fmt.Errorf("insert credit ledger: %w", err)
	}

	res, err := scanApply(db.QueryRow(ctx, sqlinline.QApplyPurchase, userID, grant.Credits, string(grant.Plan)))
	if err != nil {
		if _, delErr := db.Exec(ctx, sqlinline.QDeleteCreditLedger, sessionID); delErr != nil {
			return PurchaseResult{}, fmt.Errorf("apply purchase: %w (ledger compensation also failed: %v)", err, delErr)
		}
		return PurchaseResult{}, fmt.Errorf("apply purchase: %w", err)
	}
	return res, nil
}

func applyInTx(ctx context.Context, starter infra.TxStarter, sessionID, userID string, grant domain.PlanGrant) (PurchaseResult, error) {
	tx, err := starter.Begin(ctx)
	if err != nil {
		return PurchaseResult{}, fmt.Errorf("begin purchase tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := infra.TxExec(ctx, tx, sqlinline.QInsertCreditLedger, sessionID, userID, grant.Credits, string(grant.Plan)); err != nil {
		if infra.IsUniqueViolation(err) {
			return PurchaseResult{Duplicate: true}, nil
		}
		return PurchaseResult{}, fmt.Errorf("insert credit ledger: %w", err)
	}

	res, err := scanApply(infra.TxQueryRow(ctx, tx, sqlinline.QApplyPurchase, userID, grant.Credits, string(grant.Plan)))
	if err != nil {
		return PurchaseResult{}, fmt.Errorf("apply purchase: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return PurchaseResult{}, fmt.Errorf("commit purchase tx: %w", err)
	}
	return res, nil
}

type row interface {
	Scan(dest ...any) error
}

func scanApply(r row) (PurchaseResult, error) {
	var res PurchaseResult
	var plan string
	if err := r.Scan(&res.Credits, &plan); err != nil {
		if infra.IsNoRows(err) {
			return PurchaseResult{}, domain.ErrNotFound
		}
		return PurchaseResult{}, err
	}
	res.Plan = domain.ParsePlan(plan)
	return res, nil
}
