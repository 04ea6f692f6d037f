package sweep

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"modelcast-server/internal/infra"
	"modelcast-server/internal/sqlinline"
)

// AssetDeleter removes an asset from the external media host.
type AssetDeleter interface {
	Destroy(ctx context.Context, publicID string) error
	DeleteByToken(ctx context.Context, token string) error
}

// Result counts one sweep pass.
type Result struct {
	Deleted int
	Failed  int
}

const deleteConcurrency = 4

// Expired deletes uploads past the retention window, preferring the upload's
// deletion token over the admin API. The tracking row is only removed after
// the remote delete succeeds, so a failed delete is retried on the next pass.
func Expired(ctx context.Context, db infra.SQLExecutor, assets AssetDeleter, logger infra.Logger, batch int) (Result, error) {
	rows, err := db.Query(ctx, sqlinline.QSelectExpiredUploads, batch)
	if err != nil {
		return Result{}, fmt.Errorf("select expired uploads: %w", err)
	}
	defer rows.Close()

	type expired struct {
		publicID string
		token    string
	}
	var pending []expired
	for rows.Next() {
		var e expired
		if err := rows.Scan(&e.publicID, &e.token); err != nil {
			return Result{}, fmt.Errorf("scan expired upload: %w", err)
		}
		pending = append(pending, e)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("iterate expired uploads: %w", err)
	}

	var deleted, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deleteConcurrency)
	for _, e := range pending {
		g.Go(func() error {
			var err error
			if e.token != "" {
				err = assets.DeleteByToken(gctx, e.token)
			} else {
				err = assets.Destroy(gctx, e.publicID)
			}
			if err != nil {
				failed.Add(1)
				logger.Warn().Err(err).Str("public_id", e.publicID).Msg("asset delete failed")
				return nil
			}
			if _, err := db.Exec(gctx, sqlinline.QDeleteUpload, e.publicID); err != nil {
				failed.Add(1)
				logger.Warn().Err(err).Str("public_id", e.publicID).Msg("upload row delete failed")
				return nil
			}
			deleted.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return Result{Deleted: int(deleted.Load()), Failed: int(failed.Load())}, nil
}
