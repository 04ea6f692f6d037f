package domain

import "errors"

// Cross-layer sentinels. Handler-facing failures carry their HTTP status and
// machine-readable code at the boundary; these exist for conditions a lower
// layer signals and a caller branches on.
var (
	ErrNotFound = errors.New("not found")
	ErrUpstream = errors.New("upstream provider failure")
)
