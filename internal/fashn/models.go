package fashn

import (
	"errors"
	"fmt"
)

// Known generation models. The set is closed: anything else fails the
// whitelist instead of passing through unfiltered.
const (
	ModelTryOnV16       = "tryon-v1.6"
	ModelTryOnV15       = "tryon-v1.5"
	ModelProductToModel = "product-to-model"
)

const tryOnPrefix = "tryon-"

var (
	ErrUnknownModel       = errors.New("fashn: unknown model")
	ErrModelImageRequired = errors.New("fashn: model image required")
)

// ModelCandidates returns the ordered fallback list for one request. The
// orchestrator tries candidates strictly in this order and advances only on
// failure.
func ModelCandidates(hasModelImage bool) []string {
	if hasModelImage {
		return []string{ModelTryOnV16, ModelTryOnV15}
	}
	return []string{ModelProductToModel}
}

var whitelists = map[string][]string{
	ModelTryOnV16:       {"model_image", "garment_image", "output_format"},
	ModelTryOnV15:       {"model_image", "garment_image", "output_format"},
	ModelProductToModel: {"product_image", "prompt", "output_format"},
}

// EnforceWhitelist strips any input key the named model does not accept.
// Unknown model names are rejected.
func EnforceWhitelist(model string, inputs map[string]any) (map[string]any, error) {
	allowed, ok := whitelists[model]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	filtered := make(map[string]any, len(allowed))
	for _, key := range allowed {
		if v, present := inputs[key]; present {
			filtered[key] = v
		}
	}
	return filtered, nil
}
