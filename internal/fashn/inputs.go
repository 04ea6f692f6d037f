package fashn

import (
	"fmt"
	"strings"
)

// GenerationContext carries the image URLs and prompt one submission is built
// from.
type GenerationContext struct {
	GarmentImageURL string
	ModelImageURL   string
	Prompt          string
}

// BuildOptions tunes payload construction.
type BuildOptions struct {
	IncludePrompt bool
}

// BuildInputs builds the model-specific request payload. Try-on models pair a
// person image with the garment; the single-image model sends the garment URL
// as product_image, which is that API's name for it.
func BuildInputs(model string, gc GenerationContext, opts BuildOptions) (map[string]any, error) {
	inputs := map[string]any{
		"output_format": "png",
	}
	if opts.IncludePrompt && strings.TrimSpace(gc.Prompt) != "" {
		inputs["prompt"] = gc.Prompt
	}

	switch {
	case strings.HasPrefix(model, tryOnPrefix):
		if strings.TrimSpace(gc.ModelImageURL) == "" {
			return nil, fmt.Errorf("%w: %s", ErrModelImageRequired, model)
		}
		inputs["model_image"] = gc.ModelImageURL
		inputs["garment_image"] = gc.GarmentImageURL
	case model == ModelProductToModel:
		inputs["product_image"] = gc.GarmentImageURL
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	return inputs, nil
}
