// internal/providers/provider.go
package providers

import (
	"context"

	"github.com/brandvoice/sov-workflows/internal/providers/common"
)

// TextGenerator is one upstream AI provider behind a uniform single-shot
// generation call. Implementations classify their own failures: retryable
// ones are wrapped with common.MarkTransient, a reply with no usable text
// returns common.ErrEmptyResponse, everything else is unexpected.
type TextGenerator interface {
	Generate(ctx context.Context, req *common.GenerateRequest) (*common.GenerateResult, error)
	GetProviderName() string
}
