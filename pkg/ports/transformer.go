package ports

import (
	"context"

	"github.com/aretw0/figflow/pkg/domain"
)

// Transformer sends a transformation request to the remote service.
// Every failure is returned as an error wrapping domain.ErrTransport.
type Transformer interface {
	Transform(ctx context.Context, req domain.TransformationRequest) (domain.TransformationResult, error)
}
