package supplier

import (
	"context"
	"errors"

	"github.com/sells-group/bom-analyzer/internal/model"
	"github.com/sells-group/bom-analyzer/internal/resilience"
	"github.com/sells-group/bom-analyzer/pkg/mouser"
	"github.com/sells-group/bom-analyzer/pkg/nexar"
)

// MouserSource adapts the Mouser client.
type MouserSource struct {
	client mouser.Client
}

// NewMouserSource wraps a Mouser client.
func NewMouserSource(c mouser.Client) *MouserSource {
	return &MouserSource{client: c}
}

// Name implements Source.
func (s *MouserSource) Name() model.Source { return model.SourceMouser }

// Search implements Source. Retryable HTTP statuses become transient errors.
func (s *MouserSource) Search(ctx context.Context, partNumber string) ([]byte, error) {
	body, err := s.client.SearchPartNumber(ctx, partNumber)
	var se *mouser.StatusError
	if errors.As(err, &se) && resilience.IsTransientHTTPStatus(se.StatusCode) {
		return nil, resilience.NewTransientError(err, se.StatusCode)
	}
	return body, err
}

// NexarSource adapts the Nexar client.
type NexarSource struct {
	client nexar.Client
}

// NewNexarSource wraps a Nexar client.
func NewNexarSource(c nexar.Client) *NexarSource {
	return &NexarSource{client: c}
}

// Name implements Source.
func (s *NexarSource) Name() model.Source { return model.SourceNexar }

// Search implements Source.
func (s *NexarSource) Search(ctx context.Context, partNumber string) ([]byte, error) {
	body, err := s.client.Search(ctx, partNumber)
	var se *nexar.StatusError
	if errors.As(err, &se) && resilience.IsTransientHTTPStatus(se.StatusCode) {
		return nil, resilience.NewTransientError(err, se.StatusCode)
	}
	return body, err
}
