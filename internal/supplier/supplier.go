// Package supplier fetches raw offer data for BOM lines from live supplier
// APIs or from recorded fixture files.
package supplier

import (
	"context"

	"github.com/sells-group/bom-analyzer/internal/model"
	"github.com/sells-group/bom-analyzer/internal/normalize"
)

// Fetcher returns one raw response per configured source for a BOM line.
// It never returns an error: failures travel inside each Raw.
type Fetcher interface {
	Fetch(ctx context.Context, line model.BOMLine) []normalize.Raw
	// Sources lists the sources every Fetch reports on.
	Sources() []model.Source
}

// Source is one supplier API.
type Source interface {
	Name() model.Source
	Search(ctx context.Context, partNumber string) ([]byte, error)
}
