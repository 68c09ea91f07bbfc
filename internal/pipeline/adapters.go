package pipeline

import (
	"context"

	"github.com/freightdata/pipeline/internal/extract"
)

// ExtractorSource adapts the concrete extractor to the Source
// interface.
type ExtractorSource struct {
	Extractor *extract.Extractor
}

func (s ExtractorSource) Fetch(ctx context.Context) (Payload, error) {
	p, err := s.Extractor.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return p, nil
}
