package connector

import (
	"context"

	"github.com/crimson-sun/eventimx/internal/model"
)

// Connector defines the interface all report sources must implement.
type Connector interface {
	// Stream watches the source and sends documents as they appear.
	// The channel is closed when ctx is cancelled or the source is exhausted.
	Stream(ctx context.Context, cfg ConnectorConfig) (<-chan model.Document, error)

	// Query fetches a batch of documents matching the given parameters.
	Query(ctx context.Context, cfg ConnectorConfig, params QueryParams) ([]model.Document, error)
}

// ConnectorConfig holds provider-specific settings.
type ConnectorConfig struct {
	Provider string
	APIKey   string            // bearer token for remote sources
	Endpoint string            // watch directory or base URL
	Extra    map[string]string // provider-specific keys, e.g. "debounce"
}

// QueryParams selects the documents a Query returns.
type QueryParams struct {
	Paths []string // files or URL paths; empty means everything under Endpoint
	Limit int      // 0 means no limit
}

// Apply truncates docs to the limit.
func (p QueryParams) Apply(docs []model.Document) []model.Document {
	if p.Limit > 0 && len(docs) > p.Limit {
		return docs[:p.Limit]
	}
	return docs
}
