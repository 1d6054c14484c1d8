package output

import (
	"context"

	"github.com/crimson-sun/eventimx/internal/model"
)

// Output defines the interface for parsed report destinations.
type Output interface {
	Write(ctx context.Context, report model.Report) error
	Close() error
}
