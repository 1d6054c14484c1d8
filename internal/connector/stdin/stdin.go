// Package stdin reads a single report from standard input.
package stdin

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/crimson-sun/eventimx/internal/connector"
	"github.com/crimson-sun/eventimx/internal/model"
)

const defaultName = "stdin.html"

func init() {
	connector.Register("stdin", func() connector.Connector {
		return New(os.Stdin)
	})
}

// Connector reads its one document from r. The reader is consumed once;
// later calls return the same document.
type Connector struct {
	r    io.Reader
	once sync.Once
	body []byte
	err  error
}

// New creates a Connector over r.
func New(r io.Reader) *Connector {
	return &Connector{r: r}
}

func (c *Connector) read(cfg connector.ConnectorConfig) (model.Document, error) {
	c.once.Do(func() {
		c.body, c.err = io.ReadAll(c.r)
	})
	if c.err != nil {
		return model.Document{}, fmt.Errorf("stdin connector: %w", c.err)
	}
	name := cfg.Extra["name"]
	if name == "" {
		name = defaultName
	}
	return model.Document{
		Name:        name,
		Source:      "stdin",
		ContentType: cfg.Extra["content_type"],
		Body:        c.body,
		ReceivedAt:  time.Now(),
	}, nil
}

// Query returns the document read from the input. Paths are ignored.
func (c *Connector) Query(_ context.Context, cfg connector.ConnectorConfig, _ connector.QueryParams) ([]model.Document, error) {
	doc, err := c.read(cfg)
	if err != nil {
		return nil, err
	}
	return []model.Document{doc}, nil
}

// Stream emits the document once and closes the channel.
func (c *Connector) Stream(ctx context.Context, cfg connector.ConnectorConfig) (<-chan model.Document, error) {
	ch := make(chan model.Document, 1)
	go func() {
		defer close(ch)
		doc, err := c.read(cfg)
		if err != nil {
			return
		}
		select {
		case ch <- doc:
		case <-ctx.Done():
		}
	}()
	return ch, nil
}
