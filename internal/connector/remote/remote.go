// Package remote fetches sales reports published over HTTP, e.g. by a
// box-office intranet that exposes the nightly export.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"time"

	"github.com/crimson-sun/eventimx/internal/connector"
	"github.com/crimson-sun/eventimx/internal/connector/httpclient"
	"github.com/crimson-sun/eventimx/internal/model"
)

const defaultPollInterval = time.Minute

func init() {
	connector.Register("http", func() connector.Connector {
		return &Connector{}
	})
}

// Connector implements connector.Connector for reports served over HTTP.
type Connector struct {
	// Client overrides the client built from the config; used by tests.
	Client *httpclient.Client
}

func (c *Connector) client(cfg connector.ConnectorConfig) *httpclient.Client {
	if c.Client != nil {
		return c.Client
	}
	return httpclient.New(cfg.Endpoint, cfg.APIKey)
}

// Query downloads each path in params (relative to the endpoint), or the
// endpoint itself when no paths are given.
func (c *Connector) Query(ctx context.Context, cfg connector.ConnectorConfig, params connector.QueryParams) ([]model.Document, error) {
	if cfg.Endpoint == "" && len(params.Paths) == 0 {
		return nil, fmt.Errorf("http connector: endpoint or paths required")
	}
	client := c.client(cfg)

	paths := params.Paths
	if len(paths) == 0 {
		paths = []string{""}
	}

	var docs []model.Document
	for _, p := range paths {
		resp, err := client.Get(ctx, p, "")
		if err != nil {
			return nil, fmt.Errorf("http connector: %s: %w", client.Resolve(p), err)
		}
		docs = append(docs, toDocument(resp, time.Now()))
		if params.Limit > 0 && len(docs) >= params.Limit {
			break
		}
	}
	return docs, nil
}

// Stream polls the endpoint and emits a document each time its content changes.
func (c *Connector) Stream(ctx context.Context, cfg connector.ConnectorConfig) (<-chan model.Document, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("http connector: endpoint required")
	}
	client := c.client(cfg)

	pollInterval := defaultPollInterval
	if raw := cfg.Extra["poll_interval"]; raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			pollInterval = d
		}
	}

	ch := make(chan model.Document, 4)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		var last poller
		last.poll(ctx, client, ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				last.poll(ctx, client, ch)
			}
		}
	}()
	return ch, nil
}

// poller remembers what was last emitted so unchanged exports are skipped.
type poller struct {
	etag string
	body []byte
}

func (p *poller) poll(ctx context.Context, client *httpclient.Client, ch chan<- model.Document) {
	resp, err := client.Get(ctx, "", p.etag)
	if errors.Is(err, httpclient.ErrNotModified) {
		return
	}
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("poll error", "connector", "http", "error", err)
		}
		return
	}
	if p.body != nil && bytes.Equal(p.body, resp.Body) {
		return
	}
	p.etag, p.body = resp.ETag, resp.Body

	select {
	case ch <- toDocument(resp, time.Now()):
	case <-ctx.Done():
	}
}

func toDocument(resp *httpclient.Response, now time.Time) model.Document {
	name := "report.html"
	if u, err := url.Parse(resp.URL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" {
			name = base
		}
	}
	return model.Document{
		Name:        name,
		Source:      "http",
		ContentType: resp.ContentType,
		Body:        resp.Body,
		ReceivedAt:  now,
	}
}
