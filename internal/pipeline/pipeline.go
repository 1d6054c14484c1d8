package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/crimson-sun/eventimx/internal/connector"
	"github.com/crimson-sun/eventimx/internal/model"
	"github.com/crimson-sun/eventimx/internal/output"
)

// ErrNoOutput is returned when a pipeline has neither an output nor a
// SinkFactory to deliver reports to.
var ErrNoOutput = errors.New("pipeline: no output configured")

// Processor turns documents into reports. *engine.Engine satisfies it.
type Processor interface {
	Process(doc model.Document) (model.Report, error)
	ProcessBatch(docs []model.Document) ([]model.Report, error)
}

// SinkFactory creates the output a single streamed document is written to,
// e.g. one workbook per dropped report. The pipeline closes it after the write.
type SinkFactory func(doc model.Document) (output.Output, error)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSinkFactory routes every streamed document to its own output instead
// of the shared one.
func WithSinkFactory(f SinkFactory) Option {
	return func(p *Pipeline) {
		p.sinkFactory = f
	}
}

// WithLogger sets the logger for skipped documents. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// Pipeline connects a connector, processor, and output into a processing pipeline.
type Pipeline struct {
	connector   connector.Connector
	processor   Processor
	output      output.Output
	sinkFactory SinkFactory
	logger      *slog.Logger

	written atomic.Int64
	skipped atomic.Int64
}

// New creates a Pipeline from the given components. out may be nil when a
// SinkFactory handles every document.
func New(conn connector.Connector, proc Processor, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{
		connector: conn,
		processor: proc,
		output:    out,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Written returns the number of reports delivered to an output.
func (p *Pipeline) Written() int64 { return p.written.Load() }

// Skipped returns the number of documents that could not be processed or written.
func (p *Pipeline) Skipped() int64 { return p.skipped.Load() }

// Stream processes documents as the connector emits them. A document that
// fails to process is logged and skipped. Blocks until the context is
// cancelled or the connector closes its channel.
func (p *Pipeline) Stream(ctx context.Context, cfg connector.ConnectorConfig) error {
	if p.output == nil && p.sinkFactory == nil {
		return ErrNoOutput
	}
	ch, err := p.connector.Stream(ctx, cfg)
	if err != nil {
		return fmt.Errorf("pipeline stream: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case doc, ok := <-ch:
			if !ok {
				return nil
			}
			report, err := p.processor.Process(doc)
			if err != nil {
				p.skip(doc, "process", err)
				continue
			}
			if p.sinkFactory != nil {
				p.writeOwnSink(ctx, doc, report)
				continue
			}
			if err := p.output.Write(ctx, report); err != nil {
				return fmt.Errorf("pipeline output: %w", err)
			}
			p.written.Add(1)
		}
	}
}

func (p *Pipeline) writeOwnSink(ctx context.Context, doc model.Document, report model.Report) {
	sink, err := p.sinkFactory(doc)
	if err != nil {
		p.skip(doc, "create output", err)
		return
	}
	err = errors.Join(sink.Write(ctx, report), sink.Close())
	if err != nil {
		p.skip(doc, "write output", err)
		return
	}
	p.written.Add(1)
	p.logger.Info("report converted", "document", doc.Name, "events", len(report.Events), "rows", report.RowCount())
}

// Query runs the pipeline in one-shot mode. If the batch fails, documents
// are processed one by one and the failing ones skipped.
func (p *Pipeline) Query(ctx context.Context, cfg connector.ConnectorConfig, params connector.QueryParams) error {
	if p.output == nil {
		return ErrNoOutput
	}
	docs, err := p.connector.Query(ctx, cfg, params)
	if err != nil {
		return fmt.Errorf("pipeline query: %w", err)
	}

	reports, err := p.processor.ProcessBatch(docs)
	if err != nil {
		p.logger.Warn("batch processing failed, retrying per document", "error", err)
		reports = p.processEach(docs)
	}

	for _, report := range reports {
		if err := p.output.Write(ctx, report); err != nil {
			return fmt.Errorf("pipeline output: %w", err)
		}
		p.written.Add(1)
	}
	return nil
}

func (p *Pipeline) processEach(docs []model.Document) []model.Report {
	reports := make([]model.Report, 0, len(docs))
	for _, doc := range docs {
		r, err := p.processor.Process(doc)
		if err != nil {
			p.skip(doc, "process", err)
			continue
		}
		reports = append(reports, r)
	}
	return reports
}

func (p *Pipeline) skip(doc model.Document, stage string, err error) {
	p.skipped.Add(1)
	p.logger.Warn("skipping document", "document", doc.Name, "source", doc.Source, "stage", stage, "error", err)
}

// Close shuts down the shared output, if any.
func (p *Pipeline) Close() error {
	if n := p.skipped.Load(); n > 0 {
		p.logger.Info("pipeline closed with skipped documents", "skipped", n, "written", p.written.Load())
	}
	if p.output == nil {
		return nil
	}
	return p.output.Close()
}
