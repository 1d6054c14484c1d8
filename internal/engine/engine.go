package engine

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/crimson-sun/eventimx/internal/engine/parser"
	"github.com/crimson-sun/eventimx/internal/engine/tokenizer"
	"github.com/crimson-sun/eventimx/internal/model"
)

// ErrEmptyDocument is returned, alongside an empty report, for documents
// with no content. Callers decide whether that is fatal.
var ErrEmptyDocument = errors.New("empty document")

// Option configures an Engine.
type Option func(*Engine)

// WithParserOptions passes options through to every parse.
func WithParserOptions(opts ...parser.Option) Option {
	return func(e *Engine) { e.parserOpts = append(e.parserOpts, opts...) }
}

// WithLogger sets the logger used for per-document summaries. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine orchestrates the tokenize → parse pipeline for one document.
type Engine struct {
	parserOpts []parser.Option
	logger     *slog.Logger
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Tokens returns the token stream of a document without parsing it.
func (e *Engine) Tokens(doc model.Document) ([]model.Token, error) {
	if len(bytes.TrimSpace(doc.Body)) == 0 {
		return nil, fmt.Errorf("engine: %s: %w", doc.Name, ErrEmptyDocument)
	}
	tokens, err := tokenizer.TokenizeBytes(doc.Body, doc.ContentType)
	if err != nil {
		return nil, fmt.Errorf("engine: %s: %w", doc.Name, err)
	}
	return tokens, nil
}

// Process tokenizes and parses a single document into a report.
func (e *Engine) Process(doc model.Document) (model.Report, error) {
	tokens, err := e.Tokens(doc)
	if err != nil {
		if errors.Is(err, ErrEmptyDocument) {
			return emptyReport(doc.Name), err
		}
		return model.Report{}, err
	}

	report := parser.Parse(tokens, e.parserOpts...)
	report.Source = doc.Name
	e.logSummary(report, len(tokens))
	return report, nil
}

// ProcessBatch processes documents in order, stopping at the first failure.
func (e *Engine) ProcessBatch(docs []model.Document) ([]model.Report, error) {
	reports := make([]model.Report, 0, len(docs))
	for _, doc := range docs {
		r, err := e.Process(doc)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func (e *Engine) logSummary(r model.Report, tokens int) {
	e.logger.Info("parsed report",
		"source", r.Source,
		"tokens", tokens,
		"events", len(r.Events),
		"rows", r.RowCount(),
		"fee_names", len(r.AllFeeNames),
		"diagnostics", len(r.Diagnostics),
	)
	for _, d := range r.Diagnostics {
		switch d.Kind {
		case model.DiagSkipped:
			e.logger.Debug("token skipped", "source", r.Source, "index", d.Index, "text", d.Text, "outcome", d.Detail)
		case model.DiagShortRow:
			e.logger.Debug("short row", "source", r.Source, "index", d.Index, "label", d.Text, "detail", d.Detail)
		default:
			e.logger.Warn("report irregularity", "source", r.Source, "kind", string(d.Kind), "index", d.Index, "text", d.Text, "detail", d.Detail)
		}
	}
	if len(r.Events) == 0 {
		e.logger.Warn("report has no events", "source", r.Source)
	}
}

func emptyReport(source string) model.Report {
	return model.Report{
		Source:      source,
		Events:      []model.Event{},
		AllFeeNames: model.NewFeeNames(model.DefaultFeeNames...).Names(),
	}
}
