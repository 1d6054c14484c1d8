package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/crimson-sun/eventimx/internal/config"
	"github.com/crimson-sun/eventimx/internal/connector"
	"github.com/crimson-sun/eventimx/internal/engine"
	"github.com/crimson-sun/eventimx/internal/engine/parser"
	"github.com/crimson-sun/eventimx/internal/logging"
	"github.com/crimson-sun/eventimx/internal/model"
	"github.com/crimson-sun/eventimx/internal/output"
	"github.com/crimson-sun/eventimx/internal/output/multi"
	"github.com/crimson-sun/eventimx/internal/output/sqlite"
	"github.com/crimson-sun/eventimx/internal/pipeline"

	// Register connector implementations.
	_ "github.com/crimson-sun/eventimx/internal/connector/localfs"
	_ "github.com/crimson-sun/eventimx/internal/connector/remote"
	_ "github.com/crimson-sun/eventimx/internal/connector/stdin"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "eventimx:", err)
		os.Exit(1)
	}
}

// app carries the configuration resolved before a subcommand runs.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "eventimx",
		Short: "Convert Eventim sales reports into spreadsheets",
		Long: `eventimx reads the HTML sales reports exported by the Eventim box office
and rebuilds them as a flat table: one line per event and price category,
with one column per fee.

Configuration comes from an optional YAML file (--config), then EVENTIMX_*
environment variables, then command-line flags.`,
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().String("config", "", "YAML config file")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("log-json", false, "Log as JSON")

	root.AddCommand(a.convertCmd())
	root.AddCommand(a.tokensCmd())
	root.AddCommand(a.watchCmd())
	root.AddCommand(versionCmd())
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Log.JSON, _ = cmd.Flags().GetBool("log-json")
	}
	a.cfg = cfg
	a.logger = logging.Init(cfg.Log.JSON, logging.ParseLevel(cfg.Log.Level))
	return nil
}

func (a *app) engine() (*engine.Engine, error) {
	loc, err := time.LoadLocation(a.cfg.Engine.Location)
	if err != nil {
		return nil, fmt.Errorf("location: %w", err)
	}
	return engine.New(
		engine.WithParserOptions(
			parser.WithLocation(loc),
			parser.WithDiagnostics(a.cfg.Engine.Diagnostics),
		),
		engine.WithLogger(a.logger),
	), nil
}

func (a *app) connector() (connector.Connector, connector.ConnectorConfig, error) {
	c := a.cfg.Connector
	ctor, err := connector.Get(c.Provider)
	if err != nil {
		return nil, connector.ConnectorConfig{}, err
	}
	return ctor(), connector.ConnectorConfig{
		Provider: c.Provider,
		APIKey:   c.APIKey,
		Endpoint: c.Endpoint,
		Extra:    c.Extra,
	}, nil
}

// applyInputFlags points the connector at --stdin or --url when given.
func (a *app) applyInputFlags(cmd *cobra.Command) {
	if useStdin, _ := cmd.Flags().GetBool("stdin"); useStdin {
		a.cfg.Connector.Provider = "stdin"
	}
	if url, _ := cmd.Flags().GetString("url"); url != "" {
		a.cfg.Connector.Provider = "http"
		a.cfg.Connector.Endpoint = url
	}
	if cmd.Flags().Changed("format") {
		a.cfg.Output.Format, _ = cmd.Flags().GetString("format")
	}
	if cmd.Flags().Changed("no-diagnostics") {
		off, _ := cmd.Flags().GetBool("no-diagnostics")
		a.cfg.Engine.Diagnostics = !off
	}
}

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("stdin", false, "Read one report from standard input")
	cmd.Flags().String("url", "", "Fetch the report from this URL")
	cmd.Flags().StringP("format", "f", "xlsx", "Output format (xlsx, csv, json, sqlite)")
	cmd.Flags().Bool("no-diagnostics", false, "Drop parser diagnostics from the output")
}

func (a *app) convertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [files...]",
		Short: "Convert sales reports into one table",
		Long: `Convert one or more sales reports into a single table. Fee columns are
the union of every report's fee names.

Example:
  eventimx convert march.html april.html -o q2.xlsx
  cat march.html | eventimx convert --stdin -f csv -o -
  eventimx convert --url https://box-office.example.com/export/latest.html -f json -o -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.applyInputFlags(cmd)
			if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
				a.cfg.Connector.Limit = limit
			}
			if archive, _ := cmd.Flags().GetString("archive"); archive != "" {
				a.cfg.Output.SQLitePath = archive
			}
			if a.cfg.Connector.Provider == "localfs" && len(args) == 0 && a.cfg.Connector.Endpoint == "" {
				return errors.New("no input: pass report files, --stdin or --url")
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			format := a.cfg.Output.Format
			outPath, _ := cmd.Flags().GetString("output")
			if outPath == "" {
				outPath = a.cfg.Output.Path
				if filepath.Ext(outPath) != extensions[format] {
					outPath = outputName(filepath.Dir(outPath), outPath, format)
				}
			}
			return a.convert(cmd, args, format, outPath)
		},
	}
	addInputFlags(cmd)
	cmd.Flags().StringP("output", "o", "", `Output file, "-" for stdout (default from config: report.xlsx)`)
	cmd.Flags().Int("limit", 0, "Convert at most this many reports")
	cmd.Flags().String("archive", "", "Also archive every report in this SQLite database")
	return cmd
}

func (a *app) convert(cmd *cobra.Command, paths []string, format, outPath string) error {
	eng, err := a.engine()
	if err != nil {
		return err
	}
	conn, connCfg, err := a.connector()
	if err != nil {
		return err
	}

	sink, err := openSink(a.cfg, format, outPath, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	t := &tally{}
	outs := []output.Output{sink, t}
	if archive := a.cfg.Output.SQLitePath; archive != "" && !(format == "sqlite" && archive == outPath) {
		db, err := sqlite.New(archive)
		if err != nil {
			sink.Close()
			return err
		}
		outs = append(outs, db)
	}

	ctx, cancel := signalContext()
	defer cancel()

	p := pipeline.New(conn, eng, multi.New(outs...), pipeline.WithLogger(a.logger))
	qerr := p.Query(ctx, connCfg, connector.QueryParams{Paths: paths, Limit: a.cfg.Connector.Limit})
	if err := errors.Join(qerr, p.Close()); err != nil {
		return err
	}

	summarize(cmd.ErrOrStderr(), outPath, t, p.Skipped())
	return nil
}

func summarize(w io.Writer, path string, t *tally, skipped int64) {
	dest := "stdout"
	if path != stdoutPath {
		dest = path
		if info, err := os.Stat(path); err == nil {
			dest += " (" + humanize.Bytes(uint64(info.Size())) + ")"
		}
	}
	fmt.Fprintf(w, "wrote %s: %s reports, %s events, %s rows",
		dest, humanize.Comma(int64(t.reports)), humanize.Comma(int64(t.events)), humanize.Comma(int64(t.rows)))
	if t.notes > 0 {
		fmt.Fprintf(w, ", %s diagnostics", humanize.Comma(int64(t.notes)))
	}
	if skipped > 0 {
		fmt.Fprintf(w, ", %s skipped", humanize.Comma(skipped))
	}
	fmt.Fprintln(w)
}

func (a *app) tokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens <file>",
		Short: "Print the token stream of a report",
		Long: `Print the styled text fragments the parser sees, one per line, with their
index and a "*" for bold. Useful when a report variant parses badly.
Pass "-" to read standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			var body []byte
			var err error
			if args[0] == stdoutPath {
				body, err = io.ReadAll(cmd.InOrStdin())
			} else {
				body, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}

			eng, err := a.engine()
			if err != nil {
				return err
			}
			tokens, err := eng.Tokens(model.Document{Name: filepath.Base(args[0]), Body: body})
			if err != nil {
				return err
			}
			return printTokens(cmd.OutOrStdout(), tokens, asJSON)
		},
	}
	cmd.Flags().Bool("json", false, "Print tokens as a JSON array")
	return cmd
}

func printTokens(w io.Writer, tokens []model.Token, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(tokens)
	}
	for i, tok := range tokens {
		mark := " "
		if tok.Emphasized {
			mark = "*"
		}
		if _, err := fmt.Fprintf(w, "%4d %s %q\n", i, mark, tok.Text); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Convert every report dropped into a directory",
		Long: `Watch a directory (or poll a URL with --url) and convert each new or
rewritten report into its own file in --out-dir, named after the report.

Example:
  eventimx watch /srv/reports/incoming --out-dir /srv/reports/xlsx
  eventimx watch --url https://box-office.example.com/export/latest.html --poll-interval 10m`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.applyInputFlags(cmd)
			if len(args) > 0 {
				a.cfg.Connector.Endpoint = args[0]
			}
			for flag, key := range map[string]string{"debounce": "debounce", "poll-interval": "poll_interval"} {
				if cmd.Flags().Changed(flag) {
					d, _ := cmd.Flags().GetDuration(flag)
					if a.cfg.Connector.Extra == nil {
						a.cfg.Connector.Extra = map[string]string{}
					}
					a.cfg.Connector.Extra[key] = d.String()
				}
			}
			if cmd.Flags().Changed("out-dir") {
				a.cfg.Output.OutDir, _ = cmd.Flags().GetString("out-dir")
			}
			if a.cfg.Connector.Provider == "stdin" {
				return errors.New("watch cannot read from stdin")
			}
			if a.cfg.Connector.Endpoint == "" {
				return errors.New("nothing to watch: pass a directory or --url")
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.watch(cmd)
		},
	}
	addInputFlags(cmd)
	cmd.Flags().String("out-dir", "", "Directory for converted files (default: the watched directory)")
	cmd.Flags().Duration("debounce", 500*time.Millisecond, "Wait this long after the last write before converting")
	cmd.Flags().Duration("poll-interval", time.Minute, "Poll interval with --url")
	return cmd
}

func (a *app) watch(cmd *cobra.Command) error {
	eng, err := a.engine()
	if err != nil {
		return err
	}
	conn, connCfg, err := a.connector()
	if err != nil {
		return err
	}

	format := a.cfg.Output.Format
	outDir := a.cfg.Output.OutDir
	if outDir == "" {
		outDir = "."
		if connCfg.Provider == "localfs" {
			outDir = connCfg.Endpoint
		}
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create out dir: %w", err)
	}

	factory := func(doc model.Document) (output.Output, error) {
		name := doc.Name
		if doc.Source == "http" {
			// Polled exports share one URL; keep every version.
			ext := filepath.Ext(name)
			name = name[:len(name)-len(ext)] + "-" + doc.ReceivedAt.Format("20060102-150405") + ext
		}
		return openSink(a.cfg, format, outputName(outDir, name, format), cmd.OutOrStdout())
	}

	p := pipeline.New(conn, eng, nil, pipeline.WithSinkFactory(factory), pipeline.WithLogger(a.logger))

	ctx, cancel := signalContext()
	defer cancel()

	a.logger.Info("watching", "connector", connCfg.Provider, "source", connCfg.Endpoint, "out_dir", outDir, "format", format)

	errCh := make(chan error, 1)
	go func() { errCh <- p.Stream(ctx, connCfg) }()

	var streamErr error
	select {
	case streamErr = <-errCh:
	case <-ctx.Done():
		select {
		case streamErr = <-errCh:
		case <-time.After(a.cfg.ShutdownTimeout):
			a.logger.Warn("shutdown timed out", "timeout", a.cfg.ShutdownTimeout)
		}
	}
	if errors.Is(streamErr, context.Canceled) {
		streamErr = nil
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "converted %s reports, %s skipped\n",
		humanize.Comma(p.Written()), humanize.Comma(p.Skipped()))
	return errors.Join(streamErr, p.Close())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the eventimx version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "eventimx %s\n", config.Version)
		},
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			fmt.Fprintf(os.Stderr, "\nreceived %v, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
