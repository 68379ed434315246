package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/geocode-session-service/internal/adapter/http"
	"github.com/couchcryptid/geocode-session-service/internal/config"
	"github.com/couchcryptid/geocode-session-service/internal/observability"
	"github.com/couchcryptid/geocode-session-service/internal/pipeline"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type runOptions struct {
	input    string
	output   string
	jobRef   string
	attrs    []string
	defaults []string
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Geocode a batch of JSON-lines records",
	Long: `
Reads one JSON object per line, maps record fields to location attributes
with --attr, and writes every resolved record as a JSON line. Records
without a city, street or address are skipped.

Valid attributes: address, city, country, language, locality, name,
postal_code, street.
`,
	Example: `  geocode run --input shops.jsonl --attr street=addr --attr city=town --default country=fr`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSession(cmd.Context(), runOpts)
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runOpts.input, "input", "i", "-", "JSON-lines input file, - for stdin")
	f.StringVarP(&runOpts.output, "output", "o", "-", "JSON-lines output file, - for stdout")
	f.StringVar(&runOpts.jobRef, "job-ref", "", "reference stored with the session record")
	f.StringArrayVar(&runOpts.attrs, "attr", nil, "attribute=field mapping (repeatable)")
	f.StringArrayVar(&runOpts.defaults, "default", nil, "attribute=value applied to every record (repeatable)")
	_ = runCmd.MarkFlagRequired("attr")
	rootCmd.AddCommand(runCmd)
}

func runSession(parent context.Context, opts runOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg, os.Stderr)
	metrics := observability.NewMetrics()

	mapping, err := parseAssignments("attr", opts.attrs)
	if err != nil {
		return err
	}
	defaults, err := parseAssignments("default", opts.defaults)
	if err != nil {
		return err
	}

	records, err := openAndRead(opts.input)
	if err != nil {
		return err
	}

	store, closeStore, err := newCacheStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer closeStore()

	chain, err := newProviderChain(cfg, store, metrics, logger)
	if err != nil {
		return err
	}
	recorder, closeRecorder := newRecorder(cfg, logger)
	defer closeRecorder()

	session := pipeline.NewSession(opts.jobRef, chain, recorder, logger, metrics)
	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, session, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer shutdownServer(srv, cfg, logger)
	}

	out, closeOut, err := openOutput(opts.output)
	if err != nil {
		return err
	}
	defer closeOut()

	stream, err := session.Geocode(ctx, records, mapping, defaults)
	if err != nil {
		return err
	}
	logger.Info("geocoding batch", "records", len(records), "providers", chain.Keys())

	if err := drain(ctx, stream, len(records), json.NewEncoder(out)); err != nil {
		return err
	}

	snap := session.Snapshot()
	fmt.Fprintf(os.Stderr, "%d of %d records geocoded (%d failed, %d skipped)\n",
		snap.Succeeded, snap.Total, snap.Failed, snap.Total-snap.Completed)
	return nil
}

// drain pulls every result from the stream, writing each as it arrives.
func drain(ctx context.Context, stream *pipeline.Stream, total int, enc *json.Encoder) error {
	var bar *progressbar.ProgressBar
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Geocoding"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	for stream.Next(ctx) {
		if err := writeResult(enc, stream.Result()); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		if bar != nil {
			_ = bar.Set(stream.Processed())
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return stream.Err()
}

func openAndRead(path string) ([]pipeline.Record, error) {
	if path == "-" {
		return readRecords(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return readRecords(f)
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func shutdownServer(srv *httpadapter.Server, cfg *config.Config, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
}
