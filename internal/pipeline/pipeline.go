// Package pipeline runs the schema and header paths described by a Config
// and collects their output into one Report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/heefoo/apiloom/internal/apimap"
	"github.com/heefoo/apiloom/internal/config"
	"github.com/heefoo/apiloom/internal/logutil"
	"github.com/heefoo/apiloom/internal/parser"
	"github.com/heefoo/apiloom/internal/report"
	"github.com/heefoo/apiloom/internal/util"
)

// ErrEntityErrors is returned with a complete report when fail_on_errors is
// set and at least one entity was skipped.
var ErrEntityErrors = errors.New("entities were skipped")

// Run executes every configured input path. Fatal problems (an unreadable
// document, a missing header) abort the run; per-entity problems are recorded
// in the report.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*report.Report, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Input.APIMap == "" && len(cfg.Input.Headers) == 0 {
		return nil, errors.New("no input configured")
	}

	r := &report.Report{}

	if cfg.Input.APIMap != "" {
		if err := runSchema(cfg, logutil.Component(logger, "apimap"), r); err != nil {
			return nil, err
		}
	}

	if len(cfg.Input.Headers) > 0 {
		if err := runHeaders(ctx, cfg, logutil.Component(logger, "parser"), r); err != nil {
			return nil, err
		}
	}

	logger.Info("run complete",
		slog.Int("header_functions", len(r.HeaderFunctions)),
		slog.Int("errors", len(r.Errors)))

	if cfg.Normalize.FailOnErrors && len(r.Errors) > 0 {
		return r, fmt.Errorf("%w: %d", ErrEntityErrors, len(r.Errors))
	}
	return r, nil
}

func runSchema(cfg *config.Config, logger *slog.Logger, r *report.Report) error {
	res, err := apimap.ParseFile(cfg.Input.APIMap, apimap.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to ingest %s: %w", cfg.Input.APIMap, err)
	}

	r.APIMap = &res.Map
	r.Typedefs = &res.Typedefs
	for _, e := range res.Errors {
		r.AddErrors(cfg.Input.APIMap, e)
	}
	return nil
}

// NewParser builds a declaration extractor from the grammar and
// normalization settings in cfg.
func NewParser(cfg *config.Config, logger *slog.Logger) *parser.Parser {
	opts := []parser.ParserOption{
		parser.WithLanguage(parser.Language(cfg.Input.Grammar)),
		parser.WithLogger(logger),
	}
	if !cfg.Normalize.ElideVoidParams {
		opts = append(opts, parser.WithoutVoidElision())
	}
	return parser.NewParser(opts...)
}

func runHeaders(ctx context.Context, cfg *config.Config, logger *slog.Logger, r *report.Report) error {
	p := NewParser(cfg, logger)

	paths, err := util.CollectHeaders(cfg.Input.Headers, cfg.Input.ExcludePatterns, p.IsSupportedFile)
	if err != nil {
		return err
	}
	logger.Debug("headers collected", slog.Int("count", len(paths)))

	res, err := p.ExtractFiles(ctx, paths)
	if err != nil {
		return err
	}

	r.HeaderFunctions = res.Functions
	for _, e := range res.Errors {
		r.AddErrors(e.File, e)
	}
	return nil
}
