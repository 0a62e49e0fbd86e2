package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/heefoo/apiloom/internal/config"
	"github.com/heefoo/apiloom/internal/daemon"
	"github.com/heefoo/apiloom/internal/logutil"
	"github.com/heefoo/apiloom/internal/pipeline"
	"github.com/heefoo/apiloom/internal/report"
	"github.com/heefoo/apiloom/pkg/mcp"
)

var version = "0.1.0"

type cliOptions struct {
	configPath string
	verbosity  int
	format     string
	output     string
	grammar    string
	noElide    bool
	port       int
}

// setup loads the config, applies command line overrides and builds the
// logger.
func (o *cliOptions) setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	logger := logutil.NewLogger(cmd.ErrOrStderr(), logutil.LevelFromVerbosity(o.verbosity))

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.format != "" {
		cfg.Output.Format = o.format
	}
	if o.output != "" {
		cfg.Output.Path = o.output
	}
	if o.grammar != "" {
		cfg.Input.Grammar = o.grammar
	}
	if o.noElide {
		cfg.Normalize.ElideVoidParams = false
	}
	return cfg, logger, nil
}

func validate(cfg *config.Config, logger *slog.Logger) {
	for _, w := range config.Validate(cfg) {
		logger.Warn("config", slog.String("warning", w))
	}
}

func runAndWrite(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	r, runErr := pipeline.Run(ctx, cfg, logger)
	if r == nil {
		return runErr
	}
	if err := writeReport(cmd.OutOrStdout(), cfg, r); err != nil {
		return err
	}
	return runErr
}

func writeReport(stdout io.Writer, cfg *config.Config, r *report.Report) error {
	if cfg.Output.Path == "" {
		return report.Write(stdout, report.Format(cfg.Output.Format), r)
	}

	f, err := os.Create(cfg.Output.Path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := report.Write(f, report.Format(cfg.Output.Format), r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func SchemaHandler(o *cliOptions) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := o.setup(cmd)
		if err != nil {
			return err
		}
		cfg.Input.APIMap = args[0]
		cfg.Input.Headers = nil
		return runAndWrite(cmd.Context(), cmd, cfg, logger)
	}
}

func HeadersHandler(o *cliOptions) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := o.setup(cmd)
		if err != nil {
			return err
		}
		cfg.Input.APIMap = ""
		cfg.Input.Headers = args
		return runAndWrite(cmd.Context(), cmd, cfg, logger)
	}
}

func RunHandler(o *cliOptions) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := o.setup(cmd)
		if err != nil {
			return err
		}
		validate(cfg, logger)
		return runAndWrite(cmd.Context(), cmd, cfg, logger)
	}
}

func WatchHandler(o *cliOptions) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := o.setup(cmd)
		if err != nil {
			return err
		}
		validate(cfg, logger)

		if err := runAndWrite(cmd.Context(), cmd, cfg, logger); err != nil {
			logger.Error("initial run failed", slog.Any("error", err))
		}

		parser := pipeline.NewParser(cfg, logger)
		inputs := append([]string{}, cfg.Input.Headers...)
		if cfg.Input.APIMap != "" {
			inputs = append(inputs, cfg.Input.APIMap)
		}

		w, err := daemon.NewWatcher(daemon.WatcherConfig{
			IsRelevant:      parser.IsSupportedFile,
			ExcludePatterns: cfg.Input.ExcludePatterns,
			DebounceMs:      cfg.Watch.DebounceMs,
			Logger:          logutil.Component(logger, "daemon"),
			OnChange: func(ctx context.Context, changed []string) error {
				logger.Info("rerunning", slog.Any("changed", changed))
				return runAndWrite(ctx, cmd, cfg, logger)
			},
		})
		if err != nil {
			return err
		}
		defer w.Stop()

		if err := w.Watch(cmd.Context(), inputs); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}

func ServeHandler(o *cliOptions) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := o.setup(cmd)
		if err != nil {
			return err
		}

		server := mcp.NewServer(mcp.ServerConfig{
			Config:  cfg,
			Logger:  logutil.Component(logger, "mcp"),
			Version: version,
		})
		if o.port > 0 {
			return server.ServeHTTP(cmd.Context(), o.port)
		}
		return server.ServeStdio(cmd.Context())
	}
}

func NewCLI() *cobra.Command {
	o := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:           "apiloom",
		Short:         "Normalize C API descriptions into a binding model",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&o.configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().CountVarP(&o.verbosity, "verbose", "v", "Increase log verbosity (repeatable)")
	rootCmd.PersistentFlags().StringVar(&o.format, "format", "", "Output format: json, yaml or table")
	rootCmd.PersistentFlags().StringVarP(&o.output, "output", "o", "", "Write output to file instead of stdout")

	schemaCmd := &cobra.Command{
		Use:   "schema API_JSON",
		Short: "Normalize a JSON API description",
		Args:  cobra.ExactArgs(1),
		RunE:  SchemaHandler(o),
	}

	headersCmd := &cobra.Command{
		Use:   "headers PATH...",
		Short: "Extract function prototypes from C headers",
		Args:  cobra.MinimumNArgs(1),
		RunE:  HeadersHandler(o),
	}
	headersCmd.Flags().StringVar(&o.grammar, "grammar", "", "Grammar for .h files: c or cpp")
	headersCmd.Flags().BoolVar(&o.noElide, "keep-void", false, "Keep an explicit (void) parameter list")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Process the inputs named in the config file",
		Args:  cobra.NoArgs,
		RunE:  RunHandler(o),
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Process the configured inputs and rerun on change",
		Args:  cobra.NoArgs,
		RunE:  WatchHandler(o),
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve ingestion and extraction as MCP tools",
		Args:  cobra.NoArgs,
		RunE:  ServeHandler(o),
	}
	serveCmd.Flags().IntVar(&o.port, "port", 0, "Serve over HTTP on this port instead of stdio")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "apiloom version %s\n", version)
		},
	}

	rootCmd.AddCommand(
		schemaCmd,
		headersCmd,
		runCmd,
		watchCmd,
		serveCmd,
		versionCmd,
	)

	return rootCmd
}
