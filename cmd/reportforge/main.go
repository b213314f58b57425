package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/lamim/reportforge/internal/api"
	"github.com/lamim/reportforge/internal/chart"
	"github.com/lamim/reportforge/internal/config"
	"github.com/lamim/reportforge/internal/logging"
	"github.com/lamim/reportforge/internal/metrics"
	"github.com/lamim/reportforge/internal/report"
	"github.com/lamim/reportforge/internal/server"
	"github.com/lamim/reportforge/pkg/models"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configPath string
	envFile    string
	addr       string
	verbose    bool
	topic      string
	question   string
	repairJSON bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "reportforge",
		Short: "ReportForge - research report and chart data service",
		Long: `ReportForge turns a topic and a question into a written analytical
report plus chart-ready JSON data, using an upstream research or chat API.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		SilenceUsage: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Serve POST /generate-report, GET /healthz and, when enabled, GET /metrics.
The server shuts down gracefully on SIGINT or SIGTERM.`,
		RunE: runServe,
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one report and print the response JSON",
		RunE:  runGenerate,
	}
	generateCmd.Flags().StringVar(&topic, "topic", "", "Report topic")
	generateCmd.Flags().StringVar(&question, "question", "", "Question to answer")
	_ = generateCmd.MarkFlagRequired("topic")
	_ = generateCmd.MarkFlagRequired("question")

	extractCmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract chart data from a saved upstream answer",
		Long: `Run the chart extractor on a file, or stdin when no file is given,
and print the tier that produced the result along with the chart JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runExtract,
	}
	extractCmd.Flags().BoolVar(&repairJSON, "repair", false, "Enable the JSON repair tier")

	for _, cmd := range []*cobra.Command{serveCmd, generateCmd} {
		cmd.Flags().StringVar(&configPath, "config", "config.toml", "Path to configuration file")
		cmd.Flags().StringVar(&envFile, "env-file", ".env", "Path to environment file")
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(extractCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads the env file, if present, then the config file
func loadConfig() (*config.Config, *config.Secrets, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintf(os.Stderr, "Warning: failed to load env file: %v\n", err)
			}
		} else if verbose {
			fmt.Fprintf(os.Stderr, "Loaded env file: %s\n", envFile)
		}
	}

	cfg, secrets, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if verbose {
		for provider, key := range secrets.APIKeys {
			if key != "" {
				fmt.Fprintf(os.Stderr, "Loaded API key for: %s (length: %d)\n", provider, len(key))
			}
		}
	}

	return cfg, secrets, nil
}

func logLevel(cfg *config.Config) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	if cfg == nil {
		return slog.LevelInfo
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using info\n", err)
	}
	return level
}

func newGenerator(cfg *config.Config, secrets *config.Secrets, collector *metrics.Collector, logger *slog.Logger) (*report.Generator, error) {
	client := api.NewClient(logger)
	return report.New(cfg, secrets, client, collector, logger)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, secrets, err := loadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	logger, logFile, err := logging.Setup(cfg.Logging.File, logLevel(cfg))
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	defer func() {
		if err := logFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
		}
	}()
	slog.SetDefault(logger)

	logger.Info("Starting ReportForge",
		"version", Version,
		"addr", cfg.Server.Addr,
		"provider", cfg.Upstream.Provider,
		"rate_limit_per_minute", cfg.Server.RateLimitPerMinute,
		"chart_repair", cfg.Chart.RepairJSON)

	collector := metrics.NewCollector()
	generator, err := newGenerator(cfg, secrets, collector, logger)
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.Server, generator, collector, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error("Server failed", "error", err)
		return err
	}
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, secrets, err := loadConfig()
	if err != nil {
		return err
	}

	// Logs go to stderr so stdout carries only the response JSON.
	logger := logging.New(os.Stderr, nil, logLevel(cfg))

	generator, err := newGenerator(cfg, secrets, metrics.NewCollector(), logger)
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bar := progressbar.Default(2, "Generating report")
	rep, err := generateWithProgress(ctx, generator, bar, topic, question)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	logger.Debug("Chart data extracted", "tier", rep.ChartTier)
	return printJSON(cmd.OutOrStdout(), rep)
}

// progressGenerator is the part of *report.Generator the generate command drives
type progressGenerator interface {
	SetProgress(fn report.ProgressFunc)
	Generate(ctx context.Context, topic, question string) (*models.Report, error)
}

// progressBar is the part of *progressbar.ProgressBar the generate command uses
type progressBar interface {
	Add(num int) error
	Finish() error
	Exit() error
}

// generateWithProgress advances bar once per upstream call. The bar is
// finished on success and exited on failure, which ends its line before
// the error is printed.
func generateWithProgress(
	ctx context.Context,
	gen progressGenerator,
	bar progressBar,
	topic, question string,
) (*models.Report, error) {
	gen.SetProgress(func(stage string) {
		_ = bar.Add(1)
	})

	rep, err := gen.Generate(ctx, topic, question)
	if err != nil {
		_ = bar.Exit()
		return nil, err
	}
	_ = bar.Finish()
	return rep, nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	logger := logging.New(os.Stderr, nil, logLevel(nil))
	extractor := chart.NewExtractor(logger, chart.WithRepair(repairJSON))
	answer := &api.Answer{Body: data}
	result := extractor.Extract(answer.Text())

	return printJSON(cmd.OutOrStdout(), struct {
		Tier chart.Tier       `json:"tier"`
		Raw  json.RawMessage  `json:"raw"`
		Spec models.ChartSpec `json:"spec"`
	}{
		Tier: result.Tier,
		Raw:  result.Raw,
		Spec: result.Spec,
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
