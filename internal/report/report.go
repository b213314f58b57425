package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lamim/reportforge/internal/api"
	"github.com/lamim/reportforge/internal/chart"
	"github.com/lamim/reportforge/internal/config"
	"github.com/lamim/reportforge/internal/metrics"
	"github.com/lamim/reportforge/internal/util"
	"github.com/lamim/reportforge/pkg/models"
)

// Stages name the two upstream calls made for every report
const (
	StageReport = "report"
	StageChart  = "chart"
)

// ErrMissingFields is returned when the topic or the question is empty
var ErrMissingFields = errors.New("missing required fields: topic or question")

// InputError reports a topic or question that is present but unusable
type InputError struct {
	Err error
}

func (e *InputError) Error() string {
	return e.Err.Error()
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// Asker sends one prompt upstream. *api.Client implements it.
type Asker interface {
	Ask(ctx context.Context, upstream config.UpstreamConfig, apiKey, prompt string) (*api.Answer, error)
}

// ProgressFunc is called once for each upstream call that finishes successfully
type ProgressFunc func(stage string)

// promptData is what prompt templates are executed with
type promptData struct {
	Topic    string
	Question string
}

// Generator produces a report and its chart data for a topic/question pair
type Generator struct {
	upstream       config.UpstreamConfig
	apiKey         string
	asker          Asker
	extractor      *chart.Extractor
	reportTemplate *template.Template
	chartTemplate  *template.Template
	metrics        *metrics.Collector
	logger         *slog.Logger
	progress       ProgressFunc
}

// New creates a generator. Templates are parsed here so a bad template
// fails at startup rather than on the first request.
func New(
	cfg *config.Config,
	secrets *config.Secrets,
	asker Asker,
	collector *metrics.Collector,
	logger *slog.Logger,
) (*Generator, error) {
	reportTmpl, err := util.ParseTemplate(StageReport, cfg.PromptTemplates.Report)
	if err != nil {
		return nil, err
	}
	chartTmpl, err := util.ParseTemplate(StageChart, cfg.PromptTemplates.Chart)
	if err != nil {
		return nil, err
	}

	logger = logger.With("component", "report")
	apiKey := secrets.GetAPIKey(cfg.Upstream.Provider)
	if apiKey == "" {
		logger.Warn("No API key configured for upstream", "provider", cfg.Upstream.Provider)
	}

	return &Generator{
		upstream:       cfg.Upstream,
		apiKey:         apiKey,
		asker:          asker,
		extractor:      chart.NewExtractor(logger, chart.WithRepair(cfg.Chart.RepairJSON)),
		reportTemplate: reportTmpl,
		chartTemplate:  chartTmpl,
		metrics:        collector,
		logger:         logger,
	}, nil
}

// SetProgress installs a hook called as each upstream call completes
func (g *Generator) SetProgress(fn ProgressFunc) {
	g.progress = fn
}

// Validate checks a topic/question pair without calling upstream
func Validate(topic, question string) error {
	if strings.TrimSpace(topic) == "" || strings.TrimSpace(question) == "" {
		return ErrMissingFields
	}
	if err := config.ValidateTopic(topic); err != nil {
		return &InputError{Err: err}
	}
	if err := config.ValidateQuestion(question); err != nil {
		return &InputError{Err: err}
	}
	return nil
}

// Generate asks upstream for the report and the chart data concurrently.
// Either call failing fails the whole report; chart parsing never does.
func (g *Generator) Generate(ctx context.Context, topic, question string) (*models.Report, error) {
	if err := Validate(topic, question); err != nil {
		return nil, err
	}

	data := promptData{Topic: topic, Question: question}
	reportPrompt, err := util.Execute(g.reportTemplate, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render report prompt: %w", err)
	}
	chartPrompt, err := util.Execute(g.chartTemplate, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart prompt: %w", err)
	}

	var reportAnswer, chartAnswer *api.Answer
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		reportAnswer, err = g.ask(egCtx, StageReport, reportPrompt)
		return err
	})
	eg.Go(func() error {
		var err error
		chartAnswer, err = g.ask(egCtx, StageChart, chartPrompt)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	extracted := g.extractor.Extract(chartAnswer.Text())
	g.metrics.IncrementChartTier(string(extracted.Tier))

	g.logger.Info("Report generated",
		"topic", util.TruncateString(topic, 80),
		"report_bytes", len(reportAnswer.Body),
		"chart_tier", extracted.Tier)

	return &models.Report{
		Report:    reportAnswer.Payload(),
		ChartData: extracted.Raw,
		ChartTier: string(extracted.Tier),
	}, nil
}

func (g *Generator) ask(ctx context.Context, stage, prompt string) (*api.Answer, error) {
	start := time.Now()
	answer, err := g.asker.Ask(ctx, g.upstream, g.apiKey, prompt)
	duration := time.Since(start)
	g.metrics.RecordUpstreamRequest(stage, duration, err == nil)

	if err != nil {
		g.logger.Error("Upstream request failed",
			"stage", stage,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return nil, fmt.Errorf("%s request failed: %w", stage, err)
	}

	g.logger.Debug("Upstream request complete",
		"stage", stage,
		"duration_ms", duration.Milliseconds(),
		"bytes", len(answer.Body))
	if g.progress != nil {
		g.progress(stage)
	}
	return answer, nil
}
