package chart

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"regexp"
	"unicode/utf8"

	"github.com/kaptinlin/jsonrepair"

	"github.com/lamim/reportforge/internal/util"
	"github.com/lamim/reportforge/pkg/models"
)

// Tier identifies the recovery step that produced a Result
type Tier string

const (
	TierDirect    Tier = "direct"
	TierSubstring Tier = "substring"
	TierRepaired  Tier = "repaired"
	TierFallback  Tier = "fallback"
)

// maxLoggedChars bounds how much of a raw response ends up in a log record
const maxLoggedChars = 500

// Greedy on purpose: first '{' through last '}'.
var objectSpanRegex = regexp.MustCompile(`\{[\s\S]*\}`)

// Result is the outcome of one extraction
type Result struct {
	// Raw is the recovered JSON object, compacted but otherwise untouched.
	Raw json.RawMessage
	// Spec is a best-effort typed view of Raw. Fields the object lacks stay zero.
	Spec models.ChartSpec
	Tier Tier
}

// Extractor turns untrusted model output into a chart description.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	logger *slog.Logger
	repair bool
}

// Option configures an Extractor
type Option func(*Extractor)

// WithRepair enables the jsonrepair tier between substring and fallback
func WithRepair(enabled bool) Option {
	return func(e *Extractor) {
		e.repair = enabled
	}
}

// NewExtractor creates an extractor that reports tier changes to logger
func NewExtractor(logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{logger: logger.With("component", "chart")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs the recovery tiers in order and returns the first success.
// It never fails: input with no recoverable object yields Fallback().
func (e *Extractor) Extract(raw string) Result {
	if obj, ok := parseObject(raw); ok {
		return newResult(obj, TierDirect)
	}

	e.logger.Warn("Failed to parse entire chart response as JSON, attempting to extract JSON",
		"length", len(raw))

	span := objectSpanRegex.FindString(raw)
	if span != "" {
		if obj, ok := parseObject(span); ok {
			e.logger.Debug("Extracted chart JSON", "json", util.TruncateString(span, maxLoggedChars))
			return newResult(obj, TierSubstring)
		}
		e.logger.Warn("Error parsing extracted chart JSON", "span_length", len(span))

		if e.repair {
			if obj, ok := repairObject(span); ok {
				e.logger.Warn("Recovered chart JSON after repair")
				return newResult(obj, TierRepaired)
			}
			e.logger.Warn("Chart JSON repair failed")
		}
	}

	e.logger.Warn("Failed to parse chart data, using default structure",
		"raw", util.TruncateString(raw, maxLoggedChars))
	return Fallback()
}

// Extract runs a default extractor that logs to slog.Default()
func Extract(raw string) Result {
	return NewExtractor(slog.Default()).Extract(raw)
}

// DefaultSpec returns the placeholder chart shown when nothing could be recovered.
// Every call returns a fresh value.
func DefaultSpec() models.ChartSpec {
	return models.ChartSpec{
		ChartType: models.ChartTypeLine,
		Data: models.ChartData{
			Labels: []string{"No Data"},
			Datasets: []models.Dataset{
				{
					Label:       "No Data Available",
					Data:        []float64{0},
					BorderColor: "rgb(75, 192, 192)",
					Tension:     0.1,
				},
			},
		},
		Description: "No data available for the requested topic and question.",
	}
}

// Fallback returns the terminal tier result
func Fallback() Result {
	spec := DefaultSpec()
	// Marshalling a fixed struct of strings and floats cannot fail.
	raw, _ := json.Marshal(spec)
	return Result{Raw: raw, Spec: spec, Tier: TierFallback}
}

// parseObject reports whether s is a single JSON object and returns it compacted
func parseObject(s string) (json.RawMessage, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &probe); err != nil {
		return nil, false
	}
	// "null" decodes into a nil map without error
	if probe == nil {
		return nil, false
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return nil, false
	}
	if !utf8.Valid(buf.Bytes()) {
		return reencode(buf.Bytes())
	}
	return json.RawMessage(buf.Bytes()), true
}

// reencode decodes and re-marshals obj, which replaces invalid UTF-8 with
// U+FFFD. Keys come out sorted; numbers keep their original text.
func reencode(obj []byte) (json.RawMessage, bool) {
	dec := json.NewDecoder(bytes.NewReader(obj))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, false
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n")), true
}

func repairObject(s string) (json.RawMessage, bool) {
	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return nil, false
	}
	return parseObject(repaired)
}

func newResult(obj json.RawMessage, tier Tier) Result {
	var spec models.ChartSpec
	// Type mismatches leave the offending fields zero; the raw object is
	// still returned as recovered.
	_ = json.Unmarshal(obj, &spec)
	return Result{Raw: obj, Spec: spec, Tier: tier}
}
