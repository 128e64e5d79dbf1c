// Package pipeline orchestrates one listing analysis: prompt, model call,
// JSON recovery and validation, in either one pass or two.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"occasioncheck/internal/config"
	"occasioncheck/internal/errs"
	"occasioncheck/internal/extract"
	"occasioncheck/internal/llm"
	"occasioncheck/internal/logging"
	"occasioncheck/internal/metrics"
	"occasioncheck/internal/model"
	"occasioncheck/internal/prompt"
)

// State is a step of an analysis run.
type State string

const (
	StateStart          State = "Start"
	StateScanning       State = "Scanning"
	StateScanFailed     State = "ScanFailed"
	StateFactsReady     State = "FactsReady"
	StateAnalyzing      State = "Analyzing"
	StateAnalysisFailed State = "AnalysisFailed"
	StateComplete       State = "Complete"
)

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateScanFailed || s == StateAnalysisFailed
}

// Options fix the strategy for the lifetime of a Pipeline.
type Options struct {
	// Mode is config.ModeUnified or config.ModeTwoStage.
	Mode             string
	Variant          model.SchemaVariant
	WebRetrieval     bool
	StructuredOutput bool
}

// OptionsFromConfig reads the pipeline section of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Mode:             cfg.Pipeline.Mode,
		Variant:          model.SchemaVariant(cfg.Pipeline.Variant),
		WebRetrieval:     cfg.Pipeline.WebRetrieval == nil || *cfg.Pipeline.WebRetrieval,
		StructuredOutput: cfg.Pipeline.StructuredOutput == nil || *cfg.Pipeline.StructuredOutput,
	}
}

// Pipeline is safe for concurrent use; every Run keeps its state local.
type Pipeline struct {
	gw        llm.Gateway
	validator *extract.Validator
	opts      Options
	logger    *zap.Logger
}

// New builds a pipeline around gw using the pipeline section of cfg.
func New(gw llm.Gateway, cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	return NewWithOptions(gw, OptionsFromConfig(cfg), logger)
}

// NewWithOptions builds a pipeline from explicit options.
func NewWithOptions(gw llm.Gateway, opts Options, logger *zap.Logger) (*Pipeline, error) {
	if gw == nil {
		return nil, errs.New(errs.CodeConfiguration, "pipeline requires a gateway")
	}
	switch opts.Mode {
	case config.ModeUnified, config.ModeTwoStage:
	default:
		return nil, errs.New(errs.CodeConfiguration, fmt.Sprintf("unknown pipeline mode %q", opts.Mode))
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	validator, err := extract.NewValidator(opts.Variant, logger)
	if err != nil {
		return nil, errs.Wrap(errs.CodeConfiguration, "invalid schema variant", err)
	}

	return &Pipeline{gw: gw, validator: validator, opts: opts, logger: logger}, nil
}

// Mode returns the configured orchestration mode.
func (p *Pipeline) Mode() string { return p.opts.Mode }

// Gateway returns the gateway the pipeline calls.
func (p *Pipeline) Gateway() llm.Gateway { return p.gw }

// run carries the per-request values of one analysis.
type run struct {
	url   string
	state State
	raw   string
	log   *zap.Logger
}

func (r *run) enter(s State) {
	r.log.Debug("pipeline state", zap.String("from", string(r.state)), zap.String("to", string(s)))
	r.state = s
}

// Run analyzes the listing at q.URL. It returns either a complete record or
// an *errs.Error; there is no partial result.
func (p *Pipeline) Run(ctx context.Context, q model.ListingQuery) (*model.Record, error) {
	r := &run{
		url:   q.URL,
		state: StateStart,
		log: logging.FromContext(ctx, p.logger).With(
			zap.String("url", q.URL),
			zap.String("mode", p.opts.Mode),
			zap.String("variant", string(p.validator.Variant())),
			zap.String("provider", string(p.gw.Provider())),
		),
	}

	var (
		rec *model.Record
		err error
	)
	if p.opts.Mode == config.ModeTwoStage {
		rec, err = p.runTwoStage(ctx, r)
	} else {
		rec, err = p.runUnified(ctx, r)
	}
	if err != nil {
		return nil, p.fail(r, err)
	}

	r.enter(StateComplete)
	metrics.RecordPipelineRun(p.opts.Mode, string(r.state))
	r.log.Info("analysis complete",
		zap.String("analysis_mode", string(rec.Mode())),
		zap.Int("photos", len(rec.Photos)),
		zap.Float64("score", rec.Score),
	)
	return rec, nil
}

func (p *Pipeline) runUnified(ctx context.Context, r *run) (*model.Record, error) {
	r.enter(StateAnalyzing)
	return p.analyze(ctx, r, prompt.Build(r.url, prompt.ModeUnified, nil, p.opts.Variant), nil)
}

func (p *Pipeline) runTwoStage(ctx context.Context, r *run) (*model.Record, error) {
	r.enter(StateScanning)

	scanPrompt := prompt.Build(r.url, prompt.ModeScan, nil, p.opts.Variant)
	facts, err := p.scan(ctx, r, scanPrompt)
	if err != nil {
		return nil, err
	}
	r.enter(StateFactsReady)
	r.log.Info("facts ready",
		zap.Float64("price", *facts.Price),
		zap.String("mileage", *facts.Mileage),
	)

	// stage 1 is replayed so the model sees where the facts came from
	history := []llm.Turn{
		{Role: llm.RoleUser, Text: scanPrompt},
		{Role: llm.RoleAssistant, Text: r.raw},
	}
	r.raw = ""

	r.enter(StateAnalyzing)
	rec, err := p.analyze(ctx, r, prompt.Build(r.url, prompt.ModeAnalyze, facts, p.opts.Variant), history)
	if err != nil {
		return nil, err
	}
	pinFacts(r, rec, facts)
	return rec, nil
}

// pinFacts makes the scanned facts authoritative on the analysis record.
// Stage 2 is told the values, not asked to re-derive them, so any
// disagreement is logged and overwritten.
func pinFacts(r *run, rec *model.Record, facts *model.ScrapedFacts) {
	if rec.Price != *facts.Price {
		r.log.Warn("analysis drifted from scanned facts",
			zap.String("field", model.FieldPrice),
			zap.Float64("scanned", *facts.Price),
			zap.Float64("reported", rec.Price),
		)
		metrics.RecordFactDrift(model.FieldPrice)
		rec.Price = *facts.Price
	}

	if rec.Specs == nil {
		rec.Specs = map[string]string{}
	}
	if got := rec.Specs[model.SpecMileage]; got != *facts.Mileage {
		r.log.Warn("analysis drifted from scanned facts",
			zap.String("field", model.SpecMileage),
			zap.String("scanned", *facts.Mileage),
			zap.String("reported", got),
		)
		metrics.RecordFactDrift(model.SpecMileage)
		rec.Specs[model.SpecMileage] = *facts.Mileage
	}
}

func (p *Pipeline) scan(ctx context.Context, r *run, instruction string) (*model.ScrapedFacts, error) {
	raw, err := p.gw.Invoke(ctx, p.request(instruction, nil, model.FactsSchema(), "listing_facts"))
	r.raw = raw
	if err != nil {
		return nil, err
	}

	candidate, err := extract.ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	facts, err := p.validator.ValidateFacts(candidate)
	if err != nil {
		return nil, err
	}

	if !facts.Complete() {
		var missing []string
		if facts.Price == nil {
			missing = append(missing, model.FieldPrice)
		}
		if facts.Mileage == nil {
			missing = append(missing, model.FieldMileage)
		}
		return nil, errs.New(errs.CodeInsufficientFacts,
			fmt.Sprintf("could not determine %s from the listing", strings.Join(missing, " and "))).
			WithDiagnostic(candidate)
	}
	return facts, nil
}

func (p *Pipeline) analyze(ctx context.Context, r *run, instruction string, history []llm.Turn) (*model.Record, error) {
	raw, err := p.gw.Invoke(ctx, p.request(instruction, history, model.RecordSchema(p.opts.Variant), "vehicle_listing"))
	r.raw = raw
	if err != nil {
		return nil, err
	}

	candidate, err := extract.ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	return p.validator.Validate(candidate)
}

func (p *Pipeline) request(instruction string, history []llm.Turn, schema map[string]any, name string) llm.Request {
	req := llm.Request{
		Instruction:        instruction,
		History:            history,
		EnableWebRetrieval: p.opts.WebRetrieval,
	}
	if p.opts.StructuredOutput {
		req.Schema = schema
		req.SchemaName = name
	}
	return req
}

// fail moves r into the terminal failure state for its current stage, logs
// the raw reply with the text the failing step rejected and returns err
// classified.
func (p *Pipeline) fail(r *run, err error) error {
	switch r.state {
	case StateScanning:
		r.enter(StateScanFailed)
	default:
		r.enter(StateAnalysisFailed)
	}

	e, ok := errs.As(err)
	if !ok {
		e = errs.Wrap(errs.CodeInternal, "an unknown server error occurred", err)
	}

	metrics.RecordPipelineRun(p.opts.Mode, string(r.state))
	metrics.RecordFailure(string(e.Code))
	r.log.Error("analysis failed",
		zap.String("state", string(r.state)),
		zap.String("code", string(e.Code)),
		zap.Error(err),
		zap.String("raw_reply", r.raw),
		zap.String("diagnostic", errs.Diagnostic(err)),
	)
	return e
}
