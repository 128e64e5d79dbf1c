package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
	"go.uber.org/zap"

	"occasioncheck/internal/errs"
	"occasioncheck/internal/metrics"
	"occasioncheck/internal/model"
)

// errorField is the in-band key the model uses to decline an analysis.
const errorField = "error"

// Validator parses candidate JSON into records of one schema variant.
type Validator struct {
	variant     model.SchemaVariant
	recordCheck *gojsonschema.Schema
	factsCheck  *gojsonschema.Schema
	logger      *zap.Logger
}

// NewValidator compiles the record and facts schemas for variant.
func NewValidator(variant model.SchemaVariant, logger *zap.Logger) (*Validator, error) {
	if !variant.Valid() {
		return nil, fmt.Errorf("unknown schema variant %q", variant)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	recordCheck, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(model.RecordSchema(variant)))
	if err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}
	factsCheck, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(model.FactsSchema()))
	if err != nil {
		return nil, fmt.Errorf("compile facts schema: %w", err)
	}

	return &Validator{
		variant:     variant,
		recordCheck: recordCheck,
		factsCheck:  factsCheck,
		logger:      logger,
	}, nil
}

// Variant returns the schema variant records are normalized to.
func (v *Validator) Variant() model.SchemaVariant {
	return v.variant
}

// Validate turns candidate JSON text into a normalized record. An "error"
// key in the object is reported as ModelReportedFailure before any field is
// looked at.
func (v *Validator) Validate(candidate string) (*model.Record, error) {
	obj, err := v.parse(candidate)
	if err != nil {
		return nil, err
	}

	normalizeRecord(obj, v.variant)

	if err := check(v.recordCheck, obj, candidate); err != nil {
		return nil, err
	}

	var rec model.Record
	if err := remarshal(obj, &rec); err != nil {
		return nil, errs.Wrap(errs.CodeMalformedJSON, "the AI returned data in an unexpected format", err).
			WithDiagnostic(candidate)
	}

	if n := len(rec.Photos); n != model.ExpectedPhotoCount {
		metrics.RecordPhotoCountMismatch(n)
		v.logger.Warn("photo count differs from requested",
			zap.Int("photos", n),
			zap.Int("expected", model.ExpectedPhotoCount),
		)
	}

	return &rec, nil
}

// ValidateFacts parses the scan stage reply. Values the model could not
// find come back as nil.
func (v *Validator) ValidateFacts(candidate string) (*model.ScrapedFacts, error) {
	obj, err := v.parse(candidate)
	if err != nil {
		return nil, err
	}

	// absent keys mean "not found"; the facts schema requires both as null
	for _, k := range []string{model.FieldPrice, model.FieldMileage} {
		if _, ok := obj[k]; !ok {
			obj[k] = nil
		}
	}

	switch p := obj[model.FieldPrice].(type) {
	case string:
		if parsed, ok := parsePrice(p); ok {
			obj[model.FieldPrice] = parsed
		} else {
			obj[model.FieldPrice] = nil
		}
	}

	switch m := obj[model.FieldMileage].(type) {
	case string:
		s := strings.TrimSpace(m)
		if s == "" || strings.EqualFold(s, "null") {
			obj[model.FieldMileage] = nil
		} else {
			obj[model.FieldMileage] = s
		}
	case float64:
		obj[model.FieldMileage] = stringify(m)
	}

	if err := check(v.factsCheck, obj, candidate); err != nil {
		return nil, err
	}

	var facts model.ScrapedFacts
	if err := remarshal(obj, &facts); err != nil {
		return nil, errs.Wrap(errs.CodeMalformedJSON, "the AI returned data in an unexpected format", err).
			WithDiagnostic(candidate)
	}
	return &facts, nil
}

// parse decodes candidate into an object and applies the in-band error
// channel. Strict JSON is tried first, then JSON5 for trailing commas,
// comments and single-quoted strings.
func (v *Validator) parse(candidate string) (map[string]any, error) {
	var decoded any
	strictErr := json.Unmarshal([]byte(candidate), &decoded)
	if strictErr != nil {
		decoded = nil
		if err := json5.Unmarshal([]byte(candidate), &decoded); err != nil {
			return nil, errs.Wrap(errs.CodeMalformedJSON, "the AI returned invalid JSON", strictErr).
				WithDiagnostic(candidate)
		}
		v.logger.Debug("candidate accepted by lenient parser", zap.Error(strictErr))
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, errs.New(errs.CodeMalformedJSON, "the AI returned JSON that is not an object").
			WithDiagnostic(candidate)
	}

	if msg, reported := reportedError(obj); reported {
		return nil, errs.New(errs.CodeModelReportedFailure, msg).WithDiagnostic(candidate)
	}
	return obj, nil
}

// reportedError returns the model's own failure message. A null or empty
// error value does not count as a report.
func reportedError(obj map[string]any) (string, bool) {
	raw, ok := obj[errorField]
	if !ok || raw == nil {
		return "", false
	}
	if s, isString := raw.(string); isString {
		if strings.TrimSpace(s) == "" {
			return "", false
		}
		return s, true
	}
	return stringify(raw), true
}

func check(schema *gojsonschema.Schema, obj map[string]any, candidate string) error {
	result, err := schema.Validate(gojsonschema.NewGoLoader(obj))
	if err != nil {
		return errs.Wrap(errs.CodeMalformedJSON, "the AI returned data in an unexpected format", err).
			WithDiagnostic(candidate)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		violations[i] = desc.String()
	}
	return errs.Wrap(errs.CodeMalformedJSON, "the AI returned data in an unexpected format",
		fmt.Errorf("schema violations: %s", strings.Join(violations, "; "))).
		WithDiagnostic(candidate)
}

func remarshal(in any, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
