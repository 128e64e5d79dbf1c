package model

// Field names of the record as the model emits them.
const (
	FieldTitle                 = "title"
	FieldPrice                 = "price"
	FieldPhotos                = "photos"
	FieldSpecs                 = "specs"
	FieldPluspunten            = "pluspunten"
	FieldMinpunten             = "minpunten"
	FieldOnderhandelingsadvies = "onderhandelingsadvies"
	FieldEindconclusie         = "eindconclusie"
	FieldScore                 = "score"
	FieldMarketAnalysis        = "marketAnalysis"
	FieldIsSpecificAdAnalysis  = "isSpecificAdAnalysis"
	FieldMileage               = "mileage"
)

// ExpectedPhotoCount is the number of photos the prompt asks for.
const ExpectedPhotoCount = 4

// Score bounds.
const (
	MinScore = 0.0
	MaxScore = 10.0
)

// RecordFields lists the declared fields of a variant in emission order.
func RecordFields(variant SchemaVariant) []string {
	fields := []string{
		FieldTitle,
		FieldPhotos,
		FieldPrice,
		FieldSpecs,
		FieldPluspunten,
		FieldMinpunten,
		FieldOnderhandelingsadvies,
		FieldEindconclusie,
		FieldScore,
	}
	if variant == VariantFull {
		fields = append([]string{FieldIsSpecificAdAnalysis}, fields...)
		fields = append(fields, FieldMarketAnalysis)
	}
	return fields
}

// RecordSchema returns the JSON schema of a record variant. It is sent to
// providers that support schema-constrained output and used to check
// normalized replies.
func RecordSchema(variant SchemaVariant) map[string]any {
	stringList := map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
	props := map[string]any{
		FieldTitle: map[string]any{"type": "string"},
		FieldPrice: map[string]any{
			"type":        "number",
			"description": "Asking price as a plain number without currency symbols or separators.",
		},
		FieldPhotos: map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Up to four photo URLs from the listing.",
		},
		FieldSpecs: map[string]any{
			"type":                 "object",
			"properties":           specProperties(),
			"additionalProperties": map[string]any{"type": "string"},
			"description":          "Specifications such as Merk, Model, Bouwjaar, Kilometerstand, Brandstof, Transmissie.",
		},
		FieldPluspunten:            stringList,
		FieldMinpunten:             stringList,
		FieldOnderhandelingsadvies: map[string]any{"type": "string"},
		FieldEindconclusie:         map[string]any{"type": "string"},
		FieldScore: map[string]any{
			"type":    "number",
			"minimum": MinScore,
			"maximum": MaxScore,
		},
	}
	if variant == VariantFull {
		props[FieldMarketAnalysis] = map[string]any{"type": "string"}
		props[FieldIsSpecificAdAnalysis] = map[string]any{"type": "boolean"}
	}

	required := make([]any, 0, len(props))
	for _, f := range RecordFields(variant) {
		required = append(required, f)
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// SpecMileage is the specs key holding the odometer reading.
const SpecMileage = "Kilometerstand"

// SpecKeys are the spec-sheet keys the prompt asks for. Other keys the
// model returns are kept.
var SpecKeys = []string{"Merk", "Model", "Bouwjaar", SpecMileage, "Brandstof", "Transmissie"}

func specProperties() map[string]any {
	props := make(map[string]any, len(SpecKeys))
	for _, k := range SpecKeys {
		props[k] = map[string]any{"type": "string"}
	}
	return props
}

// FactsSchema returns the JSON schema of the scan stage reply.
func FactsSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			FieldPrice:   map[string]any{"type": []any{"number", "null"}},
			FieldMileage: map[string]any{"type": []any{"string", "null"}},
		},
		"required": []any{FieldPrice, FieldMileage},
	}
}
