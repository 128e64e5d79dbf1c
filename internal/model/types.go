package model

// ListingQuery is the single input of an analysis request.
type ListingQuery struct {
	URL string `json:"url"`
}

// ExtractionMode reports whether the model grounded its answer in the live
// page or fell back to general knowledge about the vehicle.
type ExtractionMode string

const (
	ModeSpecificAdAnalysis ExtractionMode = "specific"
	ModeGeneralFallback    ExtractionMode = "general"
)

// SchemaVariant selects which optional fields the record carries.
type SchemaVariant string

const (
	// VariantFull requests marketAnalysis and isSpecificAdAnalysis.
	VariantFull SchemaVariant = "full"
	// VariantBasic omits both optional fields.
	VariantBasic SchemaVariant = "basic"
)

// Valid reports whether v is a known variant.
func (v SchemaVariant) Valid() bool {
	return v == VariantFull || v == VariantBasic
}

// Record is the normalized vehicle listing analysis returned to callers.
//
// Onderhandelingsadvies is always a single string; list-shaped replies are
// joined line by line during normalization.
type Record struct {
	Title                 string            `json:"title"`
	Price                 float64           `json:"price"`
	Photos                []string          `json:"photos"`
	Specs                 map[string]string `json:"specs"`
	Pluspunten            []string          `json:"pluspunten"`
	Minpunten             []string          `json:"minpunten"`
	Onderhandelingsadvies string            `json:"onderhandelingsadvies"`
	Eindconclusie         string            `json:"eindconclusie"`
	Score                 float64           `json:"score"`
	MarketAnalysis        *string           `json:"marketAnalysis,omitempty"`
	IsSpecificAdAnalysis  *bool             `json:"isSpecificAdAnalysis,omitempty"`
}

// Mode returns the extraction mode the model reported. Records produced
// under the basic variant carry no flag and are reported as specific.
func (r *Record) Mode() ExtractionMode {
	if r.IsSpecificAdAnalysis != nil && !*r.IsSpecificAdAnalysis {
		return ModeGeneralFallback
	}
	return ModeSpecificAdAnalysis
}

// ScrapedFacts are the values pinned by the scan stage of a two-stage run.
// A nil field means the model could not find it on the page.
type ScrapedFacts struct {
	Price   *float64 `json:"price"`
	Mileage *string  `json:"mileage"`
}

// Complete reports whether both facts were found.
func (f ScrapedFacts) Complete() bool {
	return f.Price != nil && f.Mileage != nil
}
