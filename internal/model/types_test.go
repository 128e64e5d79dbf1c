package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordMode(t *testing.T) {
	yes, no := true, false

	assert.Equal(t, ModeSpecificAdAnalysis, (&Record{IsSpecificAdAnalysis: &yes}).Mode())
	assert.Equal(t, ModeGeneralFallback, (&Record{IsSpecificAdAnalysis: &no}).Mode())
	assert.Equal(t, ModeSpecificAdAnalysis, (&Record{}).Mode())
}

func TestRecordSchema_RequiredFieldsPerVariant(t *testing.T) {
	full := RecordSchema(VariantFull)
	basic := RecordSchema(VariantBasic)

	assert.Len(t, full["required"], 11)
	assert.Len(t, basic["required"], 9)
	assert.Contains(t, full["properties"], FieldMarketAnalysis)
	assert.NotContains(t, basic["properties"], FieldIsSpecificAdAnalysis)
}

func TestScrapedFactsComplete(t *testing.T) {
	price := 15000.0
	mileage := "120.000 km"

	assert.True(t, ScrapedFacts{Price: &price, Mileage: &mileage}.Complete())
	assert.False(t, ScrapedFacts{Price: &price}.Complete())
	assert.False(t, ScrapedFacts{}.Complete())
}
