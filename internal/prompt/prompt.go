// Package prompt builds the instruction text sent to the model. Building is
// pure: the same inputs always produce the same text.
package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"occasioncheck/internal/model"
)

// Mode selects which instruction is built.
type Mode string

const (
	// ModeUnified asks for the full record in a single pass.
	ModeUnified Mode = "unified"
	// ModeScan asks only for price and mileage.
	ModeScan Mode = "two-stage-scan"
	// ModeAnalyze asks for the full record with scanned facts pinned.
	ModeAnalyze Mode = "two-stage-analyze"
)

const persona = "Je bent 'OccasionCheck AI', een expert in het analyseren van auto-advertenties. " +
	"Je antwoordt ALTIJD en UITSLUITEND met een JSON-object. Geef GEEN extra tekst zoals '```json' voor of na het object."

const priceRules = `- **Prijs (price):**
    1.  **PRIORITEIT 1 (Class-based):** Zoek EERST naar HTML-elementen (<span>, <div>) met een 'class' attribuut dat 'Price', 'price', 'amount', of 'prijs' bevat. Dit is de meest betrouwbare bron.
    2.  **PRIORITEIT 2 (Text-based):** ALLEEN als methode 1 mislukt: zoek de meest prominente vraagprijs in de tekst, vaak in het formaat '€ 34.890,-' en dicht bij de titel.
    3.  NEGEER bedragen van andere advertenties (gerelateerde of aanbevolen auto's), financierings- of maandbedragen en telefoonnummers.
    4.  Converteer de gevonden prijs naar een getal zonder valuta of scheidingstekens (bv. 34890).`

const mileageRules = `- **Kilometerstand:**
    1.  **PRIORITEIT 1 (Class-based):** Zoek EERST naar elementen met een 'class' die 'km', 'mileage', 'kilometerstand', of 'kenmerk-kilometerstand' bevat.
    2.  **PRIORITEIT 2 (Text-based):** ALLEEN als methode 1 mislukt: zoek de tekst 'KM stand' of 'Kilometerstand' en neem het getal dat er direct naast staat.`

const pageHints = `- **Titel:** De titel staat bijna altijd in de ` + "`<h1>`" + ` tag.
- **Specificaties:** Zoek naar een ` + "`<ul>`" + ` of ` + "`<table>`" + ` met 'specs', 'kenmerken', of 'specifications' in de class.
- **Foto's:** Neem de eerste 4 foto-URL's van de advertentie zelf.`

// Build returns the instruction for url in the given mode. facts is only
// read in ModeAnalyze; a nil value there is treated as no pinned facts.
func Build(url string, mode Mode, facts *model.ScrapedFacts, variant model.SchemaVariant) string {
	switch mode {
	case ModeScan:
		return buildScan(url)
	case ModeAnalyze:
		return buildAnalyze(url, facts, variant)
	default:
		return buildUnified(url, variant)
	}
}

func buildUnified(url string, variant model.SchemaVariant) string {
	var b strings.Builder
	b.WriteString(persona)
	fmt.Fprintf(&b, "\n\n**URL:** %s\n\n", url)
	writeProtocol(&b, variant)
	b.WriteString("\n**TECHNISCHE HINTS VOOR HTML-ANALYSE (VOLG DEZE PRIORITEITEN STRIKT OP VOLGORDE):**\n")
	b.WriteString(priceRules)
	b.WriteString("\n\n")
	b.WriteString(mileageRules)
	b.WriteString("\n\n")
	b.WriteString(pageHints)
	b.WriteString("\n\n")
	writeStructure(&b, variant)
	return b.String()
}

func buildScan(url string) string {
	var b strings.Builder
	b.WriteString(persona)
	fmt.Fprintf(&b, "\n\n**URL:** %s\n\n", url)
	b.WriteString(`**OPDRACHT:** Bezoek de URL met je zoek- en webtool en lees de advertentie. Haal UITSLUITEND de vraagprijs en de kilometerstand van deze ene advertentie op.

**REGELS:**
`)
	b.WriteString(priceRules)
	b.WriteString("\n\n")
	b.WriteString(mileageRules)
	b.WriteString(`

- Verzin NOOIT een waarde. Als je een waarde niet met zekerheid op de pagina vindt, geef dan null.
- Gebruik GEEN algemene kennis over het model.

**GEEF NU EEN GELDIG JSON-OBJECT TERUG MET DEZE STRUCTUUR:**
{
  "price": 12345,
  "mileage": "123.456 km"
}
`)
	return b.String()
}

func buildAnalyze(url string, facts *model.ScrapedFacts, variant model.SchemaVariant) string {
	var b strings.Builder
	b.WriteString(persona)
	fmt.Fprintf(&b, "\n\n**URL:** %s\n\n", url)
	if facts != nil {
		b.WriteString("**VASTGESTELDE FEITEN (GROUND TRUTH):**\n")
		b.WriteString("De volgende waarden zijn al geverifieerd op de pagina. Neem ze EXACT over en spreek ze NERGENS tegen, ook niet in je analyse:\n")
		if facts.Price != nil {
			fmt.Fprintf(&b, "- price: %s\n", formatNumber(*facts.Price))
		}
		if facts.Mileage != nil {
			fmt.Fprintf(&b, "- %s: %s\n", model.SpecMileage, *facts.Mileage)
		}
		b.WriteString("\n")
	}
	b.WriteString(`**OPDRACHT:** Bezoek de URL met je zoek- en webtool voor de aanvullende velden (titel, foto's, specificaties en opties). Gebruik voor prijs en kilometerstand UITSLUITEND de vastgestelde feiten hierboven.

`)
	writeProtocol(&b, variant)
	b.WriteString("\n**TECHNISCHE HINTS VOOR HTML-ANALYSE:**\n")
	b.WriteString(pageHints)
	b.WriteString("\n\n")
	writeStructure(&b, variant)
	return b.String()
}

func writeProtocol(b *strings.Builder, variant model.SchemaVariant) {
	b.WriteString(`**PROTOCOL:**
1.  **ONDERZOEK URL:** Bezoek de URL met je zoek- en webtool. Analyseer de volledige HTML-broncode. Is het een leesbare auto-advertentie?
2.  **KIES MODUS:**
    * **SPECIFIEKE ANALYSE:** Als de pagina leesbaar is.`)
	if variant == model.VariantFull {
		b.WriteString(" Zet 'isSpecificAdAnalysis' op 'true'.")
	}
	b.WriteString(` Haal alle data direct van de pagina.
    * **ALGEMENE ANALYSE:** Als de pagina niet bruikbaar is (fout/blokkade).`)
	if variant == model.VariantFull {
		b.WriteString(" Zet 'isSpecificAdAnalysis' op 'false'.")
	}
	b.WriteString(` Gebruik je algemene kennis over het model uit de URL.
3.  **VOER UIT:** Genereer het JSON-object volgens de gekozen modus en de onderstaande structuur.
4.  **FOUT:** Kun je helemaal niets zinnigs zeggen, geef dan alleen {"error": "<korte uitleg>"} terug.
`)
}

func writeStructure(b *strings.Builder, variant model.SchemaVariant) {
	b.WriteString("**GEEF NU EEN GELDIG JSON-OBJECT TERUG MET DEZE STRUCTUUR:**\n{\n")
	fields := model.RecordFields(variant)
	for i, f := range fields {
		fmt.Fprintf(b, "  %q: %s", f, exampleValue(f))
		if i < len(fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n")
}

func exampleValue(field string) string {
	switch field {
	case model.FieldIsSpecificAdAnalysis:
		return "true"
	case model.FieldPhotos:
		return `["url1", "url2", "url3", "url4"]`
	case model.FieldPrice:
		return "12345"
	case model.FieldSpecs:
		parts := make([]string, 0, len(model.SpecKeys))
		for _, k := range model.SpecKeys {
			parts = append(parts, fmt.Sprintf("%q: \"...\"", k))
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case model.FieldPluspunten, model.FieldMinpunten:
		return `["..."]`
	case model.FieldScore:
		return "8.5"
	default:
		return `"..."`
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
