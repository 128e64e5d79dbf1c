package extract

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"

	"occasioncheck/internal/model"
)

// normalizeRecord fills defaults and coerces loosely typed values in place.
// Values that cannot be coerced are left untouched for the schema check to
// reject.
func normalizeRecord(obj map[string]any, variant model.SchemaVariant) {
	for _, f := range []string{model.FieldTitle, model.FieldEindconclusie} {
		obj[f] = normalizeString(obj[f])
	}

	obj[model.FieldPrice] = normalizePrice(obj[model.FieldPrice])
	obj[model.FieldScore] = normalizeScore(obj[model.FieldScore])
	obj[model.FieldSpecs] = normalizeSpecs(obj[model.FieldSpecs])

	for _, f := range []string{model.FieldPhotos, model.FieldPluspunten, model.FieldMinpunten} {
		obj[f] = normalizeList(obj[f])
	}

	obj[model.FieldOnderhandelingsadvies] = normalizeAdvice(obj[model.FieldOnderhandelingsadvies])

	if variant == model.VariantFull {
		obj[model.FieldMarketAnalysis] = normalizeString(obj[model.FieldMarketAnalysis])
		obj[model.FieldIsSpecificAdAnalysis] = normalizeBool(obj[model.FieldIsSpecificAdAnalysis])
	} else {
		delete(obj, model.FieldMarketAnalysis)
		delete(obj, model.FieldIsSpecificAdAnalysis)
	}
}

func normalizeString(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64, bool:
		return stringify(t)
	default:
		return v
	}
}

func normalizePrice(v any) any {
	switch t := v.(type) {
	case nil:
		return 0.0
	case float64:
		return t
	case string:
		if p, ok := parsePrice(t); ok {
			return p
		}
		if strings.TrimSpace(t) == "" {
			return 0.0
		}
		return v
	default:
		return v
	}
}

func normalizeScore(v any) any {
	var score float64
	switch t := v.(type) {
	case nil:
		return model.MinScore
	case float64:
		score = t
	case string:
		s := strings.TrimSpace(strings.Replace(t, ",", ".", 1))
		// "7.5/10"
		if i := strings.IndexByte(s, '/'); i != -1 {
			s = strings.TrimSpace(s[:i])
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return v
		}
		score = f
	default:
		return v
	}
	if math.IsNaN(score) {
		return model.MinScore
	}
	return math.Max(model.MinScore, math.Min(model.MaxScore, score))
}

func normalizeSpecs(v any) any {
	switch t := v.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = stringify(val)
		}
		return out
	default:
		return v
	}
}

func normalizeList(v any) any {
	switch t := v.(type) {
	case nil:
		return []any{}
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []any{s}
		}
		return []any{}
	case []any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			out = append(out, stringify(item))
		}
		return out
	default:
		return v
	}
}

func normalizeAdvice(v any) any {
	list, ok := v.([]any)
	if !ok {
		return normalizeString(v)
	}
	lines := make([]string, 0, len(list))
	for _, item := range list {
		if item == nil {
			continue
		}
		lines = append(lines, stringify(item))
	}
	return strings.Join(lines, "\n")
}

func normalizeBool(v any) any {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
		return v
	default:
		return v
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// parsePrice turns a display price such as "€ 34.890,-", "34,890" or
// "EUR 12.500,50" into a number. Dots and commas are both accepted as
// thousands separators; a separator followed by exactly two trailing digits
// is read as the decimal mark.
func parsePrice(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	num := strings.Trim(b.String(), ".,")
	if num == "" {
		return 0, false
	}

	lastSep := strings.LastIndexAny(num, ".,")
	if lastSep != -1 && len(num)-lastSep-1 == 2 {
		intPart := strings.NewReplacer(".", "", ",", "").Replace(num[:lastSep])
		num = intPart + "." + num[lastSep+1:]
	} else if lastSep != -1 && len(num)-lastSep-1 != 3 && strings.Count(num, ".")+strings.Count(num, ",") == 1 {
		// single separator not grouping thousands, e.g. "12.5"
		num = strings.Replace(num, ",", ".", 1)
	} else {
		num = strings.NewReplacer(".", "", ",", "").Replace(num)
	}

	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
