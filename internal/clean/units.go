package clean

import "strings"

// unitSynonyms maps lowercased raw unit descriptions onto the
// controlled unit vocabulary. The source data is inconsistent about
// casing and abbreviations, and "Litres Al" denotes litres of
// alcohol, which we fold into plain litres.
var unitSynonyms = map[string]string{
	"kg":        "Kilograms",
	"kgs":       "Kilograms",
	"kilogram":  "Kilograms",
	"kilograms": "Kilograms",
	"t":         "Tonnes",
	"tonne":     "Tonnes",
	"tonnes":    "Tonnes",
	"gm":        "Grams",
	"grams":     "Grams",
	"l":         "Litres",
	"litre":     "Litres",
	"litres":    "Litres",
	"litres al": "Litres",
	"no":        "Number",
	"number":    "Number",
	"each":      "Number",
	"pairs":     "Pairs",
	"pr":        "Pairs",
	"m":         "Metres",
	"metres":    "Metres",
	"m2":        "Square Metres",
	"sq m":      "Square Metres",
	"m3":        "Cubic Metres",
	"cu m":      "Cubic Metres",
	"carat":     "Carats",
	"carats":    "Carats",
	"dozen":     "Dozen",
	"doz":       "Dozen",
}

// mapUnit normalizes a raw unit description. Descriptions outside the
// synonym table are kept verbatim and flagged so downstream consumers
// can audit them.
func mapUnit(raw string) (unit string, flagged bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if mapped, ok := unitSynonyms[key]; ok {
		return mapped, false
	}
	return raw, true
}
