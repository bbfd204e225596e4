package identification

// countryAliases maps folded spellings to the name Discogs uses.
var countryAliases = map[string]string{
	"netherlands":              "Netherlands",
	"the netherlands":          "Netherlands",
	"holland":                  "Netherlands",
	"nederland":                "Netherlands",
	"nl":                       "Netherlands",
	"uk":                       "UK",
	"u.k.":                     "UK",
	"united kingdom":           "UK",
	"great britain":            "UK",
	"gb":                       "UK",
	"england":                  "UK",
	"us":                       "US",
	"u.s.":                     "US",
	"usa":                      "US",
	"u.s.a.":                   "US",
	"united states":            "US",
	"united states of america": "US",
	"germany":                  "Germany",
	"deutschland":              "Germany",
	"de":                       "Germany",
	"west germany":             "Germany",
	"france":                   "France",
	"fr":                       "France",
	"europe":                   "Europe",
	"eu":                       "Europe",
	"e.u.":                     "Europe",
	"japan":                    "Japan",
	"jp":                       "Japan",
	"jpn":                      "Japan",
	"italy":                    "Italy",
	"italia":                   "Italy",
	"it":                       "Italy",
	"spain":                    "Spain",
	"espana":                   "Spain",
	"es":                       "Spain",
	"austria":                  "Austria",
	"osterreich":               "Austria",
	"at":                       "Austria",
	"belgium":                  "Belgium",
	"belgie":                   "Belgium",
	"belgique":                 "Belgium",
	"be":                       "Belgium",
	"sweden":                   "Sweden",
	"sverige":                  "Sweden",
	"se":                       "Sweden",
	"canada":                   "Canada",
	"ca":                       "Canada",
	"australia":                "Australia",
	"au":                       "Australia",
	"switzerland":              "Switzerland",
	"schweiz":                  "Switzerland",
	"ch":                       "Switzerland",
	"brazil":                   "Brazil",
	"brasil":                   "Brazil",
	"br":                       "Brazil",
	"mexico":                   "Mexico",
	"mx":                       "Mexico",
	"russia":                   "Russia",
	"ru":                       "Russia",
	"poland":                   "Poland",
	"polska":                   "Poland",
	"pl":                       "Poland",
	"denmark":                  "Denmark",
	"danmark":                  "Denmark",
	"dk":                       "Denmark",
	"norway":                   "Norway",
	"norge":                    "Norway",
	"no":                       "Norway",
	"taiwan":                   "Taiwan",
	"tw":                       "Taiwan",
	"korea":                    "South Korea",
	"south korea":              "South Korea",
	"kr":                       "South Korea",
}

// canonicalCountry resolves aliases and "Made in ..." phrasing. Unknown
// names are returned folded so equal spellings still compare equal.
func canonicalCountry(value string) string {
	key := foldKey(value)
	for _, prefix := range []string{"made in ", "printed in ", "manufactured in "} {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			key = key[len(prefix):]
			break
		}
	}
	if canonical, ok := countryAliases[key]; ok {
		return canonical
	}
	return key
}

// sameCountry compares two country names after alias normalization.
func sameCountry(a, b string) bool {
	if foldKey(a) == "" || foldKey(b) == "" {
		return false
	}
	return canonicalCountry(a) == canonicalCountry(b)
}
