package vehicle

import "strings"

// bodyTypeVocab normalizes body type spellings from any source onto the
// report's fixed vocabulary.
var bodyTypeVocab = map[string]string{
	"estate":            "wagon",
	"kombi":             "wagon",
	"station wagon":     "wagon",
	"wagon":             "wagon",
	"touring":           "wagon",
	"saloon":            "sedan",
	"limousine":         "sedan",
	"sedan":             "sedan",
	"sedan/saloon":      "sedan",
	"hatchback":         "hatchback",
	"liftback":          "hatchback",
	"schraegheck":       "hatchback",
	"suv":               "suv",
	"sport utility":     "suv",
	"crossover":         "suv",
	"coupe":             "coupe",
	"convertible":       "convertible",
	"cabriolet":         "convertible",
	"cabrio":            "convertible",
	"van":               "van",
	"minivan":           "van",
	"kleinbus":          "van",
	"pickup":            "pickup",
	"truck":             "pickup",
}

// fuelTypeVocab normalizes fuel spellings (German document values included)
// onto the report's fixed vocabulary.
var fuelTypeVocab = map[string]string{
	"benzin":      "petrol",
	"gasoline":    "petrol",
	"petrol":      "petrol",
	"super":       "petrol",
	"diesel":      "diesel",
	"elektro":     "electric",
	"electric":    "electric",
	"strom":       "electric",
	"hybrid":      "hybrid",
	"plug-in":     "hybrid",
	"hybrid/benzin": "hybrid",
	"lpg":         "lpg",
	"autogas":     "lpg",
	"cng":         "cng",
	"erdgas":      "cng",
}

// NormalizeBodyType maps a raw body type onto the fixed vocabulary;
// unknown values pass through lowercased.
func NormalizeBodyType(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return ""
	}
	if v, ok := bodyTypeVocab[key]; ok {
		return v
	}
	// Partial match covers registry values like "Wagon (4-door)".
	for pattern, v := range bodyTypeVocab {
		if strings.Contains(key, pattern) {
			return v
		}
	}
	return key
}

// NormalizeFuelType maps a raw fuel type onto the fixed vocabulary;
// unknown values pass through lowercased.
func NormalizeFuelType(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return ""
	}
	if v, ok := fuelTypeVocab[key]; ok {
		return v
	}
	for pattern, v := range fuelTypeVocab {
		if strings.Contains(key, pattern) {
			return v
		}
	}
	return key
}
