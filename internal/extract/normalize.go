package extract

import (
	"regexp"
	"strings"
)

// stripAccents folds the accented characters that show up in Spanish
// source text. Good enough for label/title matching; not a general
// Unicode normalizer.
var accentFold = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
	"Á", "a", "É", "e", "Í", "i", "Ó", "o", "Ú", "u", "Ü", "u", "Ñ", "n",
)

// Normalize lower-cases, strips accents and collapses whitespace.
func Normalize(s string) string {
	s = accentFold.Replace(s)
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// Trailing embedded listing codes, e.g. "Casa en Coyoacán (CV-1042)" or
// "Depto Roma Norte - CLV 88". The code is a short letters+digits token
// at the very end of the title.
var codeSuffixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\(\s*([A-Za-z]{1,6}[-_ ]?\d{1,6})\s*\)\s*$`),
	regexp.MustCompile(`[-–|]\s*([A-Za-z]{1,6}[-_ ]?\d{1,6})\s*$`),
	regexp.MustCompile(`\b(?:clave|cod\.?|codigo)\s*:?\s*([A-Za-z0-9-]{2,12})\s*$`),
}

// ExtractCode returns the listing code embedded at the tail of a title,
// or "" when none is present.
func ExtractCode(title string) string {
	t := strings.TrimSpace(accentFold.Replace(title))
	for _, re := range codeSuffixPatterns {
		if m := re.FindStringSubmatch(t); m != nil {
			return strings.ToUpper(strings.Join(strings.Fields(m[1]), "-"))
		}
	}
	return ""
}

// StripCodeSuffix removes a trailing embedded code from a title.
func StripCodeSuffix(title string) string {
	t := strings.TrimSpace(title)
	folded := accentFold.Replace(t)
	for _, re := range codeSuffixPatterns {
		if loc := re.FindStringIndex(folded); loc != nil {
			return strings.TrimSpace(t[:loc[0]])
		}
	}
	return t
}

// NormalizeTitle produces the comparison form used by the dedup index:
// lower-cased, accent-stripped, trailing code removed.
func NormalizeTitle(title string) string {
	return Normalize(StripCodeSuffix(title))
}

// NormalizeLocation produces the comparison form of a location string.
func NormalizeLocation(loc string) string {
	loc = strings.ReplaceAll(loc, ",", " ")
	return Normalize(loc)
}

// Canonical property-type categories.
const (
	TypeHouse      = "house"
	TypeApartment  = "apartment"
	TypeLand       = "land"
	TypeOffice     = "office"
	TypeCommercial = "commercial"
	TypeWarehouse  = "warehouse"
	TypeRanch      = "ranch"
	TypeBuilding   = "building"
)

// typeSynonyms maps normalized substrings to canonical categories.
// Order matters: earlier entries win, so the more specific ones go first.
var typeSynonyms = []struct {
	key string
	cat string
}{
	{"media agua", TypeHouse},
	{"departamento", TypeApartment},
	{"depto", TypeApartment},
	{"depa", TypeApartment},
	{"dept", TypeApartment},
	{"apartamento", TypeApartment},
	{"penthouse", TypeApartment},
	{"loft", TypeApartment},
	{"terreno", TypeLand},
	{"lote", TypeLand},
	{"predio", TypeLand},
	{"parcela", TypeLand},
	{"solar", TypeLand},
	{"oficina", TypeOffice},
	{"despacho", TypeOffice},
	{"consultorio", TypeOffice},
	{"local comercial", TypeCommercial},
	{"local", TypeCommercial},
	{"comercial", TypeCommercial},
	{"bodega", TypeWarehouse},
	{"nave industrial", TypeWarehouse},
	{"nave", TypeWarehouse},
	{"rancho", TypeRanch},
	{"quinta", TypeRanch},
	{"hacienda", TypeRanch},
	{"finca", TypeRanch},
	{"edificio", TypeBuilding},
	{"casa", TypeHouse},
	{"residencia", TypeHouse},
	{"villa", TypeHouse},
	{"duplex", TypeHouse},
}

// NormalizePropertyType maps free-text property-type strings onto a
// canonical category. Unrecognized input comes back normalized but
// uncategorized so it still compares stably in the dedup index.
func NormalizePropertyType(s string) string {
	n := Normalize(s)
	if n == "" {
		return ""
	}
	for _, syn := range typeSynonyms {
		if strings.Contains(n, syn.key) {
			return syn.cat
		}
	}
	return n
}

// knownPlaces are the city/state names used to anchor neighborhood
// inference in free text. Normalized form, longest-first where one
// contains another.
var knownPlaces = []string{
	"ciudad de mexico", "cdmx", "estado de mexico", "guadalajara", "zapopan",
	"monterrey", "san pedro garza garcia", "cancun", "playa del carmen",
	"merida", "puebla", "queretaro", "tijuana", "leon", "toluca", "morelia",
	"cuernavaca", "acapulco", "veracruz", "aguascalientes", "chihuahua",
	"culiacan", "hermosillo", "saltillo", "torreon", "tampico", "mazatlan",
	"puerto vallarta", "oaxaca", "tuxtla gutierrez", "pachuca", "xalapa",
	"campeche", "chetumal", "durango", "zacatecas", "colima", "tepic",
	"la paz", "los cabos", "jalisco", "nuevo leon", "quintana roo",
	"yucatan", "guanajuato", "michoacan", "sinaloa", "sonora", "coahuila",
	"tamaulipas", "chiapas", "hidalgo", "baja california sur",
	"baja california", "nayarit", "tabasco", "tlaxcala", "morelos",
}

// KnownPlace reports whether the normalized text contains a known
// city/state name, returning the match and its index in the text.
func KnownPlace(normText string) (place string, idx int) {
	best := -1
	for _, p := range knownPlaces {
		if i := strings.Index(normText, p); i >= 0 {
			if best == -1 || i < best {
				best = i
				place = p
			}
		}
	}
	if best == -1 {
		return "", -1
	}
	return place, best
}
