package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"listing-importer/internal/models"
)

// Source bundles the raw signals harvested for one listing. Fields are
// consumed in strict precedence: Panel first, then Corpus, then the
// short Feature items.
type Source struct {
	Panel    map[string]string
	Corpus   string
	Features []string
}

// fieldSynonyms are normalized substrings matched against panel labels.
type fieldSynonyms struct {
	include []string
	exclude []string
}

var (
	synBedrooms  = fieldSynonyms{include: []string{"recamara", "habitacion", "dormitorio", "bedroom", "cuarto"}}
	synBathrooms = fieldSynonyms{include: []string{"bano", "bath"}, exclude: []string{"medio", "half"}}
	synHalfBaths = fieldSynonyms{include: []string{"medio bano", "medios bano", "half bath"}}
	synFloors    = fieldSynonyms{include: []string{"piso", "nivel", "planta"}, exclude: []string{"de piso"}}
	synParking   = fieldSynonyms{include: []string{"estacionamiento", "cochera", "cajon", "garage"}}
	synLotSize   = fieldSynonyms{include: []string{"terreno", "superficie", "lote"}, exclude: []string{"construccion"}}
	synConstr    = fieldSynonyms{include: []string{"construccion", "construida", "construido"}, exclude: []string{"ano"}}
	synYearBuilt = fieldSynonyms{include: []string{"ano de construccion", "construido en", "year built"}}
	synAge       = fieldSynonyms{include: []string{"antiguedad", "edad"}}
	synType      = fieldSynonyms{include: []string{"tipo de propiedad", "tipo de inmueble", "tipo"}}
	synSale      = fieldSynonyms{include: []string{"precio de venta", "venta"}}
	synRental    = fieldSynonyms{include: []string{"precio de renta", "renta", "alquiler"}}
	synCity      = fieldSynonyms{include: []string{"ciudad", "municipio", "delegacion", "alcaldia"}}
	synState     = fieldSynonyms{include: []string{"estado"}, exclude: []string{"estado de conservacion"}}
	synPostal    = fieldSynonyms{include: []string{"codigo postal", "c.p", "cp"}}
	synHood      = fieldSynonyms{include: []string{"colonia", "fraccionamiento", "barrio"}}
	synStreet    = fieldSynonyms{include: []string{"direccion", "calle"}}
)

// panelValue finds the first panel entry whose normalized label contains
// one of the synonyms (and none of the exclusions).
func panelValue(panel map[string]string, syn fieldSynonyms) (string, bool) {
	for label, value := range panel {
		n := Normalize(label)
		if n == "" {
			continue
		}
		excluded := false
		for _, ex := range syn.exclude {
			if strings.Contains(n, ex) {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}
		for _, in := range syn.include {
			if strings.Contains(n, in) {
				v := strings.TrimSpace(value)
				if v != "" {
					return v, true
				}
			}
		}
	}
	return "", false
}

var numberToken = regexp.MustCompile(`[\d][\d.,]*`)

// ParseNumber extracts the first numeric token from s, tolerating
// thousands separators and decimal points interchangeably. A trailing
// separator group of one or two digits is read as a decimal part;
// everything else is a thousands separator.
func ParseNumber(s string) (float64, bool) {
	tok := numberToken.FindString(s)
	if tok == "" {
		return 0, false
	}
	tok = strings.Trim(tok, ".,")

	lastSep := strings.LastIndexAny(tok, ".,")
	var intPart, fracPart string
	if lastSep >= 0 && len(tok)-lastSep-1 <= 2 {
		intPart, fracPart = tok[:lastSep], tok[lastSep+1:]
	} else {
		intPart = tok
	}
	intPart = strings.Map(func(r rune) rune {
		if r == '.' || r == ',' {
			return -1
		}
		return r
	}, intPart)

	cleaned := intPart
	if fracPart != "" {
		cleaned += "." + fracPart
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseCount parses a small integer field (rooms, floors, spaces),
// discarding non-numeric leftovers.
func ParseCount(s string) (int, bool) {
	f, ok := ParseNumber(s)
	if !ok || f < 0 || f > 1000 {
		return 0, false
	}
	return int(f), true
}

// The $-terminated tokens take no trailing boundary: \b does not exist
// between "$" and a following space.
var currencyToken = regexp.MustCompile(`(?i)\b(us\$|mx\$|usd\b|dls\b|dolares\b|mxn\b|mn\b|pesos\b)`)

// ParsePrice extracts an amount and currency from a price string.
// An explicit currency token wins; a bare "$" with no other marker
// defaults to MXN (documented assumption for this source system).
func ParsePrice(s string) (amount float64, currency string, ok bool) {
	amount, ok = ParseNumber(s)
	if !ok || amount <= 0 {
		return 0, "", false
	}
	currency = models.CurrencyMXN
	if m := currencyToken.FindString(s); m != "" {
		switch strings.ToLower(strings.TrimSuffix(m, "$")) {
		case "usd", "us", "dls", "dolares":
			currency = models.CurrencyUSD
		}
	}
	return amount, currency, true
}

// Corpus regexes. All run against accent-preserving source text, so the
// patterns accept both accented and plain spellings.
var (
	reSale      = regexp.MustCompile(`(?i)venta[^\d$]{0,20}((?:mx|us)?\$|usd|mxn)?\s*([\d][\d.,]*)\s*(usd|mxn|dls|pesos)?`)
	reRental    = regexp.MustCompile(`(?i)(?:renta|alquiler)[^\d$]{0,20}((?:mx|us)?\$|usd|mxn)?\s*([\d][\d.,]*)\s*(usd|mxn|dls|pesos)?`)
	reBedrooms  = regexp.MustCompile(`(?i)(\d+)\s*(?:rec[aá]maras?|habitaciones?|cuartos?|dormitorios?)`)
	reBathrooms = regexp.MustCompile(`(?i)(\d+(?:[.,]5)?)\s*ba[ñn]os?`)
	reHalfBaths = regexp.MustCompile(`(?i)(\d+)\s*medios?\s*ba[ñn]os?`)
	reFloors    = regexp.MustCompile(`(?i)(\d+)\s*(?:pisos?|niveles?|plantas?)\b`)
	reParking   = regexp.MustCompile(`(?i)(\d+)\s*(?:estacionamientos?|caj[oó]n(?:es)?|cocheras?|lugares?\s+de\s+estacionamiento|autos?\b)`)
	reLotSize   = regexp.MustCompile(`(?i)(?:terreno|lote|superficie)\D{0,15}([\d][\d.,]*)\s*m`)
	reLotSize2  = regexp.MustCompile(`(?i)([\d][\d.,]*)\s*m[²2]?\s*de\s*terreno`)
	reConstr    = regexp.MustCompile(`(?i)construcci[oó]n\D{0,15}([\d][\d.,]*)\s*m`)
	reConstr2   = regexp.MustCompile(`(?i)([\d][\d.,]*)\s*m[²2]?\s*de\s*construcci[oó]n`)
	reYearBuilt = regexp.MustCompile(`(?i)(?:construid[oa]\s+en|a[ñn]o\s+(?:de\s+)?construcci[oó]n\D{0,5})\s*(\d{4})`)
	reAge       = regexp.MustCompile(`(?i)(?:(\d+)\s*a[ñn]os\s*de\s*antig[üu]edad|antig[üu]edad\D{0,8}(\d+))`)
)

// corpusThenFeatures runs the regex over the free-text corpus and, when
// that yields nothing, over each short feature item.
func corpusThenFeatures(re *regexp.Regexp, src Source) []string {
	if m := re.FindStringSubmatch(src.Corpus); m != nil {
		return m
	}
	for _, f := range src.Features {
		if m := re.FindStringSubmatch(f); m != nil {
			return m
		}
	}
	return nil
}

// countField resolves an integer attribute through the full precedence
// chain: panel label, corpus regex, feature items.
func countField(src Source, syn fieldSynonyms, re *regexp.Regexp) *int {
	if v, ok := panelValue(src.Panel, syn); ok {
		if n, ok := ParseCount(v); ok {
			return &n
		}
	}
	if m := corpusThenFeatures(re, src); m != nil {
		if n, ok := ParseCount(m[1]); ok {
			return &n
		}
	}
	return nil
}

func sizeField(src Source, syn fieldSynonyms, res ...*regexp.Regexp) *float64 {
	if v, ok := panelValue(src.Panel, syn); ok {
		if f, ok := ParseNumber(v); ok && f > 0 {
			return &f
		}
	}
	for _, re := range res {
		if m := corpusThenFeatures(re, src); m != nil {
			if f, ok := ParseNumber(m[1]); ok && f > 0 {
				return &f
			}
		}
	}
	return nil
}

func operationField(src Source, kind string, syn fieldSynonyms, re *regexp.Regexp) *models.Operation {
	if v, ok := panelValue(src.Panel, syn); ok {
		if amount, currency, ok := ParsePrice(v); ok {
			return &models.Operation{Kind: kind, Amount: amount, Currency: currency}
		}
	}
	if m := corpusThenFeatures(re, src); m != nil {
		if amount, currency, ok := ParsePrice(m[0]); ok {
			return &models.Operation{Kind: kind, Amount: amount, Currency: currency}
		}
	}
	return nil
}

// Apply fills the typed attributes of l from the raw signals in src.
// Fields that already carry a value are left alone; extraction that
// yields nothing leaves the field unset rather than failing.
func Apply(l *models.ScrapedListing, src Source) {
	if l.PropertyType == "" {
		if v, ok := panelValue(src.Panel, synType); ok {
			l.PropertyType = v
		} else if l.Title != "" {
			l.PropertyType = l.Title
		}
	}

	if l.Sale == nil {
		l.Sale = operationField(src, models.OpSale, synSale, reSale)
	}
	if l.Rental == nil {
		l.Rental = operationField(src, models.OpRental, synRental, reRental)
	}

	if l.Bedrooms == nil {
		l.Bedrooms = countField(src, synBedrooms, reBedrooms)
	}
	if l.HalfBathrooms == nil {
		l.HalfBathrooms = countField(src, synHalfBaths, reHalfBaths)
	}
	if l.Bathrooms == nil {
		l.Bathrooms = bathroomsField(src)
	}
	if l.Floors == nil {
		l.Floors = countField(src, synFloors, reFloors)
	}
	if l.ParkingSpaces == nil {
		l.ParkingSpaces = countField(src, synParking, reParking)
	}
	if l.LotSizeSqm == nil {
		l.LotSizeSqm = sizeField(src, synLotSize, reLotSize, reLotSize2)
	}
	if l.ConstructionSqm == nil {
		l.ConstructionSqm = sizeField(src, synConstr, reConstr, reConstr2)
	}

	applyYearAndAge(l, src)
	applyLocation(l, src)
}

// bathroomsField is countField for full bathrooms, with care not to
// swallow the "medios baños" rows/phrases that belong to HalfBathrooms.
func bathroomsField(src Source) *int {
	if v, ok := panelValue(src.Panel, synBathrooms); ok {
		if n, ok := ParseCount(v); ok {
			return &n
		}
	}
	corpus := reHalfBaths.ReplaceAllString(src.Corpus, "")
	if m := reBathrooms.FindStringSubmatch(corpus); m != nil {
		if n, ok := ParseCount(m[1]); ok {
			return &n
		}
	}
	for _, f := range src.Features {
		if reHalfBaths.MatchString(f) {
			continue
		}
		if m := reBathrooms.FindStringSubmatch(f); m != nil {
			if n, ok := ParseCount(m[1]); ok {
				return &n
			}
		}
	}
	return nil
}

func applyYearAndAge(l *models.ScrapedListing, src Source) {
	if l.YearBuilt == nil {
		if v, ok := panelValue(src.Panel, synYearBuilt); ok {
			if f, ok := ParseNumber(v); ok && f >= 1800 && f <= 2100 {
				y := int(f)
				l.YearBuilt = &y
			}
		}
		if l.YearBuilt == nil {
			if m := corpusThenFeatures(reYearBuilt, src); m != nil {
				if f, ok := ParseNumber(m[1]); ok && f >= 1800 && f <= 2100 {
					y := int(f)
					l.YearBuilt = &y
				}
			}
		}
	}
	if l.Age == nil && l.YearBuilt == nil {
		if v, ok := panelValue(src.Panel, synAge); ok {
			if n, ok := ParseCount(v); ok {
				l.Age = &n
			}
		}
		if l.Age == nil {
			if m := corpusThenFeatures(reAge, src); m != nil {
				tok := m[1]
				if tok == "" {
					tok = m[2]
				}
				if n, ok := ParseCount(tok); ok {
					l.Age = &n
				}
			}
		}
	}
	DeriveAge(l, time.Now().Year())
}

// DeriveAge cross-derives yearBuilt and age. YearBuilt, when present, is
// authoritative: a disagreeing explicit age is overwritten.
func DeriveAge(l *models.ScrapedListing, currentYear int) {
	if l.YearBuilt != nil {
		age := currentYear - *l.YearBuilt
		if age < 0 {
			age = 0
		}
		l.Age = &age
		return
	}
	if l.Age != nil {
		y := currentYear - *l.Age
		l.YearBuilt = &y
	}
}

func applyLocation(l *models.ScrapedListing, src Source) {
	if l.City == "" {
		if v, ok := panelValue(src.Panel, synCity); ok {
			l.City = v
		}
	}
	if l.State == "" {
		if v, ok := panelValue(src.Panel, synState); ok {
			l.State = v
		}
	}
	if l.PostalCode == "" {
		if v, ok := panelValue(src.Panel, synPostal); ok {
			if pc := FindPostalCode(v); pc != "" {
				l.PostalCode = pc
			}
		}
	}
	if l.Neighborhood == "" {
		if v, ok := panelValue(src.Panel, synHood); ok {
			l.Neighborhood = v
		}
	}
	if l.Street == "" {
		if v, ok := panelValue(src.Panel, synStreet); ok {
			l.Street = v
		}
	}

	if l.Street == "" || l.Neighborhood == "" {
		inferred := InferAddress(src.Corpus)
		if l.Street == "" {
			l.Street = inferred.Street
		}
		if l.Neighborhood == "" {
			l.Neighborhood = inferred.Neighborhood
		}
		if l.City == "" {
			l.City = inferred.City
		}
	}
}
