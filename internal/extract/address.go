package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// InferredAddress is the result of scanning free text for address parts
// when no structured address exists.
type InferredAddress struct {
	Street       string
	ExteriorNum  string
	Neighborhood string
	City         string
}

var (
	reDirectionLabel = regexp.MustCompile(`(?i)direcci[oó]n\s*[:\-]\s*(.+)`)
	reStreetKeyword  = regexp.MustCompile(`(?i)\b(av\.?|ave\.?|avenida|blvd\.?|boulevard|calle|calz\.?|calzada|privada|priv\.?|camino|carretera|andador|paseo|prolongaci[oó]n)\b`)
	reExteriorNum    = regexp.MustCompile(`(?i)(?:no\.?|n[uú]m\.?|#)\s*(\d+[a-zA-Z]?(?:\s*[-/]\s*\d+[a-zA-Z]?)?)`)
)

// Maximum length of the fragment taken as a neighborhood, to avoid
// capturing unrelated prose before a city name.
const maxNeighborhoodLen = 40

// InferAddress scans a free-text corpus for an address line and a
// neighborhood fragment. Every field of the result may be empty.
func InferAddress(corpus string) InferredAddress {
	var out InferredAddress

	for _, line := range strings.Split(corpus, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := reDirectionLabel.FindStringSubmatch(line); m != nil {
			out.Street = trimAddressLine(m[1])
			break
		}
		if out.Street == "" && reStreetKeyword.MatchString(line) && len(line) < 120 {
			out.Street = trimAddressLine(line)
		}
	}

	if out.Street != "" {
		if m := reExteriorNum.FindStringSubmatch(out.Street); m != nil {
			out.ExteriorNum = strings.TrimSpace(m[1])
		}
	}

	norm := Normalize(corpus)
	if place, idx := KnownPlace(norm); idx >= 0 {
		out.City = place
		frag := norm[:idx]
		if cut := strings.LastIndexAny(frag, ".;\n"); cut >= 0 {
			frag = frag[cut+1:]
		}
		frag = strings.Trim(frag, " ,-")
		if len(frag) > maxNeighborhoodLen {
			frag = frag[len(frag)-maxNeighborhoodLen:]
			if sp := strings.IndexByte(frag, ' '); sp >= 0 {
				frag = frag[sp+1:]
			}
		}
		frag = strings.TrimPrefix(frag, "col ")
		frag = strings.TrimPrefix(frag, "colonia ")
		frag = strings.Trim(frag, " ,-")
		if frag != "" && len(frag) >= 3 {
			out.Neighborhood = frag
		}
	}

	return out
}

func trimAddressLine(s string) string {
	s = strings.TrimSpace(s)
	if cut := strings.IndexAny(s, ".;"); cut > 10 {
		s = s[:cut]
	}
	return strings.TrimSpace(s)
}

var (
	reCoordPair  = regexp.MustCompile(`(-?\d{1,3}\.\d{4,})\s*,\s*(-?\d{1,3}\.\d{4,})`)
	rePostalCode = regexp.MustCompile(`\b(\d{5})\b`)
)

// FindCoordinates scans text for a latitude,longitude pair. Values are
// range-checked so stray decimals do not pass as coordinates.
func FindCoordinates(text string) (lat, lng float64, ok bool) {
	for _, m := range reCoordPair.FindAllStringSubmatch(text, -1) {
		la, err1 := strconv.ParseFloat(m[1], 64)
		ln, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil && la >= -90 && la <= 90 && ln >= -180 && ln <= 180 && (la != 0 || ln != 0) {
			return la, ln, true
		}
	}
	return 0, 0, false
}

// FindPostalCode returns the first 5-digit postal code in text.
func FindPostalCode(text string) string {
	if m := rePostalCode.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
