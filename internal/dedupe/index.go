package dedupe

import (
	"strings"

	"listing-importer/internal/extract"
	"listing-importer/internal/models"
)

// Index is the run-scoped view of canonical records that were NOT
// created by this engine. It is built once at run start and read-only
// afterwards.
type Index struct {
	entries []models.IndexEntry
	byTitle map[string]*models.IndexEntry
}

// Decision is the outcome of matching one scraped listing against the
// index.
type Decision struct {
	Duplicate bool
	Exact     bool
	MatchedID int64
	PublicID  string
}

// NewIndex normalizes the given records into a matchable index.
func NewIndex(records []models.CanonicalRecord) *Index {
	idx := &Index{
		entries: make([]models.IndexEntry, 0, len(records)),
		byTitle: make(map[string]*models.IndexEntry, len(records)),
	}
	for _, r := range records {
		e := models.IndexEntry{
			ID:        r.ID,
			PublicID:  r.PublicID,
			TitleNorm: extract.NormalizeTitle(r.Title),
		}
		if r.Location.Valid {
			e.LocNorm = extract.NormalizeLocation(r.Location.String)
		}
		if r.PropertyType.Valid {
			e.PropertyTypeNorm = extract.NormalizePropertyType(r.PropertyType.String)
		}
		if r.Bedrooms.Valid {
			b := int(r.Bedrooms.Int64)
			e.Bedrooms = &b
		}
		if e.TitleNorm == "" {
			continue
		}
		idx.entries = append(idx.entries, e)
		idx.byTitle[e.TitleNorm] = &idx.entries[len(idx.entries)-1]
	}
	return idx
}

// Size returns the number of indexed canonical records.
func (idx *Index) Size() int { return len(idx.entries) }

// Match decides whether the scraped listing already exists in the
// canonical inventory. Exact normalized-title equality wins; otherwise
// a permissive soft match applies: mutually containing titles, plus
// location / property type / bedrooms agreement wherever both sides
// know the value. Unknown fields never disqualify.
func (idx *Index) Match(l *models.ScrapedListing) Decision {
	titleNorm := extract.NormalizeTitle(l.Title)
	if titleNorm == "" {
		return Decision{}
	}

	if e, ok := idx.byTitle[titleNorm]; ok {
		return Decision{Duplicate: true, Exact: true, MatchedID: e.ID, PublicID: e.PublicID}
	}

	locNorm := extract.NormalizeLocation(l.LocationText())
	typeNorm := extract.NormalizePropertyType(l.PropertyType)

	for i := range idx.entries {
		e := &idx.entries[i]
		if !mutuallyContain(titleNorm, e.TitleNorm) {
			continue
		}
		if locNorm != "" && e.LocNorm != "" && !mutuallyContain(locNorm, e.LocNorm) {
			continue
		}
		if typeNorm != "" && e.PropertyTypeNorm != "" && typeNorm != e.PropertyTypeNorm {
			continue
		}
		if l.Bedrooms != nil && e.Bedrooms != nil && *l.Bedrooms != *e.Bedrooms {
			continue
		}
		return Decision{Duplicate: true, MatchedID: e.ID, PublicID: e.PublicID}
	}
	return Decision{}
}

// mutuallyContain reports whether either string contains the other.
func mutuallyContain(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
