package dedupe

import (
	"database/sql"
	"testing"

	"listing-importer/internal/models"
)

func record(id int64, publicID, title string) models.CanonicalRecord {
	return models.CanonicalRecord{ID: id, PublicID: publicID, Title: title}
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func TestMatchExactTitle(t *testing.T) {
	idx := NewIndex([]models.CanonicalRecord{
		record(1, "EB-100", "Casa en Coyoacán (CV-1042)"),
	})

	// Same listing seen without its embedded code and with different
	// casing/accents still matches exactly.
	l := &models.ScrapedListing{Title: "casa en coyoacan"}
	d := idx.Match(l)

	if !d.Duplicate || !d.Exact {
		t.Fatalf("Match = %+v, want exact duplicate", d)
	}
	if d.MatchedID != 1 || d.PublicID != "EB-100" {
		t.Errorf("matched %d/%s, want 1/EB-100", d.MatchedID, d.PublicID)
	}
}

func TestMatchSoftContainment(t *testing.T) {
	rec := record(2, "EB-200", "Bonita casa en venta Polanco")
	rec.Location = nullStr("Polanco, CDMX")
	rec.PropertyType = nullStr("Casa")
	idx := NewIndex([]models.CanonicalRecord{rec})

	// Longer title containing the canonical one; location unknown on the
	// scraped side never disqualifies.
	l := &models.ScrapedListing{
		Title:        "Bonita casa en venta Polanco con jardín",
		PropertyType: "Residencia",
	}
	d := idx.Match(l)

	if !d.Duplicate {
		t.Fatal("expected soft duplicate")
	}
	if d.Exact {
		t.Error("containment match should not be exact")
	}
}

func TestMatchRejectsDifferentBedrooms(t *testing.T) {
	rec := record(3, "EB-300", "Departamento Roma Norte")
	rec.Bedrooms = sql.NullInt64{Int64: 3, Valid: true}
	idx := NewIndex([]models.CanonicalRecord{rec})

	two := 2
	l := &models.ScrapedListing{
		Title:    "Departamento Roma Norte amueblado",
		Bedrooms: &two,
	}

	if d := idx.Match(l); d.Duplicate {
		t.Errorf("Match = %+v, want no duplicate when bedrooms disagree", d)
	}
}

func TestMatchRejectsDifferentType(t *testing.T) {
	rec := record(4, "EB-400", "Venta Lomas de Angelópolis")
	rec.PropertyType = nullStr("Terreno")
	idx := NewIndex([]models.CanonicalRecord{rec})

	l := &models.ScrapedListing{
		Title:        "Venta Lomas de Angelópolis residencial",
		PropertyType: "Casa",
	}

	if d := idx.Match(l); d.Duplicate {
		t.Errorf("Match = %+v, want no duplicate when property types disagree", d)
	}
}

func TestMatchUnknownFieldsNeverDisqualify(t *testing.T) {
	rec := record(5, "EB-500", "Oficina Reforma 222")
	idx := NewIndex([]models.CanonicalRecord{rec})

	// Canonical record has no location, type or bedrooms on file; the
	// scraped side has all three. Title containment alone decides.
	three := 3
	l := &models.ScrapedListing{
		Title:        "Oficina Reforma 222 piso 4",
		PropertyType: "Oficina",
		City:         "Ciudad de México",
		Bedrooms:     &three,
	}

	if d := idx.Match(l); !d.Duplicate {
		t.Error("expected duplicate: unknown canonical fields must not disqualify")
	}
}

func TestMatchLocationDisagreement(t *testing.T) {
	rec := record(6, "EB-600", "Casa equipada en esquina")
	rec.Location = nullStr("Guadalajara, Jalisco")
	idx := NewIndex([]models.CanonicalRecord{rec})

	l := &models.ScrapedListing{
		Title: "Casa equipada en esquina",
		City:  "Monterrey",
	}
	// Exact title match wins before the soft-location check even runs.
	if d := idx.Match(l); !d.Duplicate || !d.Exact {
		t.Fatalf("Match = %+v, want exact duplicate", d)
	}

	// Force the soft path with a longer title: now the disagreeing
	// locations block the match.
	l2 := &models.ScrapedListing{
		Title: "Casa equipada en esquina remodelada",
		City:  "Monterrey",
	}
	if d := idx.Match(l2); d.Duplicate {
		t.Errorf("Match = %+v, want no duplicate across cities", d)
	}
}

func TestMatchNoCandidates(t *testing.T) {
	idx := NewIndex(nil)
	if d := idx.Match(&models.ScrapedListing{Title: "Casa nueva"}); d.Duplicate {
		t.Errorf("Match on empty index = %+v", d)
	}
	if idx.Size() != 0 {
		t.Errorf("Size = %d, want 0", idx.Size())
	}
}

func TestNewIndexSkipsEmptyTitles(t *testing.T) {
	idx := NewIndex([]models.CanonicalRecord{
		record(7, "EB-700", ""),
		record(8, "EB-800", "Casa real"),
	})
	if idx.Size() != 1 {
		t.Errorf("Size = %d, want 1", idx.Size())
	}
}
