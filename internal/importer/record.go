package importer

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"listing-importer/internal/extract"
	"listing-importer/internal/models"
)

// BuildRecord converts a viable ScrapedListing into the canonical row
// to insert, plus the raw identifiers the cross-run duplicate guard
// substring-searches stored payloads for.
func BuildRecord(l *models.ScrapedListing) (*models.CanonicalRecord, []string, error) {
	publicID := models.EnginePublicID(l.Code, l.SourceID)
	if publicID == "" {
		// No source id and no embedded code: fall back to a stable
		// title slug so re-runs still resolve to the same public id.
		publicID = models.EnginePrefix + titleSlug(l.Title)
	}

	rec := &models.CanonicalRecord{
		PublicID:  publicID,
		Title:     l.Title,
		Status:    l.Status,
		CreatedAt: time.Now(),
	}

	if loc := l.LocationText(); loc != "" {
		rec.Location = sql.NullString{String: loc, Valid: true}
	}
	if t := extract.NormalizePropertyType(l.PropertyType); t != "" {
		rec.PropertyType = sql.NullString{String: t, Valid: true}
	}
	rec.Bedrooms = nullInt(l.Bedrooms)
	rec.Bathrooms = nullInt(l.Bathrooms)
	rec.HalfBaths = nullInt(l.HalfBathrooms)
	rec.Floors = nullInt(l.Floors)
	rec.Parking = nullInt(l.ParkingSpaces)
	rec.LotSizeSqm = nullFloat(l.LotSizeSqm)
	rec.ConstrSqm = nullFloat(l.ConstructionSqm)
	rec.YearBuilt = nullInt(l.YearBuilt)
	rec.Latitude = nullFloat(l.Latitude)
	rec.Longitude = nullFloat(l.Longitude)

	var ops []models.Operation
	if l.Sale != nil {
		ops = append(ops, *l.Sale)
	}
	if l.Rental != nil {
		ops = append(ops, *l.Rental)
	}
	if len(ops) > 0 {
		b, err := json.Marshal(ops)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to serialize operations: %w", err)
		}
		rec.Operations = sql.NullString{String: string(b), Valid: true}
	}

	if len(l.Images) > 0 {
		b, err := json.Marshal(l.Images)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to serialize images: %w", err)
		}
		rec.Images = sql.NullString{String: string(b), Valid: true}
	}

	// The raw payload is the whole scraped listing: audit trail and the
	// substrate for re-deriving fields without another scrape.
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to serialize raw payload: %w", err)
	}
	rec.RawPayload = sql.NullString{String: string(raw), Valid: true}

	identifiers := make([]string, 0, 2)
	if l.Code != "" {
		identifiers = append(identifiers, l.Code)
	}
	if l.SourceID != "" {
		identifiers = append(identifiers, l.SourceID)
	}

	return rec, identifiers, nil
}

func titleSlug(title string) string {
	n := extract.NormalizeTitle(title)
	slug := make([]rune, 0, 24)
	for _, r := range n {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			slug = append(slug, r)
		case r == ' ':
			slug = append(slug, '-')
		}
		if len(slug) >= 24 {
			break
		}
	}
	return string(slug)
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
