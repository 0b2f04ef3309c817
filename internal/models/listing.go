package models

import (
	"database/sql"
	"time"
)

// Listing status as read from the status marker on the list card.
const (
	StatusAvailable = "available"
	StatusRetired   = "retired"
	StatusUnknown   = "unknown"
)

// Operation kinds.
const (
	OpSale   = "sale"
	OpRental = "rental"
)

// Currencies recognized by the price parser.
const (
	CurrencyMXN = "MXN"
	CurrencyUSD = "USD"
)

// Operation is a single financial operation offered on a listing.
type Operation struct {
	Kind     string  `json:"kind"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// ScrapedListing is the in-memory result of extracting one listing card.
// Every field except Title, Page and IndexOnPage is optional; different
// sources on the same page may each populate a different subset.
type ScrapedListing struct {
	SourceID    string `json:"source_id,omitempty"`
	Code        string `json:"code,omitempty"`
	Page        int    `json:"page"`
	IndexOnPage int    `json:"index_on_page"`

	Title        string `json:"title"`
	PropertyType string `json:"property_type,omitempty"`
	Status       string `json:"status"`

	Neighborhood string   `json:"neighborhood,omitempty"`
	City         string   `json:"city,omitempty"`
	State        string   `json:"state,omitempty"`
	Country      string   `json:"country,omitempty"`
	PostalCode   string   `json:"postal_code,omitempty"`
	Street       string   `json:"street,omitempty"`
	CrossStreet  string   `json:"cross_street,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`

	Sale   *Operation `json:"sale,omitempty"`
	Rental *Operation `json:"rental,omitempty"`

	Bedrooms        *int     `json:"bedrooms,omitempty"`
	Bathrooms       *int     `json:"bathrooms,omitempty"`
	HalfBathrooms   *int     `json:"half_bathrooms,omitempty"`
	Floors          *int     `json:"floors,omitempty"`
	ParkingSpaces   *int     `json:"parking_spaces,omitempty"`
	LotSizeSqm      *float64 `json:"lot_size_sqm,omitempty"`
	ConstructionSqm *float64 `json:"construction_sqm,omitempty"`
	YearBuilt       *int     `json:"year_built,omitempty"`
	Age             *int     `json:"age,omitempty"`

	// Images are in display order; the first one is the cover.
	Images      []string `json:"images"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Videos      []string `json:"videos,omitempty"`
	DetailURL   string   `json:"detail_url,omitempty"`

	// Panel holds the structured key/value rows exactly as harvested,
	// kept so the record can be re-derived later.
	Panel map[string]string `json:"panel,omitempty"`
}

// Viable reports whether the listing clears the minimum bar for
// persistence: a title and at least one image.
func (l *ScrapedListing) Viable() bool {
	return l.Title != "" && len(l.Images) > 0
}

// LocationText joins the populated location parts into the single
// location string stored on the canonical record.
func (l *ScrapedListing) LocationText() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{l.Neighborhood, l.City, l.State, l.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// CanonicalRecord is a persisted listing row. Records created by the
// import engine carry the engine prefix on PublicID; records sourced
// elsewhere do not.
type CanonicalRecord struct {
	ID           int64           `db:"id" json:"id"`
	PublicID     string          `db:"public_id" json:"public_id"`
	Title        string          `db:"title" json:"title"`
	Location     sql.NullString  `db:"location" json:"location"`
	PropertyType sql.NullString  `db:"property_type" json:"property_type"`
	Status       string          `db:"status" json:"status"`
	Bedrooms     sql.NullInt64   `db:"bedrooms" json:"bedrooms"`
	Bathrooms    sql.NullInt64   `db:"bathrooms" json:"bathrooms"`
	HalfBaths    sql.NullInt64   `db:"half_baths" json:"half_baths"`
	Floors       sql.NullInt64   `db:"floors" json:"floors"`
	Parking      sql.NullInt64   `db:"parking" json:"parking"`
	LotSizeSqm   sql.NullFloat64 `db:"lot_size_sqm" json:"lot_size_sqm"`
	ConstrSqm    sql.NullFloat64 `db:"constr_sqm" json:"constr_sqm"`
	YearBuilt    sql.NullInt64   `db:"year_built" json:"year_built"`
	Latitude     sql.NullFloat64 `db:"latitude" json:"latitude"`
	Longitude    sql.NullFloat64 `db:"longitude" json:"longitude"`
	Operations   sql.NullString  `db:"operations" json:"operations"` // JSON array
	Images       sql.NullString  `db:"images" json:"images"`         // JSON array
	RawPayload   sql.NullString  `db:"raw_payload" json:"-"`         // JSON snapshot
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// IndexEntry is one pre-existing canonical record as seen by the
// deduplication index. Built once per run, read-only afterwards.
type IndexEntry struct {
	ID               int64
	PublicID         string
	TitleNorm        string
	LocNorm          string
	Bedrooms         *int
	PropertyTypeNorm string
}
