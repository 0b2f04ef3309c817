package db

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"listing-importer/internal/models"
)

// LoadForeignRecords returns every canonical record NOT created by the
// import engine, i.e. the rows the deduplication index is built from.
func (db *DB) LoadForeignRecords() ([]models.CanonicalRecord, error) {
	var records []models.CanonicalRecord
	err := db.Select(&records, `
		SELECT id, public_id, title, location, property_type, status,
		       bedrooms, bathrooms, half_baths, floors, parking,
		       lot_size_sqm, constr_sqm, year_built, latitude, longitude,
		       operations, images, raw_payload, created_at
		FROM listings
		WHERE public_id NOT LIKE ?
	`, models.EnginePrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to load foreign records: %w", err)
	}
	return records, nil
}

// HasEngineRecord reports whether an engine-owned record already exists
// for any of the candidate public ids, or whether any engine-owned raw
// payload mentions one of the raw identifiers. This is the cross-run
// duplicate guard: the in-memory dedup index only covers foreign
// records, so it cannot catch the engine's own earlier writes.
func (db *DB) HasEngineRecord(candidates, identifiers []string) (bool, error) {
	if len(candidates) > 0 {
		query, args, err := sqlx.In(
			`SELECT COUNT(*) FROM listings WHERE public_id IN (?)`, candidates)
		if err != nil {
			return false, err
		}
		var n int
		if err := db.Get(&n, db.Rebind(query), args...); err != nil {
			return false, fmt.Errorf("failed to check public ids: %w", err)
		}
		if n > 0 {
			return true, nil
		}
	}

	for _, id := range identifiers {
		if id == "" {
			continue
		}
		var n int
		err := db.Get(&n, `
			SELECT COUNT(*) FROM listings
			WHERE public_id LIKE ? AND raw_payload LIKE ? ESCAPE '\'
		`, models.EnginePrefix+"%", "%"+escapeLike(id)+"%")
		if err != nil {
			return false, fmt.Errorf("failed to search raw payloads: %w", err)
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

// CreateIfAbsent inserts the record unless the duplicate guard finds an
// earlier engine-owned write for the same listing. Creation only; this
// engine never updates or deletes a canonical record.
func (db *DB) CreateIfAbsent(rec *models.CanonicalRecord, identifiers []string) (bool, error) {
	candidates := append([]string{rec.PublicID}, models.PublicIDCandidates(identifiers...)...)
	exists, err := db.HasEngineRecord(candidates, identifiers)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	res, err := db.Exec(`
		INSERT INTO listings (
			public_id, title, location, property_type, status,
			bedrooms, bathrooms, half_baths, floors, parking,
			lot_size_sqm, constr_sqm, year_built, latitude, longitude,
			operations, images, raw_payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.PublicID, rec.Title, rec.Location, rec.PropertyType, rec.Status,
		rec.Bedrooms, rec.Bathrooms, rec.HalfBaths, rec.Floors, rec.Parking,
		rec.LotSizeSqm, rec.ConstrSqm, rec.YearBuilt, rec.Latitude, rec.Longitude,
		rec.Operations, rec.Images, rec.RawPayload, rec.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert %s: %w", rec.PublicID, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	return true, nil
}

// RecordFilter contains the filter parameters for inventory queries.
type RecordFilter struct {
	Status       string
	PropertyType string
	EngineOnly   bool
	ForeignOnly  bool
	MinAmount    *float64
	MaxAmount    *float64
	Currency     string
	Limit        int
	Offset       int
}

// ListRecords returns canonical records matching the given filters.
func (db *DB) ListRecords(f RecordFilter) ([]models.CanonicalRecord, error) {
	query := `
		SELECT id, public_id, title, location, property_type, status,
		       bedrooms, bathrooms, half_baths, floors, parking,
		       lot_size_sqm, constr_sqm, year_built, latitude, longitude,
		       operations, images, raw_payload, created_at
		FROM listings WHERE 1=1
	`
	args := make([]interface{}, 0)

	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.PropertyType != "" {
		query += " AND property_type = ?"
		args = append(args, f.PropertyType)
	}
	if f.EngineOnly {
		query += " AND public_id LIKE ?"
		args = append(args, models.EnginePrefix+"%")
	}
	if f.ForeignOnly {
		query += " AND public_id NOT LIKE ?"
		args = append(args, models.EnginePrefix+"%")
	}
	if f.Currency != "" {
		query += " AND operations LIKE ?"
		args = append(args, `%"currency":"`+f.Currency+`"%`)
	}
	if f.MinAmount != nil {
		query += ` AND EXISTS (SELECT 1 FROM json_each(listings.operations)
			WHERE CAST(json_extract(json_each.value, '$.amount') AS REAL) >= ?)`
		args = append(args, *f.MinAmount)
	}
	if f.MaxAmount != nil {
		query += ` AND EXISTS (SELECT 1 FROM json_each(listings.operations)
			WHERE CAST(json_extract(json_each.value, '$.amount') AS REAL) <= ?)`
		args = append(args, *f.MaxAmount)
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY id LIMIT %d", limit)
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", f.Offset)
	}

	var records []models.CanonicalRecord
	if err := db.Select(&records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}

// GetByPublicID returns a single record by its public id.
func (db *DB) GetByPublicID(publicID string) (*models.CanonicalRecord, error) {
	var rec models.CanonicalRecord
	err := db.Get(&rec, `
		SELECT id, public_id, title, location, property_type, status,
		       bedrooms, bathrooms, half_baths, floors, parking,
		       lot_size_sqm, constr_sqm, year_built, latitude, longitude,
		       operations, images, raw_payload, created_at
		FROM listings WHERE public_id = ?
	`, publicID)
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", publicID, err)
	}
	return &rec, nil
}

// StatusCount is one row of the stats rollup.
type StatusCount struct {
	Status string `db:"status" json:"status"`
	Count  int    `db:"n" json:"count"`
}

// Stats returns inventory counts split by provenance and status.
func (db *DB) Stats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var total, engine int
	if err := db.Get(&total, "SELECT COUNT(*) FROM listings"); err != nil {
		return nil, err
	}
	if err := db.Get(&engine, "SELECT COUNT(*) FROM listings WHERE public_id LIKE ?",
		models.EnginePrefix+"%"); err != nil {
		return nil, err
	}
	stats["total"] = total
	stats["engine_owned"] = engine
	stats["foreign"] = total - engine

	var byStatus []StatusCount
	if err := db.Select(&byStatus,
		"SELECT status, COUNT(*) AS n FROM listings GROUP BY status ORDER BY n DESC"); err != nil {
		return nil, err
	}
	stats["by_status"] = byStatus

	return stats, nil
}

// escapeLike escapes LIKE wildcards in scraped identifiers so they
// match literally under ESCAPE '\'.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}
