package db

import (
	"database/sql"
	"testing"
	"time"

	"listing-importer/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func engineRecord(publicID, title string) *models.CanonicalRecord {
	return &models.CanonicalRecord{
		PublicID:   publicID,
		Title:      title,
		Status:     models.StatusAvailable,
		RawPayload: sql.NullString{String: `{"title":"` + title + `"}`, Valid: true},
		CreatedAt:  time.Now(),
	}
}

func insertForeign(t *testing.T, database *DB, publicID, title string) {
	t.Helper()
	_, err := database.Exec(`
		INSERT INTO listings (public_id, title, status, created_at)
		VALUES (?, ?, 'available', ?)
	`, publicID, title, time.Now())
	if err != nil {
		t.Fatalf("failed to insert foreign record: %v", err)
	}
}

func TestCreateIfAbsent(t *testing.T) {
	database := openTestDB(t)

	rec := engineRecord("IMP-CV-1042", "Casa en Coyoacán")
	rec.RawPayload = sql.NullString{String: `{"code":"CV-1042"}`, Valid: true}

	created, err := database.CreateIfAbsent(rec, []string{"CV-1042"})
	if err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}
	if !created {
		t.Fatal("first insert should create")
	}
	if rec.ID == 0 {
		t.Error("ID not set after insert")
	}

	// Same public id again: guarded.
	again := engineRecord("IMP-CV-1042", "Casa en Coyoacán")
	created, err = database.CreateIfAbsent(again, nil)
	if err != nil {
		t.Fatalf("CreateIfAbsent second call: %v", err)
	}
	if created {
		t.Error("second insert with same public id should be skipped")
	}

	// Different public id but same raw identifier: the payload search
	// catches the earlier engine write.
	renamed := engineRecord("IMP-OTRA", "Casa en Coyoacán remodelada")
	created, err = database.CreateIfAbsent(renamed, []string{"CV-1042"})
	if err != nil {
		t.Fatalf("CreateIfAbsent with shared identifier: %v", err)
	}
	if created {
		t.Error("insert sharing a raw identifier should be skipped")
	}
}

func TestCreateIfAbsentChecksCandidateIDs(t *testing.T) {
	database := openTestDB(t)

	// First run saw the listing without its code and issued the id from
	// the source id. The payload never mentions the code.
	first := engineRecord("IMP-8123", "Casa en Coyoacán")
	first.RawPayload = sql.NullString{String: `{"source_id":"8123"}`, Valid: true}
	created, err := database.CreateIfAbsent(first, []string{"8123"})
	if err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}
	if !created {
		t.Fatal("first insert should create")
	}

	// Second run resolved the code and issues a different public id, but
	// still carries the source id among its identifiers. The candidate
	// check must catch the earlier write; the payload search cannot.
	second := engineRecord("IMP-CV-1042", "Casa en Coyoacán")
	second.RawPayload = sql.NullString{String: `{"code":"CV-1042"}`, Valid: true}
	created, err = database.CreateIfAbsent(second, []string{"CV-1042", "8123"})
	if err != nil {
		t.Fatalf("CreateIfAbsent second run: %v", err)
	}
	if created {
		t.Error("insert whose identifier maps to an earlier engine id should be skipped")
	}
}

func TestLoadForeignRecordsExcludesEngineRows(t *testing.T) {
	database := openTestDB(t)

	insertForeign(t, database, "EB-100", "Casa externa")
	insertForeign(t, database, "EB-200", "Depto externo")

	if _, err := database.CreateIfAbsent(engineRecord("IMP-XY-1", "Casa importada"), nil); err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}

	foreign, err := database.LoadForeignRecords()
	if err != nil {
		t.Fatalf("LoadForeignRecords: %v", err)
	}
	if len(foreign) != 2 {
		t.Fatalf("got %d foreign records, want 2", len(foreign))
	}
	for _, r := range foreign {
		if r.PublicID == "IMP-XY-1" {
			t.Error("engine-owned record leaked into the dedup index source")
		}
	}
}

func TestHasEngineRecordIgnoresForeignPayloads(t *testing.T) {
	database := openTestDB(t)

	// A foreign record mentioning the identifier must NOT trip the
	// guard; it only covers the engine's own earlier writes.
	_, err := database.Exec(`
		INSERT INTO listings (public_id, title, status, raw_payload, created_at)
		VALUES ('EB-900', 'Casa externa', 'available', '{"ref":"CV-77"}', ?)
	`, time.Now())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	exists, err := database.HasEngineRecord(nil, []string{"CV-77"})
	if err != nil {
		t.Fatalf("HasEngineRecord: %v", err)
	}
	if exists {
		t.Error("foreign payload should not count as an engine record")
	}
}

func TestHasEngineRecordMatchesUnderscoreLiterally(t *testing.T) {
	database := openTestDB(t)

	rec := engineRecord("IMP-CV_1042", "Casa con guión bajo")
	rec.RawPayload = sql.NullString{String: `{"code":"CV_1042"}`, Valid: true}
	if _, err := database.CreateIfAbsent(rec, nil); err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}

	exists, err := database.HasEngineRecord(nil, []string{"CV_1042"})
	if err != nil {
		t.Fatalf("HasEngineRecord: %v", err)
	}
	if !exists {
		t.Error("identifier with underscore should match its own payload")
	}

	// The underscore is a literal, not a single-character wildcard.
	exists, err = database.HasEngineRecord(nil, []string{"CVX1042"})
	if err != nil {
		t.Fatalf("HasEngineRecord: %v", err)
	}
	if exists {
		t.Error("CVX1042 should not match the CV_1042 payload")
	}
}

func TestListRecordsFilters(t *testing.T) {
	database := openTestDB(t)

	insertForeign(t, database, "EB-1", "Casa uno")

	imp := engineRecord("IMP-A-1", "Casa dos")
	imp.Status = models.StatusRetired
	imp.PropertyType = sql.NullString{String: "house", Valid: true}
	imp.Operations = sql.NullString{String: `[{"kind":"sale","amount":2500000,"currency":"MXN"}]`, Valid: true}
	if _, err := database.CreateIfAbsent(imp, nil); err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}

	all, err := database.ListRecords(RecordFilter{})
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d records, want 2", len(all))
	}

	engine, err := database.ListRecords(RecordFilter{EngineOnly: true})
	if err != nil {
		t.Fatalf("ListRecords engine: %v", err)
	}
	if len(engine) != 1 || engine[0].PublicID != "IMP-A-1" {
		t.Errorf("EngineOnly = %v", engine)
	}

	foreign, err := database.ListRecords(RecordFilter{ForeignOnly: true})
	if err != nil {
		t.Fatalf("ListRecords foreign: %v", err)
	}
	if len(foreign) != 1 || foreign[0].PublicID != "EB-1" {
		t.Errorf("ForeignOnly = %v", foreign)
	}

	retired, err := database.ListRecords(RecordFilter{Status: models.StatusRetired})
	if err != nil {
		t.Fatalf("ListRecords status: %v", err)
	}
	if len(retired) != 1 {
		t.Errorf("Status filter returned %d records, want 1", len(retired))
	}

	mxn, err := database.ListRecords(RecordFilter{Currency: "MXN"})
	if err != nil {
		t.Fatalf("ListRecords currency: %v", err)
	}
	if len(mxn) != 1 || mxn[0].PublicID != "IMP-A-1" {
		t.Errorf("Currency filter = %v", mxn)
	}
}

func TestGetByPublicID(t *testing.T) {
	database := openTestDB(t)
	insertForeign(t, database, "EB-55", "Casa buscable")

	rec, err := database.GetByPublicID("EB-55")
	if err != nil {
		t.Fatalf("GetByPublicID: %v", err)
	}
	if rec.Title != "Casa buscable" {
		t.Errorf("Title = %q", rec.Title)
	}

	if _, err := database.GetByPublicID("NO-EXISTE"); err == nil {
		t.Error("expected error for unknown public id")
	}
}

func TestStats(t *testing.T) {
	database := openTestDB(t)

	insertForeign(t, database, "EB-1", "Casa uno")
	insertForeign(t, database, "EB-2", "Casa dos")
	if _, err := database.CreateIfAbsent(engineRecord("IMP-B-1", "Casa tres"), nil); err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}

	stats, err := database.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["total"] != 3 {
		t.Errorf("total = %v, want 3", stats["total"])
	}
	if stats["engine_owned"] != 1 {
		t.Errorf("engine_owned = %v, want 1", stats["engine_owned"])
	}
	if stats["foreign"] != 2 {
		t.Errorf("foreign = %v, want 2", stats["foreign"])
	}
}
