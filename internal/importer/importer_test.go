package importer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"listing-importer/internal/models"
	"listing-importer/internal/scraper"
)

type fakeSource struct {
	pages    [][]scraper.Card
	harvests map[string]*scraper.Harvest // keyed by card SourceID; absent = popup failure
	loginErr error
	cur      int
}

func (f *fakeSource) Login(ctx context.Context) error { return f.loginErr }

func (f *fakeSource) CurrentPage(ctx context.Context) (int, error) { return f.cur + 1, nil }

func (f *fakeSource) Advance(ctx context.Context) (int, error) {
	if f.cur+1 >= len(f.pages) {
		return 0, scraper.ErrNoMorePages
	}
	f.cur++
	return f.cur + 1, nil
}

func (f *fakeSource) Cards(ctx context.Context) ([]scraper.Card, error) {
	return f.pages[f.cur], nil
}

func (f *fakeSource) ExtractCard(ctx context.Context, card scraper.Card) (*scraper.Harvest, scraper.ChainResult, error) {
	h, ok := f.harvests[card.SourceID]
	if !ok {
		return nil, scraper.ChainResult{Attempted: []string{"inline-handler", "synthetic-click"}}, nil
	}
	return h, scraper.ChainResult{Succeeded: "inline-handler", Attempted: []string{"inline-handler"}}, nil
}

func (f *fakeSource) FetchDetail(ctx context.Context, url string) (*scraper.Detail, error) {
	return nil, errors.New("no detail page in tests")
}

type fakeStore struct {
	foreign []models.CanonicalRecord
	created []*models.CanonicalRecord
	seen    map[string]bool
}

func newFakeStore(foreign ...models.CanonicalRecord) *fakeStore {
	return &fakeStore{foreign: foreign, seen: make(map[string]bool)}
}

func (s *fakeStore) LoadForeignRecords() ([]models.CanonicalRecord, error) {
	return s.foreign, nil
}

func (s *fakeStore) CreateIfAbsent(rec *models.CanonicalRecord, identifiers []string) (bool, error) {
	if s.seen[rec.PublicID] {
		return false, nil
	}
	s.seen[rec.PublicID] = true
	s.created = append(s.created, rec)
	return true, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func viableHarvest(corpus string) *scraper.Harvest {
	return &scraper.Harvest{
		Images: []string{"https://cdn.example.mx/1.jpg"},
		Text:   corpus,
	}
}

func standardRun() (*fakeSource, *fakeStore) {
	src := &fakeSource{
		pages: [][]scraper.Card{{
			{Index: 0, SourceID: "101", Title: "Casa en venta Roma Norte (RN-22)", StatusText: "Disponible"},
			{Index: 1, SourceID: "102", Title: "Departamento Polanco (PL-7)", StatusText: "Disponible"},
			{Index: 2, SourceID: "103", Title: "Bodega Vallejo (BD-1)", StatusText: "Disponible"},
			{Index: 3, SourceID: "104", Title: "Casa sin ficha", StatusText: "Disponible"},
		}},
		harvests: map[string]*scraper.Harvest{
			"101": viableHarvest("Hermosa casa con 3 recámaras."),
			"102": viableHarvest("Departamento con 2 recámaras. Venta $3,000,000."),
			// 103 harvests but yields no images, so it fails viability.
			"103": {Text: "Bodega amplia."},
			// 104 absent: every popup strategy fails.
		},
	}

	store := newFakeStore(models.CanonicalRecord{
		ID:       1,
		PublicID: "EB-1",
		Title:    "Casa en venta Roma Norte",
	})
	return src, store
}

func TestRunEndToEnd(t *testing.T) {
	src, store := standardRun()
	imp := New(src, store, testLogger(), 0)

	sum, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.Pages != 1 || sum.Detected != 4 {
		t.Errorf("Pages/Detected = %d/%d, want 1/4", sum.Pages, sum.Detected)
	}
	if sum.Created != 1 {
		t.Errorf("Created = %d, want 1", sum.Created)
	}
	if sum.SkippedDuplicate != 1 {
		t.Errorf("SkippedDuplicate = %d, want 1 (code-stripped title matches canonical)", sum.SkippedDuplicate)
	}
	if sum.SkippedNonviable != 1 {
		t.Errorf("SkippedNonviable = %d, want 1", sum.SkippedNonviable)
	}
	if sum.Failed != 1 {
		t.Errorf("Failed = %d, want 1", sum.Failed)
	}

	if len(store.created) != 1 {
		t.Fatalf("store holds %d records, want 1", len(store.created))
	}
	rec := store.created[0]
	if rec.PublicID != "IMP-PL-7" {
		t.Errorf("PublicID = %q, want IMP-PL-7 derived from the embedded code", rec.PublicID)
	}
	if rec.Status != models.StatusAvailable {
		t.Errorf("Status = %q, want available", rec.Status)
	}

	// The raw payload must round-trip the extracted fields.
	var l models.ScrapedListing
	if err := json.Unmarshal([]byte(rec.RawPayload.String), &l); err != nil {
		t.Fatalf("raw payload does not parse: %v", err)
	}
	if l.Bedrooms == nil || *l.Bedrooms != 2 {
		t.Errorf("payload Bedrooms = %v, want 2", l.Bedrooms)
	}
	if l.Sale == nil || l.Sale.Amount != 3000000 || l.Sale.Currency != models.CurrencyMXN {
		t.Errorf("payload Sale = %+v, want 3000000 MXN", l.Sale)
	}
	if l.Code != "PL-7" {
		t.Errorf("payload Code = %q, want PL-7", l.Code)
	}
}

func TestRunSecondPassCreatesNothing(t *testing.T) {
	src, store := standardRun()
	if _, err := New(src, store, testLogger(), 0).Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Fresh source, same store: everything new from run one is now an
	// earlier engine write and must be skipped.
	src2, _ := standardRun()
	sum, err := New(src2, store, testLogger(), 0).Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if sum.Created != 0 {
		t.Errorf("Created = %d on second pass, want 0", sum.Created)
	}
	if sum.SkippedDuplicate != 2 {
		t.Errorf("SkippedDuplicate = %d, want 2", sum.SkippedDuplicate)
	}
	if len(store.created) != 1 {
		t.Errorf("store holds %d records after two runs, want 1", len(store.created))
	}
}

func TestRunLoginFailureIsFatal(t *testing.T) {
	src := &fakeSource{loginErr: errors.New("bad credentials")}
	store := newFakeStore()

	_, err := New(src, store, testLogger(), 0).Run(context.Background())
	if err == nil {
		t.Fatal("expected error when login fails")
	}
	if len(store.created) != 0 {
		t.Error("nothing should be persisted after a failed login")
	}
}

func TestRunPageCap(t *testing.T) {
	card := func(page int) scraper.Card {
		return scraper.Card{Index: 0, SourceID: "p", Title: "Casa", StatusText: "Disponible"}
	}
	src := &fakeSource{
		pages:    [][]scraper.Card{{card(1)}, {card(2)}, {card(3)}},
		harvests: map[string]*scraper.Harvest{},
	}
	store := newFakeStore()

	sum, err := New(src, store, testLogger(), 2).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Pages != 2 {
		t.Errorf("Pages = %d, want 2 with cap", sum.Pages)
	}
}

func TestBuildRecordPublicID(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		sourceID string
		title    string
		expected string
	}{
		{"code preferred", "CV-1042", "991", "Casa en Coyoacán", "IMP-CV-1042"},
		{"source id fallback", "", "991", "Casa en Coyoacán", "IMP-991"},
		{"title slug fallback", "", "", "Casa en Coyoacán", "IMP-casa-en-coyoacan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &models.ScrapedListing{
				Code:     tt.code,
				SourceID: tt.sourceID,
				Title:    tt.title,
				Status:   models.StatusAvailable,
				Images:   []string{"x.jpg"},
			}
			rec, _, err := BuildRecord(l)
			if err != nil {
				t.Fatalf("BuildRecord: %v", err)
			}
			if rec.PublicID != tt.expected {
				t.Errorf("PublicID = %q, want %q", rec.PublicID, tt.expected)
			}
		})
	}
}

func TestBuildRecordIdentifiers(t *testing.T) {
	l := &models.ScrapedListing{
		Code:     "CV-1042",
		SourceID: "991",
		Title:    "Casa",
		Images:   []string{"x.jpg"},
	}
	_, identifiers, err := BuildRecord(l)
	if err != nil {
		t.Fatalf("BuildRecord: %v", err)
	}
	if len(identifiers) != 2 || identifiers[0] != "CV-1042" || identifiers[1] != "991" {
		t.Errorf("identifiers = %v", identifiers)
	}
}
