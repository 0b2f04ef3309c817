package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"listing-importer/internal/dedupe"
	"listing-importer/internal/extract"
	"listing-importer/internal/models"
	"listing-importer/internal/scraper"
)

// Source is the authenticated browser surface the run drives. Satisfied
// by *scraper.Client; faked in tests.
type Source interface {
	Login(ctx context.Context) error
	CurrentPage(ctx context.Context) (int, error)
	Advance(ctx context.Context) (int, error)
	Cards(ctx context.Context) ([]scraper.Card, error)
	ExtractCard(ctx context.Context, card scraper.Card) (*scraper.Harvest, scraper.ChainResult, error)
	FetchDetail(ctx context.Context, url string) (*scraper.Detail, error)
}

// Store is the canonical storage surface. Satisfied by *db.DB.
type Store interface {
	LoadForeignRecords() ([]models.CanonicalRecord, error)
	CreateIfAbsent(rec *models.CanonicalRecord, identifiers []string) (bool, error)
}

// Summary is the outcome of one run.
type Summary struct {
	RunID            string
	Pages            int
	Detected         int
	Created          int
	SkippedDuplicate int
	SkippedNonviable int
	Failed           int
	Duration         time.Duration
}

// Importer runs the full extraction-and-reconciliation pipeline:
// navigate pages, extract listings, resolve typed fields, deduplicate
// against the canonical inventory, persist what is new. Strictly
// sequential: the popup is a single-slot resource.
type Importer struct {
	src      Source
	store    Store
	log      *slog.Logger
	geo      *Geocoder // nil disables the coordinate fallback
	maxPages int
}

// New creates an importer. maxPages <= 0 means no page cap.
func New(src Source, store Store, log *slog.Logger, maxPages int) *Importer {
	return &Importer{src: src, store: store, log: log, maxPages: maxPages}
}

// WithGeocoder enables the best-effort coordinate fallback.
func (imp *Importer) WithGeocoder(g *Geocoder) *Importer {
	imp.geo = g
	return imp
}

// Run executes one import run. The returned summary is valid even when
// err is non-nil, so a partial run still reports what it persisted.
func (imp *Importer) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	sum := &Summary{RunID: uuid.NewString()[:8]}
	log := imp.log.With("run", sum.RunID)

	if err := imp.src.Login(ctx); err != nil {
		return sum, fmt.Errorf("authentication failed: %w", err)
	}

	foreign, err := imp.store.LoadForeignRecords()
	if err != nil {
		return sum, fmt.Errorf("failed to build dedup index: %w", err)
	}
	idx := dedupe.NewIndex(foreign)
	log.Info("dedup index built", "canonical_records", idx.Size())

	page, err := imp.src.CurrentPage(ctx)
	if err != nil {
		return sum, fmt.Errorf("failed to read initial page state: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			log.Warn("run cancelled", "page", page)
			break
		}

		cards, err := imp.src.Cards(ctx)
		if err != nil {
			log.Error("failed to read cards, ending navigation", "page", page, "err", err)
			break
		}
		sum.Pages++
		log.Info("processing page", "page", page, "cards", len(cards))

		for _, card := range cards {
			if ctx.Err() != nil {
				break
			}
			sum.Detected++
			imp.processCard(ctx, log, idx, page, card, sum)
		}

		if imp.maxPages > 0 && sum.Pages >= imp.maxPages {
			log.Info("page cap reached", "pages", sum.Pages)
			break
		}

		next, err := imp.src.Advance(ctx)
		if err != nil {
			if !errors.Is(err, scraper.ErrNoMorePages) {
				log.Error("navigation error, ending run", "err", err)
			}
			break
		}
		page = next
	}

	sum.Duration = time.Since(start)
	log.Info("run complete",
		"pages", sum.Pages,
		"detected", sum.Detected,
		"created", sum.Created,
		"skipped_duplicate", sum.SkippedDuplicate,
		"skipped_nonviable", sum.SkippedNonviable,
		"failed", sum.Failed,
		"duration", sum.Duration.Round(time.Millisecond),
	)
	return sum, nil
}

func (imp *Importer) processCard(ctx context.Context, log *slog.Logger, idx *dedupe.Index, page int, card scraper.Card, sum *Summary) {
	llog := log.With("page", page, "card", card.Index)

	// Status must be read off the card before anything opens: the popup
	// does not repeat it.
	status := extract.ClassifyStatus(card.StatusClass, card.StatusText)

	harvest, chain, err := imp.src.ExtractCard(ctx, card)
	if err != nil {
		llog.Error("harvest failed", "strategy", chain.Succeeded, "err", err)
		sum.Failed++
		return
	}
	if harvest == nil {
		llog.Warn("popup never opened, skipping listing",
			"attempted", chain.Attempted, "onclick", card.Onclick != "", "title", card.Title)
		sum.Failed++
		return
	}

	listing := imp.buildListing(page, card, status, harvest)
	imp.enrich(ctx, llog, listing)

	if !listing.Viable() {
		llog.Warn("listing below viability bar, rejected",
			"title", listing.Title, "images", len(listing.Images))
		sum.SkippedNonviable++
		return
	}

	if d := idx.Match(listing); d.Duplicate {
		llog.Info("duplicate of canonical record, skipping",
			"matched_id", d.MatchedID, "matched_public_id", d.PublicID,
			"exact", d.Exact, "title", listing.Title)
		sum.SkippedDuplicate++
		return
	}

	rec, identifiers, err := BuildRecord(listing)
	if err != nil {
		llog.Error("failed to build record", "title", listing.Title, "err", err)
		sum.Failed++
		return
	}

	created, err := imp.store.CreateIfAbsent(rec, identifiers)
	if err != nil {
		llog.Error("persistence failed, continuing", "public_id", rec.PublicID, "err", err)
		sum.Failed++
		return
	}
	if !created {
		llog.Info("already imported in an earlier run, skipping", "public_id", rec.PublicID)
		sum.SkippedDuplicate++
		return
	}

	sum.Created++
	llog.Info("created", "public_id", rec.PublicID, "title", listing.Title, "status", listing.Status)
}

// buildListing assembles the ScrapedListing from raw signals and runs
// the field-heuristics engine over them.
func (imp *Importer) buildListing(page int, card scraper.Card, status string, h *scraper.Harvest) *models.ScrapedListing {
	l := &models.ScrapedListing{
		SourceID:    card.SourceID,
		Page:        page,
		IndexOnPage: card.Index,
		Title:       card.Title,
		Status:      status,
		Images:      h.Images,
		Description: h.Text,
		Tags:        h.Tags,
		Videos:      h.Videos,
		DetailURL:   firstNonEmpty(h.DetailURL, card.DetailURL),
		Panel:       h.Panel,
	}
	l.Code = extract.ExtractCode(l.Title)

	extract.Apply(l, extract.Source{
		Panel:    h.Panel,
		Corpus:   h.Text,
		Features: h.Features,
	})
	return l
}

// enrich fills missing core address fields and coordinates from the
// listing's standalone page, then falls back to geocoding when enabled.
// Both steps are best-effort and never fail the listing.
func (imp *Importer) enrich(ctx context.Context, log *slog.Logger, l *models.ScrapedListing) {
	coreMissing := l.City == "" || l.State == "" || l.PostalCode == ""
	coordsMissing := l.Latitude == nil || l.Longitude == nil

	if (coreMissing || coordsMissing) && l.DetailURL != "" {
		d, err := imp.src.FetchDetail(ctx, l.DetailURL)
		if err != nil {
			log.Debug("detail enrichment failed, keeping primary record", "err", err)
		} else if d != nil {
			applyDetail(l, d)
		}
	}

	if imp.geo != nil && (l.Latitude == nil || l.Longitude == nil) {
		if addr := geocodeQuery(l); addr != "" {
			lat, lng, err := imp.geo.Geocode(ctx, addr)
			if err != nil {
				log.Debug("geocode fallback failed", "addr", addr, "err", err)
			} else {
				l.Latitude, l.Longitude = &lat, &lng
			}
		}
	}
}

func applyDetail(l *models.ScrapedListing, d *scraper.Detail) {
	if l.Street == "" {
		l.Street = d.Street
	}
	if l.Neighborhood == "" {
		l.Neighborhood = d.Neighborhood
	}
	if l.City == "" {
		l.City = d.City
	}
	if l.State == "" {
		l.State = d.State
	}
	if l.Country == "" {
		l.Country = d.Country
	}
	if l.PostalCode == "" {
		l.PostalCode = d.PostalCode
	}
	if l.Latitude == nil && d.Latitude != nil {
		l.Latitude, l.Longitude = d.Latitude, d.Longitude
	}
}

func geocodeQuery(l *models.ScrapedListing) string {
	loc := l.LocationText()
	if l.Street != "" && loc != "" {
		return l.Street + ", " + loc
	}
	if l.Street != "" {
		return l.Street
	}
	return loc
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
