package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"listing-importer/internal/extract"
)

// Detail holds structured location data recovered from a listing's
// standalone page. Used only to fill fields the overlay did not yield;
// every field may be empty.
type Detail struct {
	Street       string
	Neighborhood string
	City         string
	State        string
	Country      string
	PostalCode   string
	Latitude     *float64
	Longitude    *float64
}

// FetchDetail opens the listing's detail page in a second, independent
// tab so the primary list page keeps its scroll and popup state, and
// parses structured markup out of it. Best-effort: callers ignore the
// error and persist with whatever was already known.
func (s *Session) FetchDetail(ctx context.Context, url string) (*Detail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tabCtx, closeTab := s.NewTab()
	defer closeTab()

	tctx, cancel := context.WithTimeout(tabCtx, detailTimeoutSec*time.Second)
	defer cancel()

	var html string
	err := chromedp.Run(tctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load detail page: %w", err)
	}

	return ParseDetailHTML(html)
}

// jsonLDPlace is the subset of schema.org markup the detail pages embed.
type jsonLDPlace struct {
	Type    string `json:"@type"`
	Address struct {
		StreetAddress   string `json:"streetAddress"`
		AddressLocality string `json:"addressLocality"`
		AddressRegion   string `json:"addressRegion"`
		AddressCountry  string `json:"addressCountry"`
		PostalCode      string `json:"postalCode"`
	} `json:"address"`
	// Latitude/longitude appear both as numbers and as quoted strings
	// in the wild, so they decode via RawMessage.
	Geo struct {
		Latitude  json.RawMessage `json:"latitude"`
		Longitude json.RawMessage `json:"longitude"`
	} `json:"geo"`
}

func rawFloat(raw json.RawMessage) (float64, bool) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

// ParseDetailHTML extracts location signals from a detail document:
// JSON-LD first, then meta tags, then a full-text regex scan for a
// coordinate pair or postal code.
func ParseDetailHTML(html string) (*Detail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse detail HTML: %w", err)
	}

	d := &Detail{}

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var place jsonLDPlace
		if err := json.Unmarshal([]byte(sel.Text()), &place); err != nil {
			return true
		}
		if place.Address.AddressLocality == "" && len(place.Geo.Latitude) == 0 {
			return true
		}
		d.Street = place.Address.StreetAddress
		d.City = place.Address.AddressLocality
		d.State = place.Address.AddressRegion
		d.Country = place.Address.AddressCountry
		d.PostalCode = place.Address.PostalCode
		if lat, ok := rawFloat(place.Geo.Latitude); ok && lat != 0 {
			if lng, ok := rawFloat(place.Geo.Longitude); ok {
				d.Latitude, d.Longitude = &lat, &lng
			}
		}
		return false
	})

	// Meta tags fill whatever JSON-LD left blank.
	if d.City == "" {
		d.City = metaContent(doc, `meta[property="og:locality"]`, `meta[name="geo.placename"]`)
	}
	if d.State == "" {
		d.State = metaContent(doc, `meta[property="og:region"]`, `meta[name="geo.region"]`)
	}
	if d.PostalCode == "" {
		d.PostalCode = metaContent(doc, `meta[property="og:postal-code"]`)
	}
	if d.Latitude == nil {
		if pos := metaContent(doc, `meta[name="geo.position"]`, `meta[name="ICBM"]`); pos != "" {
			probe := strings.ReplaceAll(pos, ";", ",")
			if lat, lng, ok := extract.FindCoordinates(probe); ok {
				d.Latitude, d.Longitude = &lat, &lng
			}
		}
	}
	if d.Latitude == nil {
		lat := metaContent(doc, `meta[property="place:location:latitude"]`, `meta[property="og:latitude"]`)
		lng := metaContent(doc, `meta[property="place:location:longitude"]`, `meta[property="og:longitude"]`)
		if lat != "" && lng != "" {
			if la, ln, ok := extract.FindCoordinates(lat + "," + lng); ok {
				d.Latitude, d.Longitude = &la, &ln
			}
		}
	}

	// Last resort: scan the visible text.
	if d.Latitude == nil || d.PostalCode == "" {
		text := doc.Find("body").Text()
		if d.Latitude == nil {
			if lat, lng, ok := extract.FindCoordinates(text); ok {
				d.Latitude, d.Longitude = &lat, &lng
			}
		}
		if d.PostalCode == "" {
			d.PostalCode = extract.FindPostalCode(text)
		}
	}

	return d, nil
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}
