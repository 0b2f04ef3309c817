package scraper

import (
	"context"
	"log/slog"

	"listing-importer/internal/config"
)

// Client bundles the session driver, list navigator and popup extractor
// behind the surface the import run consumes.
type Client struct {
	sess  *Session
	nav   *Navigator
	popup *PopupExtractor
}

// NewClient wires up a client for one run.
func NewClient(cfg *config.Config, log *slog.Logger, headless bool) *Client {
	sess := NewSession(cfg, log, headless)
	return &Client{
		sess:  sess,
		nav:   NewNavigator(sess, log),
		popup: NewPopupExtractor(sess, log),
	}
}

// Start launches the browser.
func (c *Client) Start() error { return c.sess.Start() }

// Stop closes the browser.
func (c *Client) Stop() { c.sess.Stop() }

// Login authenticates the session. Single attempt.
func (c *Client) Login(ctx context.Context) error { return c.sess.Login(ctx) }

// CurrentPage reads the observable page-state marker.
func (c *Client) CurrentPage(ctx context.Context) (int, error) {
	return c.nav.CurrentPage(ctx)
}

// Advance moves to the next page, or returns ErrNoMorePages.
func (c *Client) Advance(ctx context.Context) (int, error) {
	return c.nav.Advance(ctx)
}

// Cards lists the cards on the current page.
func (c *Client) Cards(ctx context.Context) ([]Card, error) {
	return c.popup.Cards(ctx)
}

// ExtractCard opens, harvests and closes one card's popup.
func (c *Client) ExtractCard(ctx context.Context, card Card) (*Harvest, ChainResult, error) {
	return c.popup.ExtractCard(ctx, card)
}

// FetchDetail runs the best-effort secondary detail-page fetch.
func (c *Client) FetchDetail(ctx context.Context, url string) (*Detail, error) {
	return c.sess.FetchDetail(ctx, url)
}
