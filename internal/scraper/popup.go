package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// Card is what can be read off one listing card without opening its
// popup. Status must be captured here: the popup does not repeat it.
type Card struct {
	Index       int    `json:"index"`
	SourceID    string `json:"source_id"`
	Title       string `json:"title"`
	StatusClass string `json:"status_class"`
	StatusText  string `json:"status_text"`
	Onclick     string `json:"onclick"`
	DetailURL   string `json:"detail_url"`
}

// Harvest is everything pulled out of an open popup, raw. Typed field
// extraction happens later, in pure code, over these signals.
type Harvest struct {
	Images    []string          `json:"images"`
	Panel     map[string]string `json:"panel"`
	Text      string            `json:"text"`
	Features  []string          `json:"features"`
	Tags      []string          `json:"tags"`
	Videos    []string          `json:"videos"`
	DetailURL string            `json:"detail_url"`
}

// PopupExtractor opens, harvests and closes the per-listing overlay.
// The overlay is a single-slot resource: a stuck one blocks every
// subsequent listing on the page, hence the closing escalation.
type PopupExtractor struct {
	sess *Session
	log  *slog.Logger
}

// NewPopupExtractor binds an extractor to the session's primary tab.
func NewPopupExtractor(sess *Session, log *slog.Logger) *PopupExtractor {
	return &PopupExtractor{sess: sess, log: log}
}

// Cards reads every listing card on the current page.
func (p *PopupExtractor) Cards(ctx context.Context) ([]Card, error) {
	js := fmt.Sprintf(`
		(function() {
			var out = [];
			var cards = document.querySelectorAll(%q);
			for (var i = 0; i < cards.length; i++) {
				var card = cards[i];
				var status = card.querySelector(%q);
				var anchor = card.querySelector(%q);
				var titleEl = card.querySelector('h3, h4, .titulo, .title');
				out.push({
					index: i,
					source_id: card.getAttribute('data-id') || card.getAttribute('data-propiedad-id') || '',
					title: titleEl ? titleEl.innerText.trim() : (anchor ? (anchor.getAttribute('title') || '').trim() : ''),
					status_class: status ? (status.className || '') : (card.className || ''),
					status_text: status ? status.innerText.trim() : '',
					onclick: anchor ? (anchor.getAttribute('onclick') || '') : '',
					detail_url: (function() {
						var link = card.querySelector('a[href*="/propiedad"], a[href*="/detalle"], a.ficha-link');
						return link ? link.href : '';
					})()
				});
			}
			return out;
		})()
	`, CardSelector, CardStatusSelector, CardAnchorSelector)

	hctx, cancel := context.WithTimeout(p.tab(ctx), harvestTimeoutSec*time.Second)
	defer cancel()

	var cards []Card
	if err := chromedp.Run(hctx, chromedp.Evaluate(js, &cards)); err != nil {
		return nil, fmt.Errorf("failed to read listing cards: %w", err)
	}
	return cards, nil
}

// Inline handlers look like "mostrarFicha(8123, 0); return false;".
var reOverlayCall = regexp.MustCompile(`(?i)(mostrarFicha|abrirFicha|showSlideshow|openSlideshow|verGaleria)\s*\(([^)]*)\)`)

// Open runs the four-tier popup open chain for the given card:
// inline handler eval, overlay API call with the handler's own
// parameters, synthetic click event, forced real click. A chain that
// exhausts all four is reported, never retried: a failed open is
// structural, not transient.
func (p *PopupExtractor) Open(ctx context.Context, card Card) ChainResult {
	tab := p.tab(ctx)

	anchorJS := fmt.Sprintf(
		`document.querySelectorAll(%q)[%d] && document.querySelectorAll(%q)[%d].querySelector(%q)`,
		CardSelector, card.Index, CardSelector, card.Index, CardAnchorSelector)

	strategies := []Strategy{
		{Name: "inline-handler", Attempt: func(actx context.Context) error {
			if card.Onclick == "" {
				return errors.New("no inline handler")
			}
			js := fmt.Sprintf(`(function() {
				var a = %s;
				if (!a) return false;
				var h = a.getAttribute('onclick');
				if (!h) return false;
				(new Function(h)).call(a);
				return true;
			})()`, anchorJS)
			var ran bool
			if err := chromedp.Run(actx, chromedp.Evaluate(js, &ran)); err != nil {
				return err
			}
			if !ran {
				return errors.New("handler not invocable")
			}
			return nil
		}},
		{Name: "overlay-api", Attempt: func(actx context.Context) error {
			m := reOverlayCall.FindStringSubmatch(card.Onclick)
			if m == nil {
				return errors.New("no overlay call in handler attribute")
			}
			fn, args := m[1], strings.TrimSpace(m[2])
			js := fmt.Sprintf(`(function() {
				if (typeof window[%q] !== 'function') return false;
				window[%q](%s);
				return true;
			})()`, fn, fn, args)
			var ran bool
			if err := chromedp.Run(actx, chromedp.Evaluate(js, &ran)); err != nil {
				return err
			}
			if !ran {
				return errors.New("overlay API not exposed")
			}
			return nil
		}},
		{Name: "synthetic-click", Attempt: func(actx context.Context) error {
			js := fmt.Sprintf(`(function() {
				var a = %s;
				if (!a) return false;
				a.dispatchEvent(new MouseEvent('click', {bubbles: true, cancelable: true, view: window}));
				return true;
			})()`, anchorJS)
			var ran bool
			if err := chromedp.Run(actx, chromedp.Evaluate(js, &ran)); err != nil {
				return err
			}
			if !ran {
				return errors.New("anchor not found")
			}
			return nil
		}},
		{Name: "forced-click", Attempt: func(actx context.Context) error {
			mark := fmt.Sprintf(`(function() {
				var a = %s;
				if (!a) return false;
				a.setAttribute('data-imp-target', '1');
				return true;
			})()`, anchorJS)
			var marked bool
			if err := chromedp.Run(actx, chromedp.Evaluate(mark, &marked)); err != nil {
				return err
			}
			if !marked {
				return errors.New("anchor not found")
			}
			defer chromedp.Run(tab, chromedp.Evaluate(
				`document.querySelectorAll('[data-imp-target]').forEach(function(a){a.removeAttribute('data-imp-target')})`, nil))
			return chromedp.Run(actx, chromedp.Click(`[data-imp-target="1"]`, chromedp.ByQuery))
		}},
	}

	return runChain(tab, openTimeoutSec*time.Second, p.overlayVisible, strategies...)
}

// Harvest pulls the raw signals out of the open overlay: carousel image
// URLs (fullscreen source preferred over the regular one), the
// structured key/value panel when present, and the overlay's visible
// text as the fallback corpus.
func (p *PopupExtractor) Harvest(ctx context.Context) (*Harvest, error) {
	js := fmt.Sprintf(`
		(function() {
			var overlay = document.querySelector(%q);
			if (!overlay) return null;

			var images = [];
			var seen = {};
			var imgs = overlay.querySelectorAll(%q);
			if (!imgs.length) imgs = overlay.querySelectorAll('img');
			imgs.forEach(function(img) {
				var u = img.getAttribute('data-fullscreen') || img.getAttribute('data-full') ||
				        img.getAttribute('data-src') || img.src || '';
				if (u && !seen[u] && u.indexOf('data:') !== 0) { seen[u] = true; images.push(u); }
			});

			var panel = [];
			overlay.querySelectorAll(%q).forEach(function(row) {
				var cells = row.querySelectorAll('th, td');
				if (cells.length >= 2) {
					panel.push([cells[0].innerText.trim(), cells[1].innerText.trim()]);
				}
			});
			overlay.querySelectorAll('dl').forEach(function(dl) {
				var dts = dl.querySelectorAll('dt');
				var dds = dl.querySelectorAll('dd');
				for (var i = 0; i < dts.length && i < dds.length; i++) {
					panel.push([dts[i].innerText.trim(), dds[i].innerText.trim()]);
				}
			});

			var features = [];
			overlay.querySelectorAll('li').forEach(function(li) {
				var t = li.innerText.trim();
				if (t && t.length < 80) features.push(t);
			});

			var tags = [];
			overlay.querySelectorAll('.tag, .etiqueta, .chip').forEach(function(el) {
				var t = el.innerText.trim();
				if (t) tags.push(t);
			});

			var videos = [];
			overlay.querySelectorAll('iframe[src*="youtube"], iframe[src*="vimeo"], video source').forEach(function(el) {
				var u = el.src || el.getAttribute('src') || '';
				if (u) videos.push(u);
			});

			var detail = overlay.querySelector('a[href*="/propiedad"], a[href*="/detalle"], a.ver-pagina');

			return {
				images: images,
				panel_rows: panel,
				text: overlay.innerText || '',
				features: features,
				tags: tags,
				videos: videos,
				detail_url: detail ? detail.href : ''
			};
		})()
	`, OverlaySelector, CarouselImageSelector, PanelRowSelector)

	hctx, cancel := context.WithTimeout(p.tab(ctx), harvestTimeoutSec*time.Second)
	defer cancel()

	var raw struct {
		Images    []string   `json:"images"`
		PanelRows [][]string `json:"panel_rows"`
		Text      string     `json:"text"`
		Features  []string   `json:"features"`
		Tags      []string   `json:"tags"`
		Videos    []string   `json:"videos"`
		DetailURL string     `json:"detail_url"`
	}
	if err := chromedp.Run(hctx, chromedp.Evaluate(js, &raw)); err != nil {
		return nil, fmt.Errorf("failed to harvest overlay: %w", err)
	}

	h := &Harvest{
		Images:    raw.Images,
		Panel:     make(map[string]string, len(raw.PanelRows)),
		Text:      raw.Text,
		Features:  raw.Features,
		Tags:      raw.Tags,
		Videos:    raw.Videos,
		DetailURL: raw.DetailURL,
	}
	for _, row := range raw.PanelRows {
		if len(row) == 2 && row[0] != "" {
			if _, dup := h.Panel[row[0]]; !dup {
				h.Panel[row[0]] = row[1]
			}
		}
	}
	return h, nil
}

// Close runs the closing escalation: explicit close control, Escape
// twice, forced DOM removal.
func (p *PopupExtractor) Close(ctx context.Context) ChainResult {
	tab := p.tab(ctx)

	verify := func(vctx context.Context) bool { return !p.overlayVisible(vctx) }

	return runChain(tab, closeTimeoutSec*time.Second, verify,
		Strategy{Name: "close-control", Attempt: func(actx context.Context) error {
			return chromedp.Run(actx, chromedp.Click(OverlayCloseSelector, chromedp.ByQuery))
		}},
		Strategy{Name: "escape-key", Attempt: func(actx context.Context) error {
			return chromedp.Run(actx,
				chromedp.KeyEvent(kb.Escape),
				chromedp.Sleep(200*time.Millisecond),
				chromedp.KeyEvent(kb.Escape),
			)
		}},
		Strategy{Name: "dom-removal", Attempt: func(actx context.Context) error {
			js := fmt.Sprintf(`(function() {
				var o = document.querySelector(%q);
				if (o) o.remove();
				document.body.style.overflow = '';
				return true;
			})()`, OverlaySelector)
			return chromedp.Run(actx, chromedp.Evaluate(js, nil))
		}},
	)
}

// ExtractCard is the full open → harvest → close cycle for one card.
// The close chain always runs once the open succeeded, even when the
// harvest failed, so a stuck overlay cannot poison the rest of the page.
func (p *PopupExtractor) ExtractCard(ctx context.Context, card Card) (*Harvest, ChainResult, error) {
	open := p.Open(ctx, card)
	if !open.OK() {
		return nil, open, nil
	}

	h, err := p.Harvest(ctx)

	closeRes := p.Close(ctx)
	if !closeRes.OK() {
		p.log.Warn("overlay close chain exhausted", "attempted", closeRes.Attempted)
	}

	if err != nil {
		return nil, open, err
	}
	return h, open, nil
}

func (p *PopupExtractor) overlayVisible(ctx context.Context) bool {
	js := fmt.Sprintf(`(function() {
		var o = document.querySelector(%q);
		return !!(o && o.offsetParent !== null);
	})()`, OverlaySelector)
	var visible bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &visible)); err != nil {
		return false
	}
	return visible
}

func (p *PopupExtractor) tab(ctx context.Context) context.Context {
	if ctx != nil && ctx.Err() != nil {
		return ctx
	}
	return p.sess.Tab()
}
