package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/chromedp/chromedp"
)

// ErrNoMorePages marks the terminal navigation state. It is the normal
// end of a run, not a failure: the run keeps everything collected so far.
var ErrNoMorePages = errors.New("pagination exhausted")

// Navigator walks the paginated listing grid. The grid container's
// data-page attribute is the single source of truth for the current
// page; the navigator never trusts its own counter after a transition.
type Navigator struct {
	sess *Session
	log  *slog.Logger
}

// NewNavigator creates a navigator bound to the session's primary tab.
func NewNavigator(sess *Session, log *slog.Logger) *Navigator {
	return &Navigator{sess: sess, log: log}
}

// CurrentPage reads the observable page-state marker from the grid.
// Bounded: a grid that vanished mid-transition reads as an error, not
// an indefinite node wait.
func (n *Navigator) CurrentPage(ctx context.Context) (int, error) {
	rctx, cancel := context.WithTimeout(n.tabCtx(ctx), advanceTimeoutSec*time.Second)
	defer cancel()

	var raw string
	var ok bool
	err := chromedp.Run(rctx,
		chromedp.AttributeValue(ContainerSelector, PageAttr, &raw, &ok, chromedp.ByQuery, chromedp.AtLeast(0)),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to read page attribute: %w", err)
	}
	if !ok {
		return 0, fmt.Errorf("listing grid missing or without %s attribute", PageAttr)
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("page attribute %q is not a number: %w", raw, err)
	}
	return page, nil
}

// The next control embeds its navigation directive inline, e.g.
// onclick="irPagina(4); return false;". The target is read from there
// rather than computed as currentPage+1 because the source system may
// skip or relabel pages.
var rePageDirective = regexp.MustCompile(`(?:irPagina|gotoPage|cambiarPagina)\s*\(\s*(\d+)\s*\)`)

// nextTarget parses the expected next-page number from the next control.
// A missing control or directive means the last page was reached.
func (n *Navigator) nextTarget(ctx context.Context) (int, error) {
	rctx, cancel := context.WithTimeout(n.tabCtx(ctx), advanceTimeoutSec*time.Second)
	defer cancel()

	var onclick string
	var ok bool
	err := chromedp.Run(rctx,
		chromedp.AttributeValue(NextSelector, "onclick", &onclick, &ok, chromedp.ByQuery, chromedp.AtLeast(0)),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect next control: %w", err)
	}
	if !ok {
		return 0, ErrNoMorePages
	}
	m := rePageDirective.FindStringSubmatch(onclick)
	if m == nil {
		return 0, ErrNoMorePages
	}
	target, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, ErrNoMorePages
	}
	return target, nil
}

// Advance moves to the next listing page through the escalation chain:
// a UI click first, then the page's internal pagination routine invoked
// programmatically. Each attempt waits, bounded, for the page-state
// attribute to equal the expected target. Exhaustion is terminal.
func (n *Navigator) Advance(ctx context.Context) (int, error) {
	target, err := n.nextTarget(ctx)
	if err != nil {
		return 0, err
	}

	verify := func(vctx context.Context) bool {
		page, err := n.CurrentPage(vctx)
		return err == nil && page == target
	}

	res := runChain(n.tabCtx(ctx), advanceTimeoutSec*time.Second, verify,
		Strategy{Name: "ui-click", Attempt: func(actx context.Context) error {
			return chromedp.Run(actx, chromedp.Click(NextSelector, chromedp.ByQuery))
		}},
		Strategy{Name: "pagination-routine", Attempt: func(actx context.Context) error {
			js := fmt.Sprintf(`(function(p){
				if (typeof irPagina === 'function') { irPagina(p); return true; }
				if (typeof gotoPage === 'function') { gotoPage(p); return true; }
				if (typeof cambiarPagina === 'function') { cambiarPagina(p); return true; }
				return false;
			})(%d)`, target)
			var invoked bool
			if err := chromedp.Run(actx, chromedp.Evaluate(js, &invoked)); err != nil {
				return err
			}
			if !invoked {
				return errors.New("no pagination routine exposed")
			}
			return nil
		}},
	)

	if !res.OK() {
		n.log.Warn("pagination stalled, ending navigation",
			"target", target, "attempted", res.Attempted)
		return 0, ErrNoMorePages
	}

	n.log.Debug("advanced page", "target", target, "strategy", res.Succeeded)
	return target, nil
}

// tabCtx resolves the context chromedp actions run on. A context
// already carrying the tab (an attempt or verify context derived from
// it) is kept, so its deadline stays in force; a plain context resolves
// to the primary tab, and callers bound the wait themselves.
func (n *Navigator) tabCtx(ctx context.Context) context.Context {
	if ctx != nil {
		if ctx.Err() != nil {
			return ctx
		}
		if chromedp.FromContext(ctx) != nil {
			return ctx
		}
	}
	return n.sess.Tab()
}
