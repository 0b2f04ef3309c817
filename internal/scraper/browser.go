package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"listing-importer/internal/config"
)

// Session owns the authenticated browser session for one run. It is not
// safe to share across concurrent runs; the popup is a single-slot
// resource and the source account tolerates one session at a time.
type Session struct {
	cfg      *config.Config
	log      *slog.Logger
	headless bool

	allocCtx      context.Context
	cancelAlloc   context.CancelFunc
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
}

// NewSession creates an unstarted session.
func NewSession(cfg *config.Config, log *slog.Logger, headless bool) *Session {
	return &Session{cfg: cfg, log: log, headless: headless}
}

// Start launches the browser and opens the primary tab.
func (s *Session) Start() error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		// Anti-detection flags
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"),
	)
	if bin := findChromeBinary(s.cfg.ChromeBin); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	s.allocCtx, s.cancelAlloc = chromedp.NewExecAllocator(context.Background(), opts...)
	s.browserCtx, s.cancelBrowser = chromedp.NewContext(s.allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))
	return nil
}

// Stop closes the browser.
func (s *Session) Stop() {
	if s.cancelBrowser != nil {
		s.cancelBrowser()
	}
	if s.cancelAlloc != nil {
		s.cancelAlloc()
	}
}

// Tab returns the primary tab context. All list-page and popup work
// happens here; only detail enrichment opens a second tab.
func (s *Session) Tab() context.Context { return s.browserCtx }

// NewTab opens an independent tab in the same browser, so the primary
// list page keeps its scroll and popup state.
func (s *Session) NewTab() (context.Context, context.CancelFunc) {
	return chromedp.NewContext(s.browserCtx)
}

// Login authenticates against the back-office. Single attempt: a bad
// login is operator error, not a transient fault, so there is no retry.
func (s *Session) Login(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lctx, cancel := context.WithTimeout(s.browserCtx, loginTimeoutSec*time.Second)
	defer cancel()

	loginURL := s.cfg.SourceBaseURL + LoginPath
	s.log.Info("logging in", "url", loginURL)

	err := chromedp.Run(lctx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers(map[string]interface{}{
			"Accept-Language": "es-MX,es;q=0.9,en;q=0.8",
		})),
		chromedp.Navigate(loginURL),
		chromedp.WaitReady("body"),
		chromedp.WaitVisible(PasswordSelectors, chromedp.ByQuery),
		chromedp.SendKeys(UsernameSelectors, s.cfg.SourceUsername, chromedp.ByQuery),
		chromedp.SendKeys(PasswordSelectors, s.cfg.SourcePassword, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("login interaction failed: %w", err)
	}

	// Submit control first, Enter in the password field as fallback.
	if err := chromedp.Run(lctx, chromedp.Click(SubmitSelectors, chromedp.ByQuery)); err != nil {
		s.log.Debug("submit control not clickable, sending Enter", "err", err)
		if err := chromedp.Run(lctx,
			chromedp.SendKeys(PasswordSelectors, kb.Enter, chromedp.ByQuery)); err != nil {
			return fmt.Errorf("login submit failed: %w", err)
		}
	}

	// The listing grid appearing is the only reliable login signal; the
	// post-login URL varies by account type.
	if err := chromedp.Run(lctx,
		chromedp.Navigate(s.cfg.SourceBaseURL+ListPath),
		chromedp.WaitVisible(ContainerSelector, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("listing grid not reachable after login: %w", err)
	}

	s.log.Info("login ok")
	return nil
}

// findChromeBinary locates a Chrome/Chromium binary, preferring the
// configured path.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
