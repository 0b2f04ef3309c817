package scraper

// CSS selectors and attributes for the back-office admin UI. The source
// system has no API contract, so everything below is a rendering
// heuristic and the first place to look when a run starts skipping
// listings after an upstream redesign.
const (
	// Login page
	LoginPath         = "/login"
	UsernameSelectors = `input[type="email"], input[name="email"], input[name="usuario"], input[id*="email"], input[id*="user"]`
	PasswordSelectors = `input[type="password"], input[name="password"], input[name="contrasena"], input[id*="pass"]`
	SubmitSelectors   = `button[type="submit"], input[type="submit"], button.login-btn, .btn-ingresar`

	// Listing grid. data-page on the container is the single source of
	// truth for the current page; internal counters drift when a
	// pagination strategy silently fails.
	ListPath          = "/propiedades"
	ContainerSelector = `#grid-propiedades, .grid-propiedades, [data-role="grid-propiedades"]`
	PageAttr          = "data-page"
	NextSelector      = `.paginador a.siguiente, .pagination a.next, a[rel="next"]`
	CardSelector      = `.propiedad-card, .ficha-propiedad, [data-role="propiedad"]`

	// Per-card bits read before the popup opens
	CardStatusSelector = `.estatus, .status, .badge`
	CardAnchorSelector = `a.ver-detalle, a.abrir-ficha, a[onclick]`

	// Overlay / popup
	OverlaySelector       = `#ficha-overlay, .ficha-modal, .slideshow-overlay`
	OverlayCloseSelector  = `#ficha-overlay .cerrar, .ficha-modal .close, .slideshow-overlay button.close`
	CarouselImageSelector = `img[data-fullscreen], img[data-full], .carrusel img`
	PanelRowSelector      = `.panel-datos tr, .detalle-tabla tr, dl.datos`
)

// Bounded waits. Every DOM wait, page-state poll and navigation in the
// run is capped by one of these.
const (
	loginTimeoutSec    = 30
	advanceTimeoutSec  = 10
	openTimeoutSec     = 6
	closeTimeoutSec    = 5
	harvestTimeoutSec  = 15
	detailTimeoutSec   = 20
	pollIntervalMillis = 150
)
