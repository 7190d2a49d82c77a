// Package controller holds the grant search state of a view and turns user
// intent into page fetches.
//
// Fetch ordering is last-request-wins: every fetch is tagged with a
// generation, superseded fetches are canceled, and a result is applied only
// if it belongs to the latest request and its params still match the state.
package controller

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/grantsx"
	"github.com/letmevibethatforyou/grantsx/internal/pagecache"
	"github.com/letmevibethatforyou/grantsx/pagination"
)

// Controller is safe for concurrent use, although a front end normally
// drives it from a single event goroutine.
type Controller struct {
	mu     sync.Mutex
	lister grantsx.Lister
	cache  *pagecache.Cache
	logger *slog.Logger

	state   State
	matched []grantsx.Grant

	result       *grantsx.Page
	resultParams grantsx.Params
	known        knownTotals
	loadErr      *grantsx.LoadError

	gen      uint64
	inflight *inflight

	saved map[string]struct{}
}

// knownTotals remembers the item count of the last result for a search and
// filter combination so a stale page can be clamped after a size change.
type knownTotals struct {
	ok         bool
	search     string
	filters    grantsx.FilterSet
	totalItems int
}

type inflight struct {
	gen    uint64
	params grantsx.Params
	cancel context.CancelFunc
}

// Request is one tagged fetch started by Begin.
type Request struct {
	// Params are the fetch parameters.
	Params grantsx.Params

	gen uint64
	ctx context.Context
}

// Context is canceled when the request is superseded.
func (r Request) Context() context.Context {
	return r.ctx
}

// Generation returns the request tag.
func (r Request) Generation() uint64 {
	return r.gen
}

// Option configures a Controller.
type Option func(*Controller)

// WithCache shares a page cache between controllers.
func WithCache(c *pagecache.Cache) Option {
	return func(ctl *Controller) {
		if c != nil {
			ctl.cache = c
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(l *slog.Logger) Option {
	return func(ctl *Controller) {
		if l != nil {
			ctl.logger = l
		}
	}
}

// WithPageSize sets the initial page size. Invalid sizes are ignored.
func WithPageSize(size pagination.PageSize) Option {
	return func(ctl *Controller) {
		if size.Valid() {
			ctl.state.PageSize = size
		}
	}
}

// New creates a controller in the default state.
func New(lister grantsx.Lister, opts ...Option) *Controller {
	ctl := &Controller{
		lister: lister,
		logger: slog.Default(),
		state:  DefaultState(),
		saved:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(ctl)
	}
	if ctl.cache == nil {
		ctl.cache = pagecache.New(pagecache.WithLogger(ctl.logger))
	}
	return ctl
}

// State returns a snapshot of the search state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetQueryText records typed text. Clearing the text returns to standard
// mode on page 1 and drops the remote search constraint.
func (c *Controller) SetQueryText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.QueryText = text
	if strings.TrimSpace(text) == "" {
		c.state.Mode = Standard
		c.state.CurrentPage = 1
		c.state.SearchTerm = ""
		c.matched = nil
	}
	c.supersedeLocked()
}

// SubmitSearch makes text the active search term and returns to page 1.
// A different term drops the matched list, which belongs to the old one.
func (c *Controller) SubmitSearch(text string) error {
	if err := grantsx.ValidateQuery(text); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	term := strings.TrimSpace(text)
	if term != c.state.SearchTerm {
		c.matched = nil
	}
	c.state.QueryText = text
	c.state.SearchTerm = term
	c.state.CurrentPage = 1
	c.state.Mode = modeFor(c.matched)
	c.supersedeLocked()
	return nil
}

// ApplyFilters replaces the active filters and returns to page 1.
// Changed filters drop the matched list.
func (c *Controller) ApplyFilters(f grantsx.FilterSet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f = f.Normalize()
	if f != c.state.Filters {
		c.matched = nil
	}
	c.state.Filters = f
	c.state.CurrentPage = 1
	c.state.Mode = modeFor(c.matched)
	c.supersedeLocked()
}

// ClearFilters removes every filter and returns to page 1.
func (c *Controller) ClearFilters() {
	c.ApplyFilters(grantsx.FilterSet{})
}

// ChangePage moves to page, clamped to the known page range.
func (c *Controller) ChangePage(page int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if total := c.totalPagesLocked(); total > 0 {
		page = pagination.Clamp(page, total)
	} else if page < 1 {
		page = 1
	}
	c.state.CurrentPage = page
	c.supersedeLocked()
}

// ChangePageSize switches the page size. The current page is kept and
// clamped lazily against the new page count.
func (c *Controller) ChangePageSize(size pagination.PageSize) error {
	if !size.Valid() {
		return errors.Wrapf(grantsx.ErrInvalidPageSize, "page size %d", int(size))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.PageSize = size
	c.supersedeLocked()
	return nil
}

// SetMatched installs the matched list. A non-empty list switches to
// matched-subset mode on page 1; an empty one returns to standard mode.
func (c *Controller) SetMatched(grants []grantsx.Grant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setMatchedLocked(grants)
}

func (c *Controller) setMatchedLocked(grants []grantsx.Grant) {
	c.matched = append([]grantsx.Grant(nil), grants...)
	c.state.Mode = modeFor(c.matched)
	c.state.CurrentPage = 1
}

// LoadMatches asks m for grants matching the active search and filters and
// installs them. The result is dropped if the query changed meanwhile.
func (c *Controller) LoadMatches(ctx context.Context, m grantsx.Matcher, opts ...grantsx.MatchOption) error {
	c.mu.Lock()
	query := c.state.SearchTerm
	if query == "" {
		query = strings.TrimSpace(c.state.QueryText)
	}
	filters := c.state.Filters
	c.mu.Unlock()

	if query == "" {
		return grantsx.ErrEmptyQuery
	}

	grants, err := m.Match(ctx, query, append([]grantsx.MatchOption{filters}, opts...)...)
	if err != nil {
		return errors.Wrapf(err, "failed to match grants for %q", query)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.state.SearchTerm
	if current == "" {
		current = strings.TrimSpace(c.state.QueryText)
	}
	if current != query || c.state.Filters != filters {
		c.logger.DebugContext(ctx, "discarding matches for superseded query", "query", query)
		return nil
	}
	c.setMatchedLocked(grants)
	c.logger.InfoContext(ctx, "matched grants loaded", "query", query, "count", len(grants))
	return nil
}

// LoadFavorites seeds the saved-indicator set.
func (c *Controller) LoadFavorites(ctx context.Context, fl grantsx.FavoritesLister) error {
	ids, err := fl.ListFavorites(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load favorites")
	}

	saved := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		saved[id] = struct{}{}
	}

	c.mu.Lock()
	c.saved = saved
	c.mu.Unlock()
	return nil
}

// IsSaved reports whether id is one of the user's favorites.
func (c *Controller) IsSaved(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.saved[id]
	return ok
}

// Params returns the fetch parameters for the current state.
func (c *Controller) Params() grantsx.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paramsLocked()
}

// NeedsFetch reports whether the current params have neither an applied
// result nor an outstanding fetch. Matched-subset mode never needs one.
func (c *Controller) NeedsFetch() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.needsFetchLocked()
}

func (c *Controller) needsFetchLocked() bool {
	if c.state.Mode == MatchedSubset {
		return false
	}
	p := c.paramsLocked()
	if c.inflight != nil && c.inflight.params == p {
		return false
	}
	if c.result != nil && c.resultParams == p {
		return false
	}
	return true
}

// Refresh fetches the current page only if the parameter tuple changed.
// It reports whether a fetch was issued.
func (c *Controller) Refresh(ctx context.Context) (bool, error) {
	if !c.NeedsFetch() {
		return false, nil
	}
	_, err := c.FetchPage(ctx)
	return true, err
}

// FetchPage issues one fetch for the current params and applies the result.
// A failure returns a *grantsx.LoadError and leaves the state untouched.
func (c *Controller) FetchPage(ctx context.Context) (*grantsx.Page, error) {
	req := c.Begin(ctx)
	page, err := c.Load(req)
	c.Complete(req, page, err)
	if err != nil {
		return nil, grantsx.NewLoadError(req.Params, err)
	}
	return page, nil
}

// Begin starts a fetch for the current params and supersedes any earlier
// one. The returned request is passed to Load and then Complete.
func (c *Controller) Begin(ctx context.Context) Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight != nil {
		c.inflight.cancel()
	}
	c.gen++
	p := c.paramsLocked()
	reqCtx, cancel := context.WithCancel(ctx)
	c.inflight = &inflight{gen: c.gen, params: p, cancel: cancel}

	c.logger.DebugContext(ctx, "fetching grants page",
		"generation", c.gen,
		"page", p.Page,
		"limit", p.Limit,
		"search", p.Search,
	)
	return Request{Params: p, gen: c.gen, ctx: reqCtx}
}

// Load performs the fetch of req through the page cache. It does not touch
// controller state and may run on any goroutine.
func (c *Controller) Load(req Request) (*grantsx.Page, error) {
	return c.cache.Get(req.ctx, req.Params, c.lister.ListGrants)
}

// Complete applies the outcome of req. It returns false when req was
// superseded or the params changed since Begin; the outcome is then dropped.
func (c *Controller) Complete(req Request, page *grantsx.Page, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight == nil || c.inflight.gen != req.gen {
		c.logger.Debug("dropping superseded grants page", "generation", req.gen)
		return false
	}
	c.inflight.cancel()
	c.inflight = nil

	if req.Params != c.paramsLocked() {
		c.logger.Debug("dropping grants page for stale params", "generation", req.gen)
		return false
	}

	if err != nil {
		c.loadErr = grantsx.NewLoadError(req.Params, err)
		c.logger.Warn("failed to load grants", "error", err, "page", req.Params.Page)
		return true
	}
	if page == nil {
		page = &grantsx.Page{TotalPages: 1}
	}

	c.loadErr = nil
	c.result = page
	c.resultParams = req.Params
	c.known = knownTotals{
		ok:         true,
		search:     req.Params.Search,
		filters:    req.Params.Filters(),
		totalItems: page.TotalItems,
	}
	return true
}

// View returns the render model for the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.paramsLocked()
	total := c.totalPagesLocked()
	if total == 0 {
		// Until totals are known the requested page is the last one known.
		total = p.Page
	}
	v := View{
		Page:       p.Page,
		TotalPages: max(total, 1),
		PageSize:   c.state.PageSize,
		Mode:       c.state.Mode,
		QueryText:  c.state.QueryText,
		Filters:    c.state.Filters,
		Loading:    c.inflight != nil && c.inflight.params == p,
		saved:      make(map[string]struct{}, len(c.saved)),
	}
	for id := range c.saved {
		v.saved[id] = struct{}{}
	}

	switch c.state.Mode {
	case MatchedSubset:
		v.Items = pagination.Slice(c.matched, v.Page, c.state.PageSize)
		v.TotalItems = len(c.matched)
		v.Empty = len(c.matched) == 0
	default:
		if c.loadErr != nil && c.loadErr.Params == p {
			v.Err = c.loadErr
		}
		if c.result != nil && c.resultParams == p {
			v.Items = c.result.Items
			v.TotalItems = c.result.TotalItems
			v.Empty = len(c.result.Items) == 0
		}
	}
	return v
}

// paramsLocked derives the fetch params. The page is the effective page:
// a stale page outside the known range falls back to 1.
func (c *Controller) paramsLocked() grantsx.Params {
	return grantsx.NewParams(
		c.effectivePageLocked(),
		int(c.state.PageSize),
		c.state.SearchTerm,
		c.state.Filters,
	)
}

func (c *Controller) effectivePageLocked() int {
	page := c.state.CurrentPage
	total := c.totalPagesLocked()
	if total == 0 {
		return max(page, 1)
	}
	if page < 1 || page > total {
		return 1
	}
	return page
}

// totalPagesLocked returns the page count for the current mode and size, or
// 0 when it is not known yet.
func (c *Controller) totalPagesLocked() int {
	if c.state.Mode == MatchedSubset {
		return pagination.TotalPages(len(c.matched), c.state.PageSize)
	}
	if c.known.ok && c.known.search == c.state.SearchTerm && c.known.filters == c.state.Filters {
		return pagination.TotalPages(c.known.totalItems, c.state.PageSize)
	}
	return 0
}

// supersedeLocked cancels an outstanding fetch whose params no longer match.
func (c *Controller) supersedeLocked() {
	if c.inflight == nil {
		return
	}
	if c.inflight.params == c.paramsLocked() {
		return
	}
	c.inflight.cancel()
	c.inflight = nil
}

func modeFor(matched []grantsx.Grant) Mode {
	if len(matched) > 0 {
		return MatchedSubset
	}
	return Standard
}
