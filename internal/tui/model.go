// Package tui implements the interactive grants browser.
package tui

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/grantsx"
	"github.com/letmevibethatforyou/grantsx/controller"
	"github.com/letmevibethatforyou/grantsx/pagination"
)

// Messages for Model.
type pageLoadedMsg struct {
	req  controller.Request
	page *grantsx.Page
	err  error
}

type matchesLoadedMsg struct {
	err error
}

type favoritesLoadedMsg struct {
	err error
}

// Model is the Bubble Tea model for browsing grants. All search state lives
// in the controller; the model only translates keys and renders.
type Model struct {
	ctx       context.Context
	ctl       *controller.Controller
	matcher   grantsx.Matcher
	favorites grantsx.FavoritesLister
	logger    *slog.Logger

	pager   *pagination.Display
	search  textinput.Model
	spinner spinner.Model

	searching bool
	matching  bool
	quitting  bool

	width  int
	height int

	// status is a one-line notice, cleared on the next key press.
	status string
	// err holds failures that are not page loads, such as a failed match.
	err error
}

// Option configures a Model.
type Option func(*Model)

// WithMatcher enables the match key.
func WithMatcher(m grantsx.Matcher) Option {
	return func(model *Model) {
		model.matcher = m
	}
}

// WithFavorites loads saved indicators from fl on start.
func WithFavorites(fl grantsx.FavoritesLister) Option {
	return func(model *Model) {
		model.favorites = fl
	}
}

// WithLogger sets the model logger.
func WithLogger(l *slog.Logger) Option {
	return func(model *Model) {
		if l != nil {
			model.logger = l
		}
	}
}

// New creates a browser over ctl.
func New(ctx context.Context, ctl *controller.Controller, opts ...Option) *Model {
	m := &Model{
		ctx:     ctx,
		ctl:     ctl,
		logger:  slog.Default(),
		search:  newSearchInput(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(TitleStyle)),
		width:   defaultWidth,
		height:  defaultHeight,
	}
	for _, opt := range opts {
		opt(m)
	}

	v := ctl.View()
	m.pager = pagination.New(pagination.Props{
		CurrentPage: v.Page,
		TotalPages:  v.TotalPages,
		PageSize:    v.PageSize,
		OnPageChange: func(page int) {
			m.ctl.ChangePage(page)
		},
		OnPageSizeChange: func(size pagination.PageSize) {
			if err := m.ctl.ChangePageSize(size); err != nil {
				m.err = err
			}
		},
	})
	if q := v.QueryText; q != "" {
		m.search.SetValue(q)
	}
	return m
}

func newSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "Search grants..."
	ti.CharLimit = searchInputCharLimit
	ti.Width = searchInputWidth
	return ti
}

// Init starts the spinner, the first page fetch and the favorites load.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.refresh()}
	if m.favorites != nil {
		ctl, fl, ctx := m.ctl, m.favorites, m.ctx
		cmds = append(cmds, func() tea.Msg {
			return favoritesLoadedMsg{err: ctl.LoadFavorites(ctx, fl)}
		})
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case pageLoadedMsg:
		return m.handlePageLoaded(msg)
	case matchesLoadedMsg:
		return m.handleMatchesLoaded(msg)
	case favoritesLoadedMsg:
		if msg.err != nil {
			m.logger.WarnContext(m.ctx, "failed to load favorites", "error", msg.err)
			m.status = "Saved grants unavailable"
		}
		return m, nil
	}

	if m.searching {
		return m.handleSearchInput(msg)
	}
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(keyMsg)
	}
	return m, nil
}

func (m *Model) handlePageLoaded(msg pageLoadedMsg) (tea.Model, tea.Cmd) {
	applied := m.ctl.Complete(msg.req, msg.page, msg.err)
	if applied && msg.err != nil {
		// Retrying is left to the user.
		m.syncPager()
		return m, nil
	}
	return m, m.refresh()
}

func (m *Model) handleMatchesLoaded(msg matchesLoadedMsg) (tea.Model, tea.Cmd) {
	m.matching = false
	switch {
	case errors.Is(msg.err, grantsx.ErrEmptyQuery):
		m.status = "Submit a search before matching"
	case msg.err != nil:
		m.logger.WarnContext(m.ctx, "failed to match grants", "error", msg.err)
		m.err = msg.err
	default:
		m.err = nil
		if v := m.ctl.View(); v.Mode == controller.MatchedSubset {
			m.status = "Showing " + strconv.Itoa(v.TotalItems) + " matched grants"
		} else {
			m.status = "No matches found"
		}
	}
	return m, m.refresh()
}

func (m *Model) handleSearchInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case keyEnter:
			m.searching = false
			m.search.Blur()
			m.status = ""
			if err := m.ctl.SubmitSearch(m.search.Value()); err != nil {
				m.ctl.SetQueryText("")
				m.search.SetValue("")
				m.status = "Enter a search term"
			}
			return m, m.refresh()
		case keyEsc:
			m.searching = false
			m.search.Blur()
			return m, nil
		case keyCtrlC:
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.ctl.SetQueryText(m.search.Value())
	return m, tea.Batch(cmd, m.refresh())
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""

	switch key := msg.String(); key {
	case keyQuit, keyCtrlC:
		m.quitting = true
		return m, tea.Quit
	case keySlash:
		m.searching = true
		return m, m.search.Focus()
	case keyEsc:
		if m.search.Value() != "" {
			m.search.SetValue("")
			m.ctl.SetQueryText("")
		}
	case keyLeft, keyH:
		m.pager.Prev()
	case keyRight, keyL:
		m.pager.Next()
	case keySize:
		if err := m.pager.SelectPageSize(m.pager.PageSize().Next()); err != nil {
			m.err = err
		}
	case keyClear:
		m.ctl.ClearFilters()
	case keyMatch:
		return m, m.match()
	case keyRetry:
		m.err = nil
	default:
		if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= slotCount {
			m.pager.SelectSlot(n - 1)
		}
	}
	return m, m.refresh()
}

// match runs the matcher for the active search in the background.
func (m *Model) match() tea.Cmd {
	if m.matcher == nil {
		m.status = "Matching is not configured"
		return nil
	}
	if m.matching {
		return nil
	}
	m.matching = true
	ctl, matcher, ctx := m.ctl, m.matcher, m.ctx
	return func() tea.Msg {
		return matchesLoadedMsg{err: ctl.LoadMatches(ctx, matcher)}
	}
}

// refresh starts a fetch when the current params have none, and returns the
// command that performs it.
func (m *Model) refresh() tea.Cmd {
	if !m.ctl.NeedsFetch() {
		m.syncPager()
		return nil
	}
	req := m.ctl.Begin(m.ctx)
	m.syncPager()

	ctl := m.ctl
	return func() tea.Msg {
		page, err := ctl.Load(req)
		return pageLoadedMsg{req: req, page: page, err: err}
	}
}

// syncPager feeds the reconciled view back into the pager.
func (m *Model) syncPager() {
	v := m.ctl.View()
	m.pager.Update(v.Page, v.TotalPages, v.PageSize)
}
