package tui

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letmevibethatforyou/grantsx"
	"github.com/letmevibethatforyou/grantsx/controller"
	"github.com/letmevibethatforyou/grantsx/inmemory"
	"github.com/letmevibethatforyou/grantsx/pagination"
)

// newTestStore holds 35 grants; every fifth one is a river restoration grant.
func newTestStore() *inmemory.Store {
	store := inmemory.New()
	for i := 1; i <= 35; i++ {
		title := fmt.Sprintf("Community Grant %02d", i)
		if i%5 == 0 {
			title = fmt.Sprintf("River Restoration %02d", i)
		}
		store.Put(grantsx.Grant{
			ID:         fmt.Sprintf("g-%02d", i),
			Title:      title,
			AgencyName: "Dept of Arts",
			City:       "Austin",
			MinAmount:  1000,
			MaxAmount:  50000,
		})
	}
	return store
}

func newTestModel(t *testing.T, lister grantsx.Lister, opts ...Option) *Model {
	t.Helper()
	m := New(context.Background(), controller.New(lister), opts...)
	m.search.Cursor.SetMode(cursor.CursorStatic)
	return m
}

// drain runs cmd and every command it produces, feeding messages back into
// m. Spinner ticks are not fed back so the queue settles.
func drain(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for i := 0; len(queue) > 0; i++ {
		require.Less(t, i, 200, "command queue did not settle")
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case nil, tea.QuitMsg, spinner.TickMsg:
		default:
			_, c := m.Update(msg)
			queue = append(queue, c)
		}
	}
}

func press(t *testing.T, m *Model, keys ...tea.KeyMsg) {
	t.Helper()
	for _, k := range keys {
		_, cmd := m.Update(k)
		drain(t, m, cmd)
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(s string) []tea.KeyMsg {
	keys := make([]tea.KeyMsg, 0, len(s))
	for _, r := range s {
		keys = append(keys, runes(string(r)))
	}
	return keys
}

func TestModel_InitialLoad(t *testing.T) {
	m := newTestModel(t, newTestStore())
	drain(t, m, m.Init())

	v := m.ctl.View()
	require.Len(t, v.Items, 10)
	assert.Equal(t, "g-01", v.Items[0].ID)
	assert.Equal(t, 1, v.Page)
	assert.Equal(t, 4, v.TotalPages)
	assert.Equal(t, []int{1, 2, 3, 4}, m.pager.Window().Pages())

	out := m.View()
	assert.Contains(t, out, "Community Grant 01")
	assert.Contains(t, out, "page 1 of 4")
	assert.Contains(t, out, "$1,000-$50,000")
	assert.NotContains(t, out, "Loading grants")
}

func TestModel_Navigation(t *testing.T) {
	t.Run("next and previous", func(t *testing.T) {
		m := newTestModel(t, newTestStore())
		drain(t, m, m.Init())

		press(t, m, tea.KeyMsg{Type: tea.KeyRight})
		v := m.ctl.View()
		assert.Equal(t, 2, v.Page)
		require.NotEmpty(t, v.Items)
		assert.Equal(t, "g-11", v.Items[0].ID)
		assert.Equal(t, 2, m.pager.Window().Effective)

		press(t, m, runes("h"))
		assert.Equal(t, 1, m.ctl.View().Page)
	})

	t.Run("previous is disabled on the first page", func(t *testing.T) {
		m := newTestModel(t, newTestStore())
		drain(t, m, m.Init())

		press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
		assert.Equal(t, 1, m.ctl.View().Page)
	})

	t.Run("number keys select a window slot", func(t *testing.T) {
		m := newTestModel(t, newTestStore())
		drain(t, m, m.Init())

		press(t, m, runes("3"))
		v := m.ctl.View()
		assert.Equal(t, 3, v.Page)
		require.NotEmpty(t, v.Items)
		assert.Equal(t, "g-21", v.Items[0].ID)

		press(t, m, runes("5"))
		assert.Equal(t, 3, m.ctl.View().Page, "slot outside the window is ignored")
	})

	t.Run("next is disabled on the last page", func(t *testing.T) {
		m := newTestModel(t, newTestStore())
		drain(t, m, m.Init())

		press(t, m, runes("4"), runes("l"))
		v := m.ctl.View()
		assert.Equal(t, 4, v.Page)
		assert.Len(t, v.Items, 5)
	})
}

func TestModel_PageSizeCycle(t *testing.T) {
	m := newTestModel(t, newTestStore())
	drain(t, m, m.Init())

	press(t, m, runes("s"))
	v := m.ctl.View()
	assert.Equal(t, pagination.Size25, v.PageSize)
	assert.Equal(t, 2, v.TotalPages)
	assert.Len(t, v.Items, 25)
	assert.Equal(t, pagination.Size25, m.pager.PageSize())
	assert.Contains(t, m.View(), "25/page")
}

func TestModel_Search(t *testing.T) {
	t.Run("submit narrows the listing", func(t *testing.T) {
		m := newTestModel(t, newTestStore())
		drain(t, m, m.Init())
		press(t, m, runes("2"))

		press(t, m, runes("/"))
		require.True(t, m.searching)
		press(t, m, typeText("river")...)
		assert.Equal(t, "river", m.ctl.State().QueryText)
		assert.Empty(t, m.ctl.State().SearchTerm, "typing alone does not search")

		press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		assert.False(t, m.searching)

		v := m.ctl.View()
		assert.Equal(t, 1, v.Page)
		assert.Equal(t, 7, v.TotalItems)
		assert.Equal(t, 1, v.TotalPages)
		assert.Contains(t, m.View(), "River Restoration 05")
		assert.NotContains(t, m.View(), "Community Grant")
	})

	t.Run("blank submit is rejected", func(t *testing.T) {
		m := newTestModel(t, newTestStore())
		drain(t, m, m.Init())

		press(t, m, runes("/"))
		press(t, m, typeText("  ")...)
		press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

		assert.Empty(t, m.ctl.State().SearchTerm)
		assert.Equal(t, 35, m.ctl.View().TotalItems)
		assert.Contains(t, m.View(), "Enter a search term")
	})

	t.Run("esc clears an active search", func(t *testing.T) {
		m := newTestModel(t, newTestStore())
		drain(t, m, m.Init())

		press(t, m, runes("/"))
		press(t, m, typeText("river")...)
		press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		require.Equal(t, 7, m.ctl.View().TotalItems)

		press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
		assert.Empty(t, m.ctl.State().QueryText)
		assert.Equal(t, 35, m.ctl.View().TotalItems)
	})
}

func TestModel_LoadError(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)

	store := newTestStore()
	lister := grantsx.ListerFunc(func(ctx context.Context, p grantsx.Params) (*grantsx.Page, error) {
		if failing.Load() {
			return nil, errors.Wrap(grantsx.ErrBackendUnavailable, "connection refused")
		}
		return store.ListGrants(ctx, p)
	})

	m := newTestModel(t, lister)
	drain(t, m, m.Init())

	v := m.ctl.View()
	require.NotNil(t, v.Err)
	out := m.View()
	assert.Contains(t, out, "Error:")
	assert.Contains(t, out, "Press r to retry")

	failing.Store(false)
	press(t, m, runes("r"))

	v = m.ctl.View()
	assert.Nil(t, v.Err)
	assert.Len(t, v.Items, 10)
	assert.NotContains(t, m.View(), "Press r to retry")
}

func TestModel_DropsSupersededPage(t *testing.T) {
	m := newTestModel(t, newTestStore())
	drain(t, m, m.Init())

	_, first := m.Update(tea.KeyMsg{Type: tea.KeyRight})
	require.NotNil(t, first)
	_, second := m.Update(tea.KeyMsg{Type: tea.KeyRight})
	require.NotNil(t, second)

	// The page 2 response arrives after page 3 was requested.
	stale := first()
	_, cmd := m.Update(stale)
	assert.Nil(t, cmd)
	assert.True(t, m.ctl.View().Loading)

	drain(t, m, second)
	v := m.ctl.View()
	assert.Equal(t, 3, v.Page)
	require.NotEmpty(t, v.Items)
	assert.Equal(t, "g-21", v.Items[0].ID)
}

func TestModel_Match(t *testing.T) {
	t.Run("matched subset replaces the listing", func(t *testing.T) {
		store := newTestStore()
		m := newTestModel(t, store, WithMatcher(store))
		drain(t, m, m.Init())

		press(t, m, runes("/"))
		press(t, m, typeText("river")...)
		press(t, m, tea.KeyMsg{Type: tea.KeyEnter}, runes("m"))

		v := m.ctl.View()
		assert.Equal(t, controller.MatchedSubset, v.Mode)
		assert.Equal(t, 7, v.TotalItems)
		out := m.View()
		assert.Contains(t, out, "[matched]")
		assert.Contains(t, out, "100%")
		assert.Contains(t, out, "Showing 7 matched grants")
	})

	t.Run("requires a search", func(t *testing.T) {
		store := newTestStore()
		m := newTestModel(t, store, WithMatcher(store))
		drain(t, m, m.Init())

		press(t, m, runes("m"))
		assert.Equal(t, controller.Standard, m.ctl.View().Mode)
		assert.Contains(t, m.View(), "Submit a search before matching")
	})

	t.Run("not configured", func(t *testing.T) {
		m := newTestModel(t, newTestStore())
		drain(t, m, m.Init())

		press(t, m, runes("m"))
		assert.Contains(t, m.View(), "Matching is not configured")
	})
}

func TestModel_Favorites(t *testing.T) {
	store := newTestStore()
	store.Favorite("g-02")

	m := newTestModel(t, store, WithFavorites(store))
	drain(t, m, m.Init())

	assert.True(t, m.ctl.IsSaved("g-02"))
	assert.Contains(t, m.View(), "★")
}

func TestModel_EmptyResults(t *testing.T) {
	m := newTestModel(t, inmemory.New())
	drain(t, m, m.Init())

	v := m.ctl.View()
	assert.True(t, v.Empty)
	assert.Equal(t, 1, v.TotalPages)
	assert.Contains(t, m.View(), "No grants found.")
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t, newTestStore())
	drain(t, m, m.Init())

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestFormatAmountRange(t *testing.T) {
	tests := []struct {
		name   string
		lo, hi float64
		want   string
	}{
		{name: "unknown", want: "amount n/a"},
		{name: "range", lo: 1000, hi: 50000, want: "$1,000-$50,000"},
		{name: "upper bound only", hi: 5000, want: "up to $5,000"},
		{name: "lower bound only", lo: 2500, want: "from $2,500"},
		{name: "fixed", lo: 750, hi: 750, want: "$750"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatAmountRange(tt.lo, tt.hi))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
