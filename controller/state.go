package controller

import (
	"github.com/letmevibethatforyou/grantsx"
	"github.com/letmevibethatforyou/grantsx/pagination"
)

// Mode selects where displayed items come from.
type Mode int

const (
	// Standard pages through the remote grant listing.
	Standard Mode = iota
	// MatchedSubset slices a locally held matched list.
	MatchedSubset
)

func (m Mode) String() string {
	switch m {
	case Standard:
		return "standard"
	case MatchedSubset:
		return "matched"
	default:
		return "unknown"
	}
}

// State is the search state of one view.
type State struct {
	// QueryText is what the user has typed.
	QueryText string
	// SearchTerm is the submitted search, sent as the remote search constraint.
	SearchTerm string
	// Filters are the active filters.
	Filters grantsx.FilterSet
	// CurrentPage is the requested page, 1-based. It may be stale after a
	// page-size change and is clamped when used.
	CurrentPage int
	// PageSize is one of the allowed sizes.
	PageSize pagination.PageSize
	// Mode selects standard or matched-subset rendering.
	Mode Mode
}

// DefaultState is the state of a freshly mounted view.
func DefaultState() State {
	return State{
		CurrentPage: 1,
		PageSize:    pagination.DefaultPageSize,
		Mode:        Standard,
	}
}

// View is the reconciled render model.
type View struct {
	// Items are the grants to render for Page.
	Items []grantsx.Grant
	// Page is the effective page, always within [1, TotalPages].
	Page int
	// TotalPages is at least 1. Before the totals for the current search
	// and filters are known it equals Page.
	TotalPages int
	// TotalItems is the item count across all pages, when known.
	TotalItems int
	PageSize   pagination.PageSize
	Mode       Mode
	QueryText  string
	Filters    grantsx.FilterSet
	// Loading is set while a fetch for the current params is outstanding.
	Loading bool
	// Err is the load error for the current params, if any.
	Err *grantsx.LoadError
	// Empty is set when a successful load returned no grants.
	Empty bool

	saved map[string]struct{}
}

// IsSaved reports whether the grant id is in the user's favorites.
func (v View) IsSaved(id string) bool {
	_, ok := v.saved[id]
	return ok
}
