package grantsx

import (
	"fmt"
	"net/url"
	"strconv"
)

// Query parameter names of the grant-listing call.
const (
	ParamPage           = "page"
	ParamLimit          = "limit"
	ParamSearch         = "search"
	ParamFilterLocation = "filterLocation"
	ParamFilterAgency   = "filterAgency"
	ParamMinAmount      = "minAmount"
	ParamMaxAmount      = "maxAmount"
)

// Params is the full parameter tuple of one grant-listing call.
// Params values are comparable and identify cache entries.
type Params struct {
	// Page is 1-based.
	Page int
	// Limit is the page size.
	Limit int
	// Search is the active search term.
	Search string
	// FilterLocation restricts by city.
	FilterLocation string
	// FilterAgency restricts by agency name.
	FilterAgency string
	// MinAmount is the lower amount bound.
	MinAmount Amount
	// MaxAmount is the upper amount bound.
	MaxAmount Amount
}

// NewParams builds the parameter tuple for a page of a search.
func NewParams(page, limit int, search string, filters FilterSet) Params {
	filters = filters.Normalize()
	return Params{
		Page:           page,
		Limit:          limit,
		Search:         search,
		FilterLocation: filters.City,
		FilterAgency:   filters.AgencyName,
		MinAmount:      filters.MinAmount,
		MaxAmount:      filters.MaxAmount,
	}
}

// Filters returns the filter part of p.
func (p Params) Filters() FilterSet {
	return FilterSet{
		City:       p.FilterLocation,
		AgencyName: p.FilterAgency,
		MinAmount:  p.MinAmount,
		MaxAmount:  p.MaxAmount,
	}
}

// Offset returns the number of items before p.Page.
func (p Params) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Values encodes p as query parameters. Unset optional fields are omitted.
func (p Params) Values() url.Values {
	v := url.Values{}
	v.Set(ParamPage, strconv.Itoa(p.Page))
	v.Set(ParamLimit, strconv.Itoa(p.Limit))
	if p.Search != "" {
		v.Set(ParamSearch, p.Search)
	}
	if p.FilterLocation != "" {
		v.Set(ParamFilterLocation, p.FilterLocation)
	}
	if p.FilterAgency != "" {
		v.Set(ParamFilterAgency, p.FilterAgency)
	}
	if p.MinAmount.IsSet() {
		v.Set(ParamMinAmount, p.MinAmount.String())
	}
	if p.MaxAmount.IsSet() {
		v.Set(ParamMaxAmount, p.MaxAmount.String())
	}
	return v
}

// Key returns a stable string form of p.
func (p Params) Key() string {
	return fmt.Sprintf("%d|%d|%q|%q|%q|%s|%s",
		p.Page, p.Limit, p.Search, p.FilterLocation, p.FilterAgency, p.MinAmount, p.MaxAmount)
}
