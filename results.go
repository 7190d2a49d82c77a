package grantsx

// Page is one page of grant-listing results.
type Page struct {
	// Items contains the grants of this page in backend order.
	Items []Grant

	// TotalItems is the number of grants matching the params across all pages.
	TotalItems int

	// TotalPages is the number of pages, at least 1.
	TotalPages int
}

// Empty reports whether the page has no items. An empty page is not an error.
func (p *Page) Empty() bool {
	return p == nil || len(p.Items) == 0
}
