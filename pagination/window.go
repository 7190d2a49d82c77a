// Package pagination computes the sliding window of page numbers shown
// around the current page and holds the page-size choices.
package pagination

// WindowSize is the number of page links shown at once.
const WindowSize = 5

// DefaultTotalPages is assumed when the caller does not know the page count.
const DefaultTotalPages = 4

// Window is the run of page numbers rendered around the effective page.
type Window struct {
	// Effective is the current page after guarding against stale values.
	Effective int
	// Start is the first page number shown.
	Start int
	// End is the last page number shown, inclusive.
	End int
	// TotalPages is the page count the window was computed against.
	TotalPages int
}

// Compute derives the window for currentPage out of totalPages.
// totalPages <= 0 is treated as DefaultTotalPages. A currentPage outside
// [1, totalPages] falls back to page 1.
func Compute(currentPage, totalPages int) Window {
	if totalPages <= 0 {
		totalPages = DefaultTotalPages
	}
	effective := currentPage
	if effective > totalPages || effective < 1 {
		effective = 1
	}
	start := (effective-1)/WindowSize*WindowSize + 1
	end := min(start+WindowSize-1, totalPages)
	return Window{
		Effective:  effective,
		Start:      start,
		End:        end,
		TotalPages: totalPages,
	}
}

// Pages returns the page numbers from Start to End.
func (w Window) Pages() []int {
	if w.End < w.Start {
		return nil
	}
	pages := make([]int, 0, w.End-w.Start+1)
	for p := w.Start; p <= w.End; p++ {
		pages = append(pages, p)
	}
	return pages
}

// Contains reports whether page is rendered in the window.
func (w Window) Contains(page int) bool {
	return page >= w.Start && page <= w.End
}

// HasPrev reports whether the previous-page control is enabled.
func (w Window) HasPrev() bool {
	return w.Effective > 1
}

// HasNext reports whether the next-page control is enabled.
func (w Window) HasNext() bool {
	return w.Effective < w.TotalPages
}

// TotalPages returns ceil(totalItems/size), never less than 1.
func TotalPages(totalItems int, size PageSize) int {
	if size <= 0 || totalItems <= 0 {
		return 1
	}
	n := int(size)
	return (totalItems + n - 1) / n
}

// Offset returns the index of the first item of page.
func Offset(page int, size PageSize) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * int(size)
}

// Clamp moves page to the nearest bound of [1, totalPages].
func Clamp(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Slice returns the items of page out of a locally held list.
func Slice[T any](items []T, page int, size PageSize) []T {
	start := Offset(page, size)
	if start >= len(items) {
		return nil
	}
	end := min(start+int(size), len(items))
	return items[start:end]
}
