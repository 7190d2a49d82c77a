package pagination

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/grantsx"
)

// Props are the inputs of a Display.
type Props struct {
	CurrentPage int
	// TotalPages defaults to DefaultTotalPages when zero.
	TotalPages int
	PageSize   PageSize

	OnPageChange     func(page int)
	OnPageSizeChange func(size PageSize)
}

// Display renders page controls and reports navigation upward. It owns no
// state besides the window, which is recomputed on every Update.
type Display struct {
	props  Props
	window Window
}

// New creates a Display from props.
func New(props Props) *Display {
	d := &Display{}
	d.Update(props.CurrentPage, props.TotalPages, props.PageSize)
	d.props.OnPageChange = props.OnPageChange
	d.props.OnPageSizeChange = props.OnPageSizeChange
	return d
}

// Update replaces the inputs and recomputes the window from scratch.
func (d *Display) Update(currentPage, totalPages int, size PageSize) {
	if !size.Valid() {
		size = DefaultPageSize
	}
	d.props.CurrentPage = currentPage
	d.props.TotalPages = totalPages
	d.props.PageSize = size
	d.window = Compute(currentPage, totalPages)
}

// Window returns the current window.
func (d *Display) Window() Window {
	return d.window
}

// PageSize returns the selected page size.
func (d *Display) PageSize() PageSize {
	return d.props.PageSize
}

// Prev reports the previous page to OnPageChange. It returns false when the
// control is disabled.
func (d *Display) Prev() bool {
	if !d.window.HasPrev() {
		return false
	}
	d.emitPage(d.window.Effective - 1)
	return true
}

// Next reports the next page to OnPageChange. It returns false when the
// control is disabled.
func (d *Display) Next() bool {
	if !d.window.HasNext() {
		return false
	}
	d.emitPage(d.window.Effective + 1)
	return true
}

// Select reports page to OnPageChange if it is shown in the window.
func (d *Display) Select(page int) bool {
	if !d.window.Contains(page) {
		return false
	}
	d.emitPage(page)
	return true
}

// SelectSlot selects the i-th page of the window, 0-based.
func (d *Display) SelectSlot(i int) bool {
	return d.Select(d.window.Start + i)
}

// SelectPageSize reports size to OnPageSizeChange. The Display itself is not
// changed; the owner calls Update once it has applied the new size.
func (d *Display) SelectPageSize(size PageSize) error {
	if !size.Valid() {
		return errors.Wrapf(grantsx.ErrInvalidPageSize, "page size %d", int(size))
	}
	if d.props.OnPageSizeChange != nil {
		d.props.OnPageSizeChange(size)
	}
	return nil
}

func (d *Display) emitPage(page int) {
	if d.props.OnPageChange != nil {
		d.props.OnPageChange(page)
	}
}

// String renders a plain-text control bar, e.g. "‹ 6 [7] 8 9 10 › · 10/page".
func (d *Display) String() string {
	var b strings.Builder
	if d.window.HasPrev() {
		b.WriteString("‹ ")
	} else {
		b.WriteString("  ")
	}
	for i, p := range d.window.Pages() {
		if i > 0 {
			b.WriteByte(' ')
		}
		if p == d.window.Effective {
			fmt.Fprintf(&b, "[%d]", p)
		} else {
			fmt.Fprintf(&b, "%d", p)
		}
	}
	if d.window.HasNext() {
		b.WriteString(" ›")
	} else {
		b.WriteString("  ")
	}
	fmt.Fprintf(&b, " · %d/page", int(d.props.PageSize))
	return b.String()
}
