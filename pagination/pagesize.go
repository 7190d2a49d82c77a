package pagination

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/grantsx"
)

// PageSize is one of the fixed page-size choices.
type PageSize int

const (
	Size10  PageSize = 10
	Size25  PageSize = 25
	Size50  PageSize = 50
	Size100 PageSize = 100
)

// DefaultPageSize is used when a view is created.
const DefaultPageSize = Size10

var pageSizes = [...]PageSize{Size10, Size25, Size50, Size100}

// PageSizes returns the allowed page sizes in ascending order.
func PageSizes() []PageSize {
	out := make([]PageSize, len(pageSizes))
	copy(out, pageSizes[:])
	return out
}

// Valid reports whether s is one of the allowed sizes.
func (s PageSize) Valid() bool {
	for _, allowed := range pageSizes {
		if s == allowed {
			return true
		}
	}
	return false
}

// Next returns the following allowed size, wrapping around.
func (s PageSize) Next() PageSize {
	for i, allowed := range pageSizes {
		if s == allowed {
			return pageSizes[(i+1)%len(pageSizes)]
		}
	}
	return DefaultPageSize
}

func (s PageSize) String() string {
	return strconv.Itoa(int(s))
}

// ParsePageSize validates n as a PageSize.
func ParsePageSize(n int) (PageSize, error) {
	s := PageSize(n)
	if !s.Valid() {
		return 0, errors.Wrapf(grantsx.ErrInvalidPageSize, "page size %d not in %v", n, pageSizes)
	}
	return s, nil
}
