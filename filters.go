package grantsx

import (
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Amount is an optional monetary bound. The zero value means "no constraint".
// Amount is comparable so that it can be part of a cache key.
type Amount struct {
	value float64
	set   bool
}

// AmountOf returns a set Amount. NaN and infinities yield an unset Amount
// because they never compare equal as part of a cache key.
func AmountOf(v float64) Amount {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Amount{}
	}
	return Amount{value: v, set: true}
}

// ParseAmount parses s as an Amount. Blank input yields an unset Amount.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Amount{}, errors.Wrapf(ErrInvalidFilter, "amount %q is not a number", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Amount{}, errors.Wrapf(ErrInvalidFilter, "amount %q is not finite", s)
	}
	if v < 0 {
		return Amount{}, errors.Wrapf(ErrInvalidFilter, "amount %q is negative", s)
	}
	return AmountOf(v), nil
}

// Value returns the amount and whether it is set.
func (a Amount) Value() (float64, bool) {
	return a.value, a.set
}

// IsSet reports whether the amount constrains anything.
func (a Amount) IsSet() bool {
	return a.set
}

// String formats the amount for query parameters; unset amounts format as "".
func (a Amount) String() string {
	if !a.set {
		return ""
	}
	return strconv.FormatFloat(a.value, 'f', -1, 64)
}

// FilterSet holds the active grant filters. Empty fields do not constrain.
type FilterSet struct {
	// City restricts results to a location.
	City string
	// AgencyName restricts results to a funding agency.
	AgencyName string
	// MinAmount is the lower bound on the award amount.
	MinAmount Amount
	// MaxAmount is the upper bound on the award amount.
	MaxAmount Amount
}

// IsEmpty reports whether no field of f is set.
func (f FilterSet) IsEmpty() bool {
	return strings.TrimSpace(f.City) == "" &&
		strings.TrimSpace(f.AgencyName) == "" &&
		!f.MinAmount.IsSet() &&
		!f.MaxAmount.IsSet()
}

// Validate checks a filter edit before it is applied.
// A filter edit needs at least one non-empty field.
func (f FilterSet) Validate() error {
	if f.IsEmpty() {
		return ErrEmptyFilter
	}
	lo, hasLo := f.MinAmount.Value()
	hi, hasHi := f.MaxAmount.Value()
	if hasLo && hasHi && lo > hi {
		return errors.Wrapf(ErrInvalidFilter, "min amount %v exceeds max amount %v", lo, hi)
	}
	return nil
}

// Normalize trims the text fields.
func (f FilterSet) Normalize() FilterSet {
	f.City = strings.TrimSpace(f.City)
	f.AgencyName = strings.TrimSpace(f.AgencyName)
	return f
}

// Expressions converts f into filter expressions over grant fields.
func (f FilterSet) Expressions() []Expression {
	f = f.Normalize()
	var exprs []Expression
	if f.City != "" {
		exprs = append(exprs, Eq(FieldCity, f.City))
	}
	if f.AgencyName != "" {
		exprs = append(exprs, Eq(FieldAgencyName, f.AgencyName))
	}
	if lo, ok := f.MinAmount.Value(); ok {
		exprs = append(exprs, Gte(FieldMaxAmount, lo))
	}
	if hi, ok := f.MaxAmount.Value(); ok {
		exprs = append(exprs, Lte(FieldMinAmount, hi))
	}
	return exprs
}

// Apply implements MatchOption so a FilterSet can be passed to a Matcher.
func (f FilterSet) Apply(cfg *MatchConfig) {
	cfg.Filters = append(cfg.Filters, f.Expressions()...)
}

// ValidateQuery rejects blank search text.
func ValidateQuery(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyQuery
	}
	return nil
}
