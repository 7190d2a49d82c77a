package grantsx

import (
	"testing"
)

func TestParamsValues(t *testing.T) {
	p := NewParams(2, 25, "energy", FilterSet{MinAmount: AmountOf(100000)})
	v := p.Values()

	if got := v.Get(ParamPage); got != "2" {
		t.Errorf("Expected page 2, got %q", got)
	}
	if got := v.Get(ParamLimit); got != "25" {
		t.Errorf("Expected limit 25, got %q", got)
	}
	if got := v.Get(ParamSearch); got != "energy" {
		t.Errorf("Expected search energy, got %q", got)
	}
	if got := v.Get(ParamMinAmount); got != "100000" {
		t.Errorf("Expected minAmount 100000, got %q", got)
	}
	for _, key := range []string{ParamFilterLocation, ParamFilterAgency, ParamMaxAmount} {
		if v.Has(key) {
			t.Errorf("Expected %s to be omitted, got %q", key, v.Get(key))
		}
	}
}

func TestParamsComparable(t *testing.T) {
	a := NewParams(1, 10, "", FilterSet{City: "Boise", MaxAmount: AmountOf(5)})
	b := NewParams(1, 10, "", FilterSet{City: " Boise", MaxAmount: AmountOf(5)})
	if a != b {
		t.Errorf("Expected identical tuples to compare equal: %v vs %v", a, b)
	}
	if a.Key() != b.Key() {
		t.Errorf("Expected identical keys, got %q and %q", a.Key(), b.Key())
	}

	c := a
	c.Page = 2
	if a == c || a.Key() == c.Key() {
		t.Error("Expected different pages to differ")
	}
	if c.Offset() != 10 {
		t.Errorf("Expected offset 10, got %d", c.Offset())
	}
}

func TestParamsFiltersRoundTrip(t *testing.T) {
	f := FilterSet{City: "Reno", AgencyName: "NSF", MinAmount: AmountOf(1), MaxAmount: AmountOf(2)}
	if got := NewParams(1, 10, "", f).Filters(); got != f {
		t.Errorf("Expected %v, got %v", f, got)
	}
}
