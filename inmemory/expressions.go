package inmemory

import (
	"fmt"
	"strings"

	"github.com/letmevibethatforyou/grantsx"
)

// matchesFilters checks if a grant matches all the filter expressions.
func matchesFilters(g grantsx.Grant, filters []grantsx.Expression) bool {
	for _, filter := range filters {
		if !evaluateExpression(g, filter) {
			return false
		}
	}
	return true
}

func evaluateExpression(g grantsx.Grant, expr grantsx.Expression) bool {
	switch e := expr.(type) {
	case grantsx.AndExpr:
		for _, inner := range e.Exprs {
			if !evaluateExpression(g, inner) {
				return false
			}
		}
		return true
	case grantsx.OrExpr:
		for _, inner := range e.Exprs {
			if evaluateExpression(g, inner) {
				return true
			}
		}
		return false
	case grantsx.NotExpr:
		return !evaluateExpression(g, e.Inner)
	case grantsx.CompareExpr:
		return evaluateCompare(g, e)
	case grantsx.RangeExpr:
		return evaluateRange(g, e)
	default:
		// Unknown expression type, return true to not filter out
		return true
	}
}

func evaluateCompare(g grantsx.Grant, expr grantsx.CompareExpr) bool {
	value, exists := g.Field(expr.Field)
	if !exists {
		return expr.Op == grantsx.OpEq && expr.Value == nil
	}

	switch expr.Op {
	case grantsx.OpEq:
		return compareEqual(value, expr.Value)
	case grantsx.OpGte:
		return compareValues(value, expr.Value) >= 0
	case grantsx.OpLte:
		return compareValues(value, expr.Value) <= 0
	default:
		return false
	}
}

func evaluateRange(g grantsx.Grant, expr grantsx.RangeExpr) bool {
	value, exists := g.Field(expr.Field)
	if !exists {
		return false
	}
	if expr.Min != nil && compareValues(value, expr.Min) < 0 {
		return false
	}
	if expr.Max != nil && compareValues(value, expr.Max) > 0 {
		return false
	}
	return true
}

// compareEqual compares numbers numerically and everything else as
// case-insensitive text.
func compareEqual(v1, v2 interface{}) bool {
	if v1 == nil || v2 == nil {
		return v1 == v2
	}

	if f1, ok1 := grantsx.ToFloat64(v1); ok1 {
		if f2, ok2 := grantsx.ToFloat64(v2); ok2 {
			return f1 == f2
		}
	}

	return strings.EqualFold(fmt.Sprintf("%v", v1), fmt.Sprintf("%v", v2))
}

// compareValues orders two values, numerically when both are numbers.
func compareValues(v1, v2 interface{}) int {
	if v1 == nil && v2 == nil {
		return 0
	}
	if v1 == nil {
		return -1
	}
	if v2 == nil {
		return 1
	}

	if f1, ok1 := grantsx.ToFloat64(v1); ok1 {
		if f2, ok2 := grantsx.ToFloat64(v2); ok2 {
			switch {
			case f1 < f2:
				return -1
			case f1 > f2:
				return 1
			}
			return 0
		}
	}

	return strings.Compare(fmt.Sprintf("%v", v1), fmt.Sprintf("%v", v2))
}
