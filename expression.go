package grantsx

// Operator represents comparison operators.
type Operator string

const (
	// OpEq matches values equal to the operand.
	OpEq Operator = "eq"
	// OpGte matches values greater than or equal to the operand.
	OpGte Operator = "gte"
	// OpLte matches values less than or equal to the operand.
	OpLte Operator = "lte"
)

// Expression represents a composable filter expression over grant fields.
// All Expressions are MatchOptions, but not all MatchOptions are Expressions.
type Expression interface {
	MatchOption
	// expr is a marker method to distinguish expressions from other options.
	expr()
}

type baseExpr struct{}

func (baseExpr) expr() {}

// AndExpr matches when every sub-expression matches.
type AndExpr struct {
	baseExpr
	Exprs []Expression
}

// Apply implements the MatchOption interface for AndExpr.
func (a AndExpr) Apply(cfg *MatchConfig) {
	cfg.Filters = append(cfg.Filters, a)
}

// And creates an AND expression combining multiple expressions.
func And(exprs ...Expression) Expression {
	return AndExpr{Exprs: exprs}
}

// OrExpr matches when any sub-expression matches.
type OrExpr struct {
	baseExpr
	Exprs []Expression
}

// Apply implements the MatchOption interface for OrExpr.
func (o OrExpr) Apply(cfg *MatchConfig) {
	cfg.Filters = append(cfg.Filters, o)
}

// Or creates an OR expression combining multiple expressions.
func Or(exprs ...Expression) Expression {
	return OrExpr{Exprs: exprs}
}

// NotExpr negates Inner.
type NotExpr struct {
	baseExpr
	Inner Expression
}

// Apply implements the MatchOption interface for NotExpr.
func (n NotExpr) Apply(cfg *MatchConfig) {
	cfg.Filters = append(cfg.Filters, n)
}

// Not creates a NOT expression negating the given expression.
func Not(expr Expression) Expression {
	return NotExpr{Inner: expr}
}

// CompareExpr compares a single field against a value.
type CompareExpr struct {
	baseExpr
	// Field is the grant payload key.
	Field string
	// Op is the comparison applied.
	Op Operator
	// Value is the operand. Strings compare case-insensitively for OpEq.
	Value interface{}
}

// Apply implements the MatchOption interface for CompareExpr.
func (c CompareExpr) Apply(cfg *MatchConfig) {
	cfg.Filters = append(cfg.Filters, c)
}

// Eq creates an equality comparison expression.
func Eq(field string, value interface{}) Expression {
	return CompareExpr{Field: field, Op: OpEq, Value: value}
}

// Gte creates a greater-than-or-equal comparison expression.
func Gte(field string, value interface{}) Expression {
	return CompareExpr{Field: field, Op: OpGte, Value: value}
}

// Lte creates a less-than-or-equal comparison expression.
func Lte(field string, value interface{}) Expression {
	return CompareExpr{Field: field, Op: OpLte, Value: value}
}

// RangeExpr matches numeric fields within [Min, Max]. A nil bound is open.
type RangeExpr struct {
	baseExpr
	Field string
	Min   interface{}
	Max   interface{}
}

// Apply implements the MatchOption interface for RangeExpr.
func (r RangeExpr) Apply(cfg *MatchConfig) {
	cfg.Filters = append(cfg.Filters, r)
}

// Range creates a range comparison expression.
func Range(field string, min, max interface{}) Expression {
	return RangeExpr{Field: field, Min: min, Max: max}
}
