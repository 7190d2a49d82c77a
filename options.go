package grantsx

// DefaultMatchLimit is the number of matches returned when no limit is given.
const DefaultMatchLimit = 100

// MatchOption represents a matcher configuration option.
type MatchOption interface {
	Apply(*MatchConfig)
}

// MatchConfig holds all matcher configuration parameters.
type MatchConfig struct {
	// Limit specifies the maximum number of matches to return.
	Limit int

	// MinScore drops matches whose percentage is below it.
	MinScore float64

	// Filters contains filter expressions to apply.
	Filters []Expression
}

// NewMatchConfig applies opts over the defaults.
func NewMatchConfig(opts ...MatchOption) *MatchConfig {
	cfg := &MatchConfig{}
	for _, opt := range opts {
		opt.Apply(cfg)
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultMatchLimit
	}
	return cfg
}

// optionFunc is a function that implements MatchOption.
type optionFunc func(*MatchConfig)

// Apply implements the MatchOption interface for optionFunc.
func (f optionFunc) Apply(cfg *MatchConfig) {
	f(cfg)
}

// WithLimit sets the maximum number of matches to return.
func WithLimit(n int) MatchOption {
	return optionFunc(func(cfg *MatchConfig) {
		cfg.Limit = n
	})
}

// WithMinScore drops matches below pct percent.
func WithMinScore(pct float64) MatchOption {
	return optionFunc(func(cfg *MatchConfig) {
		cfg.MinScore = pct
	})
}
