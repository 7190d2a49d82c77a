package grantsx

import "context"

// Lister fetches one page of grants from the grant-listing backend.
type Lister interface {
	// ListGrants issues exactly one remote call for p.
	ListGrants(ctx context.Context, p Params) (*Page, error)
}

// ListerFunc is a function type that implements the Lister interface.
type ListerFunc func(context.Context, Params) (*Page, error)

// ListGrants implements the Lister interface for ListerFunc.
func (f ListerFunc) ListGrants(ctx context.Context, p Params) (*Page, error) {
	return f(ctx, p)
}

// FavoritesLister returns the ids of the grants the user has saved.
type FavoritesLister interface {
	ListFavorites(ctx context.Context) ([]string, error)
}

// FavoritesListerFunc is a function type that implements FavoritesLister.
type FavoritesListerFunc func(context.Context) ([]string, error)

// ListFavorites implements the FavoritesLister interface for FavoritesListerFunc.
func (f FavoritesListerFunc) ListFavorites(ctx context.Context) ([]string, error) {
	return f(ctx)
}

// Matcher produces the alternate, already-ranked list of grants that the
// controller paginates locally.
type Matcher interface {
	// Match returns grants relevant to query, best first, each carrying a
	// MatchPercentage.
	Match(ctx context.Context, query string, opts ...MatchOption) ([]Grant, error)
}

// MatcherFunc is a function type that implements the Matcher interface.
type MatcherFunc func(context.Context, string, ...MatchOption) ([]Grant, error)

// Match implements the Matcher interface for MatcherFunc.
func (f MatcherFunc) Match(ctx context.Context, query string, opts ...MatchOption) ([]Grant, error) {
	return f(ctx, query, opts...)
}
