package algolia

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/opt"
	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/grantsx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type searchFunc func(query string, opts ...interface{}) (search.QueryRes, error)

// Matcher implements grantsx.Matcher over an Algolia grants index.
type Matcher struct {
	client    *Client
	indexName string
	search    searchFunc
}

// NewMatcher creates a matcher for the given index.
func NewMatcher(client *Client, indexName string) *Matcher {
	m := &Matcher{
		client:    client,
		indexName: indexName,
	}
	m.search = func(query string, opts ...interface{}) (search.QueryRes, error) {
		algoliaClient, err := m.client.getClient()
		if err != nil {
			return search.QueryRes{}, errors.WithSecondaryError(
				grantsx.ErrBackendUnavailable,
				errors.Wrap(err, "failed to get Algolia client"),
			)
		}
		return algoliaClient.InitIndex(m.indexName).Search(query, opts...)
	}
	return m
}

// Match implements grantsx.Matcher. Algolia does not expose relevance
// scores, so the match percentage is derived from hit rank.
func (m *Matcher) Match(ctx context.Context, query string, opts ...grantsx.MatchOption) ([]grantsx.Grant, error) {
	if err := grantsx.ValidateQuery(query); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, grantsx.ErrCanceled
	default:
	}

	cfg := grantsx.NewMatchConfig(opts...)

	_, span := m.client.tracer.Start(ctx, "algolia.match_grants",
		trace.WithAttributes(
			attribute.String("algolia.index_name", m.indexName),
			attribute.Int("algolia.limit", cfg.Limit),
		),
	)
	defer span.End()

	res, err := m.search(query, buildSearchParams(cfg)...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "algolia search failed")
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, grantsx.ErrTimeout
		case errors.Is(err, context.Canceled):
			return nil, grantsx.ErrCanceled
		case errors.Is(err, grantsx.ErrBackendUnavailable):
			return nil, err
		}
		return nil, errors.WithSecondaryError(
			grantsx.ErrBackendUnavailable,
			errors.Wrap(err, "Algolia search failed"),
		)
	}

	grants := make([]grantsx.Grant, 0, len(res.Hits))
	for i, hit := range res.Hits {
		objectID, _ := hit["objectID"].(string)
		pct := calculateScore(len(res.Hits), i) * 100
		if pct < cfg.MinScore {
			continue
		}
		grants = append(grants, grantsx.GrantFromFields(objectID, hit).WithMatch(pct))
	}

	span.SetAttributes(attribute.Int("algolia.hits", len(grants)))
	span.SetStatus(codes.Ok, "grants matched")
	return grants, nil
}

// buildSearchParams converts a grantsx.MatchConfig to Algolia search parameters.
func buildSearchParams(cfg *grantsx.MatchConfig) []interface{} {
	params := []interface{}{opt.HitsPerPage(cfg.Limit)}

	if len(cfg.Filters) > 0 {
		filterStrings := make([]string, 0, len(cfg.Filters))
		for _, expr := range cfg.Filters {
			if filterStr := convertExpressionToFilter(expr); filterStr != "" {
				filterStrings = append(filterStrings, filterStr)
			}
		}
		if len(filterStrings) > 0 {
			params = append(params, opt.Filters(strings.Join(filterStrings, " AND ")))
		}
	}

	return params
}

// calculateScore creates a rank-based score in (0, 1].
func calculateScore(totalResults, position int) float64 {
	if totalResults == 0 {
		return 1.0
	}
	return float64(totalResults-position) / float64(totalResults)
}

// convertExpressionToFilter converts an expression to an Algolia filter string.
func convertExpressionToFilter(expr grantsx.Expression) string {
	switch e := expr.(type) {
	case grantsx.AndExpr:
		return joinFilters(e.Exprs, " AND ")
	case grantsx.OrExpr:
		return joinFilters(e.Exprs, " OR ")
	case grantsx.NotExpr:
		inner := convertExpressionToFilter(e.Inner)
		if inner == "" {
			return ""
		}
		return "NOT (" + inner + ")"
	case grantsx.CompareExpr:
		return convertCompareExpression(e)
	case grantsx.RangeExpr:
		return convertRangeExpression(e)
	default:
		return ""
	}
}

func joinFilters(exprs []grantsx.Expression, sep string) string {
	filters := make([]string, 0, len(exprs))
	for _, e := range exprs {
		if filter := convertExpressionToFilter(e); filter != "" {
			filters = append(filters, "("+filter+")")
		}
	}
	return strings.Join(filters, sep)
}

func convertCompareExpression(expr grantsx.CompareExpr) string {
	switch expr.Op {
	case grantsx.OpEq:
		return fmt.Sprintf("%s:%s", escapeField(expr.Field), escapeValue(expr.Value))
	case grantsx.OpGte:
		return fmt.Sprintf("%s >= %s", escapeField(expr.Field), escapeNumericValue(expr.Value))
	case grantsx.OpLte:
		return fmt.Sprintf("%s <= %s", escapeField(expr.Field), escapeNumericValue(expr.Value))
	default:
		return ""
	}
}

func convertRangeExpression(expr grantsx.RangeExpr) string {
	var filters []string

	if expr.Min != nil {
		filters = append(filters, fmt.Sprintf("%s >= %s", escapeField(expr.Field), escapeNumericValue(expr.Min)))
	}
	if expr.Max != nil {
		filters = append(filters, fmt.Sprintf("%s <= %s", escapeField(expr.Field), escapeNumericValue(expr.Max)))
	}

	return strings.Join(filters, " AND ")
}

// escapeField quotes field names containing filter syntax characters.
func escapeField(field string) string {
	if strings.ContainsAny(field, " :-()") {
		return fmt.Sprintf(`"%s"`, field)
	}
	return field
}

// escapeValue quotes string values and escapes internal quotes.
func escapeValue(value interface{}) string {
	if value == nil {
		return "null"
	}

	switch v := value.(type) {
	case string:
		return fmt.Sprintf(`"%s"`, strings.ReplaceAll(v, `"`, `\"`))
	case bool:
		return fmt.Sprintf(`"%s"`, strconv.FormatBool(v))
	default:
		return fmt.Sprintf(`"%v"`, value)
	}
}

func escapeNumericValue(value interface{}) string {
	if value == nil {
		return "0"
	}
	if f, ok := grantsx.ToFloat64(value); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return escapeValue(value)
}

var _ grantsx.Matcher = (*Matcher)(nil)
