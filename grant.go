package grantsx

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cockroachdb/errors"
)

// Grant is a fundable opportunity returned by the backend.
// Only the fields used for filtering and rendering are typed; the full
// payload is kept in Fields.
type Grant struct {
	// ID is taken from "_id" or, when absent, "id".
	ID string
	// Title is the display title.
	Title string
	// AgencyName is the funding agency.
	AgencyName string
	// City is the grant location.
	City string
	// MinAmount is the smallest award amount, zero when unknown.
	MinAmount float64
	// MaxAmount is the largest award amount, zero when unknown.
	MaxAmount float64
	// MatchPercentage is set for grants produced by a Matcher.
	MatchPercentage *float64
	// Fields contains the complete payload as key-value pairs.
	Fields map[string]interface{}
}

// Payload keys understood by GrantFromFields.
const (
	FieldMongoID         = "_id"
	FieldID              = "id"
	FieldTitle           = "title"
	FieldAgencyName      = "agencyName"
	FieldCity            = "city"
	FieldMinAmount       = "minAmount"
	FieldMaxAmount       = "maxAmount"
	FieldMatchPercentage = "matchPercentage"
)

// GrantFromFields builds a Grant from a decoded payload.
// fallbackID is used when the payload carries neither "_id" nor "id".
func GrantFromFields(fallbackID string, fields map[string]interface{}) Grant {
	g := Grant{
		ID:         idFromFields(fields),
		Title:      stringField(fields, FieldTitle),
		AgencyName: stringField(fields, FieldAgencyName),
		City:       stringField(fields, FieldCity),
		Fields:     fields,
	}
	if g.ID == "" {
		g.ID = fallbackID
	}
	if v, ok := ToFloat64(fields[FieldMinAmount]); ok {
		g.MinAmount = v
	}
	if v, ok := ToFloat64(fields[FieldMaxAmount]); ok {
		g.MaxAmount = v
	}
	if v, ok := ToFloat64(fields[FieldMatchPercentage]); ok {
		g.MatchPercentage = &v
	}
	return g
}

// Field returns the payload value for name, preferring typed fields.
func (g Grant) Field(name string) (interface{}, bool) {
	switch name {
	case FieldID, FieldMongoID:
		return g.ID, g.ID != ""
	case FieldTitle:
		return g.Title, g.Title != ""
	case FieldAgencyName:
		return g.AgencyName, g.AgencyName != ""
	case FieldCity:
		return g.City, g.City != ""
	case FieldMinAmount:
		return g.MinAmount, true
	case FieldMaxAmount:
		return g.MaxAmount, true
	case FieldMatchPercentage:
		if g.MatchPercentage == nil {
			return nil, false
		}
		return *g.MatchPercentage, true
	}
	v, ok := g.Fields[name]
	return v, ok
}

// WithMatch returns a copy of g carrying the given match percentage.
func (g Grant) WithMatch(pct float64) Grant {
	g.MatchPercentage = &pct
	return g
}

// UnmarshalJSON decodes a grant payload, accepting either "_id" or "id".
func (g *Grant) UnmarshalJSON(data []byte) error {
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return errors.Wrap(err, "failed to unmarshal grant")
	}
	if fields == nil {
		return errors.New("grant payload must be an object")
	}
	*g = GrantFromFields("", fields)
	return nil
}

// MarshalJSON encodes the payload with the typed fields layered on top.
// The id is written to every id key the payload already carries, or to
// "id" when it carries none.
func (g Grant) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(g.Fields)+4)
	for k, v := range g.Fields {
		out[k] = v
	}
	written := false
	for _, key := range idKeys {
		if _, ok := out[key]; ok {
			out[key] = g.ID
			written = true
		}
	}
	if !written {
		out[FieldID] = g.ID
	}
	out[FieldTitle] = g.Title
	if g.AgencyName != "" {
		out[FieldAgencyName] = g.AgencyName
	}
	if g.City != "" {
		out[FieldCity] = g.City
	}
	if g.MinAmount != 0 {
		out[FieldMinAmount] = g.MinAmount
	}
	if g.MaxAmount != 0 {
		out[FieldMaxAmount] = g.MaxAmount
	}
	if g.MatchPercentage != nil {
		out[FieldMatchPercentage] = *g.MatchPercentage
	}
	return json.Marshal(out)
}

// idKeys are the payload keys that can carry a grant id, in lookup order.
var idKeys = []string{FieldMongoID, FieldID, "objectID"}

func idFromFields(fields map[string]interface{}) string {
	for _, key := range idKeys {
		switch v := fields[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case nil:
		default:
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}

func stringField(fields map[string]interface{}, key string) string {
	if s, ok := fields[key].(string); ok {
		return s
	}
	return ""
}

// ToFloat64 converts numeric payload values, including numeric strings.
func ToFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
