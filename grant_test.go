package grantsx

import (
	"encoding/json"
	"testing"
)

func TestGrantUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantID   string
		wantCity string
		wantPct  *float64
	}{
		{
			name:   "mongo id",
			data:   `{"_id":"65f0c1","title":"Rural Broadband","city":"Austin"}`,
			wantID: "65f0c1", wantCity: "Austin",
		},
		{
			name:   "plain id",
			data:   `{"id":"g-1","title":"Arts Fund"}`,
			wantID: "g-1",
		},
		{
			name:   "numeric id",
			data:   `{"id":42,"title":"Numeric"}`,
			wantID: "42",
		},
		{
			name:    "match percentage",
			data:    `{"_id":"m","title":"Matched","matchPercentage":87.5}`,
			wantID:  "m",
			wantPct: floatPtr(87.5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g Grant
			if err := json.Unmarshal([]byte(tt.data), &g); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if g.ID != tt.wantID {
				t.Errorf("Expected ID %q, got %q", tt.wantID, g.ID)
			}
			if g.City != tt.wantCity {
				t.Errorf("Expected city %q, got %q", tt.wantCity, g.City)
			}
			switch {
			case tt.wantPct == nil && g.MatchPercentage != nil:
				t.Errorf("Expected no match percentage, got %v", *g.MatchPercentage)
			case tt.wantPct != nil && (g.MatchPercentage == nil || *g.MatchPercentage != *tt.wantPct):
				t.Errorf("Expected match percentage %v, got %v", *tt.wantPct, g.MatchPercentage)
			}
		})
	}
}

func TestGrantUnmarshalJSON_NotObject(t *testing.T) {
	var g Grant
	if err := json.Unmarshal([]byte(`"nope"`), &g); err == nil {
		t.Fatal("Expected error for non-object payload")
	}
}

func TestGrantMarshalJSON_KeepsUnknownFields(t *testing.T) {
	var g Grant
	if err := json.Unmarshal([]byte(`{"_id":"x","title":"T","deadline":"2026-12-01"}`), &g); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal of output failed: %v", err)
	}
	if out["deadline"] != "2026-12-01" {
		t.Errorf("Expected deadline to survive, got %v", out["deadline"])
	}
	if out["_id"] != "x" {
		t.Errorf("Expected _id to survive, got %v", out["_id"])
	}
}

func TestGrantMarshalJSON_WritesCurrentID(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		want     map[string]string
		wantNoID bool
	}{
		{
			name:     "mongo id",
			data:     `{"_id":"old","title":"T"}`,
			want:     map[string]string{"_id": "new"},
			wantNoID: true,
		},
		{
			name: "plain id",
			data: `{"id":"old","title":"T"}`,
			want: map[string]string{"id": "new"},
		},
		{
			name:     "search object id",
			data:     `{"objectID":"old","title":"T"}`,
			want:     map[string]string{"objectID": "new"},
			wantNoID: true,
		},
		{
			name: "no id key",
			data: `{"title":"T"}`,
			want: map[string]string{"id": "new"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g Grant
			if err := json.Unmarshal([]byte(tt.data), &g); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			g.ID = "new"

			data, err := json.Marshal(g)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			var out map[string]interface{}
			if err := json.Unmarshal(data, &out); err != nil {
				t.Fatalf("Unmarshal of output failed: %v", err)
			}
			for key, want := range tt.want {
				if out[key] != want {
					t.Errorf("Expected %s %q, got %v", key, want, out[key])
				}
			}
			if _, ok := out["id"]; tt.wantNoID && ok {
				t.Errorf("Expected no id key, got %v", out["id"])
			}

			var back Grant
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal of output failed: %v", err)
			}
			if back.ID != "new" {
				t.Errorf("Expected the decoded id to be new, got %q", back.ID)
			}
		})
	}
}

func TestGrantField(t *testing.T) {
	g := GrantFromFields("fallback", map[string]interface{}{
		"title":     "Water",
		"minAmount": "1000",
		"maxAmount": 50000.0,
		"sector":    "environment",
	})

	if g.ID != "fallback" {
		t.Errorf("Expected fallback ID, got %q", g.ID)
	}
	if g.MinAmount != 1000 || g.MaxAmount != 50000 {
		t.Errorf("Unexpected amounts %v..%v", g.MinAmount, g.MaxAmount)
	}
	if v, ok := g.Field("sector"); !ok || v != "environment" {
		t.Errorf("Expected sector field, got %v (%v)", v, ok)
	}
	if v, ok := g.Field(FieldMinAmount); !ok || v != 1000.0 {
		t.Errorf("Expected typed min amount, got %v (%v)", v, ok)
	}
	if _, ok := g.Field(FieldCity); ok {
		t.Error("Expected empty city to be reported as missing")
	}
}

func floatPtr(v float64) *float64 {
	return &v
}
