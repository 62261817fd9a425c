package query

import (
	"encoding/json"
	"testing"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Node
	}{
		{"match", `{"match":{"field":"name","text":"john"}}`, Match{Field: "name", Text: "john"}},
		{"phrase", `{"phrase":{"field":"bio","text":"go developer"}}`, Phrase{Field: "bio", Text: "go developer"}},
		{"prefix", `{"prefix":{"field":"name","text":"jo"}}`, Prefix{Field: "name", Text: "jo"}},
		{"fuzzy numeric", `{"fuzzy":{"field":"name","text":"jhon","distance":1}}`, Fuzzy{Field: "name", Text: "jhon", Distance: 1}},
		{"fuzzy auto", `{"fuzzy":{"field":"name","text":"jhon","distance":"AUTO"}}`, Fuzzy{Field: "name", Text: "jhon", Distance: AutoDistance}},
		{"fuzzy default", `{"fuzzy":{"field":"name","text":"jhon"}}`, Fuzzy{Field: "name", Text: "jhon", Distance: AutoDistance}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNode([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNode_Bool(t *testing.T) {
	n, err := ParseNode([]byte(`{"bool":{"must":[{"match":{"field":"name","text":"john"}}],"must_not":[{"match":{"field":"role","text":"banned"}}]}}`))
	require.NoError(t, err)

	b, ok := n.(Bool)
	require.True(t, ok)
	assert.Equal(t, []Node{Match{Field: "name", Text: "john"}}, b.Must)
	assert.Empty(t, b.Should)
	assert.Equal(t, []Node{Match{Field: "role", Text: "banned"}}, b.MustNot)
}

func TestParseNode_Errors(t *testing.T) {
	tests := map[string]string{
		"empty object":      `{}`,
		"two kinds":         `{"match":{"field":"a","text":"b"},"prefix":{"field":"a","text":"b"}}`,
		"unknown kind":      `{"regexp":{"field":"a","text":"b"}}`,
		"empty text":        `{"match":{"field":"name","text":"  "}}`,
		"bad distance":      `{"fuzzy":{"field":"name","text":"jhon","distance":5}}`,
		"string distance":   `{"fuzzy":{"field":"name","text":"jhon","distance":"far"}}`,
		"negative distance": `{"fuzzy":{"field":"name","text":"jhon","distance":-1}}`,
		"empty bool":        `{"bool":{}}`,
		"nested invalid":    `{"bool":{"must":[{"phrase":{"field":"bio","text":""}}]}}`,
		"not json":          `match name john`,
	}

	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseNode([]byte(in))
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestRequest_UnmarshalJSON(t *testing.T) {
	body := `{
		"query": {"match": {"field": "name", "text": "john"}},
		"filters": {"status": "active", "age": {"gte": 18, "lt": 65.5}, "team": ["core", 7], "deleted_at": null},
		"sort": [{"field": "_score"}, {"field": "created_at", "direction": "desc"}],
		"limit": 10,
		"offset": 20,
		"highlight": true
	}`

	var req Request
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	assert.Equal(t, Match{Field: "name", Text: "john"}, req.Query)
	assert.Equal(t, "active", req.Filters["status"])
	assert.Equal(t, Range{Gte: int64(18), Lt: 65.5}, req.Filters["age"])
	assert.Equal(t, []any{"core", int64(7)}, req.Filters["team"])
	assert.Contains(t, req.Filters, "deleted_at")
	assert.Nil(t, req.Filters["deleted_at"])
	assert.Equal(t, []Sort{
		{Field: domain.ScoreField, Direction: domain.SortDesc},
		{Field: "created_at", Direction: domain.SortDesc},
	}, req.Sort)
	assert.Equal(t, 10, req.Limit)
	assert.Equal(t, 20, req.Offset)
	assert.True(t, req.Highlight)
}

func TestRequest_UnmarshalJSON_Errors(t *testing.T) {
	tests := map[string]string{
		"missing query":   `{"limit": 10}`,
		"negative limit":  `{"query":{"match":{"field":"name","text":"john"}},"limit":-1}`,
		"negative offset": `{"query":{"match":{"field":"name","text":"john"}},"offset":-3}`,
		"bad sort":        `{"query":{"match":{"field":"name","text":"john"}},"sort":[{"field":"age","direction":"up"}]}`,
		"bad range":       `{"query":{"match":{"field":"name","text":"john"}},"filters":{"age":{"between":[1,2]}}}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			var req Request
			err := json.Unmarshal([]byte(body), &req)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}
