package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRule_Apply(t *testing.T) {
	item := map[string]any{
		"price":    50.0,
		"rating":   "4.5",
		"material": "Stainless Steel",
		"inStock":  true,
		"discount": nil,
		"metrics":  map[string]any{"views": 1200.0},
		"tags":     []any{"go"},
		"labels":   []any{"eco", "steel"},
	}

	tests := []struct {
		name   string
		rule   Rule
		passed bool
	}{
		{"less fails", Rule{Field: "price", Operator: OpLess, Value: 20.0}, false},
		{"greater passes", Rule{Field: "price", Operator: OpGreater, Value: 20.0}, true},
		{"greater equal boundary", Rule{Field: "price", Operator: OpGreaterEqual, Value: 50.0}, true},
		{"less equal boundary", Rule{Field: "price", Operator: OpLessEqual, Value: 50.0}, true},
		{"numeric string coerced", Rule{Field: "rating", Operator: OpGreater, Value: 4.0}, true},
		{"numeric string threshold", Rule{Field: "price", Operator: OpLess, Value: "60"}, true},
		{"non numeric fails", Rule{Field: "material", Operator: OpGreater, Value: 1.0}, false},
		{"nested path", Rule{Field: "metrics.views", Operator: OpGreater, Value: 1000.0}, true},
		{"equal is case insensitive", Rule{Field: "material", Operator: OpEqual, Value: "stainless steel"}, true},
		{"not equal", Rule{Field: "material", Operator: OpNotEqual, Value: "glass"}, true},
		{"contains", Rule{Field: "material", Operator: OpContains, Value: "STEEL"}, true},
		{"contains miss", Rule{Field: "material", Operator: OpContains, Value: "glass"}, false},
		{"bool equal", Rule{Field: "inStock", Operator: OpEqual, Value: "true"}, true},
		{"number equal text", Rule{Field: "price", Operator: OpEqual, Value: "50"}, true},
		{"null fails", Rule{Field: "discount", Operator: OpNotEqual, Value: "x"}, false},
		{"absent fails", Rule{Field: "weight", Operator: OpLess, Value: 5.0}, false},
		{"absent fails not equal", Rule{Field: "weight", Operator: OpNotEqual, Value: 5.0}, false},
		{"single element array equals", Rule{Field: "tags", Operator: OpEqual, Value: "go"}, true},
		{"array joins with commas", Rule{Field: "labels", Operator: OpEqual, Value: "eco,steel"}, true},
		{"array contains element", Rule{Field: "labels", Operator: OpContains, Value: "steel"}, true},
		{"array text has no brackets", Rule{Field: "labels", Operator: OpContains, Value: "["}, false},
		{"unknown operator fails", Rule{Field: "price", Operator: Operator("~"), Value: 5.0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.passed, tt.rule.Apply(item).Passed)
		})
	}
}

func TestRule_ApplyDetail(t *testing.T) {
	rule := Rule{Field: "price", Operator: OpLess, Value: 20.0}

	assert.Equal(t, "price: 50 < 20", rule.Apply(map[string]any{"price": 50.0}).Detail)
	assert.Equal(t, "price: null < 20", rule.Apply(map[string]any{}).Detail)

	contains := Rule{Field: "material", Operator: OpContains, Value: "steel"}
	assert.Equal(t, `material: "Steel" contains "steel"`, contains.Apply(map[string]any{"material": "Steel"}).Detail)
}

func TestRuleSet_Validate(t *testing.T) {
	schema := InferSchema([]any{map[string]any{"price": 10.0, "metrics": map[string]any{"views": 1.0}}})

	valid := RuleSet{Rules: []Rule{
		{Field: "price", Operator: OpLess, Value: 20.0},
		{Field: "metrics.views", Operator: OpContains, Value: "1"},
	}}
	require.NoError(t, valid.Validate(schema))
	require.NoError(t, RuleSet{}.Validate(schema))

	tests := []struct {
		name string
		rule Rule
	}{
		{"unknown operator", Rule{Field: "price", Operator: "~=", Value: 1.0}},
		{"missing field", Rule{Operator: OpLess, Value: 1.0}},
		{"field outside schema", Rule{Field: "weight", Operator: OpLess, Value: 1.0}},
		{"object path", Rule{Field: "metrics", Operator: OpEqual, Value: 1.0}},
		{"empty segment", Rule{Field: "metrics..views", Operator: OpEqual, Value: 1.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, RuleSet{Rules: []Rule{tt.rule}}.Validate(schema))
		})
	}
}

func TestOperator_IsNumeric(t *testing.T) {
	assert.True(t, OpGreater.IsNumeric())
	assert.True(t, OpLessEqual.IsNumeric())
	assert.False(t, OpEqual.IsNumeric())
	assert.False(t, OpContains.IsNumeric())
}
