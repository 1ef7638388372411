package filter

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/agenttrace/xray/internal/pkg/value"
	"github.com/agenttrace/xray/internal/validator"
)

// Operator is a rule comparison
type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpContains     Operator = "contains"
)

// IsNumeric reports whether the operator compares numbers
func (o Operator) IsNumeric() bool {
	switch o {
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		return true
	}
	return false
}

// numericPrograms holds one compiled comparison per numeric operator
var numericPrograms = map[Operator]*vm.Program{}

func init() {
	env := map[string]any{"actual": 0.0, "expected": 0.0}
	for _, op := range []Operator{OpGreater, OpLess, OpGreaterEqual, OpLessEqual} {
		program, err := expr.Compile("actual "+string(op)+" expected", expr.Env(env), expr.AsBool())
		if err != nil {
			panic(fmt.Sprintf("compile %s comparison: %v", op, err))
		}
		numericPrograms[op] = program
	}
}

// Rule is one generated predicate over a dot path
type Rule struct {
	Field    string   `json:"field" validate:"required,dotpath"`
	Operator Operator `json:"operator" validate:"required,oneof=> < >= <= == != contains"`
	Value    any      `json:"value"`
}

// RuleSet is the Reasoner's answer to a filter prompt
type RuleSet struct {
	Rules     []Rule `json:"rules" validate:"dive"`
	Reasoning string `json:"reasoning"`
}

// Validate checks the rules are well formed and only reference schema fields
func (rs RuleSet) Validate(schema Schema) error {
	if err := validator.Validate(rs); err != nil {
		return err
	}
	for i, r := range rs.Rules {
		if !schema.Has(r.Field) {
			return fmt.Errorf("rules[%d]: field %q is not in the schema", i, r.Field)
		}
	}
	return nil
}

// Outcome is the verdict of one rule on one item
type Outcome struct {
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Apply evaluates the rule against item
func (r Rule) Apply(item any) Outcome {
	actual, found := value.Resolve(item, r.Field)
	if !found {
		actual = nil
	}
	return Outcome{
		Passed: r.holds(actual),
		Detail: fmt.Sprintf("%s: %s %s %s", r.Field, value.JSON(actual), r.Operator, value.JSON(r.Value)),
	}
}

func (r Rule) holds(actual any) bool {
	if actual == nil {
		return false
	}

	if r.Operator.IsNumeric() {
		a, ok := value.ToFloat(actual)
		if !ok {
			return false
		}
		b, ok := value.ToFloat(r.Value)
		if !ok {
			return false
		}
		out, err := expr.Run(numericPrograms[r.Operator], map[string]any{"actual": a, "expected": b})
		if err != nil {
			return false
		}
		passed, _ := out.(bool)
		return passed
	}

	got := strings.ToLower(value.Text(actual))
	want := strings.ToLower(value.Text(r.Value))
	switch r.Operator {
	case OpEqual:
		return got == want
	case OpNotEqual:
		return got != want
	case OpContains:
		return strings.Contains(got, want)
	}
	return false
}
