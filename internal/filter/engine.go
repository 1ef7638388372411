package filter

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/domain"
	"github.com/agenttrace/xray/internal/pkg/metrics"
	"github.com/agenttrace/xray/internal/pkg/value"
	"github.com/agenttrace/xray/internal/reasoner"
	"github.com/agenttrace/xray/internal/tracer"
)

// Artifact labels and criteria written by the engine
const (
	LabelCandidateEvaluations = "Candidate Evaluations"
	LabelFilterLogic          = "Filter Logic"
	CriterionFilterApplied    = "Filter Applied"
)

// Engine applies Reasoner-generated rules to record lists
type Engine struct {
	reasoner reasoner.Reasoner
	logger   *zap.Logger
}

// NewEngine creates a new filtering engine
func NewEngine(r reasoner.Reasoner, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{reasoner: r, logger: logger}
}

// Candidate is one item's evaluation against a rule set
type Candidate struct {
	Item      any
	Row       map[string]any
	Qualified bool
}

// Apply returns the subset of items satisfying rules generated for intent,
// recording the evaluation matrix and filter logic on step.
func (e *Engine) Apply(ctx context.Context, step *tracer.StepRecorder, items []any, intent string) ([]any, error) {
	if len(items) == 0 {
		return []any{}, nil
	}

	trees, err := value.NormalizeList(items)
	if err != nil {
		return nil, fmt.Errorf("normalize items: %w", err)
	}

	schema := InferSchema(trees)
	described := schema.Describe()

	rules, err := reasoner.Decode[RuleSet](ctx, e.reasoner, Prompt(intent, len(items), described))
	if err != nil {
		return nil, fmt.Errorf("generate filter rules: %w", err)
	}
	if err := rules.Validate(schema); err != nil {
		return nil, reasoner.Failure(fmt.Errorf("invalid filter rules: %w", err))
	}

	step.SetReasoning(rules.Reasoning)

	candidates := Evaluate(trees, rules.Rules)
	kept := make([]any, 0, len(items))
	rows := make([]any, len(candidates))
	for i, c := range candidates {
		rows[i] = c.Row
		if c.Qualified {
			kept = append(kept, items[i])
		}
	}
	dropped := len(items) - len(kept)

	step.AddArtifact(LabelCandidateEvaluations, rows)
	logicID := step.AddArtifact(LabelFilterLogic, map[string]any{
		"schema":         described,
		"generatedRules": rules.Rules,
		"dropped":        dropped,
	})

	detail := "No items dropped."
	if dropped > 0 {
		detail = fmt.Sprintf("Dropped %d items based on dynamic rules.", dropped)
	}
	if err := step.EvaluateArtifact(logicID, []domain.CriterionResult{{
		Criterion: CriterionFilterApplied,
		Passed:    len(kept) > 0,
		Detail:    detail,
	}}); err != nil {
		return nil, err
	}

	metrics.RecordFilter(len(items), len(kept), len(rules.Rules))
	e.logger.Debug("filter applied",
		zap.String("step", step.Name()),
		zap.Int("items", len(items)),
		zap.Int("rules", len(rules.Rules)),
		zap.Int("kept", len(kept)),
	)

	return kept, nil
}

// Evaluate applies rules to every item. An empty rule list qualifies every item.
func Evaluate(items []any, rules []Rule) []Candidate {
	out := make([]Candidate, len(items))
	for i, item := range items {
		outcomes := make(map[string]Outcome, len(rules))
		qualified := true
		for _, r := range rules {
			o := r.Apply(item)
			outcomes[ruleKey(outcomes, r.Field)] = o
			if !o.Passed {
				qualified = false
			}
		}

		row := itemMetrics(item, rules)
		row["item"] = itemLabel(item)
		row["rules"] = outcomes
		row["qualified"] = qualified

		out[i] = Candidate{Item: item, Row: row, Qualified: qualified}
	}
	return out
}

// ruleKey returns field, or field#N when a rule on field was already recorded
func ruleKey(seen map[string]Outcome, field string) string {
	if _, ok := seen[field]; !ok {
		return field
	}
	for n := 2; ; n++ {
		key := field + "#" + strconv.Itoa(n)
		if _, ok := seen[key]; !ok {
			return key
		}
	}
}

func itemLabel(item any) string {
	for _, key := range []string{"title", "name"} {
		if v, ok := value.Resolve(item, key); ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return "Item"
}

// itemMetrics collects the values shown next to each candidate: top-level
// numbers, difficulty_level, the metrics object and every ruled field.
func itemMetrics(item any, rules []Rule) map[string]any {
	row := map[string]any{}
	obj, ok := item.(map[string]any)
	if !ok {
		return row
	}
	for k, v := range obj {
		if value.KindOf(v) == value.KindNumber || k == "difficulty_level" {
			row[k] = v
		}
	}
	if nested, ok := obj["metrics"].(map[string]any); ok {
		for k, v := range nested {
			row[k] = v
		}
	}
	for _, r := range rules {
		if _, exists := row[r.Field]; exists {
			continue
		}
		if v, ok := value.Resolve(item, r.Field); ok {
			row[r.Field] = v
		}
	}
	return row
}
