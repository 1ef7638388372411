package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/domain"
	"github.com/agenttrace/xray/internal/filter"
	"github.com/agenttrace/xray/internal/reasoner"
	"github.com/agenttrace/xray/internal/tracer"
)

type keywordAnswer struct {
	Keywords  []string `json:"keywords"`
	Reasoning string   `json:"reasoning"`
}

type relevanceAnswer struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// ScoredProduct is a product annotated with its relevance to the request
type ScoredProduct struct {
	Product
	RelevanceScore float64 `json:"relevanceScore"`
	MatchReasoning string  `json:"matchReasoning"`
}

// ProductSearch finds catalog products for a shopping request
type ProductSearch struct {
	reasoner reasoner.Reasoner
	engine   *filter.Engine
	products []Product
	logger   *zap.Logger
	// scorers bounds concurrent relevance calls
	scorers int
}

// NewProductSearch creates a new product search workflow
func NewProductSearch(r reasoner.Reasoner, engine *filter.Engine, products []Product, logger *zap.Logger) *ProductSearch {
	return &ProductSearch{
		reasoner: r,
		engine:   engine,
		products: products,
		logger:   logger,
		scorers:  4,
	}
}

// Name returns the workflow name
func (w *ProductSearch) Name() string {
	return "Product Search Workflow"
}

// Run executes keyword generation, search, filtering, relevance scoring and
// ranking. It stops early when a stage leaves nothing to work with.
func (w *ProductSearch) Run(ctx context.Context, input string, tr *tracer.Tracer) error {
	var keywords []string
	err := recordStep(tr, StepGeneration, "generation", map[string]any{"userInput": input}, func(step *tracer.StepRecorder) error {
		answer, err := reasoner.Decode[keywordAnswer](ctx, w.reasoner, keywordPrompt(input))
		if err != nil {
			return err
		}
		keywords = answer.Keywords
		step.AddArtifact(LabelPromptAnalysis, map[string]any{"derivedKeywords": strings.Join(keywords, ", ")})
		step.SetReasoning(answer.Reasoning)
		step.SetOutput(map[string]any{"keywords": keywords})
		return nil
	})
	if err != nil {
		return err
	}

	var results []Product
	err = recordStep(tr, StepSearch, "search", map[string]any{"keywords": keywords}, func(step *tracer.StepRecorder) error {
		results = w.search(keywords)
		id := step.AddArtifact(LabelRawSearchResults, map[string]any{"count": len(results)})
		if err := step.EvaluateArtifact(id, []domain.CriterionResult{{
			Criterion: CriterionDatabaseHit,
			Passed:    len(results) > 0,
			Detail:    fmt.Sprintf("Found %d products matching keywords.", len(results)),
		}}); err != nil {
			return err
		}
		step.SetOutput(map[string]any{"results": results})
		step.SetReasoning(fmt.Sprintf("Found %d items matching keywords.", len(results)))
		return nil
	})
	if err != nil {
		return err
	}
	if len(results) == 0 {
		w.logger.Info("no products matched", zap.Strings("keywords", keywords))
		return nil
	}

	var filtered []Product
	err = recordStep(tr, StepFilter, "apply_filter", map[string]any{"itemCount": len(results)}, func(step *tracer.StepRecorder) error {
		items := make([]any, len(results))
		for i, p := range results {
			items[i] = p
		}
		kept, err := w.engine.Apply(ctx, step, items, input)
		if err != nil {
			return err
		}
		filtered = make([]Product, 0, len(kept))
		for _, k := range kept {
			filtered = append(filtered, k.(Product))
		}
		step.SetOutput(map[string]any{"filteredItems": filtered})
		return nil
	})
	if err != nil {
		return err
	}
	if len(filtered) == 0 {
		return nil
	}

	var scored []ScoredProduct
	err = recordStep(tr, StepRelevance, "llm_relevance_evaluation", map[string]any{"itemCount": len(filtered)}, func(step *tracer.StepRecorder) error {
		var err error
		scored, err = w.score(ctx, input, filtered)
		if err != nil {
			return err
		}
		scores := make([]map[string]any, len(scored))
		for i, s := range scored {
			scores[i] = map[string]any{"title": s.Title, "score": s.RelevanceScore}
		}
		step.AddArtifact(LabelRelevanceScores, scores)
		step.SetOutput(map[string]any{"scoredItems": scored})
		return nil
	})
	if err != nil {
		return err
	}

	return recordStep(tr, StepRanking, "ranking", map[string]any{"strategy": "AI Relevance Score"}, func(step *tracer.StepRecorder) error {
		ranked := make([]ScoredProduct, len(scored))
		copy(ranked, scored)
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].RelevanceScore > ranked[j].RelevanceScore
		})
		step.AddArtifact(LabelTopPick, ranked[0])
		step.SetOutput(map[string]any{"rankedItems": ranked})
		return nil
	})
}

// search matches keywords against title, category, color and material
func (w *ProductSearch) search(keywords []string) []Product {
	out := []Product{}
	for _, p := range w.products {
		text := strings.Join([]string{p.Title, p.Category, p.Color, p.Material}, " ")
		if containsAny(text, keywords) {
			out = append(out, p)
		}
	}
	return out
}

// score rates every product concurrently, keeping input order
func (w *ProductSearch) score(ctx context.Context, input string, products []Product) ([]ScoredProduct, error) {
	mapper := iter.Mapper[Product, ScoredProduct]{MaxGoroutines: w.scorers}
	return mapper.MapErr(products, func(p *Product) (ScoredProduct, error) {
		answer, err := reasoner.Decode[relevanceAnswer](ctx, w.reasoner, relevancePrompt(input, *p))
		if err != nil {
			return ScoredProduct{}, fmt.Errorf("score %s: %w", p.ID, err)
		}
		return ScoredProduct{
			Product:        *p,
			RelevanceScore: answer.Score,
			MatchReasoning: answer.Reasoning,
		}, nil
	})
}
