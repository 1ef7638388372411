package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/domain"
	"github.com/agenttrace/xray/internal/filter"
	"github.com/agenttrace/xray/internal/reasoner"
	"github.com/agenttrace/xray/internal/tracer"
)

type topicAnswer struct {
	Topics     []string `json:"topics"`
	Complexity *string  `json:"complexity"`
	Reasoning  string   `json:"reasoning"`
}

// BlogRecommendation recommends blog posts for a reading request
type BlogRecommendation struct {
	reasoner reasoner.Reasoner
	engine   *filter.Engine
	blogs    []Blog
	logger   *zap.Logger
}

// NewBlogRecommendation creates a new blog recommendation workflow
func NewBlogRecommendation(r reasoner.Reasoner, engine *filter.Engine, blogs []Blog, logger *zap.Logger) *BlogRecommendation {
	return &BlogRecommendation{
		reasoner: r,
		engine:   engine,
		blogs:    blogs,
		logger:   logger,
	}
}

// Name returns the workflow name
func (w *BlogRecommendation) Name() string {
	return "Blog Recommendation Workflow"
}

// Run executes topic extraction, tag search, filtering and ranking by
// views weighted by sentiment.
func (w *BlogRecommendation) Run(ctx context.Context, input string, tr *tracer.Tracer) error {
	var topics topicAnswer
	err := recordStep(tr, StepGeneration, "generation", map[string]any{"userInput": input}, func(step *tracer.StepRecorder) error {
		var err error
		topics, err = reasoner.Decode[topicAnswer](ctx, w.reasoner, topicPrompt(input))
		if err != nil {
			return err
		}
		step.AddArtifact(LabelPromptAnalysis, topics)
		step.SetReasoning(topics.Reasoning)
		step.SetOutput(map[string]any{"topics": topics.Topics, "complexity": topics.Complexity})
		return nil
	})
	if err != nil {
		return err
	}

	var results []Blog
	err = recordStep(tr, StepSearch, "search", map[string]any{"topics": topics.Topics}, func(step *tracer.StepRecorder) error {
		results = w.search(topics.Topics)
		id := step.AddArtifact(LabelRawSearchResults, map[string]any{"count": len(results)})
		if err := step.EvaluateArtifact(id, []domain.CriterionResult{{
			Criterion: CriterionDatabaseHit,
			Passed:    len(results) > 0,
			Detail:    fmt.Sprintf("Found %d blogs matching topics.", len(results)),
		}}); err != nil {
			return err
		}
		step.SetOutput(map[string]any{"results": results})
		return nil
	})
	if err != nil {
		return err
	}
	if len(results) == 0 {
		w.logger.Info("no blogs matched", zap.Strings("topics", topics.Topics))
		return nil
	}

	filterInput := map[string]any{"count": len(results), "targetComplexity": topics.Complexity}
	var filtered []Blog
	err = recordStep(tr, StepFilter, "apply_filter", filterInput, func(step *tracer.StepRecorder) error {
		items := make([]any, len(results))
		for i, b := range results {
			items[i] = b
		}
		kept, err := w.engine.Apply(ctx, step, items, input)
		if err != nil {
			return err
		}
		filtered = make([]Blog, 0, len(kept))
		for _, k := range kept {
			filtered = append(filtered, k.(Blog))
		}
		step.SetOutput(map[string]any{"filteredResults": filtered})
		return nil
	})
	if err != nil {
		return err
	}
	if len(filtered) == 0 {
		return nil
	}

	return recordStep(tr, StepRanking, "ranking", map[string]any{"strategy": "Sentiment * Views"}, func(step *tracer.StepRecorder) error {
		ranked := make([]Blog, len(filtered))
		copy(ranked, filtered)
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Score() > ranked[j].Score()
		})

		scores := make([]map[string]any, len(ranked))
		for i, b := range ranked {
			scores[i] = map[string]any{
				"title":     b.Title,
				"views":     b.Metrics.Views,
				"sentiment": b.RecommendationData.Sentiment,
				"score":     b.Score(),
			}
		}
		step.AddArtifact(LabelBlogMetrics, scores)
		step.AddArtifact(LabelTopPick, ranked[0])
		step.SetOutput(map[string]any{"ranked": ranked})
		return nil
	})
}

// search matches topics against title, category and tags
func (w *BlogRecommendation) search(topics []string) []Blog {
	out := []Blog{}
	for _, b := range w.blogs {
		text := b.Title + " " + b.Category + " " + strings.Join(b.Tags, " ")
		if containsAny(text, topics) {
			out = append(out, b)
		}
	}
	return out
}
