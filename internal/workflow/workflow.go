// Package workflow contains the multi-step decision pipelines recorded by
// the tracer.
package workflow

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/filter"
	"github.com/agenttrace/xray/internal/reasoner"
	"github.com/agenttrace/xray/internal/tracer"
)

// Workflow is one pipeline recorded into an open execution
type Workflow interface {
	Name() string
	Run(ctx context.Context, input string, tr *tracer.Tracer) error
}

// Router picks the workflow serving a request
type Router struct {
	product *ProductSearch
	blog    *BlogRecommendation
}

// NewRouter creates both workflows over the embedded catalogs
func NewRouter(r reasoner.Reasoner, logger *zap.Logger) (*Router, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	products, err := LoadProducts()
	if err != nil {
		return nil, err
	}
	blogs, err := LoadBlogs()
	if err != nil {
		return nil, err
	}

	engine := filter.NewEngine(r, logger)
	return &Router{
		product: NewProductSearch(r, engine, products, logger),
		blog:    NewBlogRecommendation(r, engine, blogs, logger),
	}, nil
}

// Select returns the blog workflow for requests mentioning blogs, articles or
// posts, and the product search otherwise.
func (rt *Router) Select(input string) Workflow {
	if IsBlogRequest(input) {
		return rt.blog
	}
	return rt.product
}

// IsBlogRequest reports whether input asks for reading material
func IsBlogRequest(input string) bool {
	lower := strings.ToLower(input)
	for _, word := range []string{"blog", "article", "post"} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// recordStep opens a step, runs fn and seals the step whatever fn returns
func recordStep(tr *tracer.Tracer, name, stepType string, input any, fn func(step *tracer.StepRecorder) error) error {
	step, err := tr.StartStep(name, stepType, input)
	if err != nil {
		return err
	}
	runErr := fn(step)
	if err := tr.EndStep(step); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("%s: %w", name, runErr)
	}
	return nil
}

// containsAny reports whether text contains any of terms, ignoring case
func containsAny(text string, terms []string) bool {
	text = strings.ToLower(text)
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && strings.Contains(text, t) {
			return true
		}
	}
	return false
}
