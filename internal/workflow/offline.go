package workflow

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/agenttrace/xray/internal/filter"
	"github.com/agenttrace/xray/internal/reasoner"
)

var (
	requestPattern = regexp.MustCompile(`User Request: ("(?:[^"\\]|\\.)*")`)
	productPattern = regexp.MustCompile(`(?m)^Product: (.*)$`)
	pricePattern   = regexp.MustCompile(`(?i)(?:under|below|less than|cheaper than)\s*\$?(\d+(?:\.\d+)?)`)
	wordPattern    = regexp.MustCompile(`[a-z0-9]+`)
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "the": {}, "for": {}, "to": {}, "of": {}, "in": {},
	"on": {}, "me": {}, "my": {}, "i": {}, "want": {}, "need": {}, "find": {},
	"show": {}, "some": {}, "with": {}, "about": {}, "under": {}, "below": {},
	"less": {}, "than": {}, "cheaper": {}, "good": {}, "best": {}, "please": {},
	"blog": {}, "blogs": {}, "article": {}, "articles": {}, "post": {}, "posts": {},
	"beginner": {}, "intermediate": {}, "advanced": {},
}

var complexities = []string{"Beginner", "Intermediate", "Advanced"}

// Offline returns a Reasoner answering the workflow prompts with keyword
// heuristics. It lets the pipelines run without a model backend.
func Offline() reasoner.Reasoner {
	return reasoner.Func(func(ctx context.Context, prompt string) (json.RawMessage, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		request := offlineRequest(prompt)

		var answer any
		switch {
		case strings.Contains(prompt, "Extract key search terms"):
			answer = keywordAnswer{
				Keywords:  offlineTerms(request),
				Reasoning: "Offline mode: significant words of the request.",
			}
		case strings.Contains(prompt, "Extract key topics"):
			answer = topicAnswer{
				Topics:     offlineTerms(request),
				Complexity: offlineComplexity(request),
				Reasoning:  "Offline mode: significant words of the request.",
			}
		case strings.Contains(prompt, "decision engine"):
			answer = offlineRules(request, prompt)
		case strings.Contains(prompt, "Rate relevance"):
			answer = offlineRelevance(request, prompt)
		default:
			answer = map[string]any{}
		}

		data, err := json.Marshal(answer)
		if err != nil {
			return nil, err
		}
		return data, nil
	})
}

func offlineRequest(prompt string) string {
	m := requestPattern.FindStringSubmatch(prompt)
	if m == nil {
		return ""
	}
	request, err := strconv.Unquote(m[1])
	if err != nil {
		return strings.Trim(m[1], `"`)
	}
	return request
}

func offlineTerms(request string) []string {
	terms := []string{}
	seen := make(map[string]struct{})
	for _, w := range wordPattern.FindAllString(strings.ToLower(request), -1) {
		if _, skip := stopWords[w]; skip {
			continue
		}
		if _, err := strconv.ParseFloat(w, 64); err == nil {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
	}
	return terms
}

func offlineComplexity(request string) *string {
	lower := strings.ToLower(request)
	for _, c := range complexities {
		if strings.Contains(lower, strings.ToLower(c)) {
			level := c
			return &level
		}
	}
	return nil
}

func offlineRules(request, prompt string) filter.RuleSet {
	rs := filter.RuleSet{Rules: []filter.Rule{}, Reasoning: "Offline mode: no explicit constraint found."}

	if m := pricePattern.FindStringSubmatch(request); m != nil && strings.Contains(prompt, `"price"`) {
		limit, _ := strconv.ParseFloat(m[1], 64)
		rs.Rules = append(rs.Rules, filter.Rule{Field: "price", Operator: filter.OpLess, Value: limit})
		rs.Reasoning = "Offline mode: the request names a price ceiling."
	}
	if c := offlineComplexity(request); c != nil && strings.Contains(prompt, `"difficulty_level"`) {
		rs.Rules = append(rs.Rules, filter.Rule{Field: "difficulty_level", Operator: filter.OpEqual, Value: *c})
		rs.Reasoning = "Offline mode: the request names a complexity level."
	}
	return rs
}

func offlineRelevance(request, prompt string) relevanceAnswer {
	terms := offlineTerms(request)
	m := productPattern.FindStringSubmatch(prompt)
	if m == nil || len(terms) == 0 {
		return relevanceAnswer{Score: 0.5, Reasoning: "Offline mode: nothing to compare."}
	}

	product := strings.ToLower(m[1])
	hits := 0
	for _, t := range terms {
		if strings.Contains(product, t) {
			hits++
		}
	}
	return relevanceAnswer{
		Score:     float64(hits) / float64(len(terms)),
		Reasoning: "Offline mode: " + strconv.Itoa(hits) + " of " + strconv.Itoa(len(terms)) + " request terms appear in the product.",
	}
}
