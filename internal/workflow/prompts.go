package workflow

import "fmt"

// Step names shared by the workflows
const (
	StepGeneration = "Generate Search Keywords"
	StepSearch     = "Search Database"
	StepFilter     = "Apply Intelligent Filters"
	StepRelevance  = "Semantic Relevance Check"
	StepRanking    = "Final Ranking"
)

// Artifact labels
const (
	LabelPromptAnalysis   = "Prompt Analysis"
	LabelRawSearchResults = "Raw Search Results"
	LabelRelevanceScores  = "Relevance Scores"
	LabelTopPick          = "Top Pick"
	LabelBlogMetrics      = "Blog Metrics"
)

// CriterionDatabaseHit is evaluated on every search result artifact
const CriterionDatabaseHit = "Database Hit"

func keywordPrompt(input string) string {
	return fmt.Sprintf("User Request: %q\n"+
		"Task: Extract key search terms (keywords) and provide a reasoning for why they are relevant.\n"+
		`Output JSON: { "keywords": ["term1", "term2"], "reasoning": "..." }`, input)
}

func topicPrompt(input string) string {
	return fmt.Sprintf("User Request: %q\n"+
		"Task: Extract key topics and target audience complexity (Beginner/Intermediate/Advanced) for a technical blog search.\n"+
		`Output JSON: { "topics": ["topic1"], "complexity": "Beginner" | null, "reasoning": "..." }`, input)
}

func relevancePrompt(input string, p Product) string {
	return fmt.Sprintf("User Request: %q\n"+
		"Product: %s (%s) - %s\n"+
		"Task: Rate relevance from 0.0 to 1.0 and give 1 sentence reasoning.\n"+
		`Output JSON: { "score": number, "reasoning": "string" }`, input, p.Title, p.Category, p.Description)
}
