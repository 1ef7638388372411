package filter

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Prompt builds the rule generation prompt for intent over count items
func Prompt(intent string, count int, schema map[string]string) string {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		schemaJSON = []byte("{}")
	}
	return fmt.Sprintf(promptTemplate, intent, count, schemaJSON)
}

const promptTemplate = `
You are a decision engine that converts a user's natural language intent
into structured, schema-safe filter rules.

Context:
- User Request: %q
- Items Available: %d
- Available Data Schema (valid fields only): %s

Your task:
1. Analyze the user's intent.
2. Determine which schema fields are relevant to that intent.
3. Generate ONLY explicit, binary filter rules:
   - A rule either includes or excludes items.
   - If a field is not clearly relevant, DO NOT generate a rule for it.

Rule constraints:
- You MUST ONLY use fields from the provided schema.
- You MUST NOT invent fields.
- You MUST choose from the following operators only:
  - ">", ">=", "<", "<=" (numeric comparison)
  - "==", "!=" (case-insensitive exact match)
  - "contains" (case-insensitive string containment)
- Numeric thresholds must be reasonable, conservative and interpretable
  without external context.
- If the user's intent is subjective (e.g., "cheap", "premium", "expert"),
  infer thresholds using common-sense defaults.

Examples:
- "cheap" -> price < median or price < lower quartile
- "premium" -> rating > 4.2 AND reviews > 100
- "expert" -> difficulty_level == "Advanced"

Output rules:
- Return an empty list if no clear filters apply.
- Do NOT over-filter.
- Prefer fewer, higher-confidence rules.

Output format:
Return STRICT JSON ONLY. No prose, no markdown.

{
  "rules": [
    { "field": "path.to.field", "operator": ">", "value": 0 }
  ],
  "reasoning": "..."
}
`
