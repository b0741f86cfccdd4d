package judge

import (
	"github.com/invopop/jsonschema"

	"github.com/fpt/simforge/pkg/llm"
	"github.com/fpt/simforge/pkg/scenario"
)

// BuildResponseFormat constructs the structured-output schema for one
// scoring pass: an object holding one metric-value object per participant
// plus a free-text reasoning field. Per-metric schema fragments come from
// the scenario's scoring rules.
func BuildResponseFormat(rules map[string]scenario.ScoringRule, participants []string) *llm.ResponseFormat {
	metricProps := jsonschema.NewProperties()
	for name, rule := range rules {
		metricProps.Set(name, metricSchema(rule))
	}

	scoreProps := jsonschema.NewProperties()
	for _, participant := range participants {
		scoreProps.Set(participant, &jsonschema.Schema{
			Type:       "object",
			Properties: metricProps,
		})
	}

	root := jsonschema.NewProperties()
	root.Set("scores", &jsonschema.Schema{
		Type:        "object",
		Description: "The scores for all participants.",
		Properties:  scoreProps,
	})
	root.Set("reasoning", &jsonschema.Schema{
		Type:        "string",
		Description: "A brief explanation of the scoring decisions.",
	})

	return &llm.ResponseFormat{
		Name:        "record_scores",
		Description: "Records the scores for all participants.",
		Schema: &jsonschema.Schema{
			Type:       "object",
			Properties: root,
			Required:   []string{"scores", "reasoning"},
		},
	}
}

// metricSchema converts a rule's scenario-authored tool_schema fragment
// into a schema node, defaulting to a plain number.
func metricSchema(rule scenario.ScoringRule) *jsonschema.Schema {
	node := &jsonschema.Schema{Type: "number"}
	if rule.ToolSchema == nil {
		return node
	}
	if t, ok := rule.ToolSchema["type"].(string); ok && t != "" {
		node.Type = t
	}
	if d, ok := rule.ToolSchema["description"].(string); ok {
		node.Description = d
	}
	return node
}
