// Package scorecard owns the per-participant metric state of a simulation
// and its presentation. Scoring semantics are scenario-configured, not
// hard-coded: every metric is updated through its declared ScoringRule.
package scorecard

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/fpt/simforge/pkg/expr"
	pkgLogger "github.com/fpt/simforge/pkg/logger"
	"github.com/fpt/simforge/pkg/scenario"
)

var logger = pkgLogger.NewComponentLogger("scorecard")

// Error markers substituted in place of failing template placeholders.
// Rendering never fails outright: malformed scenario templates degrade to
// greppable markers so authors can fix data without losing run state.
const (
	renderErrorMarker     = "[RENDER ERROR]"
	evaluationErrorMarker = "[EVALUATION ERROR]"
)

var (
	doubleBracePattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)
	singleBracePattern = regexp.MustCompile(`\{([^{}]+)\}`)
	dottedPathPattern  = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_ ]*)\.([A-Za-z_][A-Za-z0-9_]*)$`)
)

// ScoreTable maps participant name to metric name to value. Keys grow
// monotonically; values are overwritten or recomputed on every update.
type ScoreTable map[string]map[string]any

// Scorecard applies scenario-defined scoring rules to a ScoreTable and
// renders it through the scenario's template.
type Scorecard struct {
	template *scenario.Template
	rules    map[string]scenario.ScoringRule
	params   scenario.Attributes
	data     ScoreTable
	turnDate string
}

// New creates a scorecard for the given scenario configuration
func New(sc *scenario.Scenario) *Scorecard {
	return &Scorecard{
		template: sc.Scorecard,
		rules:    sc.ScoringRules,
		params:   sc.Parameters,
		data:     make(ScoreTable),
		turnDate: sc.StartDate,
	}
}

// Seed copies initial metric values from the scenario's entity group into
// the score table, one row per entity.
func (s *Scorecard) Seed(entities map[string]scenario.Attributes) {
	for name, attrs := range entities {
		row := s.row(name)
		for key, value := range attrs {
			row[key] = value
		}
	}
}

// Data returns the live score table. The scorecard remains the exclusive
// writer; callers treat the result as read-only.
func (s *Scorecard) Data() ScoreTable {
	return s.data
}

// SetData replaces the score table, used when restoring a saved run
func (s *Scorecard) SetData(data ScoreTable) {
	if data == nil {
		data = make(ScoreTable)
	}
	s.data = data
}

// SetTurnDate updates the display date exposed to templates as turn_date
func (s *Scorecard) SetTurnDate(date string) {
	s.turnDate = date
}

func (s *Scorecard) row(participant string) map[string]any {
	row, ok := s.data[participant]
	if !ok {
		row = make(map[string]any)
		s.data[participant] = row
	}
	return row
}

// Update applies one judgment record to the score table. Metrics without a
// configured rule are ignored. Absolute rules replace the stored value;
// calculated rules evaluate the rule's formula with current_value,
// llm_judgement, the scenario parameters, and the full table in scope.
// A formula error affects only its own metric.
func (s *Scorecard) Update(judgment map[string]map[string]any) {
	for participant, metrics := range judgment {
		row := s.row(participant)

		for metric, value := range metrics {
			rule, ok := s.rules[metric]
			if !ok {
				continue
			}

			switch rule.Kind {
			case scenario.RuleAbsolute:
				row[metric] = value
			case scenario.RuleCalculated:
				currentValue, ok := row[metric]
				if !ok {
					currentValue = float64(0)
				}
				ctx := s.evalContext(map[string]any{
					"current_value": currentValue,
					"llm_judgement": value,
				})
				newValue, err := expr.Eval(rule.Calculation, ctx)
				if err != nil {
					logger.Error("Error calculating score",
						"metric", metric, "participant", participant, "error", err)
					continue
				}
				row[metric] = newValue
			default:
				logger.Warn("Ignoring metric with unknown rule kind",
					"metric", metric, "kind", rule.Kind)
			}
		}
	}
}

// evalContext builds the variable context shared by formulas and template
// placeholders: the extra values, scenario parameters under "parameters",
// and every participant's metrics addressable as participant.metric.
func (s *Scorecard) evalContext(extra map[string]any) map[string]any {
	ctx := make(map[string]any, len(s.data)+len(extra)+1)
	ctx["parameters"] = map[string]any(s.params)
	for participant, metrics := range s.data {
		ctx[participant] = metrics
	}
	for key, value := range extra {
		ctx[key] = value
	}
	return ctx
}

// Render walks the scorecard template and resolves placeholders. It never
// returns an error; failures degrade to visible markers in place.
func (s *Scorecard) Render() string {
	if s.template == nil {
		return s.renderJSONFallback()
	}

	rendered := s.renderValue(s.template.Template)

	if s.template.RenderType == scenario.RenderJSON {
		if rendered == nil || rendered == "" {
			return s.renderJSONFallback()
		}
		data, err := json.MarshalIndent(rendered, "", "  ")
		if err != nil {
			logger.Error("Failed to serialize rendered scorecard", "error", err)
			return renderErrorMarker
		}
		return string(data)
	}

	text, _ := rendered.(string)
	return text
}

// renderJSONFallback serializes the raw score table, used when a JSON-mode
// scenario declares no template of its own.
func (s *Scorecard) renderJSONFallback() string {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		logger.Error("Failed to serialize score table", "error", err)
		return renderErrorMarker
	}
	return string(data)
}

// renderValue recursively renders a template value: string leaves get
// placeholder substitution, containers recurse, everything else passes
// through untouched.
func (s *Scorecard) renderValue(template any) any {
	switch t := template.(type) {
	case string:
		return s.renderString(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for key, value := range t {
			out[key] = s.renderValue(value)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, value := range t {
			out[i] = s.renderValue(value)
		}
		return out
	default:
		return template
	}
}

func (s *Scorecard) renderString(text string) string {
	// Double-brace placeholders go through the evaluator's conditional form
	text = doubleBracePattern.ReplaceAllStringFunc(text, func(match string) string {
		inner := match[2 : len(match)-2]
		value, err := expr.Eval(inner, s.evalContext(nil))
		if err != nil {
			logger.Error("Error evaluating conditional placeholder",
				"placeholder", inner, "error", err)
			return evaluationErrorMarker
		}
		return formatValue(value)
	})

	// Single-brace placeholders try the evaluator first, then fall back to
	// a literal participant.metric / parameters.key lookup or a named
	// context value.
	text = singleBracePattern.ReplaceAllStringFunc(text, func(match string) string {
		inner := match[1 : len(match)-1]
		if value, err := expr.Eval(inner, s.evalContext(nil)); err == nil {
			return formatValue(value)
		}

		if m := dottedPathPattern.FindStringSubmatch(inner); m != nil {
			obj, key := m[1], m[2]
			if obj == "parameters" {
				if value, ok := s.params[key]; ok {
					return formatValue(value)
				}
				return fmt.Sprintf("Error: %s not in parameters", key)
			}
			if row, ok := s.data[obj]; ok {
				if value, ok := row[key]; ok {
					return formatValue(value)
				}
			}
			return "0"
		}

		if inner == "turn_date" {
			return s.turnDate
		}

		logger.Error("Error rendering placeholder", "placeholder", inner)
		return renderErrorMarker
	})

	return text
}

// formatValue renders a value the way scenario authors expect: integral
// numbers print without a decimal point.
func formatValue(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
