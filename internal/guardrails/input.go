package guardrails

import (
	"time"

	"github.com/povarna/generative-ai-agents/uni-guard/internal/identifier"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
)

// identifierRule is always evaluated first, ahead of any configured rule.
type identifierRule struct{}

func (identifierRule) Name() string              { return "regulated-identifier" }
func (identifierRule) Reason() models.ReasonCode { return models.ReasonRegulatedIDPresent }
func (identifierRule) Match(text string) bool    { return identifier.ContainsValid(text) }

// InputEngine classifies raw queries before anything else sees them.
// It is pure and safe for concurrent use.
type InputEngine struct {
	rules   []InputRule
	version string
}

func NewInputEngine(ruleSet *RuleSet) *InputEngine {
	rules := make([]InputRule, 0, len(ruleSet.Input)+1)
	rules = append(rules, identifierRule{})
	rules = append(rules, ruleSet.Input...)

	return &InputEngine{
		rules:   rules,
		version: ruleSet.Version,
	}
}

// Evaluate runs the rules in priority order and stops at the first match.
// A blocked verdict names the rule and reason but never the matched text.
func (e *InputEngine) Evaluate(query models.Query) models.GuardrailVerdict {
	now := time.Now()

	for _, rule := range e.rules {
		if !rule.Match(query.Text) {
			continue
		}

		return models.GuardrailVerdict{
			Verdict: models.VerdictBlock,
			Reasons: []models.ReasonCode{rule.Reason()},
			Checks: []models.StageResult{{
				Name:     rule.Name(),
				Score:    0.0,
				Reason:   "matched rule set " + e.version,
				Duration: time.Since(now),
			}},
		}
	}

	return models.GuardrailVerdict{
		Verdict: models.VerdictAllow,
		Reasons: []models.ReasonCode{},
		Checks: []models.StageResult{{
			Name:     "input-rules",
			Score:    1.0,
			Reason:   "no rule matched",
			Duration: time.Since(now),
		}},
	}
}

// Version returns the rule set version the engine was built from.
func (e *InputEngine) Version() string {
	return e.version
}
