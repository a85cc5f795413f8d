package guardrails

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed rules/default.yaml
var defaultRules []byte

const (
	KindPattern    = "pattern"
	KindLength     = "length"
	KindRepetition = "repetition"
)

// RuleSetConfig is the YAML representation of a guardrail rule set.
type RuleSetConfig struct {
	Version string            `yaml:"version"`
	Input   []InputRuleConfig `yaml:"input"`
	Output  OutputRulesConfig `yaml:"output"`
}

type InputRuleConfig struct {
	Name      string   `yaml:"name"`
	Kind      string   `yaml:"kind"`
	Reason    string   `yaml:"reason"`
	Patterns  []string `yaml:"patterns"`
	Min       int      `yaml:"min"`
	Max       int      `yaml:"max"`
	MinTokens int      `yaml:"min_tokens"`
	MaxShare  float64  `yaml:"max_share"`
}

type OutputRulesConfig struct {
	Overconfidence []string `yaml:"overconfidence"`
}

// RuleSet is a compiled, read-only rule set shared by all requests.
type RuleSet struct {
	Version        string
	Input          []InputRule
	Overconfidence []*regexp.Regexp
}

// InputRule is one predicate and the reason reported when it matches.
type InputRule interface {
	Name() string
	Reason() models.ReasonCode
	Match(text string) bool
}

// LoadRuleSet reads the rule set from GUARDRAIL_RULES_PATH, falling back to
// the embedded default when the variable is unset.
func LoadRuleSet() (*RuleSet, error) {
	data := defaultRules

	if path := os.Getenv("GUARDRAIL_RULES_PATH"); path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read rule set %s: %w", path, err)
		}
		data = fileData
	}

	return ParseRuleSet(data)
}

// DefaultRuleSet compiles the embedded rule set.
func DefaultRuleSet() (*RuleSet, error) {
	return ParseRuleSet(defaultRules)
}

func ParseRuleSet(data []byte) (*RuleSet, error) {
	var cfg RuleSetConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse rule set: %w", err)
	}

	applyRuleDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg.Compile()
}

func applyRuleDefaults(cfg *RuleSetConfig) {
	for i := range cfg.Input {
		rule := &cfg.Input[i]
		if rule.Kind == "" {
			rule.Kind = KindPattern
		}
		if rule.Kind == KindRepetition {
			if rule.MinTokens == 0 {
				rule.MinTokens = 5
			}
			if rule.MaxShare == 0 {
				rule.MaxShare = 0.6
			}
		}
	}
}

var inputReasons = map[models.ReasonCode]bool{
	models.ReasonInjectionSuspected:     true,
	models.ReasonPIIExtractionSuspected: true,
	models.ReasonMalformedInput:         true,
}

func (c *RuleSetConfig) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("rule set has no version")
	}

	seen := make(map[string]bool, len(c.Input))
	for _, rule := range c.Input {
		if rule.Name == "" {
			return fmt.Errorf("input rule without name")
		}
		if seen[rule.Name] {
			return fmt.Errorf("duplicate input rule %s", rule.Name)
		}
		seen[rule.Name] = true

		if !inputReasons[models.ReasonCode(rule.Reason)] {
			return fmt.Errorf("input rule %s has unsupported reason %q", rule.Name, rule.Reason)
		}

		switch rule.Kind {
		case KindPattern:
			if len(rule.Patterns) == 0 {
				return fmt.Errorf("pattern rule %s has no patterns", rule.Name)
			}
		case KindLength:
			if rule.Min < 0 || rule.Max <= 0 || rule.Min > rule.Max {
				return fmt.Errorf("length rule %s has invalid bounds [%d, %d]", rule.Name, rule.Min, rule.Max)
			}
		case KindRepetition:
			if rule.MaxShare <= 0 || rule.MaxShare > 1 {
				return fmt.Errorf("repetition rule %s has invalid max_share %.2f", rule.Name, rule.MaxShare)
			}
		default:
			return fmt.Errorf("input rule %s has unknown kind %q", rule.Name, rule.Kind)
		}
	}

	return nil
}

// Compile turns a validated configuration into a RuleSet.
func (c *RuleSetConfig) Compile() (*RuleSet, error) {
	rs := &RuleSet{Version: c.Version}

	for _, rule := range c.Input {
		reason := models.ReasonCode(rule.Reason)
		switch rule.Kind {
		case KindPattern:
			compiled, err := compilePatterns(rule.Patterns)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", rule.Name, err)
			}
			rs.Input = append(rs.Input, &patternRule{name: rule.Name, reason: reason, patterns: compiled})
		case KindLength:
			rs.Input = append(rs.Input, &lengthRule{name: rule.Name, reason: reason, min: rule.Min, max: rule.Max})
		case KindRepetition:
			rs.Input = append(rs.Input, &repetitionRule{name: rule.Name, reason: reason, minTokens: rule.MinTokens, maxShare: rule.MaxShare})
		}
	}

	overconfidence, err := compilePatterns(c.Output.Overconfidence)
	if err != nil {
		return nil, fmt.Errorf("overconfidence: %w", err)
	}
	rs.Overconfidence = overconfidence

	return rs, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?is)" + p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

type patternRule struct {
	name     string
	reason   models.ReasonCode
	patterns []*regexp.Regexp
}

func (r *patternRule) Name() string              { return r.name }
func (r *patternRule) Reason() models.ReasonCode { return r.reason }

func (r *patternRule) Match(text string) bool {
	for _, re := range r.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// lengthRule matches text whose trimmed rune count is outside [min, max].
type lengthRule struct {
	name     string
	reason   models.ReasonCode
	min, max int
}

func (r *lengthRule) Name() string              { return r.name }
func (r *lengthRule) Reason() models.ReasonCode { return r.reason }

func (r *lengthRule) Match(text string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	return n < r.min || n > r.max
}

// repetitionRule matches text dominated by a single repeated token.
type repetitionRule struct {
	name      string
	reason    models.ReasonCode
	minTokens int
	maxShare  float64
}

func (r *repetitionRule) Name() string              { return r.name }
func (r *repetitionRule) Reason() models.ReasonCode { return r.reason }

func (r *repetitionRule) Match(text string) bool {
	words := strings.Fields(strings.ToLower(text))
	if len(words) < r.minTokens {
		return false
	}

	counts := make(map[string]int, len(words))
	top := 0
	for _, w := range words {
		counts[w]++
		if counts[w] > top {
			top = counts[w]
		}
	}

	return float64(top)/float64(len(words)) >= r.maxShare
}
