package emotion

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Scalar 表示规则写入的情绪维度。
type Scalar string

const (
	Risk    Scalar = "risk"
	Valence Scalar = "valence"
	Arousal Scalar = "arousal"
)

// Score is the per-request emotional reading of a message.
type Score struct {
	Valence  float64 `json:"valence"`
	Arousal  float64 `json:"arousal"`
	Risk     float64 `json:"risk"`
	Severity float64 `json:"severity"`
}

// Rule assigns Value to Target when Pattern matches the message.
type Rule struct {
	Name    string  `yaml:"name"`
	Pattern string  `yaml:"pattern"`
	Target  Scalar  `yaml:"target"`
	Value   float64 `yaml:"value"`
}

// DefaultRules returns the built-in vocabulary. Order matters: a later match
// overwrites an earlier one for the same scalar.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "crisis", Pattern: `bunuh diri|mati aja|gak mau hidup`, Target: Risk, Value: 1},
		{Name: "hopeless", Pattern: `putus asa|hampa|tidak berarti`, Target: Valence, Value: -0.9},
		{Name: "anxious", Pattern: `cemas|panik|takut`, Target: Arousal, Value: 0.8},
		{Name: "exhausted", Pattern: `lelah|capek|kosong`, Target: Valence, Value: -0.6},
		{Name: "angry", Pattern: `marah|benci`, Target: Arousal, Value: 0.7},
		{Name: "relieved", Pattern: `lega|tenang|syukur`, Target: Valence, Value: 0.6},
	}
}

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// Scorer evaluates the ordered rule set against normalized text.
type Scorer struct {
	rules []compiledRule
}

// NewScorer compiles rules case-insensitively. An empty slice yields a scorer
// that always reports a zero score.
func NewScorer(rules []Rule) (*Scorer, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for i, rule := range rules {
		switch rule.Target {
		case Risk, Valence, Arousal:
		default:
			return nil, fmt.Errorf("emotion rule %d (%s): unknown target %q", i, rule.Name, rule.Target)
		}
		if strings.TrimSpace(rule.Pattern) == "" {
			return nil, fmt.Errorf("emotion rule %d (%s): empty pattern", i, rule.Name)
		}
		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("emotion rule %d (%s): %w", i, rule.Name, err)
		}
		compiled = append(compiled, compiledRule{Rule: rule, re: re})
	}
	return &Scorer{rules: compiled}, nil
}

// MustDefaultScorer builds a scorer over DefaultRules.
func MustDefaultScorer() *Scorer {
	s, err := NewScorer(DefaultRules())
	if err != nil {
		panic(err)
	}
	return s
}

// Analyze 根据关键词规则计算 valence/arousal/risk，并推导 severity。
func (s *Scorer) Analyze(text string) Score {
	lowered := strings.ToLower(text)

	var score Score
	for _, rule := range s.rules {
		if !rule.re.MatchString(lowered) {
			continue
		}
		switch rule.Target {
		case Risk:
			score.Risk = rule.Value
		case Valence:
			score.Valence = rule.Value
		case Arousal:
			score.Arousal = rule.Value
		}
	}

	score.Severity = Severity(score)
	return score
}

// Severity = max(risk, |valence| + arousal/2).
func Severity(s Score) float64 {
	return math.Max(s.Risk, math.Abs(s.Valence)+s.Arousal/2)
}
