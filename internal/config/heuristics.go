package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/piskoqo/backend/internal/analysis/emotion"
	"github.com/piskoqo/backend/internal/analysis/intent"
	"github.com/piskoqo/backend/internal/analysis/mode"
	"github.com/piskoqo/backend/internal/analysis/text"
)

// Heuristics gathers every tunable of the reply pipeline. Defaults reproduce
// the production behaviour; a YAML file may override any subset.
//
// Recognized keys:
//
//	max_input_length: 4000
//	emotion_rules:           # ordered; later matches overwrite earlier ones
//	  - {name: crisis, pattern: "bunuh diri|mati aja", target: risk, value: 1}
//	intent:   {short_length, long_length, high_ambiguity, low_ambiguity, high_complexity, low_complexity}
//	mode:     {crisis_risk, therapeutic_severity, deep_complexity, reflective_ambiguity}
//	memory:   {history_limit, semantic_limit, similarity_threshold}
//	sampling: {base_temperature, arousal_gain}
//	safety:   {pattern, replacement}
type Heuristics struct {
	MaxInputLength int               `yaml:"max_input_length"`
	EmotionRules   []emotion.Rule    `yaml:"emotion_rules"`
	Intent         intent.Thresholds `yaml:"intent"`
	Mode           mode.Thresholds   `yaml:"mode"`
	Memory         MemoryLimits      `yaml:"memory"`
	Sampling       Sampling          `yaml:"sampling"`
	Safety         SafetyPolicy      `yaml:"safety"`
}

// MemoryLimits bounds history and semantic recall.
type MemoryLimits struct {
	HistoryLimit        int     `yaml:"history_limit"`
	SemanticLimit       int     `yaml:"semantic_limit"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// Sampling derives the completion temperature from arousal.
type Sampling struct {
	BaseTemperature float64 `yaml:"base_temperature"`
	ArousalGain     float64 `yaml:"arousal_gain"`
}

// Temperature = base + arousal*gain.
func (s Sampling) Temperature(arousal float64) float32 {
	return float32(s.BaseTemperature + arousal*s.ArousalGain)
}

// SafetyPolicy is applied to every model reply.
type SafetyPolicy struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// DefaultHeuristics returns the built-in tunables.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		MaxInputLength: text.DefaultMaxLength,
		EmotionRules:   emotion.DefaultRules(),
		Intent:         intent.DefaultThresholds(),
		Mode:           mode.DefaultThresholds(),
		Memory: MemoryLimits{
			HistoryLimit:        20,
			SemanticLimit:       6,
			SimilarityThreshold: 0.78,
		},
		Sampling: Sampling{
			BaseTemperature: 0.5,
			ArousalGain:     0.3,
		},
		Safety: SafetyPolicy{
			Pattern:     `cara bunuh diri|overdosis`,
			Replacement: "Aku peduli sama kamu. Kita fokus ke hal yang aman dulu. Mau cerita apa yang paling berat sekarang.",
		},
	}
}

// LoadHeuristics reads path on top of the defaults. An empty path returns
// the defaults unchanged.
func LoadHeuristics(path string) (Heuristics, error) {
	h := DefaultHeuristics()
	if path == "" {
		return h, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Heuristics{}, fmt.Errorf("read heuristics file: %w", err)
	}
	if err := yaml.Unmarshal(data, &h); err != nil {
		return Heuristics{}, fmt.Errorf("parse heuristics file %s: %w", path, err)
	}
	if err := h.Validate(); err != nil {
		return Heuristics{}, fmt.Errorf("heuristics file %s: %w", path, err)
	}
	return h, nil
}

// Validate checks that patterns compile and limits are usable.
func (h Heuristics) Validate() error {
	if h.MaxInputLength <= 0 {
		return errors.New("max_input_length must be positive")
	}
	if _, err := emotion.NewScorer(h.EmotionRules); err != nil {
		return err
	}
	if h.Memory.HistoryLimit < 0 || h.Memory.SemanticLimit < 0 {
		return errors.New("memory limits must not be negative")
	}
	if h.Safety.Pattern == "" || h.Safety.Replacement == "" {
		return errors.New("safety pattern and replacement are required")
	}
	if _, err := regexp.Compile(h.Safety.Pattern); err != nil {
		return fmt.Errorf("safety pattern: %w", err)
	}
	return nil
}
