package intent

import "github.com/piskoqo/backend/internal/analysis/text"

// Profile describes how ambiguous and how complex a message looks.
type Profile struct {
	Ambiguity  float64 `json:"ambiguity"`
	Complexity float64 `json:"complexity"`
}

// Thresholds 控制基于长度的意图判定。
type Thresholds struct {
	ShortLength    int     `yaml:"short_length"`
	LongLength     int     `yaml:"long_length"`
	HighAmbiguity  float64 `yaml:"high_ambiguity"`
	LowAmbiguity   float64 `yaml:"low_ambiguity"`
	HighComplexity float64 `yaml:"high_complexity"`
	LowComplexity  float64 `yaml:"low_complexity"`
}

// DefaultThresholds returns the built-in length cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ShortLength:    20,
		LongLength:     200,
		HighAmbiguity:  0.7,
		LowAmbiguity:   0.2,
		HighComplexity: 0.7,
		LowComplexity:  0.3,
	}
}

// Analyze derives the profile from message length alone.
func Analyze(message string, th Thresholds) Profile {
	length := text.Length(message)

	profile := Profile{Ambiguity: th.LowAmbiguity, Complexity: th.LowComplexity}
	if length < th.ShortLength {
		profile.Ambiguity = th.HighAmbiguity
	}
	if length > th.LongLength {
		profile.Complexity = th.HighComplexity
	}
	return profile
}
