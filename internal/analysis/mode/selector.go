package mode

import (
	"github.com/piskoqo/backend/internal/analysis/emotion"
	"github.com/piskoqo/backend/internal/analysis/intent"
)

// Mode is the conversational strategy chosen for one reply.
type Mode string

const (
	Crisis      Mode = "crisis"
	Therapeutic Mode = "therapeutic"
	Deep        Mode = "deep"
	Reflective  Mode = "reflective"
	Supportive  Mode = "supportive"
)

// All lists every mode in priority order.
func All() []Mode {
	return []Mode{Crisis, Therapeutic, Deep, Reflective, Supportive}
}

// Thresholds 为各模式的触发阈值（严格大于）。
type Thresholds struct {
	CrisisRisk          float64 `yaml:"crisis_risk"`
	TherapeuticSeverity float64 `yaml:"therapeutic_severity"`
	DeepComplexity      float64 `yaml:"deep_complexity"`
	ReflectiveAmbiguity float64 `yaml:"reflective_ambiguity"`
}

// DefaultThresholds returns the built-in routing thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CrisisRisk:          0.8,
		TherapeuticSeverity: 0.7,
		DeepComplexity:      0.6,
		ReflectiveAmbiguity: 0.5,
	}
}

// Select returns the first mode whose threshold is exceeded, falling back to
// Supportive.
func Select(e emotion.Score, p intent.Profile, th Thresholds) Mode {
	switch {
	case e.Risk > th.CrisisRisk:
		return Crisis
	case e.Severity > th.TherapeuticSeverity:
		return Therapeutic
	case p.Complexity > th.DeepComplexity:
		return Deep
	case p.Ambiguity > th.ReflectiveAmbiguity:
		return Reflective
	default:
		return Supportive
	}
}
