package ai

import (
	"strings"

	"github.com/piskoqo/backend/internal/analysis/mode"
)

const (
	defaultPersona = "Kamu pendamping curhat manusiawi. Hangat, reflektif, empatik, tidak kaku. Fokus membantu memahami perasaan dan langkah kecil yang realistis."
	memoryRule     = "Gunakan memori percakapan jika relevan."
	emptyMemory    = "kosong"
)

// PromptManager assembles the system instruction for a reply.
type PromptManager struct {
	persona    string
	directives map[mode.Mode]string
}

// NewPromptManager returns a manager loaded with the default persona and
// per-mode directives.
func NewPromptManager() *PromptManager {
	return &PromptManager{
		persona: defaultPersona,
		directives: map[mode.Mode]string{
			mode.Crisis:      "Prioritaskan keselamatan emosional dan dukungan nyata.",
			mode.Therapeutic: "Gunakan pendekatan refleksi emosi mendalam dan validasi pengalaman.",
			mode.Deep:        "Gunakan eksplorasi bertahap dan insight psikologis ringan.",
			mode.Reflective:  "Ajukan pertanyaan klarifikasi lembut.",
			mode.Supportive:  "Balasan empatik ringkas.",
		},
	}
}

// Directive returns the behavioural rule of m. Unknown modes get the
// supportive rule.
func (pm *PromptManager) Directive(m mode.Mode) string {
	if d, ok := pm.directives[m]; ok {
		return d
	}
	return pm.directives[mode.Supportive]
}

// BuildSystemPrompt combines persona, mode directive and memory. The
// personality vector is accepted so callers pass it through, but it does not
// shape the instruction text yet.
func (pm *PromptManager) BuildSystemPrompt(memoryText string, _ []float32, m mode.Mode) string {
	memory := memoryText
	if strings.TrimSpace(memory) == "" {
		memory = emptyMemory
	}

	var builder strings.Builder
	builder.WriteString(pm.persona)
	builder.WriteString(" ")
	builder.WriteString(pm.Directive(m))
	builder.WriteString("\n")
	builder.WriteString(memoryRule)
	builder.WriteString("\nMEMORY:\n")
	builder.WriteString(memory)
	return builder.String()
}
