package intent

import (
	"strings"
	"testing"
)

func TestAnalyzeShortMessageIsAmbiguous(t *testing.T) {
	p := Analyze("halo", DefaultThresholds())
	if p.Ambiguity != 0.7 || p.Complexity != 0.3 {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestAnalyzeBoundaries(t *testing.T) {
	th := DefaultThresholds()

	if p := Analyze(strings.Repeat("a", 19), th); p.Ambiguity != 0.7 {
		t.Fatalf("19 chars should be ambiguous, got %+v", p)
	}
	if p := Analyze(strings.Repeat("a", 20), th); p.Ambiguity != 0.2 {
		t.Fatalf("20 chars should not be ambiguous, got %+v", p)
	}
	if p := Analyze(strings.Repeat("a", 200), th); p.Complexity != 0.3 {
		t.Fatalf("200 chars should not be complex, got %+v", p)
	}
	if p := Analyze(strings.Repeat("a", 201), th); p.Complexity != 0.7 {
		t.Fatalf("201 chars should be complex, got %+v", p)
	}
}

func TestAnalyzeCountsCharactersNotBytes(t *testing.T) {
	// 10 runes, 20 bytes.
	p := Analyze(strings.Repeat("é", 10), DefaultThresholds())
	if p.Ambiguity != 0.7 {
		t.Fatalf("expected ambiguity 0.7, got %+v", p)
	}
}
