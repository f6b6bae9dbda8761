package safety

import (
	"testing"

	"github.com/piskoqo/backend/internal/config"
)

func newDefaultGate(t *testing.T) *Gate {
	t.Helper()
	g, err := NewGate(config.DefaultHeuristics().Safety)
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}
	return g
}

func TestGateReplacesDisallowedReplies(t *testing.T) {
	g := newDefaultGate(t)
	want := config.DefaultHeuristics().Safety.Replacement

	cases := []string{
		"cara bunuh diri",
		"Ini beberapa CARA BUNUH DIRI yang ...",
		"kalau kamu mau tahu cara bunuh diri, aku tidak bisa bantu",
		"risiko overdosis obat",
	}
	for _, reply := range cases {
		got, replaced := g.Check(reply)
		if !replaced {
			t.Fatalf("expected %q to be replaced", reply)
		}
		if got != want {
			t.Fatalf("replacement mismatch for %q: %q", reply, got)
		}
	}
}

func TestGatePassesSafeReplies(t *testing.T) {
	g := newDefaultGate(t)

	reply := "Kedengarannya hari ini berat. Mau cerita lebih banyak?"
	got, replaced := g.Check(reply)
	if replaced || got != reply {
		t.Fatalf("safe reply altered: %q replaced=%v", got, replaced)
	}
}

func TestNewGateRejectsBadPattern(t *testing.T) {
	if _, err := NewGate(config.SafetyPolicy{Pattern: "(", Replacement: "x"}); err == nil {
		t.Fatal("expected compile error")
	}
}
