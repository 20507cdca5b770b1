package sequence

import (
	"testing"

	"github.com/tapecut/tapecut/internal/tape"
)

func TestDrawIsDeterministic(t *testing.T) {
	const clips = 12
	first := Draw("tape-8c21", clips-1)
	second := Draw("tape-8c21", clips-1)

	if len(first) != clips-1 {
		t.Fatalf("expected %d styles, got %d", clips-1, len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("sequence diverged at boundary %d: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestDifferentTapesDiverge(t *testing.T) {
	a := Draw("tape-a", 16)
	b := Draw("tape-b", 16)

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("distinct tape ids should produce distinct sequences")
	}
}

// The recurrence is part of the cross-platform contract: verify every step
// of the stream against the documented formula, not just self-consistency.
func TestGeneratorFollowsDocumentedRecurrence(t *testing.T) {
	seed := Seed("contract-check")
	g := New(seed)

	state := uint64(seed)
	for i := 0; i < 100; i++ {
		state = (state*1103515245 + 12345) & 0x7fffffff
		want := pool[state%4]
		if got := g.Next(); got != want {
			t.Fatalf("step %d: got %s, want %s (state %d)", i, got, want, state)
		}
	}
}

func TestZeroSeedIsRemapped(t *testing.T) {
	g := New(0)
	saw := map[tape.TransitionStyle]bool{}
	for i := 0; i < 32; i++ {
		saw[g.Next()] = true
	}
	if len(saw) < 2 {
		t.Errorf("zero seed should not degenerate, saw only %d distinct styles", len(saw))
	}
}

func TestSeedFoldsInto31Bits(t *testing.T) {
	ids := []string{"", "a", "tape-1", "Проект-42", "f81d4fae-7dec-11d0-a765-00a0c91e6bf6"}
	for _, id := range ids {
		s := Seed(id)
		if s == 0 {
			t.Errorf("Seed(%q) must be nonzero", id)
		}
		if s > 0x7fffffff {
			t.Errorf("Seed(%q) = %d exceeds 31 bits", id, s)
		}
	}
}

func TestDrawLengths(t *testing.T) {
	if got := Draw("t", 0); got != nil {
		t.Errorf("zero boundaries should yield nil, got %v", got)
	}
	if got := Draw("t", -3); got != nil {
		t.Errorf("negative count should yield nil, got %v", got)
	}
	if got := Draw("t", 5); len(got) != 5 {
		t.Errorf("expected 5 styles, got %d", len(got))
	}
}
