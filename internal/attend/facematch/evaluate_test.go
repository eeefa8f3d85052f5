package facematch

import (
	"math"
	"testing"
)

func TestEvaluate_AcceptsExpectedNameUnderThreshold(t *testing.T) {
	names := []string{"alice", "bob"}
	refs := []Encoding{{0, 0}, {1, 1}}

	v := evaluate("Alice", Encoding{0.3, 0}, names, refs, 0.6)
	if !v.accepted {
		t.Fatalf("expected acceptance, got %+v", v)
	}
	if v.index != 0 || math.Abs(v.distance-0.3) > 1e-9 {
		t.Errorf("unexpected verdict %+v", v)
	}
}

func TestEvaluate_RejectsOtherIdentity(t *testing.T) {
	names := []string{"alice", "bob"}
	refs := []Encoding{{0, 0}, {1, 1}}

	// Close to bob, but the badge claims alice.
	v := evaluate("alice", Encoding{1, 0.9}, names, refs, 0.6)
	if v.accepted {
		t.Fatal("a face matching another identity must not be accepted")
	}
	if v.index != 1 {
		t.Errorf("expected nearest index 1, got %d", v.index)
	}
}

func TestEvaluate_RejectsAtThreshold(t *testing.T) {
	v := evaluate("alice", Encoding{0.6}, []string{"alice"}, []Encoding{{0}}, 0.6)
	if v.accepted {
		t.Error("distance equal to threshold must be rejected")
	}
}

func TestEvaluate_NoReferences(t *testing.T) {
	v := evaluate("alice", Encoding{0}, nil, nil, 0.6)
	if v.index != -1 || v.accepted {
		t.Errorf("unexpected verdict %+v", v)
	}
}
