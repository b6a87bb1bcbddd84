package usecase

import (
	"testing"

	"ald-01/internal/domain"
)

func TestPresetClamping(t *testing.T) {
	if got := PresetForLevel(0); got.Level != 1 {
		t.Errorf("level 0 clamped to %d, want 1", got.Level)
	}
	if got := PresetForLevel(-3); got.Level != 1 {
		t.Errorf("level -3 clamped to %d, want 1", got.Level)
	}
	if got := PresetForLevel(99); got.Level != 10 {
		t.Errorf("level 99 clamped to %d, want 10", got.Level)
	}
}

func TestPresetDepthMonotonic(t *testing.T) {
	prev := 0
	for level := 1; level <= 10; level++ {
		d := PresetForLevel(level).Depth
		if d < prev {
			t.Errorf("depth decreases at level %d: %d < %d", level, d, prev)
		}
		prev = d
	}
}

func TestPresetStrategyGating(t *testing.T) {
	for level := 1; level <= 6; level++ {
		p := PresetForLevel(level)
		if p.Allows(domain.StrategyTreeOfThought) || p.Allows(domain.StrategyReflexion) {
			t.Errorf("level %d should only allow chain of thought", level)
		}
		if !p.Allows(domain.StrategyChainOfThought) {
			t.Errorf("level %d should allow chain of thought", level)
		}
	}
	for level := 7; level <= 10; level++ {
		p := PresetForLevel(level)
		if !p.Allows(domain.StrategyTreeOfThought) || !p.Allows(domain.StrategyReflexion) {
			t.Errorf("level %d should allow all strategies", level)
		}
	}
}

func TestPresetToolAccessProgression(t *testing.T) {
	if PresetForLevel(1).ToolAccess != domain.AccessNone {
		t.Error("level 1 should grant no tool access")
	}
	if PresetForLevel(5).ToolAccess != domain.AccessStandard {
		t.Error("level 5 should grant standard tool access")
	}
	if PresetForLevel(10).ToolAccess != domain.AccessFull {
		t.Error("level 10 should grant full tool access")
	}
}
