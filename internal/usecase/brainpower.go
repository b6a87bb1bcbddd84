package usecase

import "ald-01/internal/domain"

// Autonomy is how much unsupervised initiative a preset grants the loop.
type Autonomy string

const (
	// AutonomyNone: the loop only answers; tools run but no self-directed
	// multi-pass refinement beyond the configured depth.
	AutonomyNone Autonomy = "none"
	// AutonomyLimited: self-correction passes allowed within depth.
	AutonomyLimited Autonomy = "limited"
	// AutonomyFull: all strategies including branching exploration.
	AutonomyFull Autonomy = "full"
)

// BrainPreset scales the reasoning loop for one brain-power level.
type BrainPreset struct {
	Level         int
	Name          string
	Depth         int // maximum reasoning iterations
	ContextWindow int // token budget for prompt construction
	ToolAccess    domain.AccessTier
	Autonomy      Autonomy
	Strategies    []domain.Strategy
	Creativity    float64 // sampling temperature
}

// Allows reports whether the preset permits the given strategy.
func (p BrainPreset) Allows(s domain.Strategy) bool {
	for _, allowed := range p.Strategies {
		if allowed == s {
			return true
		}
	}
	return false
}

var baseStrategies = []domain.Strategy{domain.StrategyChainOfThought}

var fullStrategies = []domain.Strategy{
	domain.StrategyChainOfThought,
	domain.StrategyTreeOfThought,
	domain.StrategyReflexion,
}

// brainPresets maps level 1..10 (index 0..9) to its scaling parameters.
var brainPresets = [10]BrainPreset{
	{Level: 1, Name: "Basic", Depth: 1, ContextWindow: 4096, ToolAccess: domain.AccessNone, Autonomy: AutonomyNone, Strategies: baseStrategies, Creativity: 0.2},
	{Level: 2, Name: "Assistant", Depth: 1, ContextWindow: 8192, ToolAccess: domain.AccessBasic, Autonomy: AutonomyNone, Strategies: baseStrategies, Creativity: 0.3},
	{Level: 3, Name: "Capable", Depth: 2, ContextWindow: 8192, ToolAccess: domain.AccessBasic, Autonomy: AutonomyNone, Strategies: baseStrategies, Creativity: 0.4},
	{Level: 4, Name: "Proficient", Depth: 3, ContextWindow: 16384, ToolAccess: domain.AccessStandard, Autonomy: AutonomyNone, Strategies: baseStrategies, Creativity: 0.5},
	{Level: 5, Name: "Advanced", Depth: 4, ContextWindow: 16384, ToolAccess: domain.AccessStandard, Autonomy: AutonomyLimited, Strategies: baseStrategies, Creativity: 0.6},
	{Level: 6, Name: "Expert", Depth: 5, ContextWindow: 32768, ToolAccess: domain.AccessStandard, Autonomy: AutonomyLimited, Strategies: baseStrategies, Creativity: 0.7},
	{Level: 7, Name: "Master", Depth: 6, ContextWindow: 32768, ToolAccess: domain.AccessFull, Autonomy: AutonomyFull, Strategies: fullStrategies, Creativity: 0.7},
	{Level: 8, Name: "Superior", Depth: 7, ContextWindow: 65536, ToolAccess: domain.AccessFull, Autonomy: AutonomyFull, Strategies: fullStrategies, Creativity: 0.8},
	{Level: 9, Name: "Near-AGI", Depth: 8, ContextWindow: 131072, ToolAccess: domain.AccessFull, Autonomy: AutonomyFull, Strategies: fullStrategies, Creativity: 0.8},
	{Level: 10, Name: "AGI", Depth: 10, ContextWindow: 131072, ToolAccess: domain.AccessFull, Autonomy: AutonomyFull, Strategies: fullStrategies, Creativity: 0.9},
}

// PresetForLevel returns the preset for a brain-power level, clamping
// out-of-range values into 1..10.
func PresetForLevel(level int) BrainPreset {
	if level < 1 {
		level = 1
	}
	if level > 10 {
		level = 10
	}
	return brainPresets[level-1]
}
