package domain

// Strategy identifies a reasoning strategy.
type Strategy string

const (
	StrategyChainOfThought Strategy = "chain_of_thought"
	StrategyTreeOfThought  Strategy = "tree_of_thought"
	StrategyReflexion      Strategy = "reflexion"
)

// AgentProfile is the routing signature and prompt identity of a specialist.
// Profiles are pure data; matching happens in the intent router.
type AgentProfile struct {
	ID          string
	DisplayName string

	// Keywords each add KeywordWeight to the match score when present
	// in the query. StrongPhrases add PhraseBonus once if any matches.
	Keywords      []string
	KeywordWeight float64
	StrongPhrases []string
	PhraseBonus   float64

	// Markers are a second, independent signal group (stack-trace text,
	// language names). MarkerBonus adds once if any marker matches.
	Markers     []string
	MarkerBonus float64

	Strategy     Strategy
	SystemPrompt string

	// Provider is the preferred provider name for this profile.
	// Empty means no preference.
	Provider string

	// Fallback marks the catch-all profile selected when nothing else
	// clears the routing threshold. A fallback profile always reports
	// BaseScore and never competes on keywords.
	Fallback  bool
	BaseScore float64
}
