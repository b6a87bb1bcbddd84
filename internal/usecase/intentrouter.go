package usecase

import (
	"log/slog"
	"strings"

	"ald-01/internal/domain"
)

// DefaultRouteThreshold is the minimum score a specialist needs to win
// routing; below it the fallback profile handles the query.
const DefaultRouteThreshold = 0.25

// RouteResult is the routing decision for one query.
type RouteResult struct {
	Profile domain.AgentProfile
	Score   float64
}

// IntentRouter scores a query against every profile's keyword signature and
// picks the best specialist, falling back to the catch-all profile when no
// specialist clears the threshold.
type IntentRouter struct {
	profiles  []domain.AgentProfile
	fallback  domain.AgentProfile
	threshold float64
	logger    *slog.Logger
}

// NewIntentRouter builds a router over the given profiles. Exactly one
// profile should be marked Fallback; the last such profile wins if several
// are. threshold <= 0 uses DefaultRouteThreshold.
func NewIntentRouter(profiles []domain.AgentProfile, threshold float64, logger *slog.Logger) *IntentRouter {
	if threshold <= 0 {
		threshold = DefaultRouteThreshold
	}
	r := &IntentRouter{threshold: threshold, logger: logger}
	for _, p := range profiles {
		if p.Fallback {
			r.fallback = p
			continue
		}
		r.profiles = append(r.profiles, p)
	}
	return r
}

// Get returns the profile with the given ID.
func (r *IntentRouter) Get(id string) (domain.AgentProfile, error) {
	if r.fallback.ID == id {
		return r.fallback, nil
	}
	for _, p := range r.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.AgentProfile{}, domain.NewDomainError("router.get", domain.ErrAgentNotFound, id)
}

// Route scores the query against every specialist and returns the winner, or
// the fallback when nothing clears the threshold. Matching is
// case-insensitive substring containment.
func (r *IntentRouter) Route(query string) RouteResult {
	q := strings.ToLower(query)

	best := RouteResult{Profile: r.fallback, Score: r.fallback.BaseScore}
	bestSpecificity := -1
	tied := false

	for _, p := range r.profiles {
		score, specificity := scoreProfile(p, q)
		if score < r.threshold {
			continue
		}
		// Ties break on how much keyword text matched; an exact tie between
		// specialists sends the query to the fallback agent.
		switch {
		case score > best.Score || (score == best.Score && specificity > bestSpecificity):
			best = RouteResult{Profile: p, Score: score}
			bestSpecificity = specificity
			tied = false
		case score == best.Score && specificity == bestSpecificity && best.Profile.ID != r.fallback.ID:
			tied = true
		}
	}

	if tied {
		best = RouteResult{Profile: r.fallback, Score: r.fallback.BaseScore}
	}

	r.logger.Debug("query routed",
		"agent", best.Profile.ID,
		"score", best.Score,
	)
	return best
}

// scoreProfile returns the match score capped at 1.0 and the total length of
// matched keyword text (the specificity tie-breaker).
func scoreProfile(p domain.AgentProfile, q string) (float64, int) {
	score := 0.0
	specificity := 0
	for _, kw := range p.Keywords {
		if strings.Contains(q, kw) {
			score += p.KeywordWeight
			specificity += len(kw)
		}
	}
	for _, phrase := range p.StrongPhrases {
		if strings.Contains(q, phrase) {
			score += p.PhraseBonus
			break
		}
	}
	for _, marker := range p.Markers {
		if strings.Contains(q, marker) {
			score += p.MarkerBonus
			break
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	return score, specificity
}
