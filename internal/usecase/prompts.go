package usecase

import (
	"fmt"
	"strings"

	"ald-01/internal/domain"
)

// continueMarker is what a model appends when it wants another
// chain-of-thought iteration. Output without it is treated as final.
const continueMarker = "[CONTINUE]"

// scaffoldFor returns the reasoning scaffold appended to the agent's system
// prompt. Deeper presets unlock longer scaffolds.
func scaffoldFor(strategy domain.Strategy, depth int) string {
	switch strategy {
	case domain.StrategyTreeOfThought:
		return totScaffold(depth)
	case domain.StrategyReflexion:
		return reflexionScaffold(depth)
	default:
		return cotScaffold(depth)
	}
}

func cotScaffold(depth int) string {
	var b strings.Builder
	b.WriteString(`Think through this step by step:

<reasoning>
Step 1: Understand the problem - what is being asked?
Step 2: Identify key requirements and constraints
Step 3: Consider relevant knowledge and approaches`)

	if depth >= 3 {
		b.WriteString(`
Step 4: Evaluate potential solutions
Step 5: Choose the best approach and justify why`)
	}
	if depth >= 5 {
		b.WriteString(`
Step 6: Consider edge cases and potential issues
Step 7: Plan implementation details`)
	}
	if depth >= 7 {
		b.WriteString(`
Step 8: Think about scalability and maintainability
Step 9: Consider alternative approaches you rejected and why
Step 10: Final review and quality check`)
	}

	b.WriteString(`
</reasoning>

After reasoning, provide your answer clearly and directly.`)

	if depth > 1 {
		fmt.Fprintf(&b, `
If you need another pass to finish your reasoning, end your message with %s on its own line; otherwise give the complete answer.`, continueMarker)
	}
	return b.String()
}

func totScaffold(depth int) string {
	var b strings.Builder
	b.WriteString(`Explore one approach to this problem in depth:

<branch>
- What: [describe the approach]
- Pros: [advantages]
- Cons: [disadvantages]
- Solution: [the worked solution following this approach]
- Confidence: [0-100%]
</branch>`)

	if depth >= 5 {
		b.WriteString(`

Be willing to consider creative or unconventional approaches.`)
	}

	b.WriteString(`

Always state your confidence as "Confidence: N%" so it can be compared
against alternative approaches.`)
	return b.String()
}

func reflexionScaffold(depth int) string {
	var b strings.Builder
	b.WriteString(`Solve this problem, then expect follow-up critique rounds:

<reflexion>
- Solution: [your best current answer]
- Self-critique: [what is wrong or could be improved]
</reflexion>`)

	if depth >= 6 {
		b.WriteString(`

In later rounds also include:
- Confidence assessment: how confident are you in this answer?
- Remaining uncertainties or caveats`)
	}

	b.WriteString(`

Present the refined answer itself, not a description of it.`)
	return b.String()
}

// branchUserPrompt frames one tree-of-thought branch dispatch.
func branchUserPrompt(branch int) string {
	label := string(rune('A' + branch))
	prompt := "Explore approach BRANCH " + label
	if branch > 0 {
		prompt += ", taking a different angle from the previous branches"
	}
	return prompt + ". Work it through fully and end with your Confidence: N%."
}

// critiquePrompt asks for a reflexion revision of the current answer.
func critiquePrompt(attempt int, current string) string {
	return fmt.Sprintf(`ATTEMPT %d. Here is your previous answer:

%s

Critique it: find errors, gaps, or improvements. Then produce a revised
answer addressing the critique. If nothing material can be improved,
restate the answer unchanged.`, attempt, current)
}
