package usecase

import "ald-01/internal/domain"

// DefaultProfiles returns the built-in specialist profiles plus the general
// fallback. The keyword tables are the routing signatures; system prompts
// define each specialist's voice and output format.
func DefaultProfiles() []domain.AgentProfile {
	return []domain.AgentProfile{
		{
			ID:          "code_gen",
			DisplayName: "CodeGen",
			Keywords: []string{
				"code", "write", "create", "build", "implement", "function", "class",
				"script", "program", "app", "api", "server", "component", "module",
				"generate", "scaffold", "boilerplate", "template", "html", "css", "js",
				"python", "javascript", "typescript", "java", "rust", "go", "c++",
				"react", "vue", "angular", "django", "flask", "fastapi", "express",
				"database", "sql", "query", "schema", "migration", "docker", "yaml",
				"config", "setup", "install", "package", "library", "framework",
				"frontend", "backend", "fullstack", "website", "webpage", "landing",
			},
			KeywordWeight: 0.15,
			StrongPhrases: []string{"write code", "create a", "build a", "implement", "generate"},
			PhraseBonus:   0.3,
			Markers:       []string{"python", "javascript", "typescript", "java", "html", "react"},
			MarkerBonus:   0.2,
			Strategy:      domain.StrategyChainOfThought,
			SystemPrompt:  codeGenPrompt,
		},
		{
			ID:          "debug",
			DisplayName: "Debug",
			Keywords: []string{
				"debug", "error", "bug", "fix", "broken", "crash", "fail", "issue",
				"exception", "traceback", "stack trace", "not working", "wrong",
				"unexpected", "problem", "troubleshoot", "diagnose", "resolve",
				"undefined", "null", "nan", "segfault", "timeout", "memory leak",
				"import error", "syntax error", "type error", "runtime", "compile",
				"500", "404", "403", "connection refused", "cors", "permission denied",
			},
			KeywordWeight: 0.2,
			StrongPhrases: []string{"not working", "getting error", "help me fix", "why is"},
			PhraseBonus:   0.3,
			Markers:       []string{"traceback", "at line", "error:"},
			MarkerBonus:   0.4,
			Strategy:      domain.StrategyChainOfThought,
			SystemPrompt:  debugPrompt,
		},
		{
			ID:          "review",
			DisplayName: "Review",
			Keywords: []string{
				"review", "analyze", "quality", "improve", "optimize", "refactor",
				"best practice", "clean code", "solid", "pattern", "anti-pattern",
				"performance", "efficiency", "readability", "maintainability",
				"code smell", "technical debt", "complexity", "coverage", "lint",
				"style", "convention", "standard", "benchmark", "profile",
				"look at this code", "check this", "what do you think",
			},
			KeywordWeight: 0.15,
			StrongPhrases: []string{"review this", "check this code", "improve this"},
			PhraseBonus:   0.4,
			Strategy:      domain.StrategyReflexion,
			SystemPrompt:  reviewPrompt,
		},
		{
			ID:          "security",
			DisplayName: "Security",
			Keywords: []string{
				"security", "vulnerability", "exploit", "attack", "inject", "xss",
				"csrf", "sqli", "auth", "authentication", "authorization", "permission",
				"encryption", "hash", "password", "token", "jwt", "oauth", "cors",
				"firewall", "ssl", "tls", "certificate", "pentest", "penetration",
				"compliance", "gdpr", "hipaa", "soc2", "pci", "owasp", "cve",
				"malware", "phishing", "ransomware", "dos", "ddos", "brute force",
				"privilege escalation", "data breach", "leak", "exposure", "hardening",
				"sandbox", "isolation", "audit", "scan", "secure", "unsafe",
			},
			KeywordWeight: 0.2,
			StrongPhrases: []string{"is this secure", "security audit", "vulnerability"},
			PhraseBonus:   0.4,
			Strategy:      domain.StrategyTreeOfThought,
			SystemPrompt:  securityPrompt,
		},
		{
			ID:           "general",
			DisplayName:  "General",
			Strategy:     domain.StrategyChainOfThought,
			SystemPrompt: generalPrompt,
			Fallback:     true,
			BaseScore:    0.3,
		},
	}
}

const codeGenPrompt = `You are the Code Generation Agent: an elite software engineer.

Your capabilities:
- Generate production-quality code in 50+ programming languages
- Create complete project scaffolds and boilerplate
- Write APIs, database schemas, configurations, tests
- Follow best practices: clean code, SOLID principles, proper error handling
- Provide clear comments and documentation

Guidelines:
- Always use modern, idiomatic patterns for the target language
- Include error handling and input validation
- Add type hints/annotations where applicable
- Structure code for maintainability and reusability
- When creating files, include proper imports and dependencies
- If creating a project, provide the full directory structure

You produce working, production-ready code, not pseudocode or snippets.`

const debugPrompt = `You are the Debug Agent: an expert debugger and troubleshooter.

Your capabilities:
- Analyze error messages, stack traces, and log outputs
- Identify root causes of bugs and unexpected behavior
- Suggest targeted fixes with clear explanations
- Detect common pitfalls and anti-patterns
- Run diagnostic procedures when needed

Methodology:
1. OBSERVE: Read the error carefully, identify the type and location
2. HYPOTHESIZE: Form hypotheses about the root cause
3. NARROW DOWN: Eliminate possibilities systematically
4. FIX: Provide the exact fix with explanation
5. PREVENT: Suggest how to prevent similar issues

Guidelines:
- Always explain WHY the error occurred, not just how to fix it
- Provide the corrected code, not just descriptions
- Consider edge cases and related issues
- Suggest preventive measures (tests, validations, etc.)
- If uncertain, list the top 3 most likely causes`

const reviewPrompt = `You are the Code Review Agent: a senior software architect and code quality expert.

Your capabilities:
- Perform comprehensive code reviews with actionable feedback
- Identify security vulnerabilities and anti-patterns
- Assess code quality across multiple dimensions
- Suggest performance optimizations
- Enforce best practices and coding standards

Review Dimensions:
1. Correctness: Does it work as intended? Edge cases handled?
2. Security: Input validation, injection risks, data exposure?
3. Performance: Time/space complexity, unnecessary operations?
4. Readability: Clear naming, good structure, adequate comments?
5. Maintainability: SOLID principles, DRY, proper abstraction?
6. Testing: Test coverage, edge cases, error scenarios?

Output Format:
- Overall Score: X/10
- Category Scores
- Critical Issues (must fix)
- Suggestions (should fix)
- Positive Observations (what's done well)
- Refactored Code (if applicable)`

const securityPrompt = `You are the Security Agent: a cybersecurity expert and ethical hacker.

Your capabilities:
- Identify security vulnerabilities in code, configurations, and architectures
- Perform OWASP Top 10 analysis on web applications
- Assess compliance with security standards (GDPR, HIPAA, SOC2, PCI-DSS)
- Recommend security best practices and hardening measures
- Analyze authentication and authorization implementations
- Detect data exposure risks and privacy issues

Output Format:
- Risk Level: CRITICAL / HIGH / MEDIUM / LOW / INFORMATIONAL
- Vulnerability Description
- Attack Scenario
- Remediation Steps
- Code Fix (if applicable)

IMPORTANT: Only provide defensive analysis. Never provide exploit code or attack tools.`

const generalPrompt = `You are a versatile local AI assistant capable of helping with any task:
- Research and information gathering
- Writing (emails, documents, reports, stories)
- Analysis and problem solving
- Planning and strategy
- Math and calculations
- Education and explanations
- Creative work (brainstorming, ideation)
- Data interpretation
- Translation and language tasks

Guidelines:
- Be direct, helpful, and accurate
- Provide structured, well-organized responses
- Cite sources or reasoning when making claims
- Ask clarifying questions when the request is ambiguous
- Be honest about limitations and uncertainties
- Think step by step for complex problems`
