package config

import "fmt"

// Validate checks the configuration for invalid or inconsistent values.
func Validate(cfg *Config) error {
	if cfg.Brain.Power < 1 || cfg.Brain.Power > 10 {
		return fmt.Errorf("brain.power must be between 1 and 10, got %d", cfg.Brain.Power)
	}

	if cfg.Router.Threshold < 0 || cfg.Router.Threshold > 1 {
		return fmt.Errorf("router.threshold must be between 0 and 1, got %v", cfg.Router.Threshold)
	}

	seen := make(map[string]bool, len(cfg.LLM.Providers))
	for i, p := range cfg.LLM.Providers {
		if p.Name == "" {
			return fmt.Errorf("llm.providers[%d]: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("llm.providers: duplicate name %q", p.Name)
		}
		seen[p.Name] = true

		switch p.Type {
		case "openai", "ollama":
		case "":
			return fmt.Errorf("llm.providers[%s]: type is required", p.Name)
		default:
			return fmt.Errorf("llm.providers[%s]: unknown type %q", p.Name, p.Type)
		}

		if p.RateLimit < 0 {
			return fmt.Errorf("llm.providers[%s]: rate_limit must be >= 0", p.Name)
		}
		if p.Priority < 0 {
			return fmt.Errorf("llm.providers[%s]: priority must be >= 0", p.Name)
		}
	}

	if cfg.LLM.PreferredProvider != "" && !seen[cfg.LLM.PreferredProvider] {
		return fmt.Errorf("llm.preferred_provider %q is not a configured provider", cfg.LLM.PreferredProvider)
	}

	switch cfg.Memory.Provider {
	case "sqlite", "noop":
	default:
		return fmt.Errorf("memory.provider must be \"sqlite\" or \"noop\", got %q", cfg.Memory.Provider)
	}
	if cfg.Memory.Provider == "sqlite" && cfg.Memory.Path == "" {
		return fmt.Errorf("memory.path is required for sqlite provider")
	}

	if cfg.LLM.Health.FailureThreshold < 1 {
		return fmt.Errorf("llm.health.failure_threshold must be >= 1")
	}

	if cfg.Tools.MaxCallsPerSession < 0 {
		return fmt.Errorf("tools.max_calls_per_session must be >= 0")
	}

	return nil
}
