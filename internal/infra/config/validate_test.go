package config

import (
	"strings"
	"testing"
)

func assertContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Errorf("error %q does not contain %q", got, want)
	}
}

func TestValidateDefaultsPass(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Fatalf("Defaults should pass validation: %v", err)
	}
}

func TestValidateBrainPowerRange(t *testing.T) {
	for _, power := range []int{0, 11, -1} {
		cfg := Defaults()
		cfg.Brain.Power = power
		err := Validate(cfg)
		if err == nil {
			t.Fatalf("power %d: expected validation error", power)
		}
		assertContains(t, err.Error(), "brain.power")
	}
}

func TestValidateRouterThreshold(t *testing.T) {
	cfg := Defaults()
	cfg.Router.Threshold = 1.5
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "router.threshold")
}

func TestValidateDuplicateProviderName(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.Providers = []ProviderConfig{
		{Name: "a", Type: "openai"},
		{Name: "a", Type: "ollama"},
	}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "duplicate name")
}

func TestValidateProviderType(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.Providers = []ProviderConfig{{Name: "a", Type: "gemini"}}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "unknown type")

	cfg.LLM.Providers = []ProviderConfig{{Name: "a"}}
	err = Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "type is required")
}

func TestValidatePreferredProviderMustExist(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.Providers = []ProviderConfig{{Name: "a", Type: "openai"}}
	cfg.LLM.PreferredProvider = "missing"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "preferred_provider")
}

func TestValidateMemoryProvider(t *testing.T) {
	cfg := Defaults()
	cfg.Memory.Provider = "redis"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "memory.provider")

	cfg = Defaults()
	cfg.Memory.Path = ""
	err = Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "memory.path")
}

func TestValidateNegativeRateLimit(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.Providers = []ProviderConfig{{Name: "a", Type: "openai", RateLimit: -1}}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	assertContains(t, err.Error(), "rate_limit")
}
