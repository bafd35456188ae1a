package schema

import "testing"

func TestNormalizeNavInputScheme(t *testing.T) {
	got, err := NormalizeNavInput("https://example.com/a?b=c", "https://s/?q=%s")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://example.com/a?b=c" {
		t.Fatalf("unexpected url: %q", got)
	}
}

func TestNormalizeNavInputBareHost(t *testing.T) {
	got, err := NormalizeNavInput("example.com", "https://s/?q=%s")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://example.com" {
		t.Fatalf("unexpected url: %q", got)
	}
}

func TestNormalizeNavInputSearch(t *testing.T) {
	got, err := NormalizeNavInput("hello world", "https://s/?q=%s")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://s/?q=hello+world" {
		t.Fatalf("unexpected url: %q", got)
	}
}

func TestNormalizeNavInputEmpty(t *testing.T) {
	if _, err := NormalizeNavInput("   ", "https://s/?q=%s"); err == nil {
		t.Fatalf("expected error for empty input")
	}
}

func TestNormalizeServiceConfigDefaults(t *testing.T) {
	cfg, err := NormalizeServiceConfig(ServiceConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HiddenGrace != DefaultHiddenGrace {
		t.Fatalf("unexpected hidden grace: %v", cfg.HiddenGrace)
	}
	if cfg.SpawnTimeout != DefaultSpawnTimeout {
		t.Fatalf("unexpected spawn timeout: %v", cfg.SpawnTimeout)
	}
	if cfg.Budgets[ClassActive].CPUShare != 1000 {
		t.Fatalf("unexpected active budget: %+v", cfg.Budgets[ClassActive])
	}
	if !cfg.Throttles[ClassHidden].Frozen {
		t.Fatalf("hidden throttle should freeze")
	}
}

func TestNormalizeServiceConfigRejectsOversizedShare(t *testing.T) {
	_, err := NormalizeServiceConfig(ServiceConfig{
		Budgets: map[Class]Budget{ClassActive: {CPUShare: 1001}},
	})
	if err == nil {
		t.Fatalf("expected error for cpu share > 1000")
	}
}

func TestNormalizeServiceConfigMergesOverride(t *testing.T) {
	cfg, err := NormalizeServiceConfig(ServiceConfig{
		Budgets: map[Class]Budget{ClassHidden: {CPUShare: 25}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Budgets[ClassHidden].CPUShare != 25 {
		t.Fatalf("override not applied: %+v", cfg.Budgets[ClassHidden])
	}
	if cfg.Budgets[ClassHidden].IO != IOClassBestEffort {
		t.Fatalf("empty io class should default: %+v", cfg.Budgets[ClassHidden])
	}
	if cfg.Budgets[ClassActive].CPUShare != 1000 {
		t.Fatalf("untouched classes should keep defaults")
	}
}
