package config

import "testing"

func TestParseConfigYAMLKeepsDefaults(t *testing.T) {
	yamlText := `
log_level: debug
solver:
  default_method: dual
  dual_fallback: false
`

	cfg, err := ParseConfigYAML([]byte(yamlText))
	if err != nil {
		t.Fatalf("ParseConfigYAML failed: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log_level debug, got %q", cfg.LogLevel)
	}
	if cfg.Solver.DefaultMethod != "dual" {
		t.Fatalf("expected method dual, got %q", cfg.Solver.DefaultMethod)
	}
	if cfg.Solver.DualFallback {
		t.Fatalf("expected dual_fallback false")
	}

	def := Default()
	if cfg.Solver.MaxIterations != def.Solver.MaxIterations {
		t.Fatalf("expected default max_iterations %d, got %d", def.Solver.MaxIterations, cfg.Solver.MaxIterations)
	}
	if cfg.Server.HTTPAddr != def.Server.HTTPAddr {
		t.Fatalf("expected default http_addr %q, got %q", def.Server.HTTPAddr, cfg.Server.HTTPAddr)
	}
	if cfg.History.Size != def.History.Size {
		t.Fatalf("expected default history size %d, got %d", def.History.Size, cfg.History.Size)
	}
}

func TestParseConfigYAMLRejectsInvalid(t *testing.T) {
	_, err := ParseConfigYAML([]byte("solver:\n  max_iterations: -3\n"))
	if err == nil {
		t.Fatalf("expected validation error for negative max_iterations")
	}
}

func TestParseConfigYAMLEmptyDocument(t *testing.T) {
	cfg, err := ParseConfigYAML(nil)
	if err != nil {
		t.Fatalf("empty document should yield defaults: %v", err)
	}
	if cfg.Solver.Epsilon != 1e-9 {
		t.Fatalf("expected default epsilon, got %g", cfg.Solver.Epsilon)
	}
}
