package config

import (
	"fmt"
	"os"
	"strings"
)

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate re-checks a config after flags have overridden file values
func (c *Config) Validate() error {
	return validateConfig(c)
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("invalid log_format: %s (must be json or text)", cfg.LogFormat)
	}

	if err := validateServer(&cfg.Server); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}
	if err := validateSolver(&cfg.Solver); err != nil {
		return fmt.Errorf("solver validation failed: %w", err)
	}
	if cfg.History.Size < 0 {
		return fmt.Errorf("history size cannot be negative, got %d", cfg.History.Size)
	}

	return nil
}

// validateServer validates listener and HTTP settings
func validateServer(s *Server) error {
	if strings.TrimSpace(s.HTTPAddr) == "" {
		return fmt.Errorf("http_addr cannot be empty")
	}
	if s.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive, got %d", s.MaxBodyBytes)
	}
	for _, origin := range s.AllowedOrigins {
		if origin == "" {
			return fmt.Errorf("allowed_origins cannot contain an empty origin")
		}
	}
	if _, err := s.GetReadHeaderTimeout(); err != nil {
		return fmt.Errorf("invalid read_header_timeout %s: %w", s.ReadHeaderTimeout, err)
	}
	if _, err := s.GetWriteTimeout(); err != nil {
		return fmt.Errorf("invalid write_timeout %s: %w", s.WriteTimeout, err)
	}
	if _, err := s.GetShutdownTimeout(); err != nil {
		return fmt.Errorf("invalid shutdown_timeout %s: %w", s.ShutdownTimeout, err)
	}
	return nil
}

// validateSolver validates engine defaults
func validateSolver(s *Solver) error {
	validMethods := map[string]bool{
		"two-phase": true,
		"dual":      true,
	}
	if !validMethods[s.DefaultMethod] {
		return fmt.Errorf("invalid default_method: %s (must be two-phase or dual)", s.DefaultMethod)
	}
	if s.Epsilon <= 0 || s.Epsilon >= 1e-3 {
		return fmt.Errorf("epsilon must be in (0, 1e-3), got %g", s.Epsilon)
	}
	if s.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", s.MaxIterations)
	}
	if s.MaxVariables < 0 {
		return fmt.Errorf("max_variables cannot be negative, got %d", s.MaxVariables)
	}
	if s.MaxConstraints < 0 {
		return fmt.Errorf("max_constraints cannot be negative, got %d", s.MaxConstraints)
	}
	return nil
}
