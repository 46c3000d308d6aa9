package config

import "time"

// Config represents the solver service configuration
type Config struct {
	LogLevel  string  `yaml:"log_level"`
	LogFormat string  `yaml:"log_format"` // json or text
	Server    Server  `yaml:"server"`
	Solver    Solver  `yaml:"solver"`
	History   History `yaml:"history"`
}

// Server holds listener and HTTP settings
type Server struct {
	HTTPAddr          string   `yaml:"http_addr"`
	GRPCAddr          string   `yaml:"grpc_addr"` // empty disables gRPC
	AllowedOrigins    []string `yaml:"allowed_origins"`
	MaxBodyBytes      int64    `yaml:"max_body_bytes"`
	ReadHeaderTimeout string   `yaml:"read_header_timeout"` // e.g., "5s"
	WriteTimeout      string   `yaml:"write_timeout"`
	ShutdownTimeout   string   `yaml:"shutdown_timeout"`
}

// Solver holds engine defaults applied to every request
type Solver struct {
	DefaultMethod  string  `yaml:"default_method"` // two-phase or dual
	Epsilon        float64 `yaml:"epsilon"`
	MaxIterations  int     `yaml:"max_iterations"`
	DualFallback   bool    `yaml:"dual_fallback"`
	MaxVariables   int     `yaml:"max_variables"`
	MaxConstraints int     `yaml:"max_constraints"`
}

// History bounds the in-memory solve history
type History struct {
	Size int `yaml:"size"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Server: Server{
			HTTPAddr:          ":8000",
			GRPCAddr:          ":50051",
			AllowedOrigins:    []string{"http://localhost:5173", "http://127.0.0.1:5173"},
			MaxBodyBytes:      1 << 20,
			ReadHeaderTimeout: "5s",
			WriteTimeout:      "10s",
			ShutdownTimeout:   "10s",
		},
		Solver: Solver{
			DefaultMethod:  "two-phase",
			Epsilon:        1e-9,
			MaxIterations:  1000,
			DualFallback:   true,
			MaxVariables:   50,
			MaxConstraints: 50,
		},
		History: History{Size: 200},
	}
}

// GetReadHeaderTimeout parses ReadHeaderTimeout
func (s *Server) GetReadHeaderTimeout() (time.Duration, error) {
	return time.ParseDuration(s.ReadHeaderTimeout)
}

// GetWriteTimeout parses WriteTimeout
func (s *Server) GetWriteTimeout() (time.Duration, error) {
	return time.ParseDuration(s.WriteTimeout)
}

// GetShutdownTimeout parses ShutdownTimeout
func (s *Server) GetShutdownTimeout() (time.Duration, error) {
	return time.ParseDuration(s.ShutdownTimeout)
}
