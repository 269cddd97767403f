// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/DocDrift/pkg/logging"
	"github.com/AleutianAI/DocDrift/services/drift"
	"github.com/AleutianAI/DocDrift/services/drift/decision"
	"github.com/AleutianAI/DocDrift/services/drift/generate"
	"github.com/AleutianAI/DocDrift/services/drift/impact"
	"github.com/AleutianAI/DocDrift/services/drift/storage"
)

// DefaultConfigFile is the config file looked up in the working directory
// when --config is not given.
const DefaultConfigFile = "docdrift.yaml"

// configValidate is the validator instance for the CLI configuration.
var configValidate = validator.New()

// Config is the docdrift configuration, loaded from docdrift.yaml.
//
// Secrets never live here: the OpenAI API key is read exclusively from
// the OPENAI_API_KEY environment variable.
type Config struct {
	// RepoRoot is the repository to analyze. Default: "."
	RepoRoot string `yaml:"repo_root"`

	// DocsRoot is where generated documentation lives, relative paths
	// resolving under RepoRoot. Default: "docs"
	DocsRoot string `yaml:"docs_root"`

	// Extensions lists the source extensions considered.
	Extensions []string `yaml:"extensions" validate:"omitempty,dive,startswith=."`

	// Jobs is the analysis concurrency for batch runs.
	Jobs int `yaml:"jobs" validate:"omitempty,min=1,max=64"`

	// MaxFiles caps how many changed files one batch run analyzes.
	MaxFiles int `yaml:"max_files" validate:"omitempty,min=1"`

	Engine     EngineConfig     `yaml:"engine"`
	Store      StoreConfig      `yaml:"store"`
	Generation GenerationConfig `yaml:"generation"`
	Server     ServerConfig     `yaml:"server"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// EngineConfig tunes the decision engine.
type EngineConfig struct {
	// KeywordsFile overrides the embedded significance keyword list
	// with a YAML file of the same shape.
	KeywordsFile string `yaml:"keywords_file"`
}

// StoreConfig configures decision persistence.
type StoreConfig struct {
	// Enabled turns persistence on. History commands need it.
	Enabled bool `yaml:"enabled"`

	// Path is the database directory. Default: ~/.docdrift/decisions
	Path string `yaml:"path"`

	// InMemory keeps decisions in memory only, mostly for trying the
	// tool out without leaving files behind.
	InMemory bool `yaml:"in_memory"`
}

// GenerationConfig configures documentation regeneration.
type GenerationConfig struct {
	// Enabled turns the generator on. Requires OPENAI_API_KEY.
	Enabled bool `yaml:"enabled"`

	// Model is the chat model identifier.
	Model string `yaml:"model"`

	// RequestsPerMinute caps the client-side call rate. Zero disables
	// rate limiting.
	RequestsPerMinute float64 `yaml:"requests_per_minute" validate:"omitempty,min=0"`

	// MaxRetries bounds retry attempts on transient failures.
	MaxRetries uint64 `yaml:"max_retries" validate:"omitempty,max=10"`

	// MaxTokens caps completion length.
	MaxTokens int `yaml:"max_tokens" validate:"omitempty,min=1"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	// Port to listen on. Default: 8080
	Port int `yaml:"port" validate:"omitempty,min=1,max=65535"`

	// Debug enables gin debug mode and request logging.
	Debug bool `yaml:"debug"`
}

// TelemetryConfig selects trace and metric exporters for serve mode.
type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" validate:"omitempty,oneof=none otlp stdout"`
	MetricExporter string `yaml:"metric_exporter" validate:"omitempty,oneof=none prometheus stdout"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
}

// LoggingConfig configures the application logger.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`

	// Dir enables file logging when set.
	Dir string `yaml:"dir"`

	// JSON switches stderr output to JSON.
	JSON bool `yaml:"json"`
}

// DefaultCLIConfig returns the configuration used when no file exists.
func DefaultCLIConfig() Config {
	genDefaults := generate.DefaultConfig()
	return Config{
		RepoRoot: ".",
		DocsRoot: "docs",
		Store: StoreConfig{
			Path: filepath.Join("~", ".docdrift", "decisions"),
		},
		Generation: GenerationConfig{
			Model:             genDefaults.Model,
			RequestsPerMinute: genDefaults.RequestsPerMinute,
			MaxRetries:        genDefaults.MaxRetries,
			MaxTokens:         genDefaults.MaxTokens,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "prometheus",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads and validates the configuration.
//
// Description:
//
//	With an explicit path the file must exist. Without one,
//	docdrift.yaml in the working directory is used when present and
//	defaults apply otherwise. File values overlay the defaults, so a
//	config only needs the fields it changes.
//
// Outputs:
//
//	Config - The merged configuration.
//	error - Non-nil on read, parse, or validation failure.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultCLIConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field constraints and reports every violation.
func (c *Config) Validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	return fmt.Errorf("invalid configuration: %w", err)
}

// serviceConfig maps the file configuration onto the service.
func (c *Config) serviceConfig() drift.ServiceConfig {
	return drift.ServiceConfig{
		RepoRoot:   c.RepoRoot,
		DocsRoot:   c.DocsRoot,
		Jobs:       c.Jobs,
		MaxFiles:   c.MaxFiles,
		Extensions: c.Extensions,
	}
}

// buildService assembles the drift service from the configuration.
//
// Description:
//
//	The store and generator attach only when enabled. A missing API key
//	downgrades generation to disabled with a warning instead of failing
//	the whole command, matching how the server degrades per request.
//
// Outputs:
//
//	*drift.Service - The assembled service.
//	func() - Cleanup releasing the store. Safe to call once.
//	error - Non-nil if a configured collaborator cannot be built.
func buildService(cfg Config, log *logging.Logger) (*drift.Service, func(), error) {
	opts := []drift.ServiceOption{drift.WithLogger(log.Slog())}

	engine, err := buildEngine(cfg)
	if err != nil {
		return nil, nil, err
	}
	if engine != nil {
		opts = append(opts, drift.WithEngine(engine))
	}

	cleanup := func() {}
	if cfg.Store.Enabled {
		db, err := openStore(cfg.Store, log)
		if err != nil {
			return nil, nil, err
		}
		store, err := storage.NewDecisionStore(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		opts = append(opts, drift.WithStore(store))
		cleanup = func() {
			if err := db.Close(); err != nil {
				log.Warn("closing decision store", "error", err)
			}
		}
	}

	if cfg.Generation.Enabled {
		gen, err := generate.NewOpenAIGenerator(generate.Config{
			Model:             cfg.Generation.Model,
			RequestsPerMinute: cfg.Generation.RequestsPerMinute,
			MaxRetries:        cfg.Generation.MaxRetries,
			MaxTokens:         cfg.Generation.MaxTokens,
			Logger:            log.Slog(),
		})
		if err != nil {
			if !errors.Is(err, generate.ErrMissingAPIKey) {
				cleanup()
				return nil, nil, err
			}
			log.Warn("generation enabled but OPENAI_API_KEY is not set, continuing without a generator")
		} else {
			opts = append(opts, drift.WithGenerator(gen))
		}
	}

	svc, err := drift.NewService(cfg.serviceConfig(), opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}

// buildEngine returns a custom engine when the keyword list is
// overridden, nil to let the service use its default.
func buildEngine(cfg Config) (*decision.Engine, error) {
	if cfg.Engine.KeywordsFile == "" {
		return nil, nil
	}

	data, err := os.ReadFile(expandHome(cfg.Engine.KeywordsFile))
	if err != nil {
		return nil, fmt.Errorf("reading keywords file: %w", err)
	}
	keywords, err := impact.ParseKeywords(data)
	if err != nil {
		return nil, fmt.Errorf("parsing keywords file %s: %w", cfg.Engine.KeywordsFile, err)
	}

	return decision.NewEngine(decision.WithAssessor(impact.NewAssessorWithKeywords(keywords)))
}

func openStore(cfg StoreConfig, log *logging.Logger) (*storage.DB, error) {
	if cfg.InMemory {
		return storage.OpenDB(storage.InMemoryConfig())
	}

	storeCfg := storage.DefaultConfig()
	storeCfg.Path = expandHome(cfg.Path)
	storeCfg.Logger = log.Slog()
	return storage.OpenDB(storeCfg)
}

// expandHome resolves a leading ~ against the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~"+string(os.PathSeparator)) || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), string(os.PathSeparator)))
	}
	return path
}
