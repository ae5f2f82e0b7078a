// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/guardian-ai/convergence/pkg/logging"
)

// Config holds the optional CLI configuration file contents.
type Config struct {
	// OrchestratorURL is the base URL of a running orchestrator, used by the
	// remote commands. Overridden by GUARDIAN_ORCHESTRATOR_URL.
	OrchestratorURL string `yaml:"orchestrator_url"`

	// LogDir enables file logging when set. Supports ~ expansion.
	LogDir string `yaml:"log_dir"`

	// BackendWeights overrides the default per-backend reliability priors.
	BackendWeights map[string]float64 `yaml:"backend_weights"`
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() Config {
	return Config{
		OrchestratorURL: "http://localhost:12310",
	}
}

// configPath resolves the config file location. GUARDIAN_CONFIG wins,
// otherwise ~/.guardian/config.yaml.
func configPath() string {
	if path := os.Getenv("GUARDIAN_CONFIG"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".guardian", "config.yaml")
}

// orchestratorBaseURL resolves the orchestrator endpoint for remote commands.
func orchestratorBaseURL() string {
	if url := os.Getenv("GUARDIAN_ORCHESTRATOR_URL"); url != "" {
		return strings.TrimRight(url, "/")
	}
	return strings.TrimRight(config.OrchestratorURL, "/")
}

// readDocument loads the document text from the first positional argument, or
// from stdin when no argument is given.
func readDocument(args []string) (string, error) {
	if len(args) > 0 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("read document: %w", err)
		}
		return string(data), nil
	}

	stat, err := os.Stdin.Stat()
	if err == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
		return "", fmt.Errorf("no document given: pass a file path or pipe text on stdin")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// newLogger builds the CLI logger from the verbosity flag and config.
func newLogger() *logging.Logger {
	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  config.LogDir,
		Service: "cli",
		Quiet:   !verbose,
	})
}
