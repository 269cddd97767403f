// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command docdrift decides whether generated documentation went stale.
//
// Usage:
//
//	docdrift analyze                    # all files changed against HEAD
//	docdrift analyze --base main        # changed against a branch
//	docdrift analyze app/Cart.php       # specific files
//	docdrift watch                      # re-analyze on save
//	docdrift serve --port 8080          # HTTP service
//	docdrift history app/Cart.php       # stored decisions
//
// Exit codes: 0 nothing stale, 1 stale documentation found, 2 error.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/DocDrift/pkg/logging"
	"github.com/AleutianAI/DocDrift/services/drift"
)

var (
	cfg       Config
	appLogger *logging.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(CLIExitError)
	}
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		return initLogging()
	}
}

// initLogging builds the application logger from configuration and
// installs it as the slog default.
func initLogging() error {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}

	appLogger, err = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "docdrift",
		JSON:    cfg.Logging.JSON,
		Quiet:   quietOut || jsonOut,
	})
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	slog.SetDefault(appLogger.Slog())
	return nil
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOut {
		OutputJSON(map[string]string{
			"version": drift.ServiceVersion,
			"go":      runtime.Version(),
			"os":      runtime.GOOS,
			"arch":    runtime.GOARCH,
		})
		return
	}
	fmt.Printf("docdrift %s (%s %s/%s)\n",
		drift.ServiceVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
