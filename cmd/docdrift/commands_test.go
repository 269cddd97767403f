// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"testing"
)

func TestCommandsRegistered(t *testing.T) {
	expected := []string{"analyze", "watch", "serve", "history", "version"}

	registered := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}

	for _, name := range expected {
		if !registered[name] {
			t.Errorf("Command %q not registered", name)
		}
	}
}

func TestPersistentFlags(t *testing.T) {
	flags := []string{"config", "json", "plain", "quiet"}

	for _, flagName := range flags {
		if rootCmd.PersistentFlags().Lookup(flagName) == nil {
			t.Errorf("Persistent flag %q not registered", flagName)
		}
	}
}

func TestQuietShortFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().ShorthandLookup("q")
	if flag == nil {
		t.Fatal("Short flag -q not registered")
	}
	if flag.Name != "quiet" {
		t.Errorf("Short flag -q maps to %q, want %q", flag.Name, "quiet")
	}
}

func TestAnalyzeCommandFlags(t *testing.T) {
	flags := []string{"base", "staged", "jobs", "max-files"}

	for _, flagName := range flags {
		if analyzeCmd.Flags().Lookup(flagName) == nil {
			t.Errorf("Flag %q not registered on analyze", flagName)
		}
	}
}

func TestWatchCommandFlags(t *testing.T) {
	flags := []string{"debounce-ms", "base"}

	for _, flagName := range flags {
		if watchCmd.Flags().Lookup(flagName) == nil {
			t.Errorf("Flag %q not registered on watch", flagName)
		}
	}

	if def := watchCmd.Flags().Lookup("debounce-ms").DefValue; def != "500" {
		t.Errorf("debounce-ms default = %s, want 500", def)
	}
}

func TestServeCommandFlags(t *testing.T) {
	if serveCmd.Flags().Lookup("port") == nil {
		t.Error("Flag \"port\" not registered on serve")
	}
}

func TestHistoryCommandFlags(t *testing.T) {
	flag := historyCmd.Flags().Lookup("limit")
	if flag == nil {
		t.Fatal("Flag \"limit\" not registered on history")
	}
	if flag.DefValue != "20" {
		t.Errorf("limit default = %s, want 20", flag.DefValue)
	}
}

func TestHistoryCommandRequiresPath(t *testing.T) {
	if err := historyCmd.Args(historyCmd, []string{}); err == nil {
		t.Error("history should require a path argument")
	}
	if err := historyCmd.Args(historyCmd, []string{"app/Cart.php"}); err != nil {
		t.Errorf("history should accept one path argument, got: %v", err)
	}
}

func TestWatchCommandArgs(t *testing.T) {
	if err := watchCmd.Args(watchCmd, []string{}); err != nil {
		t.Errorf("watch should accept zero arguments, got: %v", err)
	}
	if err := watchCmd.Args(watchCmd, []string{"app", "extra"}); err == nil {
		t.Error("watch should reject more than one argument")
	}
}
