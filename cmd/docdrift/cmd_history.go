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
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/DocDrift/services/drift"
)

// runHistory is the CLI handler for "docdrift history".
//
// Prints the stored decision trail for one source file, newest first.
// Requires the decision store to be enabled in docdrift.yaml.
//
// # Exit Codes
//
//   - 0: History printed (possibly empty)
//   - 2: Store disabled or lookup failure
func runHistory(cmd *cobra.Command, args []string) {
	os.Exit(historyRun(cmd.Context(), args[0]))
}

func historyRun(ctx context.Context, filePath string) int {
	start := time.Now()
	out := outputConfig()

	svc, cleanup, err := buildService(cfg, appLogger)
	if err != nil {
		return OutputResult(out, "history", start, nil, false, err)
	}
	defer cleanup()

	records, err := svc.History(ctx, filePath, historyLimit)
	if err != nil {
		if errors.Is(err, drift.ErrStoreDisabled) {
			err = fmt.Errorf("decision store disabled; set store.enabled: true in %s", DefaultConfigFile)
		}
		return OutputResult(out, "history", start, nil, false, err)
	}

	if out.JSON || out.Quiet {
		return OutputResult(out, "history", start, records, false, nil)
	}
	RenderHistory(records, styledOutput())
	return CLIExitSuccess
}
