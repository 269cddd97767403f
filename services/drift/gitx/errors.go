// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gitx

import "errors"

var (
	// ErrNotRepository indicates the configured root is not a git work tree.
	ErrNotRepository = errors.New("not a git repository")

	// ErrUnknownRevision indicates the revision could not be resolved.
	ErrUnknownRevision = errors.New("unknown revision")

	// ErrPathNotInRevision indicates the path does not exist at the given
	// revision. Callers treat this as the new-file case, not a failure.
	ErrPathNotInRevision = errors.New("path not present in revision")
)
