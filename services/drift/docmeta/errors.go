// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package docmeta

import "errors"

var (
	// ErrNotFound indicates no documentation file exists for the source
	// file. Callers treat this as "no documentation yet", not a failure.
	ErrNotFound = errors.New("documentation file not found")

	// ErrFileTooLarge indicates the documentation file exceeds the
	// configured size limit.
	ErrFileTooLarge = errors.New("documentation file exceeds maximum size")

	// ErrInvalidContent indicates the documentation file is not valid
	// UTF-8.
	ErrInvalidContent = errors.New("documentation content is not valid UTF-8")
)
