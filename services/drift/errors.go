// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package drift

import "errors"

// Sentinel errors for the drift service.
var (
	// ErrMissingFilePath indicates a request without a file path.
	ErrMissingFilePath = errors.New("file path must not be empty")

	// ErrMissingSource indicates a direct analysis request without the
	// current source text.
	ErrMissingSource = errors.New("new source must not be empty")

	// ErrStoreDisabled indicates the service runs without a decision store.
	ErrStoreDisabled = errors.New("decision store not configured")

	// ErrGeneratorDisabled indicates the service runs without a
	// documentation generator.
	ErrGeneratorDisabled = errors.New("generator not configured")
)
