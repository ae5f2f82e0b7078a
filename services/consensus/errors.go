// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package consensus

import "errors"

// ErrEmptyDocument is returned when the document text is empty or whitespace.
var ErrEmptyDocument = errors.New("document text must not be empty")

// ErrNilRubric is returned when no rubric is supplied for the run.
var ErrNilRubric = errors.New("rubric must not be nil")

// ErrNoBackends is returned when the request names no backends at all.
// Distinct from all backends failing, which yields a zero-confidence result.
var ErrNoBackends = errors.New("at least one backend descriptor is required")

// ErrUnknownMode is returned for a Mode other than parallel or chain.
var ErrUnknownMode = errors.New("unknown orchestration mode")

// ErrNoScores is returned by the normalizer when a response yields no
// recognizable criterion score in either JSON or prose form.
var ErrNoScores = errors.New("no criterion scores found in response")
