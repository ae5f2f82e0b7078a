// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
This file bridges the build system and the runtime logic. It uses the Go embed
package to bake rubrics.yaml directly into the compiled binary, so the scoring
rubrics are immutable at runtime and travel with the executable.
*/

package definitions

import (
	_ "embed"
)

// RubricDefinitions holds the raw byte content of the 'rubrics.yaml' file.
//
// Populated at compile time via the Go 'embed' directive. Baking the YAML into
// the binary ensures the rubric criteria and keyword tables cannot be tampered
// with on the host filesystem without recompiling the application.
//
// Usage:
//
//	err := yaml.Unmarshal(definitions.RubricDefinitions, &targetStruct)
//
//go:embed rubrics.yaml
var RubricDefinitions []byte
