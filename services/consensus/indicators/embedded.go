// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package indicators embeds the default bias detection configuration so the
// binary ships with working thresholds and phrase lists without any runtime
// file dependency.
package indicators

import _ "embed"

// BiasIndicators is the raw YAML for the default bias detector configuration.
//
//go:embed bias_indicators.yaml
var BiasIndicators []byte
