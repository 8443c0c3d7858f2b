// Package configs holds configuration files compiled into the binary.
package configs

import _ "embed"

// DefaultSegmentRules is the default segment rule table in YAML.
//
//go:embed segments.yaml
var DefaultSegmentRules []byte
