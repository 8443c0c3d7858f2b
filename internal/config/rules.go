package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"salespulse/configs"
	"salespulse/pkg/contracts/domain"
)

// LoadSegmentRules reads a segment rule table. An empty path returns the
// built-in table.
func LoadSegmentRules(path string) (domain.SegmentRuleTable, error) {
	data := configs.DefaultSegmentRules
	source := "built-in segment rules"
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return domain.SegmentRuleTable{}, fmt.Errorf("failed to read segment rules: %w", err)
		}
		source = path
	}

	var table domain.SegmentRuleTable
	if err := yaml.UnmarshalStrict(data, &table); err != nil {
		return domain.SegmentRuleTable{}, fmt.Errorf("parse %s: %w", source, err)
	}
	return table, nil
}
