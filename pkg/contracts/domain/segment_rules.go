package domain

// SegmentRule maps a band pattern to a segment label. Each pattern is one of
// "*", "top", "bottom", a band number "N" or an inclusive range "N-M", where
// band 1 is the weakest and the band count is the strongest.
type SegmentRule struct {
	Label     string `yaml:"label" json:"label" validate:"required"`
	Recency   string `yaml:"recency" json:"recency" validate:"required"`
	Frequency string `yaml:"frequency" json:"frequency" validate:"required"`
	Monetary  string `yaml:"monetary" json:"monetary" validate:"required"`
}

// SegmentRuleTable is an ordered rule list; the first matching rule wins.
type SegmentRuleTable struct {
	Description string        `yaml:"description" json:"description"`
	Rules       []SegmentRule `yaml:"rules" json:"rules" validate:"required,min=1,dive"`
}
