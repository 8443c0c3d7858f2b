package domain

// FieldProfile describes completeness and cardinality of one field.
type FieldProfile struct {
	Field       Field     `json:"field"`
	Kind        FieldKind `json:"kind"`
	Missing     int       `json:"missing"`
	MissingRate float64   `json:"missing_rate"`
	Cardinality int       `json:"cardinality"`
}

// NumericProfile describes the distribution of a numeric field. Outlier lists
// hold source row indexes.
type NumericProfile struct {
	Field          Field   `json:"field"`
	Count          int     `json:"count"`
	Mean           float64 `json:"mean"`
	StdDev         float64 `json:"std_dev"`
	Min            float64 `json:"min"`
	Q1             float64 `json:"q1"`
	Median         float64 `json:"median"`
	Q3             float64 `json:"q3"`
	Max            float64 `json:"max"`
	ZScoreComputed bool    `json:"z_score_computed"`
	ZScoreOutliers []int   `json:"z_score_outliers"`
	IQROutliers    []int   `json:"iqr_outliers"`
}

// ReasonCount counts quarantined rows by reason.
type ReasonCount struct {
	Reason QuarantineReason `json:"reason"`
	Rows   int              `json:"rows"`
}

// FieldCount counts quarantined rows by offending field.
type FieldCount struct {
	Field Field `json:"field"`
	Rows  int   `json:"rows"`
}

// QuarantineSummary aggregates the normalizer's quarantine list.
type QuarantineSummary struct {
	Total    int           `json:"total"`
	ByReason []ReasonCount `json:"by_reason"`
	ByField  []FieldCount  `json:"by_field"`
}

// ProfileReport is the read-only data-quality report of a run.
type ProfileReport struct {
	Records         int               `json:"records"`
	Fields          []FieldProfile    `json:"fields"`
	Numeric         []NumericProfile  `json:"numeric"`
	DuplicateKeys   int               `json:"duplicate_keys"`
	ExactDuplicates int               `json:"exact_duplicates"`
	TypeMismatches  int               `json:"type_mismatches"`
	Quarantine      QuarantineSummary `json:"quarantine"`
	Warnings        []Warning         `json:"warnings,omitempty"`
}
