package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"salespulse/internal/analytics"
	"salespulse/internal/config"
	apperrors "salespulse/internal/errors"
	"salespulse/internal/validation"
	"salespulse/pkg/contracts/domain"
)

// PipelineConfig holds every analysis parameter of a run. It is passed by
// value and never changed once a Pipeline is built from it.
type PipelineConfig struct {
	// ReferenceDate anchors recency; zero means the latest order date.
	ReferenceDate          time.Time                      `json:"referenceDate"`
	PeriodGranularity      domain.Granularity             `json:"periodGranularity" validate:"required,granularity"`
	QuantileBandCount      int                            `json:"quantileBandCount" validate:"min=2"`
	DiscountBinEdges       []float64                      `json:"discountBinEdges" validate:"min=2,dive,gte=0,lte=1"`
	MinSupportThreshold    float64                        `json:"minSupportThreshold" validate:"gte=0"`
	OutlierZScoreThreshold float64                        `json:"outlierZScoreThreshold" validate:"gt=0"`
	OutlierIQRMultiplier   float64                        `json:"outlierIQRMultiplier" validate:"gt=0"`
	Aggregations           []analytics.AggregationRequest `json:"aggregations" validate:"dive"`
	SegmentRules           domain.SegmentRuleTable        `json:"segmentRules"`
}

// DefaultConfig returns the default analysis parameters with the built-in
// segment rule table.
func DefaultConfig() (PipelineConfig, error) {
	rules, err := config.LoadSegmentRules("")
	if err != nil {
		return PipelineConfig{}, err
	}
	return FromSettings(config.Default().Pipeline, rules)
}

// FromSettings converts file and environment settings into a PipelineConfig.
// It does not validate; New does.
func FromSettings(s config.PipelineSettings, rules domain.SegmentRuleTable) (PipelineConfig, error) {
	cfg := PipelineConfig{
		PeriodGranularity:      domain.Granularity(strings.ToLower(s.PeriodGranularity)),
		QuantileBandCount:      s.QuantileBandCount,
		DiscountBinEdges:       append([]float64(nil), s.DiscountBinEdges...),
		MinSupportThreshold:    s.MinSupportThreshold,
		OutlierZScoreThreshold: s.OutlierZScoreThreshold,
		OutlierIQRMultiplier:   s.OutlierIQRMultiplier,
		Aggregations:           cloneAggregations(s.Aggregations),
		SegmentRules:           rules,
	}
	if len(cfg.Aggregations) == 0 {
		cfg.Aggregations = analytics.DefaultAggregations()
	}

	if s.ReferenceDate != "" {
		ref, err := time.Parse(time.DateOnly, s.ReferenceDate)
		if err != nil {
			return PipelineConfig{}, apperrors.NewConfigError("referenceDate", "must be a YYYY-MM-DD date, got %q", s.ReferenceDate)
		}
		cfg.ReferenceDate = ref
	}
	return cfg, nil
}

// Validate checks every parameter and compiles the segment rule table. All
// problems are reported together in one ConfigurationError.
func (c PipelineConfig) Validate() (*analytics.RuleSet, error) {
	cfgErr := &apperrors.ConfigurationError{}

	if err := configValidator().Validate(c); err != nil {
		var tagErr *apperrors.ConfigurationError
		if !apperrors.As(err, &tagErr) {
			return nil, err
		}
		cfgErr.Problems = append(cfgErr.Problems, tagErr.Problems...)
	}

	if !reported(cfgErr, "discountBinEdges") {
		mergeProblems(cfgErr, analytics.ValidateBinEdges(c.DiscountBinEdges))
	}

	var rules *analytics.RuleSet
	if !reported(cfgErr, "quantileBandCount") && !reported(cfgErr, "segmentRules") {
		var err error
		rules, err = analytics.CompileRules(c.SegmentRules, c.QuantileBandCount)
		mergeProblems(cfgErr, err)
	}

	if err := cfgErr.ErrOrNil(); err != nil {
		return nil, err
	}
	return rules, nil
}

// Fingerprint hashes the configuration for cache keys.
func (c PipelineConfig) Fingerprint() string {
	data, err := json.Marshal(c)
	if err != nil {
		// Every field is plain data; Marshal cannot fail here.
		panic(fmt.Sprintf("marshal pipeline config: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (c PipelineConfig) clone() PipelineConfig {
	out := c
	out.DiscountBinEdges = append([]float64(nil), c.DiscountBinEdges...)
	out.Aggregations = cloneAggregations(c.Aggregations)
	out.SegmentRules.Rules = append([]domain.SegmentRule(nil), c.SegmentRules.Rules...)
	return out
}

func cloneAggregations(in []analytics.AggregationRequest) []analytics.AggregationRequest {
	if in == nil {
		return nil
	}
	out := make([]analytics.AggregationRequest, len(in))
	for i, r := range in {
		out[i] = analytics.AggregationRequest{
			Name:       r.Name,
			Dimensions: append([]domain.Dimension(nil), r.Dimensions...),
			Metrics:    append([]domain.Metric(nil), r.Metrics...),
		}
	}
	return out
}

func configValidator() *validation.StructValidator {
	v := validation.NewStructValidator("json")
	v.RegisterRule("granularity", func(s string) bool {
		return analytics.ValidGranularity(domain.Granularity(s))
	})
	v.RegisterRule("dimension", func(s string) bool {
		return analytics.KnownDimension(domain.Dimension(s))
	})
	v.RegisterRule("metric", func(s string) bool {
		return analytics.KnownMetric(domain.Metric(s))
	})
	return v
}

func reported(cfgErr *apperrors.ConfigurationError, prefix string) bool {
	for _, p := range cfgErr.Problems {
		if strings.HasPrefix(p.Field, prefix) {
			return true
		}
	}
	return false
}

func mergeProblems(dst *apperrors.ConfigurationError, err error) {
	if err == nil {
		return
	}
	var src *apperrors.ConfigurationError
	if apperrors.As(err, &src) {
		dst.Problems = append(dst.Problems, src.Problems...)
		return
	}
	dst.Add("pipeline", "%v", err)
}
