package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"salespulse/internal/dataprocessing"
	apperrors "salespulse/internal/errors"
	"salespulse/pkg/contracts/domain"
)

const componentSegmentation = "segmentation"

// MaxBandCount bounds the band count so rule coverage can be checked exhaustively.
const MaxBandCount = 100

type bandRange struct{ lo, hi int }

func (r bandRange) contains(b int) bool { return b >= r.lo && b <= r.hi }

type compiledRule struct {
	label     string
	recency   bandRange
	frequency bandRange
	monetary  bandRange
}

// RuleSet is a segment rule table compiled against a band count.
type RuleSet struct {
	bandCount int
	rules     []compiledRule
	labels    []string
}

// CompileRules parses every band pattern and checks that each band tuple is
// matched by some rule. All problems are reported in one ConfigurationError.
func CompileRules(table domain.SegmentRuleTable, bandCount int) (*RuleSet, error) {
	cfgErr := &apperrors.ConfigurationError{}
	if bandCount < 2 || bandCount > MaxBandCount {
		cfgErr.Add("quantileBandCount", "must be between 2 and %d, got %d", MaxBandCount, bandCount)
		return nil, cfgErr
	}
	if len(table.Rules) == 0 {
		cfgErr.Add("segmentRules", "rule table is empty")
		return nil, cfgErr
	}

	rs := &RuleSet{bandCount: bandCount}
	seen := make(map[string]bool)
	for i, rule := range table.Rules {
		field := fmt.Sprintf("segmentRules[%d]", i)
		label := strings.TrimSpace(rule.Label)
		if label == "" {
			cfgErr.Add(field, "label is required")
		}
		cr := compiledRule{label: label}
		var err error
		if cr.recency, err = parseBandPattern(rule.Recency, bandCount); err != nil {
			cfgErr.Add(field+".recency", "%v", err)
		}
		if cr.frequency, err = parseBandPattern(rule.Frequency, bandCount); err != nil {
			cfgErr.Add(field+".frequency", "%v", err)
		}
		if cr.monetary, err = parseBandPattern(rule.Monetary, bandCount); err != nil {
			cfgErr.Add(field+".monetary", "%v", err)
		}
		rs.rules = append(rs.rules, cr)
		if label != "" && !seen[label] {
			seen[label] = true
			rs.labels = append(rs.labels, label)
		}
	}
	if err := cfgErr.ErrOrNil(); err != nil {
		return nil, err
	}

	var uncovered []string
	for r := 1; r <= bandCount; r++ {
		for f := 1; f <= bandCount; f++ {
			for m := 1; m <= bandCount; m++ {
				if _, ok := rs.Match(r, f, m); !ok {
					uncovered = append(uncovered, fmt.Sprintf("(%d,%d,%d)", r, f, m))
				}
			}
		}
	}
	if len(uncovered) > 0 {
		shown := uncovered
		if len(shown) > 5 {
			shown = shown[:5]
		}
		cfgErr.Add("segmentRules", "%d band tuples match no rule, e.g. %s",
			len(uncovered), strings.Join(shown, " "))
		return nil, cfgErr
	}
	return rs, nil
}

func parseBandPattern(pattern string, k int) (bandRange, error) {
	p := strings.ToLower(strings.TrimSpace(pattern))
	switch p {
	case "*":
		return bandRange{1, k}, nil
	case "top":
		return bandRange{k, k}, nil
	case "bottom":
		return bandRange{1, 1}, nil
	case "":
		return bandRange{}, fmt.Errorf("band pattern is empty")
	}

	lo, hi, isRange := strings.Cut(p, "-")
	if !isRange {
		hi = lo
	}
	a, errA := strconv.Atoi(strings.TrimSpace(lo))
	b, errB := strconv.Atoi(strings.TrimSpace(hi))
	if errA != nil || errB != nil {
		return bandRange{}, fmt.Errorf("unrecognized band pattern %q", pattern)
	}
	if a < 1 || b > k || a > b {
		return bandRange{}, fmt.Errorf("band pattern %q outside 1-%d", pattern, k)
	}
	return bandRange{a, b}, nil
}

// BandCount returns the band count the rules were compiled for.
func (rs *RuleSet) BandCount() int {
	return rs.bandCount
}

// Labels returns the distinct labels in rule order.
func (rs *RuleSet) Labels() []string {
	return append([]string(nil), rs.labels...)
}

// Match returns the label of the first rule matching the band tuple.
func (rs *RuleSet) Match(recency, frequency, monetary int) (string, bool) {
	for _, r := range rs.rules {
		if r.recency.contains(recency) && r.frequency.contains(frequency) && r.monetary.contains(monetary) {
			return r.label, true
		}
	}
	return "", false
}

// Segmenter scores customers by recency, frequency and monetary value.
type Segmenter struct {
	logger *slog.Logger
	rules  *RuleSet
}

// NewSegmenter creates a segmenter for a compiled rule table.
func NewSegmenter(logger *slog.Logger, rules *RuleSet) *Segmenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Segmenter{
		logger: logger.With(slog.String("component", componentSegmentation)),
		rules:  rules,
	}
}

type customerAccumulator struct {
	name      string
	lastOrder time.Time
	orders    map[string]struct{}
	monetary  float64
}

// Segment profiles every customer. A zero referenceDate means the latest order
// date in the snapshot. Monetary value is the signed profit total.
func (s *Segmenter) Segment(ctx context.Context, snap *dataprocessing.Snapshot, referenceDate time.Time) (*domain.SegmentationResult, error) {
	if s.rules == nil {
		return nil, apperrors.NewConfigError("segmentRules", "no compiled rule table")
	}
	k := s.rules.BandCount()

	if referenceDate.IsZero() {
		_, referenceDate = snap.DateRange()
	} else {
		y, m, d := referenceDate.Date()
		referenceDate = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	customers := make(map[string]*customerAccumulator)
	var cancelled error
	snap.Each(func(i int, r domain.OrderRecord) bool {
		if i%ctxCheckInterval == 0 {
			if cancelled = ctx.Err(); cancelled != nil {
				return false
			}
		}
		c, ok := customers[r.CustomerID]
		if !ok {
			c = &customerAccumulator{orders: make(map[string]struct{})}
			customers[r.CustomerID] = c
		}
		if c.name == "" {
			c.name = r.CustomerName
		}
		if r.OrderDate.After(c.lastOrder) {
			c.lastOrder = r.OrderDate
		}
		c.orders[r.OrderID] = struct{}{}
		c.monetary += r.Profit
		return true
	})
	if cancelled != nil {
		return nil, fmt.Errorf("segment customers: %w", cancelled)
	}

	ids := make([]string, 0, len(customers))
	for id := range customers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := &domain.SegmentationResult{
		ReferenceDate: referenceDate,
		BandCount:     k,
		Profiles:      make([]domain.CustomerValueProfile, len(ids)),
	}

	recencyStrength := make([]float64, len(ids))
	frequencyStrength := make([]float64, len(ids))
	monetaryStrength := make([]float64, len(ids))
	var aheadOfReference []string
	for i, id := range ids {
		c := customers[id]
		p := domain.CustomerValueProfile{
			CustomerID:    id,
			CustomerName:  c.name,
			LastOrderDate: c.lastOrder,
			RecencyDays:   int(referenceDate.Sub(c.lastOrder).Hours() / 24),
			Frequency:     len(c.orders),
			MonetaryTotal: c.monetary,
		}
		if p.RecencyDays < 0 {
			aheadOfReference = append(aheadOfReference, id)
		}
		result.Profiles[i] = p
		recencyStrength[i] = -float64(p.RecencyDays)
		frequencyStrength[i] = float64(p.Frequency)
		monetaryStrength[i] = p.MonetaryTotal
	}

	if len(aheadOfReference) > 0 {
		result.Warnings = append(result.Warnings, domain.Warning{
			Code:      domain.WarnReferenceBeforeOrder,
			Component: componentSegmentation,
			Subject:   aheadOfReference[0],
			Message: fmt.Sprintf("reference date %s precedes the last order of %d customers; recency is negative",
				referenceDate.Format(time.DateOnly), len(aheadOfReference)),
		})
	}

	measures := []struct {
		name  string
		bands []int
	}{
		{"recency", quantileBands(recencyStrength, k)},
		{"frequency", quantileBands(frequencyStrength, k)},
		{"monetary", quantileBands(monetaryStrength, k)},
	}
	for _, m := range measures {
		if empty := emptyBands(m.bands, k); len(empty) > 0 && len(ids) > 0 {
			result.Warnings = append(result.Warnings, domain.Warning{
				Code:      domain.WarnEmptyBand,
				Component: componentSegmentation,
				Subject:   m.name,
				Message:   fmt.Sprintf("bands %v of %d have no customers", empty, k),
			})
		}
	}

	sizes := make(map[string]int)
	for i := range result.Profiles {
		p := &result.Profiles[i]
		p.RecencyBand = measures[0].bands[i]
		p.FrequencyBand = measures[1].bands[i]
		p.MonetaryBand = measures[2].bands[i]
		label, ok := s.rules.Match(p.RecencyBand, p.FrequencyBand, p.MonetaryBand)
		if !ok {
			return nil, fmt.Errorf("segment customers: no rule matches bands (%d,%d,%d)",
				p.RecencyBand, p.FrequencyBand, p.MonetaryBand)
		}
		p.SegmentLabel = label
		sizes[label]++
	}
	for _, label := range s.rules.Labels() {
		result.Segments = append(result.Segments, domain.SegmentSize{Label: label, Customers: sizes[label]})
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("segment customers: %w", err)
	}

	s.logger.DebugContext(ctx, "segmentation complete",
		slog.Int("customers", len(ids)),
		slog.String("reference_date", referenceDate.Format(time.DateOnly)))
	return result, nil
}
