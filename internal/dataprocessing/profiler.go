package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"salespulse/pkg/contracts/domain"
)

const componentProfiler = "profiler"

// ProfileOptions configures outlier detection.
type ProfileOptions struct {
	ZScoreThreshold float64
	IQRMultiplier   float64
}

// DefaultProfileOptions returns the default outlier thresholds.
func DefaultProfileOptions() ProfileOptions {
	return ProfileOptions{ZScoreThreshold: 3, IQRMultiplier: 1.5}
}

// Profiler computes data-quality statistics. It never mutates its inputs.
type Profiler struct {
	logger  *slog.Logger
	options ProfileOptions
}

// NewProfiler creates a profiler. Non-positive thresholds fall back to defaults.
func NewProfiler(logger *slog.Logger, options ProfileOptions) *Profiler {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultProfileOptions()
	if options.ZScoreThreshold <= 0 {
		options.ZScoreThreshold = defaults.ZScoreThreshold
	}
	if options.IQRMultiplier <= 0 {
		options.IQRMultiplier = defaults.IQRMultiplier
	}
	return &Profiler{
		logger:  logger.With(slog.String("component", componentProfiler)),
		options: options,
	}
}

// Profile builds the report. An empty snapshot yields a zero-count report.
func (p *Profiler) Profile(ctx context.Context, snap *Snapshot, quarantine []domain.QuarantinedRow) (*domain.ProfileReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("profile snapshot: %w", err)
	}

	report := &domain.ProfileReport{
		Records:    snap.Len(),
		Quarantine: summarizeQuarantine(quarantine),
	}
	for _, rc := range report.Quarantine.ByReason {
		if rc.Reason == domain.ReasonTypeMismatch {
			report.TypeMismatches = rc.Rows
		}
	}

	report.Fields = p.fieldProfiles(snap)

	for _, f := range domain.NumericFields {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("profile snapshot: %w", err)
		}
		np, warn := p.numericProfile(snap, f)
		report.Numeric = append(report.Numeric, np)
		if warn != nil {
			report.Warnings = append(report.Warnings, *warn)
		}
	}

	report.DuplicateKeys, report.ExactDuplicates = countDuplicates(snap)

	p.logger.InfoContext(ctx, "profile complete",
		slog.Int("records", report.Records),
		slog.Int("duplicate_keys", report.DuplicateKeys),
		slog.Int("exact_duplicates", report.ExactDuplicates),
		slog.Int("quarantined", report.Quarantine.Total))

	return report, nil
}

func (p *Profiler) fieldProfiles(snap *Snapshot) []domain.FieldProfile {
	profiles := make([]domain.FieldProfile, 0, len(domain.Schema))
	for _, spec := range domain.Schema {
		fp := domain.FieldProfile{Field: spec.Name, Kind: spec.Kind}
		distinct := make(map[string]struct{})
		snap.Each(func(_ int, r domain.OrderRecord) bool {
			switch spec.Kind {
			case domain.KindString:
				v := r.StringField(spec.Name)
				if v == "" {
					fp.Missing++
					return true
				}
				distinct[v] = struct{}{}
			case domain.KindDate:
				d := r.OrderDate
				if spec.Name == domain.FieldShipDate {
					d = r.ShipDate
				}
				distinct[d.Format("2006-01-02")] = struct{}{}
			default:
				v, _ := r.NumericField(spec.Name)
				distinct[fmt.Sprint(v)] = struct{}{}
			}
			return true
		})
		fp.Cardinality = len(distinct)
		if snap.Len() > 0 {
			fp.MissingRate = float64(fp.Missing) / float64(snap.Len())
		}
		profiles = append(profiles, fp)
	}
	return profiles
}

func (p *Profiler) numericProfile(snap *Snapshot, field domain.Field) (domain.NumericProfile, *domain.Warning) {
	np := domain.NumericProfile{Field: field, ZScoreOutliers: []int{}, IQROutliers: []int{}}
	n := snap.Len()
	if n == 0 {
		return np, nil
	}

	values := make([]float64, n)
	rows := make([]int, n)
	snap.Each(func(i int, r domain.OrderRecord) bool {
		values[i], _ = r.NumericField(field)
		rows[i] = r.RowIndex
		return true
	})

	np.Count = n
	np.Mean, np.StdDev = meanStdDev(values)

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	np.Min, np.Max = sorted[0], sorted[n-1]
	np.Q1 = quantileSorted(sorted, 0.25)
	np.Median = quantileSorted(sorted, 0.5)
	np.Q3 = quantileSorted(sorted, 0.75)

	iqr := np.Q3 - np.Q1
	lo, hi := np.Q1-p.options.IQRMultiplier*iqr, np.Q3+p.options.IQRMultiplier*iqr
	for i, v := range values {
		if v < lo || v > hi {
			np.IQROutliers = append(np.IQROutliers, rows[i])
		}
	}

	if np.StdDev == 0 {
		return np, &domain.Warning{
			Code:      domain.WarnZeroVariance,
			Component: componentProfiler,
			Subject:   string(field),
			Message:   "standard deviation is zero; z-score outliers not computed",
		}
	}
	np.ZScoreComputed = true
	for i, v := range values {
		if math.Abs((v-np.Mean)/np.StdDev) > p.options.ZScoreThreshold {
			np.ZScoreOutliers = append(np.ZScoreOutliers, rows[i])
		}
	}
	return np, nil
}

// countDuplicates returns records repeating an earlier (orderId, productId) key
// and records identical to an earlier record apart from their row index.
func countDuplicates(snap *Snapshot) (dupKeys, exact int) {
	type key struct{ order, product string }
	seenKeys := make(map[key]struct{}, snap.Len())
	seenRecords := make(map[domain.OrderRecord]struct{}, snap.Len())
	snap.Each(func(_ int, r domain.OrderRecord) bool {
		k := key{r.OrderID, r.ProductID}
		if _, ok := seenKeys[k]; ok {
			dupKeys++
		}
		seenKeys[k] = struct{}{}

		r.RowIndex = 0
		if _, ok := seenRecords[r]; ok {
			exact++
		}
		seenRecords[r] = struct{}{}
		return true
	})
	return dupKeys, exact
}

func summarizeQuarantine(quarantine []domain.QuarantinedRow) domain.QuarantineSummary {
	summary := domain.QuarantineSummary{
		Total:    len(quarantine),
		ByReason: []domain.ReasonCount{},
		ByField:  []domain.FieldCount{},
	}
	byReason := make(map[domain.QuarantineReason]int)
	byField := make(map[domain.Field]int)
	for _, q := range quarantine {
		byReason[q.Reason]++
		byField[q.Field]++
	}
	for reason, n := range byReason {
		summary.ByReason = append(summary.ByReason, domain.ReasonCount{Reason: reason, Rows: n})
	}
	for field, n := range byField {
		summary.ByField = append(summary.ByField, domain.FieldCount{Field: field, Rows: n})
	}
	sort.Slice(summary.ByReason, func(i, j int) bool { return summary.ByReason[i].Reason < summary.ByReason[j].Reason })
	sort.Slice(summary.ByField, func(i, j int) bool { return summary.ByField[i].Field < summary.ByField[j].Field })
	return summary
}

// meanStdDev returns the mean and sample standard deviation.
func meanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if len(values) < 2 {
		return mean, 0
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(values)-1))
}

// quantileSorted interpolates linearly between closest ranks.
func quantileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
