package services

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/irfndi/lifemetrics/internal/models"
)

const (
	// minCorrelationSamples is the floor below which a coefficient is reported as 0.
	minCorrelationSamples = 3

	strongCorrelation   = 0.7
	moderateCorrelation = 0.4
	weakCorrelation     = 0.2
)

// Significance is the approximate two-tailed test of a correlation coefficient.
type Significance struct {
	Significant bool    `json:"significant"`
	PValue      float64 `json:"p_value"`
	TStatistic  float64 `json:"t_statistic"`
}

// PearsonCorrelation computes the product-moment coefficient of xs and ys.
// Sequences of different length are truncated to their shared prefix; no date
// alignment happens here. Fewer than three pairs, or zero variance on either
// side, yields 0.
func PearsonCorrelation(xs, ys []float64) float64 {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	if n < minCorrelationSamples {
		return 0
	}
	xs, ys = xs[:n], ys[:n]

	meanX, meanY := mean(xs), mean(ys)

	var numerator, denomX, denomY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		numerator += dx * dy
		denomX += dx * dx
		denomY += dy * dy
	}

	if denomX == 0 || denomY == 0 {
		return 0
	}

	r := numerator / math.Sqrt(denomX*denomY)
	// Clamp rounding noise so |r| never exceeds 1.
	return math.Max(-1, math.Min(1, r))
}

// SpearmanCorrelation is Pearson over rank-transformed inputs. Ties keep their
// original order rather than sharing an averaged rank.
func SpearmanCorrelation(xs, ys []float64) float64 {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	return PearsonCorrelation(rank(xs[:n]), rank(ys[:n]))
}

func rank(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] < values[idx[b]]
	})

	ranks := make([]float64, len(values))
	for position, original := range idx {
		ranks[original] = float64(position + 1)
	}
	return ranks
}

// CorrelationSignificance maps the t-statistic of r over n samples to an
// approximate p-value using fixed normal critical values.
func CorrelationSignificance(r float64, n int) Significance {
	if n < minCorrelationSamples {
		return Significance{Significant: false, PValue: 1.0}
	}

	var t float64
	denom := 1 - r*r
	if denom <= 0 {
		// |r| == 1: the statistic is unbounded.
		t = math.Copysign(math.MaxFloat64, r)
	} else {
		t = r * math.Sqrt(float64(n-2)/denom)
	}

	absT := math.Abs(t)
	var p float64
	switch {
	case absT > 2.576:
		p = 0.01
	case absT > 1.96:
		p = 0.05
	case absT > 1.645:
		p = 0.10
	default:
		p = 0.20
	}

	return Significance{
		Significant: p < 0.05,
		PValue:      p,
		TStatistic:  t,
	}
}

// CorrelationStrength buckets |r|; each threshold is an inclusive lower bound.
func CorrelationStrength(r float64) models.CorrelationStrength {
	abs := math.Abs(r)
	switch {
	case abs >= strongCorrelation:
		return models.StrengthStrong
	case abs >= moderateCorrelation:
		return models.StrengthModerate
	case abs >= weakCorrelation:
		return models.StrengthWeak
	default:
		return models.StrengthNegligible
	}
}

// InterpretCorrelation renders a deterministic sentence describing r.
func InterpretCorrelation(r float64, nameA, nameB string) string {
	rounded := decimal.NewFromFloat(r).Round(3).StringFixed(3)
	strength := CorrelationStrength(r)

	if strength == models.StrengthNegligible {
		return fmt.Sprintf("There is no meaningful relationship between %s and %s (r = %s).",
			nameA, nameB, rounded)
	}

	direction, tendency := "positive", "rise"
	if r < 0 {
		direction, tendency = "negative", "fall"
	}

	return fmt.Sprintf("%s %s correlation between %s and %s (r = %s): when %s goes up, %s tends to %s.",
		titleCase(string(strength)), direction, nameA, nameB, rounded, nameA, nameB, tendency)
}

// newCorrelationResult fills the derived fields of a coefficient.
func newCorrelationResult(metricA, metricB, nameA, nameB string, r float64, n int) models.CorrelationResult {
	sig := CorrelationSignificance(r, n)
	return models.CorrelationResult{
		MetricA:        metricA,
		MetricB:        metricB,
		MetricAName:    nameA,
		MetricBName:    nameB,
		Coefficient:    r,
		SampleSize:     n,
		Strength:       CorrelationStrength(r),
		PValue:         sig.PValue,
		Significant:    sig.Significant,
		Interpretation: InterpretCorrelation(r, nameOrID(nameA, metricA), nameOrID(nameB, metricB)),
	}
}
