// Package fairvalue fits a count distribution to a mention-count
// series and prices each outcome bucket with its probability.
package fairvalue

import (
	"math"
	"sort"
	"strconv"
)

// MaxBucket is the last bucket of every result table. It is an open
// upper tail: its PMF reports P(N >= MaxBucket), not P(N == MaxBucket).
const MaxBucket = 25

// Model selection thresholds.
const (
	overdispersionRatio = 1.2
	zinbMinZeroFraction = 0.25
	zinbMinPi           = 0.05
	empiricalMinSample  = 10
)

// Model names as reported in results.
const (
	ModelPoisson   = "poisson"
	ModelNegBin    = "negative_binomial"
	ModelZINB      = "zinb"
	ModelEmpirical = "empirical"
)

// Observation is one episode's mention count plus the episode duration
// used for normalization. A duration of zero means the length is
// unknown.
type Observation struct {
	Count           float64
	DurationSeconds float64
}

// Bucket prices one outcome: PMF is P(N = n), SF is P(N >= n). Pct is
// SF expressed as a percentage for display.
type Bucket struct {
	N     int     `json:"n"`
	Label string  `json:"label"`
	PMF   float64 `json:"pmf"`
	SF    float64 `json:"sf"`
	Pct   float64 `json:"pct"`
}

// Result reports the selected model, its fitted parameters, the sample
// moments behind the fit and the full bucket table. Parameter fields
// not used by the selected model are zero.
type Result struct {
	Model            string   `json:"model"`
	Lambda           float64  `json:"lambda,omitempty"`
	R                float64  `json:"r,omitempty"`
	P                float64  `json:"p,omitempty"`
	Pi               float64  `json:"pi,omitempty"`
	Mean             float64  `json:"mean"`
	StdDev           float64  `json:"std_dev"`
	ZeroFraction     float64  `json:"zero_fraction"`
	LookbackEpisodes int      `json:"lookback_episodes"`
	ReferenceMinutes float64  `json:"reference_minutes"`
	Buckets          []Bucket `json:"buckets"`
}

// Compute fits a distribution to the most recent lookback observations
// (all of them when lookback <= 0) and builds the bucket table.
// Observations must be ordered newest-first. When refDurationSeconds
// <= 0 the median duration across the window is used. Degenerate
// windows (empty, all zeros) are not errors; they fall through to a
// Poisson fit with lambda 0.
func Compute(observations []Observation, lookback int, refDurationSeconds float64) Result {
	window := observations
	if lookback > 0 && lookback < len(window) {
		window = window[:lookback]
	}

	sample, refSeconds := normalize(window, refDurationSeconds)

	mean, variance := moments(sample)
	zeroFrac := zeroFraction(sample)
	overdispersed := variance > mean*overdispersionRatio

	res := Result{
		Mean:             mean,
		StdDev:           math.Sqrt(variance),
		ZeroFraction:     zeroFrac,
		LookbackEpisodes: len(sample),
		ReferenceMinutes: refSeconds / 60,
	}

	var r, p, pi float64
	if overdispersed {
		r, p = negBinMoments(mean, variance)
		pi = math.Max(0, zeroFrac-negBinPMF(0, r, p))
	}

	// Ordered decision table, first satisfied row wins.
	var pmf func(k int) float64
	switch {
	case overdispersed && zeroFrac >= zinbMinZeroFraction && pi >= zinbMinPi:
		res.Model, res.R, res.P, res.Pi = ModelZINB, r, p, pi
		pmf = func(k int) float64 { return zinbPMF(k, r, p, pi) }
	case overdispersed:
		res.Model, res.R, res.P = ModelNegBin, r, p
		pmf = func(k int) float64 { return negBinPMF(k, r, p) }
	case len(sample) >= empiricalMinSample:
		res.Model = ModelEmpirical
		hist := histogram(sample)
		pmf = func(k int) float64 { return hist[k] }
	default:
		res.Model = ModelPoisson
		res.Lambda = mean
		pmf = func(k int) float64 { return poissonPMF(k, mean) }
	}

	res.Buckets = buildBuckets(pmf)
	return res
}

// normalize rescales counts onto a common reference duration. Entries
// with unknown duration are dropped when the rest of the window has
// durations; when no entry has one, raw counts pass through unscaled
// and the reference is reported as zero.
func normalize(window []Observation, refSeconds float64) ([]float64, float64) {
	durations := make([]float64, 0, len(window))
	for _, o := range window {
		if o.DurationSeconds > 0 {
			durations = append(durations, o.DurationSeconds)
		}
	}
	if len(durations) == 0 {
		counts := make([]float64, len(window))
		for i, o := range window {
			counts[i] = o.Count
		}
		return counts, 0
	}

	if refSeconds <= 0 {
		refSeconds = median(durations)
	}
	sample := make([]float64, 0, len(durations))
	for _, o := range window {
		if o.DurationSeconds <= 0 {
			continue
		}
		sample = append(sample, o.Count*refSeconds/o.DurationSeconds)
	}
	return sample, refSeconds
}

func moments(sample []float64) (mean, variance float64) {
	n := len(sample)
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range sample {
		sum += v
	}
	mean = sum / float64(n)
	if n < 2 {
		return mean, 0
	}
	var ss float64
	for _, v := range sample {
		d := v - mean
		ss += d * d
	}
	return mean, ss / float64(n-1)
}

func zeroFraction(sample []float64) float64 {
	if len(sample) == 0 {
		return 0
	}
	zeros := 0
	for _, v := range sample {
		if v == 0 {
			zeros++
		}
	}
	return float64(zeros) / float64(len(sample))
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// buildBuckets evaluates pmf over 1..MaxBucket. SF(n) is computed as
// 1 minus the cumulative mass below n, so it is non-increasing by
// construction; the final bucket folds all remaining mass into the
// open tail.
func buildBuckets(pmf func(int) float64) []Bucket {
	buckets := make([]Bucket, 0, MaxBucket)
	cum := pmf(0)
	for n := 1; n <= MaxBucket; n++ {
		sf := clamp01(1 - cum)
		mass := pmf(n)
		label := strconv.Itoa(n)
		if n == MaxBucket {
			mass = sf
			label += "+"
		}
		buckets = append(buckets, Bucket{N: n, Label: label, PMF: mass, SF: sf, Pct: sf * 100})
		cum += pmf(n)
	}
	return buckets
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
