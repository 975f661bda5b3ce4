package fairvalue

import (
	"math"
	"testing"
)

func obs(counts ...float64) []Observation {
	out := make([]Observation, len(counts))
	for i, c := range counts {
		out[i] = Observation{Count: c, DurationSeconds: 3600}
	}
	return out
}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestAllZeroSeriesSelectsPoisson(t *testing.T) {
	res := Compute(obs(0, 0, 0, 0, 0), 0, 0)
	if res.Model != ModelPoisson {
		t.Fatalf("model = %s, want poisson", res.Model)
	}
	if res.Lambda != 0 {
		t.Errorf("lambda = %v, want 0", res.Lambda)
	}
	if res.ZeroFraction != 1 {
		t.Errorf("zero fraction = %v, want 1", res.ZeroFraction)
	}
	if sf := res.Buckets[0].SF; sf != 0 {
		t.Errorf("sf(1) = %v, want 0", sf)
	}
}

func TestEmptyWindowSelectsPoisson(t *testing.T) {
	res := Compute(nil, 0, 0)
	if res.Model != ModelPoisson || res.Lambda != 0 {
		t.Fatalf("model = %s lambda = %v, want poisson 0", res.Model, res.Lambda)
	}
	if res.LookbackEpisodes != 0 {
		t.Errorf("lookback episodes = %d, want 0", res.LookbackEpisodes)
	}
	if sf := res.Buckets[0].SF; sf != 0 {
		t.Errorf("sf(1) = %v, want 0", sf)
	}
}

func TestSmallConstantSeriesSelectsPoisson(t *testing.T) {
	res := Compute(obs(3, 3, 3, 3, 3), 0, 0)
	if res.Model != ModelPoisson {
		t.Fatalf("model = %s, want poisson", res.Model)
	}
	if res.Lambda != 3 {
		t.Errorf("lambda = %v, want 3", res.Lambda)
	}
	var b3 Bucket
	for _, b := range res.Buckets {
		if b.N == 3 {
			b3 = b
		}
	}
	if !approx(b3.PMF, 0.22404, 1e-4) {
		t.Errorf("pmf(3) = %v, want ~0.22404", b3.PMF)
	}
}

func TestConstantSeriesOfTenSelectsEmpirical(t *testing.T) {
	res := Compute(obs(3, 3, 3, 3, 3, 3, 3, 3, 3, 3), 0, 0)
	if res.Model != ModelEmpirical {
		t.Fatalf("model = %s, want empirical", res.Model)
	}
	var b3, b4 Bucket
	for _, b := range res.Buckets {
		switch b.N {
		case 3:
			b3 = b
		case 4:
			b4 = b
		}
	}
	if b3.PMF != 1 {
		t.Errorf("pmf(3) = %v, want 1", b3.PMF)
	}
	if b3.SF != 1 {
		t.Errorf("sf(3) = %v, want 1", b3.SF)
	}
	if b4.SF != 0 {
		t.Errorf("sf(4) = %v, want 0", b4.SF)
	}
}

func TestOverdispersedSelectsNegativeBinomial(t *testing.T) {
	res := Compute(obs(1, 2, 3, 8, 1, 2, 9, 2), 0, 0)
	if res.Model != ModelNegBin {
		t.Fatalf("model = %s, want negative_binomial", res.Model)
	}
	if !approx(res.Mean, 3.5, 1e-9) {
		t.Errorf("mean = %v, want 3.5", res.Mean)
	}
	if !approx(res.P, 0.35, 1e-9) {
		t.Errorf("p = %v, want 0.35", res.P)
	}
	if !approx(res.R, 1.8846, 1e-3) {
		t.Errorf("r = %v, want ~1.8846", res.R)
	}
}

func TestZeroInflatedSeriesSelectsZINB(t *testing.T) {
	res := Compute(obs(0, 0, 0, 0, 5, 5, 4, 2, 2, 2), 0, 0)
	if res.Model != ModelZINB {
		t.Fatalf("model = %s, want zinb", res.Model)
	}
	if !approx(res.ZeroFraction, 0.4, 1e-9) {
		t.Errorf("zero fraction = %v, want 0.4", res.ZeroFraction)
	}
	if !approx(res.Pi, 0.1395, 1e-3) {
		t.Errorf("pi = %v, want ~0.1395", res.Pi)
	}
	if !approx(res.Buckets[0].SF, 0.6363, 1e-3) {
		t.Errorf("sf(1) = %v, want ~0.6363", res.Buckets[0].SF)
	}
}

func TestBucketTableShape(t *testing.T) {
	results := []Result{
		Compute(obs(0, 0, 0, 0, 5, 5, 4, 2, 2, 2), 0, 0),
		Compute(obs(1, 2, 3, 8, 1, 2, 9, 2), 0, 0),
		Compute(obs(3, 3, 3, 3, 3, 3, 3, 3, 3, 3), 0, 0),
		Compute(obs(2, 1, 2), 0, 0),
	}
	for _, res := range results {
		if len(res.Buckets) != MaxBucket {
			t.Fatalf("%s: %d buckets, want %d", res.Model, len(res.Buckets), MaxBucket)
		}
		var sum float64
		prev := math.Inf(1)
		for i, b := range res.Buckets {
			if b.N != i+1 {
				t.Errorf("%s: bucket %d has n=%d", res.Model, i, b.N)
			}
			if b.PMF < 0 {
				t.Errorf("%s: pmf(%d) = %v < 0", res.Model, b.N, b.PMF)
			}
			if b.SF > prev {
				t.Errorf("%s: sf(%d) = %v increased from %v", res.Model, b.N, b.SF, prev)
			}
			if !approx(b.Pct, b.SF*100, 1e-9) {
				t.Errorf("%s: pct(%d) = %v, want %v", res.Model, b.N, b.Pct, b.SF*100)
			}
			prev = b.SF
			sum += b.PMF
		}
		if sum > 1+1e-9 {
			t.Errorf("%s: pmf sum = %v > 1", res.Model, sum)
		}
		// The tail bucket folds all remaining mass, so the total over
		// 1..MaxBucket equals P(N >= 1).
		if !approx(sum, res.Buckets[0].SF, 1e-6) {
			t.Errorf("%s: pmf sum = %v, want sf(1) = %v", res.Model, sum, res.Buckets[0].SF)
		}
		last := res.Buckets[MaxBucket-1]
		if last.Label != "25+" {
			t.Errorf("%s: tail label = %q, want 25+", res.Model, last.Label)
		}
		if !approx(last.PMF, last.SF, 1e-12) {
			t.Errorf("%s: tail pmf = %v, want sf = %v", res.Model, last.PMF, last.SF)
		}
	}
}

func TestDurationNormalization(t *testing.T) {
	observations := []Observation{
		{Count: 10, DurationSeconds: 3600},
		{Count: 10, DurationSeconds: 1800},
	}
	res := Compute(observations, 0, 3600)
	if !approx(res.Mean, 15, 1e-9) {
		t.Errorf("mean = %v, want 15", res.Mean)
	}
	if res.ReferenceMinutes != 60 {
		t.Errorf("reference minutes = %v, want 60", res.ReferenceMinutes)
	}
}

func TestMedianReferenceDuration(t *testing.T) {
	observations := []Observation{
		{Count: 4, DurationSeconds: 1800},
		{Count: 4, DurationSeconds: 3600},
		{Count: 4, DurationSeconds: 7200},
	}
	res := Compute(observations, 0, 0)
	if res.ReferenceMinutes != 60 {
		t.Errorf("reference minutes = %v, want 60 (median)", res.ReferenceMinutes)
	}
}

func TestLookbackTruncation(t *testing.T) {
	res := Compute(obs(10, 10, 1, 1, 1, 1), 2, 0)
	if res.LookbackEpisodes != 2 {
		t.Errorf("lookback episodes = %d, want 2", res.LookbackEpisodes)
	}
	if !approx(res.Mean, 10, 1e-9) {
		t.Errorf("mean = %v, want 10 (newest two)", res.Mean)
	}
}

func TestUnknownDurationsDropped(t *testing.T) {
	observations := []Observation{
		{Count: 4, DurationSeconds: 3600},
		{Count: 9, DurationSeconds: 0},
		{Count: 2, DurationSeconds: 3600},
	}
	res := Compute(observations, 0, 0)
	if res.LookbackEpisodes != 2 {
		t.Errorf("lookback episodes = %d, want 2", res.LookbackEpisodes)
	}
	if !approx(res.Mean, 3, 1e-9) {
		t.Errorf("mean = %v, want 3", res.Mean)
	}
}

func TestRawCountsWhenNoDurations(t *testing.T) {
	observations := []Observation{
		{Count: 4, DurationSeconds: 0},
		{Count: 2, DurationSeconds: 0},
	}
	res := Compute(observations, 0, 0)
	if !approx(res.Mean, 3, 1e-9) {
		t.Errorf("mean = %v, want 3", res.Mean)
	}
	if res.ReferenceMinutes != 0 {
		t.Errorf("reference minutes = %v, want 0", res.ReferenceMinutes)
	}
}
