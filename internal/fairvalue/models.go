package fairvalue

import "math"

func poissonPMF(k int, lambda float64) float64 {
	if lambda <= 0 {
		if k == 0 {
			return 1
		}
		return 0
	}
	lg, _ := math.Lgamma(float64(k) + 1)
	return math.Exp(-lambda + float64(k)*math.Log(lambda) - lg)
}

// negBinMoments fits (r, p) by method of moments. Overdispersion
// guarantees variance > mean > 0, so r and p stay in range.
func negBinMoments(mean, variance float64) (r, p float64) {
	p = mean / variance
	r = mean * mean / (variance - mean)
	return r, p
}

// negBinPMF evaluates the negative binomial in its (r, p)
// parameterization, mean r(1-p)/p, through log-gamma to stay stable
// for fractional r.
func negBinPMF(k int, r, p float64) float64 {
	kf := float64(k)
	lgKR, _ := math.Lgamma(kf + r)
	lgR, _ := math.Lgamma(r)
	lgK, _ := math.Lgamma(kf + 1)
	return math.Exp(lgKR - lgR - lgK + r*math.Log(p) + kf*math.Log(1-p))
}

// zinbPMF layers an excess-zero mass pi on top of a negative binomial:
// the zero bucket gains pi, every other bucket shrinks by (1-pi).
func zinbPMF(k int, r, p, pi float64) float64 {
	nb := negBinPMF(k, r, p)
	if k == 0 {
		return pi + (1-pi)*nb
	}
	return (1 - pi) * nb
}

// histogram buckets normalized counts to their nearest non-negative
// integer and reports relative frequencies, used directly as an
// empirical PMF with no smoothing.
func histogram(sample []float64) map[int]float64 {
	hist := make(map[int]float64)
	for _, v := range sample {
		k := int(math.Round(v))
		if k < 0 {
			k = 0
		}
		hist[k]++
	}
	for k := range hist {
		hist[k] /= float64(len(sample))
	}
	return hist
}
