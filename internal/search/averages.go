package search

// Rolling-average window sizes, most recent episodes first.
var windowSizes = [5]int{1, 5, 20, 50, 100}

func computeAverages(episodes []EpisodeCount) (raw, perMinute Averages) {
	var rawVals, pmVals [5]*float64
	for i, n := range windowSizes {
		rawVals[i] = rollingAvg(episodes, n)
		pmVals[i] = rollingAvgPerMinute(episodes, n)
	}
	raw = Averages{rawVals[0], rawVals[1], rawVals[2], rawVals[3], rawVals[4]}
	perMinute = Averages{pmVals[0], pmVals[1], pmVals[2], pmVals[3], pmVals[4]}
	return raw, perMinute
}

func rollingAvg(episodes []EpisodeCount, n int) *float64 {
	if n > len(episodes) {
		n = len(episodes)
	}
	if n == 0 {
		return nil
	}
	var sum float64
	for _, ep := range episodes[:n] {
		sum += float64(ep.Count)
	}
	avg := sum / float64(n)
	return &avg
}

// rollingAvgPerMinute averages the per-minute rate over the window,
// skipping episodes with unknown duration.
func rollingAvgPerMinute(episodes []EpisodeCount, n int) *float64 {
	if n > len(episodes) {
		n = len(episodes)
	}
	var sum float64
	used := 0
	for _, ep := range episodes[:n] {
		if ep.DurationSeconds <= 0 {
			continue
		}
		sum += ep.PerMinute
		used++
	}
	if used == 0 {
		return nil
	}
	avg := sum / float64(used)
	return &avg
}
