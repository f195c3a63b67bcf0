package normalize

import (
	"fmt"
	"math"

	"github.com/utafrali/storescope/internal/domain"
)

// bellWeights is the weight template used to synthesize an App Store rating
// histogram, centered on the middle bucket before shifting.
var bellWeights = [5]float64{0.1, 0.2, 0.4, 0.2, 0.1}

// EstimateHistogram synthesizes a 5-bucket star distribution from a total
// rating count and an average score. The App Store API exposes no per-star
// counts, so the buckets follow a bell curve shifted to peak at the rounded
// average, with the rounding remainder folded into the peak bucket. The
// result is an estimate and is flagged as such on the rating summary.
func EstimateHistogram(total int, average float64) [5]int {
	var counts [5]int
	if total == 0 || average == 0 {
		return counts
	}

	avgIndex := int(math.Round(average)) - 1
	if avgIndex < 0 {
		avgIndex = 0
	}
	if avgIndex > 4 {
		avgIndex = 4
	}

	// Shift the template so its peak lands on the rounded average; buckets
	// shifted out of range fall back to the tail weight.
	shift := avgIndex - 2
	var shifted [5]float64
	for i := range shifted {
		src := i - shift
		if src < 0 || src >= len(bellWeights) {
			shifted[i] = 0.1
		} else {
			shifted[i] = bellWeights[src]
		}
	}

	sum := 0
	for i := range counts {
		counts[i] = int(math.Round(float64(total) * shifted[i]))
		sum += counts[i]
	}

	if diff := total - sum; diff != 0 {
		counts[avgIndex] += diff
	}

	return counts
}

// HistogramFromCounts converts per-star counts into histogram entries with
// formatted percentages, zero-filling any missing star levels.
func HistogramFromCounts(counts map[int]int, total int) map[int]domain.HistogramEntry {
	histogram := make(map[int]domain.HistogramEntry, 5)
	for star := 1; star <= 5; star++ {
		histogram[star] = domain.HistogramEntry{
			Count:      counts[star],
			Percentage: formatPercentage(counts[star], total),
		}
	}
	return histogram
}

func formatPercentage(count, total int) string {
	if total <= 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(count)/float64(total)*100)
}
