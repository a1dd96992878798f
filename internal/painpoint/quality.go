package painpoint

import "math"

// Sample-size boundaries for the quality grade. A pure step function:
// below 50 the run is exploratory, 200 and up it is reliable.
const (
	preliminarySampleSize = 50
	reliableSampleSize    = 200
)

// GradeDataQuality classifies a completed run by total text sample size and
// reports cluster statistics. Computed once, after all clusters are scored.
func GradeDataQuality(sampleSize int, clusters []Cluster) DataQuality {
	level := QualityExploratory
	switch {
	case sampleSize >= reliableSampleSize:
		level = QualityReliable
	case sampleSize >= preliminarySampleSize:
		level = QualityPreliminary
	}

	mean := 0
	if len(clusters) > 0 {
		total := 0
		for _, c := range clusters {
			total += c.Size()
		}
		mean = int(math.Round(float64(total) / float64(len(clusters))))
	}

	return DataQuality{
		Level:           level,
		SampleSize:      sampleSize,
		ClusterCount:    len(clusters),
		MeanClusterSize: mean,
	}
}
