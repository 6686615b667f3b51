package storage

import (
	"math"

	"github.com/poiesic/ragline/core"
)

// NormalizeVector normalizes a vector to unit length.
// Returns a new vector. If the input is a zero vector, returns a zero vector.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var magnitude float64
	for _, val := range v {
		magnitude += float64(val) * float64(val)
	}
	magnitude = math.Sqrt(magnitude)

	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = float32(float64(val) / magnitude)
	}
	return result
}

// DotProduct calculates the dot product of two vectors.
func DotProduct(a, b []float32) float32 {
	var sum float32
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// EuclideanDistance returns the L2 distance between two vectors.
func EuclideanDistance(a, b []float32) float64 {
	var sum float64
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// PrepareVector returns the stored form of v for metric. Cosine indexes
// store unit vectors so that scoring reduces to a dot product.
func PrepareVector(v []float32, metric core.Metric) []float32 {
	if metric == core.MetricCosine {
		return NormalizeVector(v)
	}
	return v
}

// Score computes the similarity of a query and a stored vector, both in
// prepared form. Higher is more similar for every metric.
func Score(query, stored []float32, metric core.Metric) float32 {
	switch metric {
	case core.MetricEuclidean:
		return float32(1 / (1 + EuclideanDistance(query, stored)))
	default:
		return DotProduct(query, stored)
	}
}

// MatchesFilter reports whether metadata satisfies every equality condition
// in filter. Numeric values compare by value regardless of Go type.
func MatchesFilter(metadata *core.Metadata, filter map[string]any) bool {
	if len(filter) == 0 {
		return true
	}
	fields := metadata.Fields()
	for key, want := range filter {
		got, ok := fields[key]
		if !ok || !equalValues(got, want) {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		return af == bf
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
